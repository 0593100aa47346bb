// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/garnerfi/garner/garner"
)

// Master is the node identity. Owner gated operations on the admin
// listener run as this address.
type Master struct {
	PrivateKey *ecdsa.PrivateKey
}

func (m *Master) Address() garner.Address {
	return garner.Address(crypto.PubkeyToAddress(m.PrivateKey.PublicKey))
}
