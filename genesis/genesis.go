// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/state"
)

// Genesis is a fully specified initial ledger state.
type Genesis struct {
	builder *Builder
	id      garner.Bytes32
	name    string
}

// Build applies the initial state onto the given store.
func (g *Genesis) Build(stater *state.Stater) error {
	return g.builder.Build(stater)
}

// ID returns the genesis ID, which identifies the network.
func (g *Genesis) ID() garner.Bytes32 {
	return g.id
}

// Name returns the network name.
func (g *Genesis) Name() string {
	return g.name
}

// Timestamp returns the launch timestamp.
func (g *Genesis) Timestamp() uint64 {
	return g.builder.timestamp
}
