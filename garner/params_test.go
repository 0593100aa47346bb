// Copyright (c) 2024 The Garner developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package garner

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccrualConstants(t *testing.T) {
	assert.Equal(t, uint64(31536000), SecondsPerYear)
	assert.Equal(t, uint64(10000), RateDenominatorBps)
	assert.Equal(t, new(big.Int).SetUint64(31536000*10000), AccrualDenominator)
}

func TestCustodyAddress(t *testing.T) {
	assert.False(t, CustodyAddress.IsZero())
	assert.Equal(t, BytesToAddress([]byte("garner-custody")), CustodyAddress)
}
