// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/lvldb"
	"github.com/garnerfi/garner/state"
)

func M(a ...any) []any {
	return a
}

func TestPool(t *testing.T) {
	store, err := lvldb.NewMem()
	require.NoError(t, err)
	defer store.Close()

	p := New(state.New(store, nil))
	owner := garner.BytesToAddress([]byte("owner"))

	tests := []struct {
		ret      []any
		expected []any
	}{
		{M(p.Balance()), M(&big.Int{}, nil)},
		{M(p.RateBps()), M(uint64(0), nil)},
		{M(p.Enabled()), M(false, nil)},
		{M(p.Owner()), M(garner.Address{}, nil)},
		{M(p.SetBalance(big.NewInt(1000))), M(nil)},
		{M(p.Balance()), M(big.NewInt(1000), nil)},
		{M(p.SetRateBps(1250)), M(nil)},
		{M(p.RateBps()), M(uint64(1250), nil)},
		{M(p.SetEnabled(true)), M(nil)},
		{M(p.Enabled()), M(true, nil)},
		{M(p.SetOwner(owner)), M(nil)},
		{M(p.Owner()), M(owner, nil)},
		{M(p.SetEnabled(false)), M(nil)},
		{M(p.Enabled()), M(false, nil)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.ret)
	}
}

func TestPoolPersistence(t *testing.T) {
	store, err := lvldb.NewMem()
	require.NoError(t, err)
	defer store.Close()

	st := state.New(store, nil)
	p := New(st)

	require.NoError(t, p.SetBalance(big.NewInt(77)))
	require.NoError(t, p.SetRateBps(500))
	require.NoError(t, p.SetEnabled(true))
	require.NoError(t, st.Commit())

	p = New(state.New(store, nil))

	balance, err := p.Balance()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(77), balance)

	rate, err := p.RateBps()
	require.NoError(t, err)
	assert.Equal(t, uint64(500), rate)

	enabled, err := p.Enabled()
	require.NoError(t, err)
	assert.True(t, enabled)
}
