// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/state"
)

var (
	balanceKey = garner.Blake2b([]byte("reward-pool-balance"))
	rateKey    = garner.Blake2b([]byte("reward-rate-bps"))
	enabledKey = garner.Blake2b([]byte("staking-enabled"))
	ownerKey   = garner.Blake2b([]byte("owner"))
)

// Pool holds the owner-funded reward float and the staking controls.
// Rewards are only ever paid out of the float, never minted.
type Pool struct {
	state *state.State
}

func New(state *state.State) *Pool {
	return &Pool{state}
}

// Balance returns the undistributed reward float.
func (p *Pool) Balance() (*big.Int, error) {
	var b big.Int
	if err := p.state.GetStructuredStorage(balanceKey, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// SetBalance stores the undistributed reward float.
func (p *Pool) SetBalance(b *big.Int) error {
	return p.state.SetStructuredStorage(balanceKey, b)
}

// RateBps returns the annual reward rate in basis points.
func (p *Pool) RateBps() (uint64, error) {
	var r uint64
	if err := p.state.GetStructuredStorage(rateKey, &r); err != nil {
		return 0, err
	}
	return r, nil
}

// SetRateBps stores the annual reward rate. The rate is uncapped, values
// above 10000 bps pay more than the stake per year.
func (p *Pool) SetRateBps(r uint64) error {
	return p.state.SetStructuredStorage(rateKey, r)
}

// Enabled reports whether staking and claiming are open.
func (p *Pool) Enabled() (bool, error) {
	var e bool
	if err := p.state.GetStructuredStorage(enabledKey, &e); err != nil {
		return false, err
	}
	return e, nil
}

// SetEnabled opens or closes staking and claiming.
func (p *Pool) SetEnabled(e bool) error {
	return p.state.SetStructuredStorage(enabledKey, e)
}

// Owner returns the administrative account.
func (p *Pool) Owner() (garner.Address, error) {
	var owner garner.Address
	if err := p.state.GetStructuredStorage(ownerKey, &owner); err != nil {
		return garner.Address{}, err
	}
	return owner, nil
}

// SetOwner stores the administrative account.
func (p *Pool) SetOwner(owner garner.Address) error {
	return p.state.SetStructuredStorage(ownerKey, owner)
}
