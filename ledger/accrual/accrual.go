// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package accrual settles time-proportional staking rewards.
//
// Rewards grow linearly with stake, elapsed seconds and the annual rate
// in basis points:
//
//	reward = staked * rateBps * elapsed / (SecondsPerYear * 10000)
//
// The division floors, so dust below one base unit per settled interval
// is never minted. Settlement is lazy. Entries carry the timestamp of
// their last settlement and every operation on an entry settles the
// pending interval first, at the rate in force at settlement time.
package accrual

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/ledger/account"
)

// Calc returns the reward earned by the given stake over elapsed seconds
// at the given annual rate. The result is floored to whole base units.
func Calc(staked *big.Int, rateBps, elapsed uint64) *big.Int {
	if staked.Sign() == 0 || rateBps == 0 || elapsed == 0 {
		return &big.Int{}
	}
	x := new(big.Int).SetUint64(rateBps)
	x.Mul(x, new(big.Int).SetUint64(elapsed))
	x.Mul(x, staked)
	// a fresh receiver keeps the floored-to-zero result canonical
	return new(big.Int).Div(x, garner.AccrualDenominator)
}

// Engine settles rewards onto staking entries against an external clock.
type Engine struct {
	now func() uint64
}

// New creates an engine reading the current unix time from now.
func New(now func() uint64) *Engine {
	return &Engine{now}
}

// Update settles the pending interval of acc at the given rate and stamps
// the settlement time. Entries with nothing staked earn nothing, but are
// stamped anyway so that a following stake opens a fresh interval.
func (e *Engine) Update(acc *account.Account, rateBps uint64) error {
	now := e.now()
	// the stamp never moves backwards, staked or not
	if now < acc.LastUpdateTime {
		return errors.New("entry settled in the future")
	}
	if acc.StakedBalance.Sign() > 0 {
		delta := Calc(acc.StakedBalance, rateBps, now-acc.LastUpdateTime)
		acc.AccruedRewards = new(big.Int).Add(acc.AccruedRewards, delta)
	}
	acc.LastUpdateTime = now
	return nil
}

// Project returns the rewards acc would hold if settled now, leaving the
// entry untouched. It agrees exactly with Update.
func (e *Engine) Project(acc *account.Account, rateBps uint64) (*big.Int, error) {
	now := e.now()
	if now < acc.LastUpdateTime {
		return nil, errors.New("entry settled in the future")
	}
	if acc.StakedBalance.Sign() == 0 {
		return new(big.Int).Set(acc.AccruedRewards), nil
	}
	delta := Calc(acc.StakedBalance, rateBps, now-acc.LastUpdateTime)
	return delta.Add(delta, acc.AccruedRewards), nil
}
