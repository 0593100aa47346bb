// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/ledger/account"
	"github.com/garnerfi/garner/ledger/pool"
	"github.com/garnerfi/garner/state"
	"github.com/garnerfi/garner/token"
)

// NewCustomNet create custom network genesis.
func NewCustomNet(gen *CustomGenesis) (*Genesis, error) {
	launchTime := gen.LaunchTime

	if gen.Owner.IsZero() {
		return nil, errors.New("owner must be set")
	}
	poolBalance := (*big.Int)(gen.Pool)
	if poolBalance == nil {
		poolBalance = &big.Int{}
	}
	if poolBalance.Sign() < 0 {
		return nil, errors.New("pool must be a non-negative integer")
	}
	for _, a := range gen.Accounts {
		if a.Balance == nil && a.Staked == nil {
			return nil, fmt.Errorf("%s: balance or staked must be set", a.Address)
		}
		if b := (*big.Int)(a.Balance); b != nil && b.Sign() < 0 {
			return nil, fmt.Errorf("%s: balance must be a non-negative integer", a.Address)
		}
		if s := (*big.Int)(a.Staked); s != nil && s.Sign() < 0 {
			return nil, fmt.Errorf("%s: staked must be a non-negative integer", a.Address)
		}
	}

	builder := new(Builder).
		Timestamp(launchTime).
		State(func(state *state.State) error {
			p := pool.New(state)
			if err := p.SetOwner(gen.Owner); err != nil {
				return err
			}
			if err := p.SetRateBps(gen.RateBps); err != nil {
				return err
			}
			if err := p.SetBalance(poolBalance); err != nil {
				return err
			}
			// an unfunded pool launches closed
			if poolBalance.Sign() > 0 {
				if err := p.SetEnabled(true); err != nil {
					return err
				}
			}

			tok := token.New(state)
			if err := tok.Mint(garner.CustodyAddress, poolBalance); err != nil {
				return err
			}

			book := account.New(state)
			totalStaked := &big.Int{}
			for _, a := range gen.Accounts {
				if b := (*big.Int)(a.Balance); b != nil && b.Sign() > 0 {
					if err := tok.Mint(a.Address, b); err != nil {
						return err
					}
				}
				s := (*big.Int)(a.Staked)
				if s == nil || s.Sign() == 0 {
					continue
				}
				// pre-staked principal lives in custody and starts
				// accruing at launch
				if err := tok.Mint(garner.CustodyAddress, s); err != nil {
					return err
				}
				if err := book.Set(a.Address, &account.Account{
					StakedBalance:  s,
					AccruedRewards: &big.Int{},
					LastUpdateTime: launchTime,
				}); err != nil {
					return err
				}
				totalStaked.Add(totalStaked, s)
			}
			return book.SetTotalStaked(totalStaked)
		})

	id, err := builder.ComputeID()
	if err != nil {
		return nil, err
	}
	return &Genesis{builder, id, "customnet"}, nil
}
