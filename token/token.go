// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"math/big"

	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/state"
)

var totalSupplyKey = garner.Keccak256([]byte("token-supply"))

func balanceKey(addr garner.Address) garner.Bytes32 {
	return garner.BytesToBytes32(append([]byte("b"), addr.Bytes()...))
}

func allowanceKey(owner garner.Address, spender garner.Address) garner.Bytes32 {
	return garner.Keccak256(owner.Bytes(), spender.Bytes())
}

// Token is the asset ledger backing staked principal and reward payouts.
// Balances live in the shared state keyspace, so token moves commit or
// revert together with the staking bookkeeping that caused them.
type Token struct {
	state *state.State
}

func New(state *state.State) *Token {
	return &Token{state}
}

func (t *Token) getStorage(key garner.Bytes32, val any) error {
	return t.state.GetStructuredStorage(key, val)
}

func (t *Token) setStorage(key garner.Bytes32, val any) error {
	return t.state.SetStructuredStorage(key, val)
}

// TotalSupply returns the total minted supply.
func (t *Token) TotalSupply() (*big.Int, error) {
	var supply big.Int
	if err := t.getStorage(totalSupplyKey, &supply); err != nil {
		return nil, err
	}
	return &supply, nil
}

// BalanceOf returns the balance of the given address.
func (t *Token) BalanceOf(addr garner.Address) (*big.Int, error) {
	var bal big.Int
	if err := t.getStorage(balanceKey(addr), &bal); err != nil {
		return nil, err
	}
	return &bal, nil
}

func (t *Token) getAndSetBalance(addr garner.Address, cb func(bal *big.Int) bool) (bool, error) {
	key := balanceKey(addr)
	var bal big.Int
	if err := t.getStorage(key, &bal); err != nil {
		return false, err
	}
	if !cb(&bal) {
		return false, nil
	}
	if err := t.setStorage(key, &bal); err != nil {
		return false, err
	}
	return true, nil
}

// Mint creates amount new tokens on the balance of addr.
func (t *Token) Mint(addr garner.Address, amount *big.Int) error {
	if _, err := t.getAndSetBalance(addr, func(bal *big.Int) bool {
		bal.Add(bal, amount)
		return true
	}); err != nil {
		return err
	}
	var supply big.Int
	if err := t.getStorage(totalSupplyKey, &supply); err != nil {
		return err
	}
	supply.Add(&supply, amount)
	return t.setStorage(totalSupplyKey, &supply)
}

// Add adds amount to the balance of addr.
func (t *Token) Add(addr garner.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	_, err := t.getAndSetBalance(addr, func(bal *big.Int) bool {
		bal.Add(bal, amount)
		return true
	})
	return err
}

// Sub subtracts amount from the balance of addr.
// It returns false when the balance is insufficient.
func (t *Token) Sub(addr garner.Address, amount *big.Int) (bool, error) {
	if amount.Sign() == 0 {
		return true, nil
	}
	return t.getAndSetBalance(addr, func(bal *big.Int) bool {
		if bal.Cmp(amount) < 0 {
			return false
		}
		bal.Sub(bal, amount)
		return true
	})
}

// Transfer moves amount from one balance to another.
// It returns false when the sender balance is insufficient.
func (t *Token) Transfer(from garner.Address, to garner.Address, amount *big.Int) (bool, error) {
	ok, err := t.Sub(from, amount)
	if err != nil || !ok {
		return ok, err
	}
	if err := t.Add(to, amount); err != nil {
		return false, err
	}
	return true, nil
}

// Approve sets the allowance of spender over the balance of owner.
func (t *Token) Approve(owner garner.Address, spender garner.Address, amount *big.Int) error {
	return t.setStorage(allowanceKey(owner, spender), amount)
}

// Allowance returns the remaining allowance of spender over the balance of owner.
func (t *Token) Allowance(owner garner.Address, spender garner.Address) (*big.Int, error) {
	var allowance big.Int
	if err := t.getStorage(allowanceKey(owner, spender), &allowance); err != nil {
		return nil, err
	}
	return &allowance, nil
}

// TransferFrom moves amount from one balance to another on behalf of spender,
// consuming the allowance granted by from.
// It returns false when the allowance or the sender balance is insufficient.
func (t *Token) TransferFrom(spender garner.Address, from garner.Address, to garner.Address, amount *big.Int) (bool, error) {
	key := allowanceKey(from, spender)
	var allowance big.Int
	if err := t.getStorage(key, &allowance); err != nil {
		return false, err
	}
	if allowance.Cmp(amount) < 0 {
		return false, nil
	}
	ok, err := t.Transfer(from, to, amount)
	if err != nil || !ok {
		return ok, err
	}
	allowance.Sub(&allowance, amount)
	return true, t.setStorage(key, &allowance)
}
