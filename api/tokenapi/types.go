// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tokenapi

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/garnerfi/garner/garner"
)

// Supply is the global token snapshot.
type Supply struct {
	TotalSupply    math.HexOrDecimal256 `json:"totalSupply"`
	CustodyBalance math.HexOrDecimal256 `json:"custodyBalance"`
}

// Balance is the free token balance of one account.
type Balance struct {
	Balance math.HexOrDecimal256 `json:"balance"`
}

// Allowance is the remaining allowance of a spender over an account.
type Allowance struct {
	Remaining math.HexOrDecimal256 `json:"remaining"`
}

// ApprovalRequest grants custody the right to pull amount from the
// caller. A zero amount revokes the grant.
type ApprovalRequest struct {
	Caller garner.Address        `json:"caller"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

// ApprovalResult reports the remaining allowance after the grant.
type ApprovalResult struct {
	Remaining math.HexOrDecimal256 `json:"remaining"`
}

// TransferRequest moves amount of free balance between accounts.
type TransferRequest struct {
	From   garner.Address        `json:"from"`
	To     garner.Address        `json:"to"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

// TransferResult reports both balances after the move.
type TransferResult struct {
	FromBalance math.HexOrDecimal256 `json:"fromBalance"`
	ToBalance   math.HexOrDecimal256 `json:"toBalance"`
}
