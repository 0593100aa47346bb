// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package owner

import (
	"github.com/ethereum/go-ethereum/common/math"
)

// DepositRequest funds the reward pool from the owner balance.
type DepositRequest struct {
	Amount *math.HexOrDecimal256 `json:"amount"`
}

// WithdrawResult reports the pool balance returned to the owner.
type WithdrawResult struct {
	Amount math.HexOrDecimal256 `json:"amount"`
}

// RateRequest sets the annual reward rate in basis points.
type RateRequest struct {
	RateBps *uint64 `json:"rateBps"`
}

// RateResponse reports the annual reward rate in basis points.
type RateResponse struct {
	RateBps uint64 `json:"rateBps"`
}

// StakingRequest opens or closes staking.
type StakingRequest struct {
	Enabled *bool `json:"enabled"`
}
