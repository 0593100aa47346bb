// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledgerapi

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/ledger"
	"github.com/garnerfi/garner/ledger/account"
)

// Status is the global staking snapshot.
type Status struct {
	Owner       garner.Address       `json:"owner"`
	RateBps     uint64               `json:"rateBps"`
	Enabled     bool                 `json:"enabled"`
	TotalStaked math.HexOrDecimal256 `json:"totalStaked"`
	PoolBalance math.HexOrDecimal256 `json:"poolBalance"`
}

// ConvertStatus builds the wire form of a ledger status snapshot.
func ConvertStatus(status *ledger.Status) *Status {
	return &Status{
		Owner:       status.Owner,
		RateBps:     status.RateBps,
		Enabled:     status.Enabled,
		TotalStaked: math.HexOrDecimal256(*status.TotalStaked),
		PoolBalance: math.HexOrDecimal256(*status.PoolBalance),
	}
}

// Account is the stored entry of a staker plus the reward projection at
// query time.
type Account struct {
	StakedBalance  math.HexOrDecimal256 `json:"stakedBalance"`
	AccruedRewards math.HexOrDecimal256 `json:"accruedRewards"`
	PendingRewards math.HexOrDecimal256 `json:"pendingRewards"`
	LastUpdateTime uint64               `json:"lastUpdateTime"`
}

func convertAccount(acc *account.Account, pending *big.Int) *Account {
	return &Account{
		StakedBalance:  math.HexOrDecimal256(*acc.StakedBalance),
		AccruedRewards: math.HexOrDecimal256(*acc.AccruedRewards),
		PendingRewards: math.HexOrDecimal256(*pending),
		LastUpdateTime: acc.LastUpdateTime,
	}
}

// Rewards is the projection of claimable rewards, nothing is settled by
// reading it.
type Rewards struct {
	PendingRewards math.HexOrDecimal256 `json:"pendingRewards"`
}

// StakeRequest moves amount from caller into custody.
type StakeRequest struct {
	Caller garner.Address        `json:"caller"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

// UnstakeRequest returns amount of staked principal to caller.
type UnstakeRequest struct {
	Caller garner.Address        `json:"caller"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

// ClaimRequest pays out the accrued rewards of caller.
type ClaimRequest struct {
	Caller garner.Address `json:"caller"`
}

// ClaimResult reports the reward paid by a claim.
type ClaimResult struct {
	Reward math.HexOrDecimal256 `json:"reward"`
}

// ExitRequest closes out caller in one transition.
type ExitRequest struct {
	Caller garner.Address `json:"caller"`
}

// ExitResult reports the principal and reward paid by an exit.
type ExitResult struct {
	Principal math.HexOrDecimal256 `json:"principal"`
	Reward    math.HexOrDecimal256 `json:"reward"`
}
