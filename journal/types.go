// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package journal

import (
	"math/big"

	"github.com/garnerfi/garner/garner"
)

// Operation kinds recorded by the ledger.
const (
	OpStake           = "stake"
	OpUnstake         = "unstake"
	OpClaim           = "claim"
	OpUnstakeAndClaim = "unstake-and-claim"
	OpDeposit         = "deposit"
	OpWithdraw        = "withdraw"
	OpUpdateRate      = "update-rate"
	OpEnable          = "enable"
	OpDisable         = "disable"
)

// Entry is one settled ledger operation.
type Entry struct {
	Sequence  uint64         `json:"sequence"`
	Op        string         `json:"op"`
	Caller    garner.Address `json:"caller"`
	Amount    *big.Int       `json:"amount"`
	Reward    *big.Int       `json:"reward"`
	Timestamp uint64         `json:"timestamp"`
}

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Range bounds entries by settlement time, inclusive on both ends.
type Range struct {
	From uint64
	To   uint64
}

type Options struct {
	Offset uint64
	Limit  uint64
}

// Filter selects entries to return. Zero valued fields match everything.
type Filter struct {
	Op            string
	Caller        *garner.Address
	Range         *Range
	AfterSequence uint64 // only entries with a higher sequence, 0 matches all
	Options       *Options
	Order         Order // default asc
}
