// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package journalapi

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/journal"
)

// Entry is the wire form of one settled ledger operation.
type Entry struct {
	Sequence  uint64               `json:"sequence"`
	Op        string               `json:"op"`
	Caller    garner.Address       `json:"caller"`
	Amount    math.HexOrDecimal256 `json:"amount"`
	Reward    math.HexOrDecimal256 `json:"reward"`
	Timestamp uint64               `json:"timestamp"`
}

// ConvertEntry converts a journal entry to its wire form.
func ConvertEntry(e *journal.Entry) *Entry {
	return &Entry{
		Sequence:  e.Sequence,
		Op:        e.Op,
		Caller:    e.Caller,
		Amount:    math.HexOrDecimal256(*e.Amount),
		Reward:    math.HexOrDecimal256(*e.Reward),
		Timestamp: e.Timestamp,
	}
}

// Range bounds entries by settlement time, inclusive on both ends.
type Range struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

// Options paginates the result set.
type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

// EntryFilter selects audit entries. Zero valued fields match everything.
type EntryFilter struct {
	Op            string          `json:"op"`
	Caller        *garner.Address `json:"caller"`
	Range         *Range          `json:"range"`
	AfterSequence uint64          `json:"afterSequence"`
	Options       *Options        `json:"options"`
	Order         journal.Order   `json:"order"`
}

func convertFilter(ef *EntryFilter) *journal.Filter {
	filter := &journal.Filter{
		Op:            ef.Op,
		Caller:        ef.Caller,
		AfterSequence: ef.AfterSequence,
		Order:         ef.Order,
	}
	if ef.Range != nil {
		filter.Range = &journal.Range{From: ef.Range.From, To: ef.Range.To}
	}
	if ef.Options != nil {
		filter.Options = &journal.Options{Offset: ef.Options.Offset, Limit: ef.Options.Limit}
	}
	return filter
}
