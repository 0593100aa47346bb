// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"context"
	"time"

	"github.com/garnerfi/garner/journal"
	"github.com/garnerfi/garner/ledger"
)

const probeTimeout = 3 * time.Second

// EntryIngestion locates the newest settled operation in the journal.
type EntryIngestion struct {
	Sequence  uint64 `json:"sequence"`
	Timestamp uint64 `json:"timestamp"`
}

// Status is the liveness snapshot of the node.
type Status struct {
	Healthy          bool            `json:"healthy"`
	StateAccessible  bool            `json:"stateAccessible"`
	JournalConnected bool            `json:"journalConnected"`
	StakingEnabled   bool            `json:"stakingEnabled"`
	LastEntry        *EntryIngestion `json:"lastEntry"`
}

type Health struct {
	staking *ledger.Ledger
	db      *journal.Journal
}

func New(staking *ledger.Ledger, db *journal.Journal) *Health {
	return &Health{
		staking: staking,
		db:      db,
	}
}

// Status probes the state store and the journal. The node is healthy
// when both answer; an idle ledger is not a failure.
func (h *Health) Status() (*Status, error) {
	var s Status

	if status, err := h.staking.Status(); err == nil {
		s.StateAccessible = true
		s.StakingEnabled = status.Enabled
	}

	if h.db != nil {
		if err := h.db.Ping(); err == nil {
			s.JournalConnected = true
			s.LastEntry = h.lastEntry()
		}
	}

	s.Healthy = s.StateAccessible && s.JournalConnected
	return &s, nil
}

func (h *Health) lastEntry() *EntryIngestion {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	entries, err := h.db.Filter(ctx, &journal.Filter{
		Order:   journal.DESC,
		Options: &journal.Options{Offset: 0, Limit: 1},
	})
	if err != nil || len(entries) == 0 {
		return nil
	}
	return &EntryIngestion{
		Sequence:  entries[0].Sequence,
		Timestamp: entries[0].Timestamp,
	}
}
