// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/sync/errgroup"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/genesis"
	"github.com/garnerfi/garner/journal"
	"github.com/garnerfi/garner/ledger"
	"github.com/garnerfi/garner/state"
	"github.com/garnerfi/garner/token"
)

func verifyAction(ctx *cli.Context) error {
	initLogger(ctx)

	gene := selectGenesis(ctx)
	instanceDir := makeInstanceDir(ctx, gene)

	mainDB, stateCacheMB := openMainDB(ctx, instanceDir)
	defer mainDB.Close()
	stater := initLedgerState(gene, mainDB, stateCacheMB)

	jrn := openJournal(instanceDir)
	defer jrn.Close()

	return verifyJournal(handleExitSignal(), gene, jrn, stater)
}

// verifyJournal replays every journal entry onto a fresh in-memory
// ledger and reports the first divergence, either in a recorded payout
// or in the final state.
func verifyJournal(ctx context.Context, gene *genesis.Genesis, jrn *journal.Journal, stater *state.Stater) error {
	fmt.Println(">> Verifying journal <<")

	tail, err := jrn.Filter(ctx, &journal.Filter{
		Order:   journal.DESC,
		Options: &journal.Options{Limit: 1},
	})
	if err != nil {
		return err
	}
	var total int64
	if len(tail) > 0 {
		total = int64(tail[0].Sequence)
	}

	replayStater := state.NewStater(openMemMainDB(), 0)
	if err := gene.Build(replayStater); err != nil {
		return errors.Wrap(err, "build genesis state")
	}

	replayer := newJournalReplayer(replayStater)

	bar := pb.New64(total).
		Set64(0).
		SetMaxWidth(90).
		Start()
	defer func() { bar.NotPrint = true }()

	entryCh := make(chan *journal.Entry, 512)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		defer close(entryCh)

		const pageSize = 1000
		after := uint64(0)
		for {
			page, err := jrn.Filter(groupCtx, &journal.Filter{
				AfterSequence: after,
				Options:       &journal.Options{Limit: pageSize},
			})
			if err != nil {
				return err
			}
			for _, e := range page {
				select {
				case entryCh <- e:
				case <-groupCtx.Done():
					return groupCtx.Err()
				}
			}
			if len(page) < pageSize {
				return nil
			}
			after = page[len(page)-1].Sequence
		}
	})
	group.Go(func() error {
		for e := range entryCh {
			if err := replayer.apply(e); err != nil {
				return err
			}
			bar.Add64(1)
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return err
	}

	if err := compareLedgers(stater, replayStater); err != nil {
		return err
	}

	bar.Finish()
	return nil
}

// journalReplayer drives a side ledger whose clock follows the
// timestamps of the entries being replayed.
type journalReplayer struct {
	clock   uint64
	staking *ledger.Ledger
}

func newJournalReplayer(stater *state.Stater) *journalReplayer {
	r := &journalReplayer{}
	r.staking = ledger.New(stater, nil, func() uint64 { return r.clock })
	return r
}

func (r *journalReplayer) apply(e *journal.Entry) error {
	r.clock = e.Timestamp

	recomputed := &journal.Entry{
		Sequence:  e.Sequence,
		Op:        e.Op,
		Caller:    e.Caller,
		Timestamp: e.Timestamp,
	}

	var err error
	switch e.Op {
	case journal.OpStake:
		// allowance grants are not journaled, regrant before pulling
		recomputed.Amount = e.Amount
		if err = r.staking.Approve(e.Caller, e.Amount); err == nil {
			err = r.staking.Stake(e.Caller, e.Amount)
		}
	case journal.OpUnstake:
		recomputed.Amount = e.Amount
		err = r.staking.Unstake(e.Caller, e.Amount)
	case journal.OpClaim:
		recomputed.Reward, err = r.staking.ClaimRewards(e.Caller)
	case journal.OpUnstakeAndClaim:
		recomputed.Amount, recomputed.Reward, err = r.staking.UnstakeAndClaim(e.Caller)
	case journal.OpDeposit:
		recomputed.Amount = e.Amount
		if err = r.staking.Approve(e.Caller, e.Amount); err == nil {
			err = r.staking.DepositRewards(e.Caller, e.Amount)
		}
	case journal.OpWithdraw:
		recomputed.Amount, err = r.staking.WithdrawRewards(e.Caller)
	case journal.OpUpdateRate:
		recomputed.Amount = e.Amount
		err = r.staking.UpdateRate(e.Caller, e.Amount.Uint64())
	case journal.OpEnable:
		err = r.staking.EnableStaking(e.Caller)
	case journal.OpDisable:
		err = r.staking.DisableStaking(e.Caller)
	default:
		return errors.Errorf("unknown op %q at sequence %v", e.Op, e.Sequence)
	}
	if err != nil {
		return errors.Wrapf(err, "replay %v at sequence %v", e.Op, e.Sequence)
	}

	// the journal stores zero amounts, not nil
	if recomputed.Amount == nil {
		recomputed.Amount = &big.Int{}
	}
	if recomputed.Reward == nil {
		recomputed.Reward = &big.Int{}
	}

	if !entriesMatch(e, recomputed) {
		fmt.Println("\nDiff journal entry")
		fmt.Println(dumpDiff(e, recomputed))
		return errors.Errorf("journal divergence at sequence %v", e.Sequence)
	}
	return nil
}

func entriesMatch(a, b *journal.Entry) bool {
	return a.Op == b.Op &&
		a.Caller == b.Caller &&
		a.Timestamp == b.Timestamp &&
		a.Amount.Cmp(b.Amount) == 0 &&
		a.Reward.Cmp(b.Reward) == 0
}

func compareLedgers(live, replayed *state.Stater) error {
	liveStatus, err := ledger.New(live, nil, func() uint64 { return 0 }).Status()
	if err != nil {
		return err
	}
	replayStatus, err := ledger.New(replayed, nil, func() uint64 { return 0 }).Status()
	if err != nil {
		return err
	}
	if !statusMatch(liveStatus, replayStatus) {
		fmt.Println("\nDiff staking status")
		fmt.Println(jsonDiff(liveStatus, replayStatus))
		return errors.New("staking status diverged")
	}

	liveCustody, err := token.New(live.NewState()).BalanceOf(garner.CustodyAddress)
	if err != nil {
		return err
	}
	replayCustody, err := token.New(replayed.NewState()).BalanceOf(garner.CustodyAddress)
	if err != nil {
		return err
	}
	if liveCustody.Cmp(replayCustody) != 0 {
		fmt.Println("\nDiff custody balance")
		fmt.Println(jsonDiff(liveCustody, replayCustody))
		return errors.New("custody balance diverged")
	}
	return nil
}

func statusMatch(a, b *ledger.Status) bool {
	return a.Owner == b.Owner &&
		a.RateBps == b.RateBps &&
		a.Enabled == b.Enabled &&
		a.TotalStaked.Cmp(b.TotalStaked) == 0 &&
		a.PoolBalance.Cmp(b.PoolBalance) == 0
}

func dumpDiff(expected, actual interface{}) string {
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(spew.Sdump(expected)),
		B:        difflib.SplitLines(spew.Sdump(actual)),
		FromFile: "Journal",
		ToFile:   "Replayed",
		Context:  1,
	})
	return diff
}

func jsonDiff(expected, actual interface{}) string {
	e, _ := json.MarshalIndent(expected, "", "  ")
	a, _ := json.MarshalIndent(actual, "", "  ")
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(e)),
		B:        difflib.SplitLines(string(a)),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  1,
	})
	return diff
}
