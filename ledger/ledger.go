// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package ledger implements the staking ledger.
//
// Participants stake the asset into custody and accrue time-proportional
// rewards out of an owner-funded pool. Every operation settles pending
// rewards first, then mutates balances, then moves the asset, and finally
// commits the whole transition in one batch. A failed operation commits
// nothing.
//
// Operations are serialized by a mutex, concurrent callers wait their
// turn and reads see only committed state. A re-entrant call from
// inside a running operation, through the transfer hook, is rejected,
// not queued.
package ledger

import (
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/petermattis/goid"
	"github.com/pkg/errors"

	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/journal"
	"github.com/garnerfi/garner/ledger/account"
	"github.com/garnerfi/garner/ledger/accrual"
	"github.com/garnerfi/garner/ledger/pool"
	"github.com/garnerfi/garner/log"
	"github.com/garnerfi/garner/state"
	"github.com/garnerfi/garner/token"
)

var logger = log.WithContext("pkg", "ledger")

// Ledger is the staking ledger facade.
type Ledger struct {
	stater  *state.Stater
	engine  *accrual.Engine
	journal *journal.Journal // optional audit log
	now     func() uint64

	// transfer pays the asset out of custody, swappable in tests
	transfer func(tok *token.Token, from, to garner.Address, amount *big.Int) (bool, error)
	// pull draws the asset into custody against the allowance the
	// sender granted to custody, swappable in tests
	pull func(tok *token.Token, from garner.Address, amount *big.Int) (bool, error)

	mu        sync.Mutex
	holder    atomic.Int64 // goroutine inside an operation, 0 when free
	entryFeed event.Feed
	scope     event.SubscriptionScope
}

// New creates the ledger over the given state store. jrn may be nil to
// run without an audit log. now reads the clock in unix seconds and
// defaults to the wall clock when nil.
func New(stater *state.Stater, jrn *journal.Journal, now func() uint64) *Ledger {
	if now == nil {
		now = func() uint64 { return uint64(time.Now().Unix()) }
	}
	return &Ledger{
		stater:  stater,
		engine:  accrual.New(now),
		journal: jrn,
		now:     now,
		transfer: func(tok *token.Token, from, to garner.Address, amount *big.Int) (bool, error) {
			return tok.Transfer(from, to, amount)
		},
		pull: func(tok *token.Token, from garner.Address, amount *big.Int) (bool, error) {
			return tok.TransferFrom(garner.CustodyAddress, from, garner.CustodyAddress, amount)
		},
	}
}

// session is one atomic transition over a fresh state overlay.
// Dropping the session without Commit discards every change.
type session struct {
	st   *state.State
	book *account.Book
	pool *pool.Pool
	tok  *token.Token
}

func (l *Ledger) newSession() *session {
	st := l.stater.NewState()
	return &session{
		st:   st,
		book: account.New(st),
		pool: pool.New(st),
		tok:  token.New(st),
	}
}

// settle loads the entry of addr and settles its pending rewards at the
// current rate.
func (l *Ledger) settle(s *session, addr garner.Address) (*account.Account, error) {
	acc, err := s.book.Get(addr)
	if err != nil {
		return nil, err
	}
	rate, err := s.pool.RateBps()
	if err != nil {
		return nil, err
	}
	if err := l.engine.Update(acc, rate); err != nil {
		return nil, err
	}
	return acc, nil
}

// enter serializes a mutating operation. The goroutine already inside
// an operation is rejected on re-entry, everyone else waits.
func (l *Ledger) enter() error {
	if l.holder.Load() == goid.Get() {
		return stateError{"operation in progress"}
	}
	l.mu.Lock()
	l.holder.Store(goid.Get())
	return nil
}

func (l *Ledger) exit() {
	l.holder.Store(0)
	l.mu.Unlock()
}

func (l *Ledger) record(e *journal.Entry) {
	e.Timestamp = l.now()
	if e.Amount == nil {
		e.Amount = &big.Int{}
	}
	if e.Reward == nil {
		e.Reward = &big.Int{}
	}
	if l.journal != nil {
		if err := l.journal.Record(e); err != nil {
			logger.Warn("failed to record journal entry", "op", e.Op, "err", err)
		}
	}
	l.entryFeed.Send(e)
}

// SubscribeEntries subscribes to journal entries of settled operations.
// Entries are sent after commit, in settlement order.
func (l *Ledger) SubscribeEntries(ch chan *journal.Entry) event.Subscription {
	return l.scope.Track(l.entryFeed.Subscribe(ch))
}

// Close cancels all entry subscriptions.
func (l *Ledger) Close() {
	l.scope.Close()
	logger.Debug("ledger closed")
}

func validateAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errors.New("amount must be positive")
	}
	return nil
}

// Stake pulls amount from the staker into custody, against the
// allowance the staker granted to custody, and adds it to the staked
// balance. Pending rewards are settled first, so the new amount only
// earns from now on.
func (l *Ledger) Stake(staker garner.Address, amount *big.Int) (err error) {
	defer func() { countOp(journal.OpStake, err) }()

	if err := validateAmount(amount); err != nil {
		return err
	}
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()

	s := l.newSession()

	enabled, err := s.pool.Enabled()
	if err != nil {
		return err
	}
	if !enabled {
		return stateError{"staking disabled"}
	}

	acc, err := l.settle(s, staker)
	if err != nil {
		return err
	}
	acc.StakedBalance = new(big.Int).Add(acc.StakedBalance, amount)
	if err := s.book.Set(staker, acc); err != nil {
		return err
	}

	total, err := s.book.TotalStaked()
	if err != nil {
		return err
	}
	if err := s.book.SetTotalStaked(total.Add(total, amount)); err != nil {
		return err
	}

	ok, err := l.pull(s.tok, staker, amount)
	if err != nil {
		return err
	}
	if !ok {
		return transferFailureError{"insufficient funds or allowance"}
	}

	if err := s.st.Commit(); err != nil {
		return err
	}
	l.record(&journal.Entry{Op: journal.OpStake, Caller: staker, Amount: amount})
	return nil
}

// Unstake returns amount of staked principal to the staker. Unstaking
// works regardless of whether staking is open, so principal is never
// locked in.
func (l *Ledger) Unstake(staker garner.Address, amount *big.Int) (err error) {
	defer func() { countOp(journal.OpUnstake, err) }()

	if err := validateAmount(amount); err != nil {
		return err
	}
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()

	s := l.newSession()

	acc, err := l.settle(s, staker)
	if err != nil {
		return err
	}
	if acc.StakedBalance.Cmp(amount) < 0 {
		return insufficientBalanceError{"staked balance too low"}
	}
	acc.StakedBalance = new(big.Int).Sub(acc.StakedBalance, amount)
	if err := s.book.Set(staker, acc); err != nil {
		return err
	}

	total, err := s.book.TotalStaked()
	if err != nil {
		return err
	}
	if err := s.book.SetTotalStaked(total.Sub(total, amount)); err != nil {
		return err
	}

	ok, err := l.transfer(s.tok, garner.CustodyAddress, staker, amount)
	if err != nil {
		return err
	}
	if !ok {
		return transferFailureError{"custody balance too low"}
	}

	if err := s.st.Commit(); err != nil {
		return err
	}
	l.record(&journal.Entry{Op: journal.OpUnstake, Caller: staker, Amount: amount})
	return nil
}

// ClaimRewards settles and pays out the accrued rewards of the staker.
// A claim exceeding the pool drains the pool instead and closes staking,
// the claimed entitlement is settled in full either way. Returns the
// amount paid.
func (l *Ledger) ClaimRewards(staker garner.Address) (reward *big.Int, err error) {
	defer func() { countOp(journal.OpClaim, err) }()

	if err := l.enter(); err != nil {
		return nil, err
	}
	defer l.exit()

	s := l.newSession()

	enabled, err := s.pool.Enabled()
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, stateError{"staking disabled"}
	}
	poolBalance, err := s.pool.Balance()
	if err != nil {
		return nil, err
	}
	if poolBalance.Sign() == 0 {
		return nil, errEmptyPool
	}

	acc, err := l.settle(s, staker)
	if err != nil {
		return nil, err
	}
	if acc.AccruedRewards.Sign() == 0 {
		return nil, errNoRewards
	}

	reward = acc.AccruedRewards
	if reward.Cmp(poolBalance) > 0 {
		reward = poolBalance
		if err := s.pool.SetEnabled(false); err != nil {
			return nil, err
		}
		logger.Warn("reward pool depleted, staking disabled", "staker", staker)
	}

	// the whole entitlement is settled, the part beyond the pool is lost
	acc.AccruedRewards = &big.Int{}
	if err := s.book.Set(staker, acc); err != nil {
		return nil, err
	}
	if err := s.pool.SetBalance(new(big.Int).Sub(poolBalance, reward)); err != nil {
		return nil, err
	}

	ok, err := l.transfer(s.tok, garner.CustodyAddress, staker, reward)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, transferFailureError{"custody balance too low"}
	}

	if err := s.st.Commit(); err != nil {
		return nil, err
	}
	l.record(&journal.Entry{Op: journal.OpClaim, Caller: staker, Reward: reward})
	return reward, nil
}

// UnstakeAndClaim closes out the staker in one transition, returning
// the whole principal plus whatever rewards the pool still covers. It
// works even when staking is closed or the pool is empty, degrading to
// a plain full unstake. Returns the principal and the reward paid.
func (l *Ledger) UnstakeAndClaim(staker garner.Address) (principal, reward *big.Int, err error) {
	defer func() { countOp(journal.OpUnstakeAndClaim, err) }()

	if err := l.enter(); err != nil {
		return nil, nil, err
	}
	defer l.exit()

	s := l.newSession()

	acc, err := s.book.Get(staker)
	if err != nil {
		return nil, nil, err
	}
	if acc.StakedBalance.Sign() == 0 {
		return nil, nil, insufficientBalanceError{"nothing staked"}
	}
	rate, err := s.pool.RateBps()
	if err != nil {
		return nil, nil, err
	}
	if err := l.engine.Update(acc, rate); err != nil {
		return nil, nil, err
	}

	poolBalance, err := s.pool.Balance()
	if err != nil {
		return nil, nil, err
	}

	principal = acc.StakedBalance
	reward = acc.AccruedRewards
	if reward.Cmp(poolBalance) > 0 {
		reward = poolBalance
		if err := s.pool.SetEnabled(false); err != nil {
			return nil, nil, err
		}
		logger.Warn("reward pool depleted, staking disabled", "staker", staker)
	}

	acc.StakedBalance = &big.Int{}
	acc.AccruedRewards = &big.Int{}
	if err := s.book.Set(staker, acc); err != nil {
		return nil, nil, err
	}

	total, err := s.book.TotalStaked()
	if err != nil {
		return nil, nil, err
	}
	if err := s.book.SetTotalStaked(total.Sub(total, principal)); err != nil {
		return nil, nil, err
	}
	if err := s.pool.SetBalance(new(big.Int).Sub(poolBalance, reward)); err != nil {
		return nil, nil, err
	}

	payout := new(big.Int).Add(principal, reward)
	ok, err := l.transfer(s.tok, garner.CustodyAddress, staker, payout)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, transferFailureError{"custody balance too low"}
	}

	if err := s.st.Commit(); err != nil {
		return nil, nil, err
	}
	l.record(&journal.Entry{Op: journal.OpUnstakeAndClaim, Caller: staker, Amount: principal, Reward: reward})
	return principal, reward, nil
}

// Transfer moves free token balance from one account to another. It is
// the funding surface of dev networks and is not journaled. The move is
// serialized with ledger operations so custody sums stay exact.
func (l *Ledger) Transfer(from, to garner.Address, amount *big.Int) (err error) {
	defer func() { countOp("transfer", err) }()

	if err := validateAmount(amount); err != nil {
		return err
	}
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()

	s := l.newSession()

	ok, err := l.transfer(s.tok, from, to, amount)
	if err != nil {
		return err
	}
	if !ok {
		return transferFailureError{"insufficient funds"}
	}
	return s.st.Commit()
}

// Approve grants custody the right to pull up to amount from the
// caller for stakes and deposits. A zero amount revokes the grant.
// Grants are not journaled.
func (l *Ledger) Approve(caller garner.Address, amount *big.Int) (err error) {
	defer func() { countOp("approve", err) }()

	if amount == nil || amount.Sign() < 0 {
		return errors.New("amount must not be negative")
	}
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()

	s := l.newSession()
	if err := s.tok.Approve(caller, garner.CustodyAddress, amount); err != nil {
		return err
	}
	return s.st.Commit()
}

// CurrentRewards returns the rewards addr would hold if settled now,
// without settling.
func (l *Ledger) CurrentRewards(addr garner.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.newSession()
	acc, err := s.book.Get(addr)
	if err != nil {
		return nil, err
	}
	rate, err := s.pool.RateBps()
	if err != nil {
		return nil, err
	}
	return l.engine.Project(acc, rate)
}

// GetAccount returns the stored entry of addr as of its last settlement.
func (l *Ledger) GetAccount(addr garner.Address) (*account.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return account.New(l.stater.NewState()).Get(addr)
}

// TotalStaked returns the sum of all staked balances.
func (l *Ledger) TotalStaked() (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return account.New(l.stater.NewState()).TotalStaked()
}

// Status is the public snapshot of the staking controls.
type Status struct {
	Owner       garner.Address `json:"owner"`
	RateBps     uint64         `json:"rateBps"`
	Enabled     bool           `json:"enabled"`
	TotalStaked *big.Int       `json:"totalStaked"`
	PoolBalance *big.Int       `json:"poolBalance"`
}

// Status returns the current staking controls and aggregates.
func (l *Ledger) Status() (*Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.newSession()

	owner, err := s.pool.Owner()
	if err != nil {
		return nil, err
	}
	rate, err := s.pool.RateBps()
	if err != nil {
		return nil, err
	}
	enabled, err := s.pool.Enabled()
	if err != nil {
		return nil, err
	}
	total, err := s.book.TotalStaked()
	if err != nil {
		return nil, err
	}
	balance, err := s.pool.Balance()
	if err != nil {
		return nil, err
	}
	return &Status{
		Owner:       owner,
		RateBps:     rate,
		Enabled:     enabled,
		TotalStaked: total,
		PoolBalance: balance,
	}, nil
}
