// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/journal"
	"github.com/garnerfi/garner/ledger/account"
	"github.com/garnerfi/garner/ledger/pool"
	"github.com/garnerfi/garner/lvldb"
	"github.com/garnerfi/garner/state"
	"github.com/garnerfi/garner/token"
)

var (
	owner = garner.BytesToAddress([]byte("owner"))
	alice = garner.BytesToAddress([]byte("alice"))
	bob   = garner.BytesToAddress([]byte("bob"))
)

const year = garner.SecondsPerYear

type testLedger struct {
	*Ledger
	now uint64
}

func newTestLedger(t *testing.T, poolFunds int64, rateBps uint64) *testLedger {
	return newTestLedgerWithJournal(t, poolFunds, rateBps, nil)
}

func newTestLedgerWithJournal(t *testing.T, poolFunds int64, rateBps uint64, jrn *journal.Journal) *testLedger {
	store, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	stater := state.NewStater(store, 1)

	tl := &testLedger{now: 1700000000}
	tl.Ledger = New(stater, jrn, func() uint64 { return tl.now })

	// seed the owner, the rate and the participant funds
	st := stater.NewState()
	p := pool.New(st)
	require.NoError(t, p.SetOwner(owner))
	require.NoError(t, p.SetRateBps(rateBps))
	tok := token.New(st)
	for _, a := range []garner.Address{owner, alice, bob} {
		require.NoError(t, tok.Mint(a, big.NewInt(1_000_000)))
		require.NoError(t, tok.Approve(a, garner.CustodyAddress, big.NewInt(1_000_000)))
	}
	require.NoError(t, st.Commit())

	if poolFunds > 0 {
		require.NoError(t, tl.DepositRewards(owner, big.NewInt(poolFunds)))
		require.NoError(t, tl.EnableStaking(owner))
	}
	return tl
}

func (tl *testLedger) balanceOf(t *testing.T, addr garner.Address) *big.Int {
	balance, err := token.New(tl.stater.NewState()).BalanceOf(addr)
	require.NoError(t, err)
	return balance
}

func emptyAccount() *account.Account {
	return &account.Account{StakedBalance: &big.Int{}, AccruedRewards: &big.Int{}}
}

// custody must hold exactly the staked total plus the pool float at all
// times
func checkConservation(t *testing.T, tl *testLedger) {
	status, err := tl.Status()
	require.NoError(t, err)

	custody := tl.balanceOf(t, garner.CustodyAddress)
	assert.Equal(t, new(big.Int).Add(status.TotalStaked, status.PoolBalance), custody)
}

func TestStakeAccrueClaim(t *testing.T) {
	tl := newTestLedger(t, 1000, 1000)

	require.NoError(t, tl.Stake(alice, big.NewInt(100)))

	acc, err := tl.GetAccount(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), acc.StakedBalance)
	assert.Equal(t, &big.Int{}, acc.AccruedRewards)
	assert.Equal(t, tl.now, acc.LastUpdateTime)

	total, err := tl.TotalStaked()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), total)
	assert.Equal(t, big.NewInt(1_000_000-100), tl.balanceOf(t, alice))
	checkConservation(t, tl)

	// 10% over one year on a stake of 100
	tl.now += year
	rewards, err := tl.CurrentRewards(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10), rewards)

	paid, err := tl.ClaimRewards(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10), paid)
	assert.Equal(t, big.NewInt(1_000_000-100+10), tl.balanceOf(t, alice))

	acc, err = tl.GetAccount(alice)
	require.NoError(t, err)
	assert.Equal(t, &big.Int{}, acc.AccruedRewards)
	assert.Equal(t, tl.now, acc.LastUpdateTime)

	status, err := tl.Status()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(990), status.PoolBalance)
	assert.True(t, status.Enabled)
	checkConservation(t, tl)
}

func TestStakeChecks(t *testing.T) {
	tl := newTestLedger(t, 0, 1000)

	// staking starts closed
	err := tl.Stake(alice, big.NewInt(100))
	assert.True(t, IsBadState(err))

	assert.Error(t, tl.Stake(alice, nil))
	assert.Error(t, tl.Stake(alice, &big.Int{}))
	assert.Error(t, tl.Stake(alice, big.NewInt(-5)))

	require.NoError(t, tl.DepositRewards(owner, big.NewInt(100)))
	require.NoError(t, tl.EnableStaking(owner))

	// more than the staker holds
	err = tl.Stake(alice, big.NewInt(2_000_000))
	assert.True(t, IsTransferFailure(err))

	// the failed stake must leave no trace
	acc, err := tl.GetAccount(alice)
	require.NoError(t, err)
	assert.Equal(t, emptyAccount(), acc)
	total, err := tl.TotalStaked()
	require.NoError(t, err)
	assert.Equal(t, &big.Int{}, total)
	assert.Equal(t, big.NewInt(1_000_000), tl.balanceOf(t, alice))
}

func TestUnstake(t *testing.T) {
	tl := newTestLedger(t, 1000, 1000)

	require.NoError(t, tl.Stake(alice, big.NewInt(100)))

	tl.now += year / 2
	require.NoError(t, tl.Unstake(alice, big.NewInt(40)))

	acc, err := tl.GetAccount(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(60), acc.StakedBalance)
	// the half year interval settled before the balance dropped
	assert.Equal(t, big.NewInt(5), acc.AccruedRewards)

	total, err := tl.TotalStaked()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(60), total)
	checkConservation(t, tl)

	err = tl.Unstake(alice, big.NewInt(61))
	assert.True(t, IsInsufficientBalance(err))

	// principal is never locked in, unstaking works while closed
	require.NoError(t, tl.DisableStaking(owner))
	require.NoError(t, tl.Unstake(alice, big.NewInt(60)))
	assert.Equal(t, big.NewInt(1_000_000), tl.balanceOf(t, alice))

	// rewards survive a full unstake
	acc, err = tl.GetAccount(alice)
	require.NoError(t, err)
	assert.Equal(t, &big.Int{}, acc.StakedBalance)
	assert.Equal(t, big.NewInt(5), acc.AccruedRewards)
	checkConservation(t, tl)
}

func TestClaimChecks(t *testing.T) {
	tl := newTestLedger(t, 1000, 1000)

	// staked but no time passed
	require.NoError(t, tl.Stake(alice, big.NewInt(100)))
	_, err := tl.ClaimRewards(alice)
	assert.True(t, IsNoRewards(err))

	// nothing staked at all
	_, err = tl.ClaimRewards(bob)
	assert.True(t, IsNoRewards(err))

	tl.now += year
	require.NoError(t, tl.DisableStaking(owner))
	_, err = tl.ClaimRewards(alice)
	assert.True(t, IsBadState(err))

	// the rejected claims must not have settled the interval
	acc, err := tl.GetAccount(alice)
	require.NoError(t, err)
	assert.Equal(t, &big.Int{}, acc.AccruedRewards)
	assert.Equal(t, tl.now-year, acc.LastUpdateTime)
}

func TestClaimEmptyPool(t *testing.T) {
	tl := newTestLedger(t, 10, 1000)

	require.NoError(t, tl.Stake(alice, big.NewInt(100)))
	require.NoError(t, tl.Stake(bob, big.NewInt(100)))

	// alice's entitlement matches the pool exactly, the claim drains it
	// without closing staking
	tl.now += year
	paid, err := tl.ClaimRewards(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10), paid)

	status, err := tl.Status()
	require.NoError(t, err)
	assert.True(t, status.Enabled)
	assert.Equal(t, &big.Int{}, status.PoolBalance)

	// bob hits the drained pool before anything is settled
	_, err = tl.ClaimRewards(bob)
	assert.True(t, IsInsufficientPool(err))

	acc, err := tl.GetAccount(bob)
	require.NoError(t, err)
	assert.Equal(t, &big.Int{}, acc.AccruedRewards)
	checkConservation(t, tl)
}

func TestClaimDepletionDisablesStaking(t *testing.T) {
	tl := newTestLedger(t, 7, 1000)

	require.NoError(t, tl.Stake(alice, big.NewInt(100)))

	// entitlement of 10 against a pool of 7, the claim is clamped, the
	// pool drained and staking closed
	tl.now += year
	paid, err := tl.ClaimRewards(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(7), paid)

	status, err := tl.Status()
	require.NoError(t, err)
	assert.False(t, status.Enabled)
	assert.Equal(t, &big.Int{}, status.PoolBalance)

	// the whole entitlement is settled, the unpaid part is not owed
	rewards, err := tl.CurrentRewards(alice)
	require.NoError(t, err)
	assert.Equal(t, &big.Int{}, rewards)

	_, err = tl.ClaimRewards(alice)
	assert.True(t, IsBadState(err))
	checkConservation(t, tl)
}

func TestClaimStarvation(t *testing.T) {
	tl := newTestLedger(t, 15, 1000)

	require.NoError(t, tl.Stake(alice, big.NewInt(100)))
	require.NoError(t, tl.Stake(bob, big.NewInt(100)))

	tl.now += year

	// first come first served
	paid, err := tl.ClaimRewards(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10), paid)

	paid, err = tl.ClaimRewards(bob)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5), paid)

	status, err := tl.Status()
	require.NoError(t, err)
	assert.False(t, status.Enabled)
	assert.Equal(t, &big.Int{}, status.PoolBalance)
	checkConservation(t, tl)
}

func TestUnstakeAndClaim(t *testing.T) {
	tl := newTestLedger(t, 1000, 1000)

	require.NoError(t, tl.Stake(alice, big.NewInt(100)))

	tl.now += year
	principal, reward, err := tl.UnstakeAndClaim(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), principal)
	assert.Equal(t, big.NewInt(10), reward)
	assert.Equal(t, big.NewInt(1_000_000+10), tl.balanceOf(t, alice))

	// the entry is gone entirely, timestamp included
	acc, err := tl.GetAccount(alice)
	require.NoError(t, err)
	assert.Equal(t, emptyAccount(), acc)

	total, err := tl.TotalStaked()
	require.NoError(t, err)
	assert.Equal(t, &big.Int{}, total)
	checkConservation(t, tl)

	_, _, err = tl.UnstakeAndClaim(alice)
	assert.True(t, IsInsufficientBalance(err))
}

func TestUnstakeAndClaimDegraded(t *testing.T) {
	tl := newTestLedger(t, 10, 1000)

	require.NoError(t, tl.Stake(alice, big.NewInt(100)))

	// close staking and drain the pool under alice
	require.NoError(t, tl.DisableStaking(owner))
	withdrawn, err := tl.WithdrawRewards(owner)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10), withdrawn)

	// the close-out still works, degraded to a zero reward unstake
	tl.now += year
	principal, reward, err := tl.UnstakeAndClaim(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), principal)
	assert.Equal(t, &big.Int{}, reward)
	assert.Equal(t, big.NewInt(1_000_000), tl.balanceOf(t, alice))
	checkConservation(t, tl)
}

func TestRateChangeSettlesAtNewRate(t *testing.T) {
	tl := newTestLedger(t, 1000, 1000)

	require.NoError(t, tl.Stake(alice, big.NewInt(100)))

	// the rate change does not settle open intervals, the whole two year
	// interval settles at the new rate
	tl.now += year
	require.NoError(t, tl.UpdateRate(owner, 2000))

	tl.now += year
	paid, err := tl.ClaimRewards(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(40), paid)
}

func TestRateChangeAfterSettlement(t *testing.T) {
	tl := newTestLedger(t, 1000, 1000)

	require.NoError(t, tl.Stake(alice, big.NewInt(100)))

	// the second stake settles the first year at the old rate
	tl.now += year
	require.NoError(t, tl.Stake(alice, big.NewInt(100)))
	require.NoError(t, tl.UpdateRate(owner, 2000))

	tl.now += year
	paid, err := tl.ClaimRewards(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10+40), paid)
}

func TestOwnerOnly(t *testing.T) {
	tl := newTestLedger(t, 1000, 1000)

	assert.True(t, IsNotAuthorized(tl.DepositRewards(alice, big.NewInt(1))))
	assert.True(t, IsNotAuthorized(tl.UpdateRate(alice, 500)))
	assert.True(t, IsNotAuthorized(tl.EnableStaking(alice)))
	assert.True(t, IsNotAuthorized(tl.DisableStaking(alice)))

	_, err := tl.WithdrawRewards(alice)
	assert.True(t, IsNotAuthorized(err))
}

func TestWithdrawRewards(t *testing.T) {
	tl := newTestLedger(t, 1000, 1000)

	// the pool is locked while staking is open
	_, err := tl.WithdrawRewards(owner)
	assert.True(t, IsBadState(err))

	require.NoError(t, tl.DisableStaking(owner))

	withdrawn, err := tl.WithdrawRewards(owner)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), withdrawn)
	assert.Equal(t, big.NewInt(1_000_000), tl.balanceOf(t, owner))

	// withdrawing an empty pool is a no-op, not an error
	withdrawn, err = tl.WithdrawRewards(owner)
	require.NoError(t, err)
	assert.Equal(t, &big.Int{}, withdrawn)
	checkConservation(t, tl)
}

func TestEnableDisable(t *testing.T) {
	tl := newTestLedger(t, 0, 1000)

	// an unfunded pool cannot be opened
	err := tl.EnableStaking(owner)
	assert.True(t, IsInsufficientPool(err))

	require.NoError(t, tl.DepositRewards(owner, big.NewInt(50)))
	require.NoError(t, tl.EnableStaking(owner))
	require.NoError(t, tl.EnableStaking(owner))

	status, err := tl.Status()
	require.NoError(t, err)
	assert.True(t, status.Enabled)

	require.NoError(t, tl.DisableStaking(owner))
	require.NoError(t, tl.DisableStaking(owner))

	status, err = tl.Status()
	require.NoError(t, err)
	assert.False(t, status.Enabled)

	// the rate is uncapped
	require.NoError(t, tl.UpdateRate(owner, 30000))
	status, err = tl.Status()
	require.NoError(t, err)
	assert.Equal(t, uint64(30000), status.RateBps)
}

func TestTransferFailureRollsBack(t *testing.T) {
	tl := newTestLedger(t, 1000, 1000)

	tl.pull = func(_ *token.Token, _ garner.Address, _ *big.Int) (bool, error) {
		return false, nil
	}

	err := tl.Stake(alice, big.NewInt(100))
	assert.True(t, IsTransferFailure(err))

	acc, err := tl.GetAccount(alice)
	require.NoError(t, err)
	assert.Equal(t, emptyAccount(), acc)
	total, err := tl.TotalStaked()
	require.NoError(t, err)
	assert.Equal(t, &big.Int{}, total)

	tl.pull = func(_ *token.Token, _ garner.Address, _ *big.Int) (bool, error) {
		return false, errors.New("store gone")
	}

	err = tl.Stake(alice, big.NewInt(100))
	require.Error(t, err)
	assert.False(t, IsTransferFailure(err))
	assert.Contains(t, err.Error(), "store gone")
}

func TestStakePullsAgainstAllowance(t *testing.T) {
	tl := newTestLedger(t, 1000, 1000)

	// carol holds funds but never approved custody
	carol := garner.BytesToAddress([]byte("carol"))
	require.NoError(t, tl.Transfer(alice, carol, big.NewInt(500)))

	err := tl.Stake(carol, big.NewInt(100))
	assert.True(t, IsTransferFailure(err))

	require.NoError(t, tl.Approve(carol, big.NewInt(100)))
	require.NoError(t, tl.Stake(carol, big.NewInt(100)))
	assert.Equal(t, big.NewInt(400), tl.balanceOf(t, carol))
	checkConservation(t, tl)

	// the first stake consumed the whole grant
	err = tl.Stake(carol, big.NewInt(1))
	assert.True(t, IsTransferFailure(err))
}

func TestReentrancyRejected(t *testing.T) {
	tl := newTestLedger(t, 1000, 1000)

	var inner error
	orig := tl.pull
	tl.pull = func(tok *token.Token, from garner.Address, amount *big.Int) (bool, error) {
		inner = tl.Stake(alice, big.NewInt(1))
		return orig(tok, from, amount)
	}

	require.NoError(t, tl.Stake(alice, big.NewInt(100)))
	assert.True(t, IsBadState(inner))

	// the rejected reentry left no trace
	acc, err := tl.GetAccount(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), acc.StakedBalance)
	checkConservation(t, tl)
}

func TestConcurrentCallerWaits(t *testing.T) {
	tl := newTestLedger(t, 1000, 1000)

	// park alice's stake inside the pull hook and let bob stake from
	// another goroutine meanwhile, he must queue, not be refused
	parked := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	orig := tl.pull
	tl.pull = func(tok *token.Token, from garner.Address, amount *big.Int) (bool, error) {
		once.Do(func() {
			close(parked)
			<-release
		})
		return orig(tok, from, amount)
	}

	var bobErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-parked
		go func() { // bob queues behind alice
			time.Sleep(50 * time.Millisecond)
			close(release)
		}()
		bobErr = tl.Stake(bob, big.NewInt(50))
	}()

	require.NoError(t, tl.Stake(alice, big.NewInt(100)))
	<-done
	require.NoError(t, bobErr)

	total, err := tl.TotalStaked()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(150), total)
	checkConservation(t, tl)
}

func TestLockReleasedOnError(t *testing.T) {
	tl := newTestLedger(t, 1000, 1000)

	_, err := tl.ClaimRewards(alice)
	assert.True(t, IsNoRewards(err))

	// the failed claim must have released the lock
	require.NoError(t, tl.Stake(alice, big.NewInt(100)))
}

func TestJournalRecords(t *testing.T) {
	jrn, err := journal.NewMem()
	require.NoError(t, err)
	t.Cleanup(jrn.Close)

	tl := newTestLedgerWithJournal(t, 1000, 1000, jrn)

	require.NoError(t, tl.Stake(alice, big.NewInt(100)))
	tl.now += year
	_, err = tl.ClaimRewards(alice)
	require.NoError(t, err)

	entries, err := jrn.Filter(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, journal.OpDeposit, entries[0].Op)
	assert.Equal(t, journal.OpEnable, entries[1].Op)

	assert.Equal(t, journal.OpStake, entries[2].Op)
	assert.Equal(t, alice, entries[2].Caller)
	assert.Equal(t, big.NewInt(100), entries[2].Amount)
	assert.Equal(t, tl.now-year, entries[2].Timestamp)

	assert.Equal(t, journal.OpClaim, entries[3].Op)
	assert.Equal(t, big.NewInt(10), entries[3].Reward)
	assert.Equal(t, tl.now, entries[3].Timestamp)
}

func TestStatus(t *testing.T) {
	tl := newTestLedger(t, 1000, 1250)

	require.NoError(t, tl.Stake(alice, big.NewInt(100)))
	require.NoError(t, tl.Stake(bob, big.NewInt(50)))

	status, err := tl.Status()
	require.NoError(t, err)
	assert.Equal(t, &Status{
		Owner:       owner,
		RateBps:     1250,
		Enabled:     true,
		TotalStaked: big.NewInt(150),
		PoolBalance: big.NewInt(1000),
	}, status)
}

func TestTransfer(t *testing.T) {
	tl := newTestLedger(t, 1000, 1000)

	require.NoError(t, tl.Transfer(alice, bob, big.NewInt(300)))
	assert.Equal(t, big.NewInt(999_700), tl.balanceOf(t, alice))
	assert.Equal(t, big.NewInt(1_000_300), tl.balanceOf(t, bob))

	err := tl.Transfer(garner.BytesToAddress([]byte("broke")), bob, big.NewInt(1))
	assert.True(t, IsTransferFailure(err))
	assert.Equal(t, big.NewInt(1_000_300), tl.balanceOf(t, bob))

	assert.Error(t, tl.Transfer(alice, bob, &big.Int{}))
}

func TestSubscribeEntries(t *testing.T) {
	tl := newTestLedger(t, 1000, 1000)
	defer tl.Close()

	ch := make(chan *journal.Entry, 10)
	sub := tl.SubscribeEntries(ch)
	defer sub.Unsubscribe()

	require.NoError(t, tl.Stake(alice, big.NewInt(100)))

	select {
	case e := <-ch:
		assert.Equal(t, journal.OpStake, e.Op)
		assert.Equal(t, alice, e.Caller)
		assert.Equal(t, big.NewInt(100), e.Amount)
		assert.Equal(t, &big.Int{}, e.Reward)
		assert.Equal(t, tl.now, e.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("no entry published")
	}
}
