// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"

	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/journal"
)

func (l *Ledger) requireOwner(s *session, caller garner.Address) error {
	owner, err := s.pool.Owner()
	if err != nil {
		return err
	}
	if caller != owner {
		return authorizationError{"owner only"}
	}
	return nil
}

// DepositRewards pulls amount from the owner into custody, against the
// allowance the owner granted to custody, and adds it to the reward
// pool.
func (l *Ledger) DepositRewards(caller garner.Address, amount *big.Int) (err error) {
	defer func() { countOp(journal.OpDeposit, err) }()

	if err := validateAmount(amount); err != nil {
		return err
	}
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()

	s := l.newSession()
	if err := l.requireOwner(s, caller); err != nil {
		return err
	}

	balance, err := s.pool.Balance()
	if err != nil {
		return err
	}
	if err := s.pool.SetBalance(balance.Add(balance, amount)); err != nil {
		return err
	}

	ok, err := l.pull(s.tok, caller, amount)
	if err != nil {
		return err
	}
	if !ok {
		return transferFailureError{"insufficient funds or allowance"}
	}

	if err := s.st.Commit(); err != nil {
		return err
	}
	l.record(&journal.Entry{Op: journal.OpDeposit, Caller: caller, Amount: amount})
	return nil
}

// WithdrawRewards returns the entire remaining pool to the owner. Only
// allowed while staking is closed, so no claim can race the drain.
// Returns the amount withdrawn, which may be zero.
func (l *Ledger) WithdrawRewards(caller garner.Address) (amount *big.Int, err error) {
	defer func() { countOp(journal.OpWithdraw, err) }()

	if err := l.enter(); err != nil {
		return nil, err
	}
	defer l.exit()

	s := l.newSession()
	if err := l.requireOwner(s, caller); err != nil {
		return nil, err
	}

	enabled, err := s.pool.Enabled()
	if err != nil {
		return nil, err
	}
	if enabled {
		return nil, stateError{"staking still enabled"}
	}

	amount, err = s.pool.Balance()
	if err != nil {
		return nil, err
	}
	if err := s.pool.SetBalance(&big.Int{}); err != nil {
		return nil, err
	}

	ok, err := l.transfer(s.tok, garner.CustodyAddress, caller, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, transferFailureError{"custody balance too low"}
	}

	if err := s.st.Commit(); err != nil {
		return nil, err
	}
	l.record(&journal.Entry{Op: journal.OpWithdraw, Caller: caller, Amount: amount})
	return amount, nil
}

// UpdateRate sets the annual reward rate. Open intervals are not settled
// here, they settle in full at the new rate on their next interaction.
func (l *Ledger) UpdateRate(caller garner.Address, rateBps uint64) (err error) {
	defer func() { countOp(journal.OpUpdateRate, err) }()

	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()

	s := l.newSession()
	if err := l.requireOwner(s, caller); err != nil {
		return err
	}

	if err := s.pool.SetRateBps(rateBps); err != nil {
		return err
	}

	if err := s.st.Commit(); err != nil {
		return err
	}
	l.record(&journal.Entry{Op: journal.OpUpdateRate, Caller: caller, Amount: new(big.Int).SetUint64(rateBps)})
	return nil
}

// EnableStaking opens staking and claiming. The pool must be funded
// first, an empty pool is refused.
func (l *Ledger) EnableStaking(caller garner.Address) (err error) {
	defer func() { countOp(journal.OpEnable, err) }()

	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()

	s := l.newSession()
	if err := l.requireOwner(s, caller); err != nil {
		return err
	}

	balance, err := s.pool.Balance()
	if err != nil {
		return err
	}
	if balance.Sign() == 0 {
		return errEmptyPool
	}

	if err := s.pool.SetEnabled(true); err != nil {
		return err
	}

	if err := s.st.Commit(); err != nil {
		return err
	}
	l.record(&journal.Entry{Op: journal.OpEnable, Caller: caller})
	return nil
}

// DisableStaking closes staking and claiming. Unstaking stays open.
func (l *Ledger) DisableStaking(caller garner.Address) (err error) {
	defer func() { countOp(journal.OpDisable, err) }()

	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()

	s := l.newSession()
	if err := l.requireOwner(s, caller); err != nil {
		return err
	}

	if err := s.pool.SetEnabled(false); err != nil {
		return err
	}

	if err := s.st.Commit(); err != nil {
		return err
	}
	l.record(&journal.Entry{Op: journal.OpDisable, Caller: caller})
	return nil
}
