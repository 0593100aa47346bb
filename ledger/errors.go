// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import "errors"

var (
	errEmptyPool = errors.New("reward pool empty")
	errNoRewards = errors.New("no rewards to claim")
)

// IsNotAuthorized caller lacks the owner role.
func IsNotAuthorized(err error) bool {
	return errors.As(err, &authorizationError{})
}

// IsBadState operation not allowed in the current staking state.
func IsBadState(err error) bool {
	return errors.As(err, &stateError{})
}

// IsInsufficientBalance staked balance does not cover the request.
func IsInsufficientBalance(err error) bool {
	return errors.As(err, &insufficientBalanceError{})
}

// IsInsufficientPool the reward pool is empty.
func IsInsufficientPool(err error) bool {
	return errors.Is(err, errEmptyPool)
}

// IsNoRewards nothing accrued to claim.
func IsNoRewards(err error) bool {
	return errors.Is(err, errNoRewards)
}

// IsTransferFailure the asset transfer was refused.
func IsTransferFailure(err error) bool {
	return errors.As(err, &transferFailureError{})
}

type authorizationError struct {
	msg string
}

func (e authorizationError) Error() string {
	return "not authorized: " + e.msg
}

type stateError struct {
	msg string
}

func (e stateError) Error() string {
	return "bad state: " + e.msg
}

type insufficientBalanceError struct {
	msg string
}

func (e insufficientBalanceError) Error() string {
	return "insufficient balance: " + e.msg
}

type transferFailureError struct {
	msg string
}

func (e transferFailureError) Error() string {
	return "transfer failed: " + e.msg
}
