// Copyright (c) 2024 The Garner developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package garner

import "math/big"

// Constants of the staking ledger.
const (
	// SecondsPerYear the accrual year, 365 days flat.
	SecondsPerYear uint64 = 365 * 24 * 60 * 60

	// RateDenominatorBps full rate in basis points, 10000 bps = 100% per year.
	RateDenominatorBps uint64 = 10000
)

// Well-known account addresses.
var (
	// CustodyAddress holds all staked principal and the reward pool float.
	CustodyAddress = BytesToAddress([]byte("garner-custody"))
)

// AccrualDenominator the divisor of the reward accrual formula,
// SecondsPerYear * RateDenominatorBps.
var AccrualDenominator = new(big.Int).Mul(
	new(big.Int).SetUint64(SecondsPerYear),
	new(big.Int).SetUint64(RateDenominatorBps),
)
