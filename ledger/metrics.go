// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import "github.com/garnerfi/garner/metrics"

var metricOpCount = metrics.LazyLoadCounterVec("ledger_op_count", []string{"op", "result"})

func countOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "err"
	}
	metricOpCount().AddWithLabel(1, map[string]string{"op": op, "result": result})
}
