// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package journal

import "github.com/garnerfi/garner/metrics"

var (
	metricQueryParameters = metrics.LazyLoadCounterVec("journal_query_parameters", []string{"parameter"})
	metricQueryOrder      = metrics.LazyLoadCounterVec("journal_query_order", []string{"order"})
	metricLimitBucket     = metrics.LazyLoadHistogram("journal_query_limit_bucket", []int64{
		0, 5, 10, 25, 50, 100, 250, 500, 1000,
	})
)

func metricsHandleFilter(filter *Filter) {
	if metrics.NoOp() {
		return
	}

	if filter.Op != "" {
		metricQueryParameters().AddWithLabel(1, map[string]string{"parameter": "op"})
	}
	if filter.Caller != nil {
		metricQueryParameters().AddWithLabel(1, map[string]string{"parameter": "caller"})
	}
	if filter.Range != nil {
		metricQueryParameters().AddWithLabel(1, map[string]string{"parameter": "range"})
	}

	if filter.Order == DESC {
		metricQueryOrder().AddWithLabel(1, map[string]string{"order": "desc"})
	} else {
		metricQueryOrder().AddWithLabel(1, map[string]string{"order": "asc"})
	}

	if filter.Options != nil {
		limit := filter.Options.Limit
		if limit > 1000 {
			limit = 1001
		}
		metricLimitBucket().Observe(int64(limit))
	}
}
