// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"bytes"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnerfi/garner/api/events"
	"github.com/garnerfi/garner/api/ledgerapi"
	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/journal"
	"github.com/garnerfi/garner/ledger"
	"github.com/garnerfi/garner/ledger/pool"
	"github.com/garnerfi/garner/lvldb"
	"github.com/garnerfi/garner/metrics"
	"github.com/garnerfi/garner/state"
	"github.com/garnerfi/garner/token"
)

func init() {
	metrics.InitializePrometheusMetrics()
}

func initStaking(t *testing.T, db *journal.Journal) *ledger.Ledger {
	store, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	stater := state.NewStater(store, 1)

	owner := garner.BytesToAddress([]byte("owner"))
	st := stater.NewState()
	p := pool.New(st)
	require.NoError(t, p.SetOwner(owner))
	require.NoError(t, p.SetRateBps(500))
	tok := token.New(st)
	require.NoError(t, tok.Mint(owner, big.NewInt(1_000_000)))
	require.NoError(t, tok.Approve(owner, garner.CustodyAddress, big.NewInt(1_000_000)))
	require.NoError(t, st.Commit())

	staking := ledger.New(stater, db, func() uint64 { return 1700000000 })
	require.NoError(t, staking.DepositRewards(owner, big.NewInt(1000)))
	require.NoError(t, staking.EnableStaking(owner))
	return staking
}

func TestMetricsMiddleware(t *testing.T) {
	staking := initStaking(t, nil)

	router := mux.NewRouter()
	ledgerapi.New(staking).Mount(router, "/ledger")
	router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
	router.Use(metricsMiddleware)
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	httpGet(t, ts.URL+"/ledger")
	httpGet(t, ts.URL+"/ledger/accounts/"+garner.Address{}.String())

	_, code := httpGet(t, ts.URL+"/ledger/accounts/0xinvalid")
	assert.Equal(t, 400, code)

	body, _ := httpGet(t, ts.URL+"/metrics")
	parser := expfmt.TextParser{}
	families, err := parser.TextToMetricFamilies(bytes.NewReader(body))
	assert.Nil(t, err)

	m := families["garner_metrics_api_request_count"].GetMetric()
	assert.Equal(t, 3, len(m), "should be 3 metric entries")
	assert.Equal(t, float64(1), m[0].GetCounter().GetValue())
	assert.Equal(t, float64(1), m[1].GetCounter().GetValue())
	assert.Equal(t, float64(1), m[2].GetCounter().GetValue())

	labels := m[0].GetLabel()
	assert.Equal(t, 3, len(labels))
	assert.Equal(t, "code", labels[0].GetName())
	assert.Equal(t, "200", labels[0].GetValue())
	assert.Equal(t, "method", labels[1].GetName())
	assert.Equal(t, "GET", labels[1].GetValue())
	assert.Equal(t, "name", labels[2].GetName())
	assert.Equal(t, "GET /ledger", labels[2].GetValue())

	labels = m[1].GetLabel()
	assert.Equal(t, "200", labels[0].GetValue())
	assert.Equal(t, "GET /ledger/accounts/{address}", labels[2].GetValue())

	labels = m[2].GetLabel()
	assert.Equal(t, "400", labels[0].GetValue())
	assert.Equal(t, "GET /ledger/accounts/{address}", labels[2].GetValue())
}

func TestWebsocketMetrics(t *testing.T) {
	db, err := journal.NewMem()
	require.NoError(t, err)
	t.Cleanup(db.Close)
	staking := initStaking(t, db)

	router := mux.NewRouter()
	subs := events.New(staking, db, []string{"*"}, 100)
	t.Cleanup(subs.Close)
	subs.Mount(router, "/events")
	router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
	router.Use(metricsMiddleware)
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	// one subscription, active websocket count should be 1
	u := url.URL{Scheme: "ws", Host: strings.TrimPrefix(ts.URL, "http://"), Path: "/events"}
	conn1, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	assert.Nil(t, err)
	defer conn1.Close()

	body, _ := httpGet(t, ts.URL+"/metrics")
	parser := expfmt.TextParser{}
	families, err := parser.TextToMetricFamilies(bytes.NewReader(body))
	assert.Nil(t, err)

	m := families["garner_metrics_api_active_websocket_count"].GetMetric()
	assert.Equal(t, 1, len(m), "should be 1 metric entries")
	assert.Equal(t, float64(1), m[0].GetGauge().GetValue())

	labels := m[0].GetLabel()
	assert.Equal(t, "subject", labels[0].GetName())
	assert.Equal(t, "WS /events", labels[0].GetValue())

	// a second subscription, active websocket count should be 2
	conn2, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	assert.Nil(t, err)
	defer conn2.Close()

	body, _ = httpGet(t, ts.URL+"/metrics")
	families, err = parser.TextToMetricFamilies(bytes.NewReader(body))
	assert.Nil(t, err)

	m = families["garner_metrics_api_active_websocket_count"].GetMetric()
	assert.Equal(t, 1, len(m), "should be 1 metric entries")
	assert.Equal(t, float64(2), m[0].GetGauge().GetValue())
}

func httpGet(t *testing.T, url string) ([]byte, int) {
	res, err := http.Get(url) //#nosec G107
	if err != nil {
		t.Fatal(err)
	}
	r, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	return r, res.StatusCode
}
