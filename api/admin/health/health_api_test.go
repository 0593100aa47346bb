// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/journal"
	"github.com/garnerfi/garner/ledger"
	"github.com/garnerfi/garner/ledger/pool"
	"github.com/garnerfi/garner/lvldb"
	"github.com/garnerfi/garner/state"
	"github.com/garnerfi/garner/token"
)

func initHealthServer(t *testing.T, withJournal bool) *httptest.Server {
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

	var jrn *journal.Journal
	if withJournal {
		jrn, err = journal.NewMem()
		require.NoError(t, err)
		t.Cleanup(jrn.Close)
	}

	staking := ledger.New(stater, jrn, func() uint64 { return 1700000000 })
	require.NoError(t, staking.DepositRewards(owner, big.NewInt(1000)))
	require.NoError(t, staking.EnableStaking(owner))

	router := mux.NewRouter()
	NewAPI(New(staking, jrn)).Mount(router, "/health")
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func httpGet(t *testing.T, url string) ([]byte, int) {
	res, err := http.Get(url) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return body, res.StatusCode
}

func TestHealth(t *testing.T) {
	srv := initHealthServer(t, true)

	body, code := httpGet(t, srv.URL+"/health")
	require.Equal(t, http.StatusOK, code)

	var status Status
	require.NoError(t, json.Unmarshal(body, &status))
	assert.True(t, status.Healthy)
	assert.True(t, status.StateAccessible)
	assert.True(t, status.JournalConnected)
	assert.True(t, status.StakingEnabled)
	require.NotNil(t, status.LastEntry)
	// deposit then enable, so the journal tail is the enable entry
	assert.Equal(t, uint64(2), status.LastEntry.Sequence)
	assert.Equal(t, uint64(1700000000), status.LastEntry.Timestamp)
}

func TestHealthWithoutJournal(t *testing.T) {
	srv := initHealthServer(t, false)

	body, code := httpGet(t, srv.URL+"/health")
	require.Equal(t, http.StatusServiceUnavailable, code)

	var status Status
	require.NoError(t, json.Unmarshal(body, &status))
	assert.False(t, status.Healthy)
	assert.True(t, status.StateAccessible)
	assert.False(t, status.JournalConnected)
	assert.Nil(t, status.LastEntry)
}
