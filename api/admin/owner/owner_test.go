// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package owner

import (
	"bytes"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnerfi/garner/api/ledgerapi"
	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/ledger"
	"github.com/garnerfi/garner/ledger/pool"
	"github.com/garnerfi/garner/lvldb"
	"github.com/garnerfi/garner/state"
	"github.com/garnerfi/garner/token"
)

var poolOwner = garner.BytesToAddress([]byte("owner"))

func initOwnerServer(t *testing.T, master garner.Address) *httptest.Server {
	store, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	stater := state.NewStater(store, 1)

	st := stater.NewState()
	p := pool.New(st)
	require.NoError(t, p.SetOwner(poolOwner))
	require.NoError(t, p.SetRateBps(500))
	tok := token.New(st)
	require.NoError(t, tok.Mint(poolOwner, big.NewInt(1_000_000)))
	require.NoError(t, tok.Approve(poolOwner, garner.CustodyAddress, big.NewInt(1_000_000)))
	require.NoError(t, st.Commit())

	staking := ledger.New(stater, nil, func() uint64 { return 1700000000 })

	router := mux.NewRouter()
	New(staking, master).Mount(router, "/admin")
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

func httpPost(t *testing.T, url string, obj interface{}) ([]byte, int) {
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	res, err := http.Post(url, "application/json", bytes.NewReader(data)) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return body, res.StatusCode
}

func amount(n int64) *math.HexOrDecimal256 {
	return (*math.HexOrDecimal256)(big.NewInt(n))
}

func TestOwnerAPI(t *testing.T) {
	srv := initOwnerServer(t, poolOwner)

	t.Run("get rate", func(t *testing.T) {
		body, code := httpGet(t, srv.URL+"/admin/rate")
		require.Equal(t, http.StatusOK, code)

		var rate RateResponse
		require.NoError(t, json.Unmarshal(body, &rate))
		assert.Equal(t, uint64(500), rate.RateBps)
	})

	t.Run("deposit", func(t *testing.T) {
		body, code := httpPost(t, srv.URL+"/admin/pool/deposits", &DepositRequest{Amount: amount(1000)})
		require.Equal(t, http.StatusOK, code)

		var status ledgerapi.Status
		require.NoError(t, json.Unmarshal(body, &status))
		assert.Equal(t, big.NewInt(1000), (*big.Int)(&status.PoolBalance))
		assert.False(t, status.Enabled)
	})

	t.Run("enable staking", func(t *testing.T) {
		body, code := httpPost(t, srv.URL+"/admin/staking", &StakingRequest{Enabled: boolPtr(true)})
		require.Equal(t, http.StatusOK, code)

		var status ledgerapi.Status
		require.NoError(t, json.Unmarshal(body, &status))
		assert.True(t, status.Enabled)
	})

	t.Run("set rate", func(t *testing.T) {
		rate := uint64(750)
		body, code := httpPost(t, srv.URL+"/admin/rate", &RateRequest{RateBps: &rate})
		require.Equal(t, http.StatusOK, code)

		var res RateResponse
		require.NoError(t, json.Unmarshal(body, &res))
		assert.Equal(t, uint64(750), res.RateBps)

		body, code = httpGet(t, srv.URL+"/admin/rate")
		require.Equal(t, http.StatusOK, code)
		require.NoError(t, json.Unmarshal(body, &res))
		assert.Equal(t, uint64(750), res.RateBps)
	})

	t.Run("withdraw while enabled", func(t *testing.T) {
		_, code := httpPost(t, srv.URL+"/admin/pool/withdrawals", nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("disable staking", func(t *testing.T) {
		body, code := httpPost(t, srv.URL+"/admin/staking", &StakingRequest{Enabled: boolPtr(false)})
		require.Equal(t, http.StatusOK, code)

		var status ledgerapi.Status
		require.NoError(t, json.Unmarshal(body, &status))
		assert.False(t, status.Enabled)
	})

	t.Run("withdraw", func(t *testing.T) {
		body, code := httpPost(t, srv.URL+"/admin/pool/withdrawals", nil)
		require.Equal(t, http.StatusOK, code)

		var res WithdrawResult
		require.NoError(t, json.Unmarshal(body, &res))
		assert.Equal(t, big.NewInt(1000), (*big.Int)(&res.Amount))
	})

	t.Run("bad requests", func(t *testing.T) {
		_, code := httpPost(t, srv.URL+"/admin/pool/deposits", &DepositRequest{})
		assert.Equal(t, http.StatusBadRequest, code)

		_, code = httpPost(t, srv.URL+"/admin/pool/deposits", &DepositRequest{Amount: amount(0)})
		assert.Equal(t, http.StatusBadRequest, code)

		_, code = httpPost(t, srv.URL+"/admin/rate", &RateRequest{})
		assert.Equal(t, http.StatusBadRequest, code)

		_, code = httpPost(t, srv.URL+"/admin/staking", &StakingRequest{})
		assert.Equal(t, http.StatusBadRequest, code)

		_, code = httpPost(t, srv.URL+"/admin/staking", map[string]bool{"unknown": true})
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestOwnerAPINotAuthorized(t *testing.T) {
	stranger := garner.BytesToAddress([]byte("stranger"))
	srv := initOwnerServer(t, stranger)

	_, code := httpPost(t, srv.URL+"/admin/pool/deposits", &DepositRequest{Amount: amount(1000)})
	assert.Equal(t, http.StatusForbidden, code)

	_, code = httpPost(t, srv.URL+"/admin/staking", &StakingRequest{Enabled: boolPtr(true)})
	assert.Equal(t, http.StatusForbidden, code)
}

func boolPtr(b bool) *bool {
	return &b
}
