// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"net/http/pprof"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/garnerfi/garner/api/doc"
	"github.com/garnerfi/garner/api/events"
	"github.com/garnerfi/garner/api/journalapi"
	"github.com/garnerfi/garner/api/ledgerapi"
	"github.com/garnerfi/garner/api/middleware"
	"github.com/garnerfi/garner/api/tokenapi"
	"github.com/garnerfi/garner/journal"
	"github.com/garnerfi/garner/ledger"
	"github.com/garnerfi/garner/log"
	"github.com/garnerfi/garner/state"
)

var logger = log.WithContext("pkg", "api")

// LogStatus is the wire form of the request logger toggle.
type LogStatus struct {
	Enabled bool `json:"enabled"`
}

type Options struct {
	AllowedOrigins      string
	JournalLimit        uint64
	StreamCacheSize     uint32
	AllowTokenTransfers bool
	PprofOn             bool
	EnableMetrics       bool
	LogRequests         *atomic.Bool
	SlowQueryThreshold  time.Duration
	Log5XXErrors        bool
}

// New return api router
func New(
	staking *ledger.Ledger,
	stater *state.Stater,
	db *journal.Journal,
	opts Options,
) (http.HandlerFunc, func()) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	// to serve the api docs
	router.PathPrefix("/doc").Handler(
		http.StripPrefix("/doc/", http.FileServer(http.FS(doc.FS))),
	)

	// redirect to the open api document
	router.Path("/").HandlerFunc(
		func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, "doc/garner.yaml", http.StatusTemporaryRedirect)
		})

	ledgerapi.New(staking).
		Mount(router, "/ledger")
	tokenapi.New(stater, staking, opts.AllowTokenTransfers).
		Mount(router, "/tokens")

	closeEvents := func() {}
	if db != nil {
		journalapi.New(db, opts.JournalLimit).
			Mount(router, "/journal")
		subs := events.New(staking, db, origins, opts.StreamCacheSize)
		subs.Mount(router, "/events")
		closeEvents = subs.Close
	}

	if opts.PprofOn {
		router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		router.HandleFunc("/debug/pprof/profile", pprof.Profile)
		router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		router.HandleFunc("/debug/pprof/trace", pprof.Trace)
		router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	}

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type", "x-garner-id"}),
		handlers.ExposedHeaders([]string{"x-garner-id", "x-garner-ver"}),
	)(handler)

	if opts.LogRequests != nil {
		handler = middleware.RequestLoggerMiddleware(logger, opts.LogRequests, opts.SlowQueryThreshold, opts.Log5XXErrors)(handler)
	}

	return handler.ServeHTTP, closeEvents // events handles hijacked conns, which need to be closed
}
