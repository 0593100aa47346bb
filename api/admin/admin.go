// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package admin assembles the localhost administration interface: log
// controls, the health probe and the owner gated ledger operations. It
// is meant to be served on its own listener, never on the public one.
package admin

import (
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/garnerfi/garner/api/admin/apilogs"
	"github.com/garnerfi/garner/api/admin/health"
	"github.com/garnerfi/garner/api/admin/loglevel"
	"github.com/garnerfi/garner/api/admin/owner"
)

func New(logLevel *slog.LevelVar, apiLogsEnabled *atomic.Bool, healthStatus *health.Health, ownerAPI *owner.Owner) http.HandlerFunc {
	router := mux.NewRouter()

	loglevel.New(logLevel).Mount(router, "/admin/loglevel")
	apilogs.New(apiLogsEnabled).Mount(router, "/admin/apilogs")
	health.NewAPI(healthStatus).Mount(router, "/admin/health")
	ownerAPI.Mount(router, "/admin")

	handler := handlers.CompressHandler(router)

	return handler.ServeHTTP
}
