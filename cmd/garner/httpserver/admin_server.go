// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package httpserver

import (
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/garnerfi/garner/api/admin"
	"github.com/garnerfi/garner/api/admin/health"
	"github.com/garnerfi/garner/api/admin/owner"
	"github.com/garnerfi/garner/co"
	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/journal"
	"github.com/garnerfi/garner/ledger"
)

func StartAdminServer(
	addr string,
	logLevel *slog.LevelVar,
	staking *ledger.Ledger,
	db *journal.Journal,
	apiLogs *atomic.Bool,
	master garner.Address,
) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen admin API addr [%v]", addr)
	}

	adminHandler := admin.New(logLevel, apiLogs, health.New(staking, db), owner.New(staking, master))

	srv := &http.Server{Handler: adminHandler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	var goes co.Goes
	goes.Go(func() {
		srv.Serve(listener)
	})
	return "http://" + listener.Addr().String() + "/admin", func() {
		srv.Close()
		goes.Wait()
	}, nil
}
