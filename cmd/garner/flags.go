// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"

	"github.com/garnerfi/garner/log"
)

var (
	networkFlag = cli.StringFlag{
		Name:  "network",
		Usage: "the network to join (dev) or the path to a genesis file",
	}
	configDirFlag = cli.StringFlag{
		Name:   "config-dir",
		Value:  defaultConfigDir(),
		Hidden: true,
		Usage:  "directory for user global configurations",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for ledger databases",
	}
	cacheFlag = cli.Uint64Flag{
		Name:  "cache",
		Value: 2048,
		Usage: "megabytes of ram allocated to state cache",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8669",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	apiTimeoutFlag = cli.Uint64Flag{
		Name:  "api-timeout",
		Value: 10000,
		Usage: "API request timeout value in milliseconds",
	}
	apiJournalLimitFlag = cli.Uint64Flag{
		Name:  "api-journal-limit",
		Value: 1000,
		Usage: "limit the number of entries returned by /journal API",
	}
	apiStreamCacheFlag = cli.Uint64Flag{
		Name:  "api-stream-cache",
		Value: 512,
		Usage: "number of recent journal entry frames kept for websocket catch-up",
	}
	apiAllowTransfersFlag = cli.BoolFlag{
		Name:  "api-allow-transfers",
		Usage: "enable POST /tokens/transfers on the public API (always on for dev network)",
	}
	enableAPILogsFlag = cli.BoolFlag{
		Name:  "enable-api-logs",
		Usage: "enables API requests logging",
	}
	apiLogsSlowThresholdFlag = cli.Uint64Flag{
		Name:   "api-logs-slow-threshold",
		Value:  1000,
		Hidden: true,
		Usage:  "log API requests slower than the threshold in milliseconds (0 to disable)",
	}
	verbosityFlag = cli.Uint64Flag{
		Name:  "verbosity",
		Value: log.LegacyLevelInfo,
		Usage: "log verbosity (0-5)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}
	pprofFlag = cli.BoolFlag{
		Name:  "pprof",
		Usage: "turn on go-pprof",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables metrics collection",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "localhost:2112",
		Usage: "metrics service listening address",
	}
	enableAdminFlag = cli.BoolFlag{
		Name:  "enable-admin",
		Usage: "enables admin server",
	}
	adminAddrFlag = cli.StringFlag{
		Name:  "admin-addr",
		Value: "localhost:2113",
		Usage: "admin service listening address",
	}

	importMasterKeyFlag = cli.BoolFlag{
		Name:  "import",
		Usage: "import master key from hex key fed to stdin",
	}
	exportMasterKeyFlag = cli.BoolFlag{
		Name:  "export",
		Usage: "export master key as hex to stdout",
	}

	// dev network only flags
	persistFlag = cli.BoolFlag{
		Name:  "persist",
		Usage: "dev network storage option, if set data will be saved to disk",
	}
)
