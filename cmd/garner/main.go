// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/garnerfi/garner/api"
	"github.com/garnerfi/garner/cmd/garner/httpserver"
	"github.com/garnerfi/garner/cmd/garner/node"
	"github.com/garnerfi/garner/journal"
	"github.com/garnerfi/garner/ledger"
	"github.com/garnerfi/garner/log"
	"github.com/garnerfi/garner/lvldb"
	"github.com/garnerfi/garner/metrics"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "cli")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Garner",
		Usage:     "Node of the Garner staking ledger",
		Copyright: "2024 The Garner developers",
		Flags: []cli.Flag{
			networkFlag,
			configDirFlag,
			dataDirFlag,
			cacheFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiTimeoutFlag,
			apiJournalLimitFlag,
			apiStreamCacheFlag,
			apiAllowTransfersFlag,
			enableAPILogsFlag,
			apiLogsSlowThresholdFlag,
			verbosityFlag,
			jsonLogsFlag,
			pprofFlag,
			enableMetricsFlag,
			metricsAddrFlag,
			enableAdminFlag,
			adminAddrFlag,
			persistFlag,
		},
		Action: defaultAction,
		Commands: []cli.Command{
			{
				Name:  "master-key",
				Usage: "import and export master key",
				Flags: []cli.Flag{
					configDirFlag,
					importMasterKeyFlag,
					exportMasterKeyFlag,
				},
				Action: masterKeyAction,
			},
			{
				Name:  "verify",
				Usage: "verify the journal by replaying it against a fresh ledger",
				Flags: []cli.Flag{
					networkFlag,
					dataDirFlag,
					cacheFlag,
					verbosityFlag,
					jsonLogsFlag,
				},
				Action: verifyAction,
			},
			{
				Name:      "backup",
				Usage:     "export the journal to a compressed backup file",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					networkFlag,
					dataDirFlag,
					verbosityFlag,
					jsonLogsFlag,
				},
				Action: backupAction,
			},
			{
				Name:      "restore",
				Usage:     "import the journal from a compressed backup file",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					networkFlag,
					dataDirFlag,
					verbosityFlag,
					jsonLogsFlag,
				},
				Action: restoreAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	logLevel := initLogger(ctx)

	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
		url, closeFunc, err := httpserver.StartMetricsServer(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			fatal(fmt.Sprintf("start metrics server: %v", err))
		}
		defer func() { logger.Info("stopping metrics server..."); closeFunc() }()
		logger.Info("metrics service started", "url", url)
	}

	gene := selectGenesis(ctx)
	isDev := ctx.String(networkFlag.Name) == "dev"

	var (
		mainDB       *lvldb.LevelDB
		jrn          *journal.Journal
		instanceDir  string
		stateCacheMB int
	)
	if isDev && !ctx.Bool(persistFlag.Name) {
		instanceDir = "Memory"
		mainDB = openMemMainDB()
		jrn = openMemJournal()
	} else {
		instanceDir = makeInstanceDir(ctx, gene)
		mainDB, stateCacheMB = openMainDB(ctx, instanceDir)
		jrn = openJournal(instanceDir)
	}
	defer func() { logger.Info("closing main database..."); mainDB.Close() }()
	defer func() { logger.Info("closing journal..."); jrn.Close() }()

	stater := initLedgerState(gene, mainDB, stateCacheMB)

	staking := ledger.New(stater, jrn, func() uint64 { return uint64(time.Now().Unix()) })
	defer staking.Close()

	master := loadNodeMaster(ctx)

	apiLogs := new(atomic.Bool)
	apiLogs.Store(ctx.Bool(enableAPILogsFlag.Name))

	apiHandler, apiCloser := api.New(staking, stater, jrn, api.Options{
		AllowedOrigins:      ctx.String(apiCorsFlag.Name),
		JournalLimit:        ctx.Uint64(apiJournalLimitFlag.Name),
		StreamCacheSize:     uint32(ctx.Uint64(apiStreamCacheFlag.Name)),
		AllowTokenTransfers: isDev || ctx.Bool(apiAllowTransfersFlag.Name),
		PprofOn:             ctx.Bool(pprofFlag.Name),
		EnableMetrics:       ctx.Bool(enableMetricsFlag.Name),
		LogRequests:         apiLogs,
		SlowQueryThreshold:  time.Duration(ctx.Uint64(apiLogsSlowThresholdFlag.Name)) * time.Millisecond,
		Log5XXErrors:        true,
	})
	defer func() { logger.Info("closing API..."); apiCloser() }()

	apiURL, srvCloser := startAPIServer(ctx, apiHandler, gene.ID())
	defer func() { logger.Info("stopping API server..."); srvCloser() }()

	if ctx.Bool(enableAdminFlag.Name) {
		url, closeFunc, err := httpserver.StartAdminServer(
			ctx.String(adminAddrFlag.Name),
			logLevel,
			staking,
			jrn,
			apiLogs,
			master.Address(),
		)
		if err != nil {
			fatal(fmt.Sprintf("start admin server: %v", err))
		}
		defer func() { logger.Info("stopping admin server..."); closeFunc() }()
		logger.Info("admin service started", "url", url)
	}

	if isDev {
		printDevStartupMessage(gene, staking, instanceDir, apiURL)
	} else {
		printStartupMessage(gene, staking, master, instanceDir, apiURL)
	}

	return node.New(master, staking, stater).Run(handleExitSignal())
}
