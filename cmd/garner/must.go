// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"crypto/ecdsa"
	"fmt"
	"math"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/elastic/gosigar"
	"github.com/ethereum/go-ethereum/common/fdlimit"
	"github.com/ethereum/go-ethereum/crypto"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/garnerfi/garner/cmd/garner/node"
	"github.com/garnerfi/garner/co"
	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/genesis"
	"github.com/garnerfi/garner/journal"
	"github.com/garnerfi/garner/ledger"
	"github.com/garnerfi/garner/lvldb"
	"github.com/garnerfi/garner/state"
)

func selectGenesis(ctx *cli.Context) *genesis.Genesis {
	network := ctx.String(networkFlag.Name)
	if network == "" {
		cli.ShowAppHelp(ctx)
		fmt.Println("network flag not specified")
		os.Exit(1)
	}

	if network == "dev" {
		return genesis.NewDevnet()
	}

	file, err := os.Open(network)
	if err != nil {
		fatal(fmt.Sprintf("open genesis file: %v", err))
	}
	defer file.Close()

	gen, err := genesis.ParseCustomGenesis(file)
	if err != nil {
		fatal(fmt.Sprintf("decode genesis file: %v", err))
	}
	customGen, err := genesis.NewCustomNet(gen)
	if err != nil {
		fatal(fmt.Sprintf("build genesis: %v", err))
	}
	return customGen
}

func makeConfigDir(ctx *cli.Context) string {
	configDir := ctx.String(configDirFlag.Name)
	if configDir == "" {
		fatal(fmt.Sprintf("unable to infer default config dir, use -%s to specify", configDirFlag.Name))
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		fatal(fmt.Sprintf("create config dir [%v]: %v", configDir, err))
	}
	return configDir
}

func makeDataDir(ctx *cli.Context) string {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		fatal(fmt.Sprintf("unable to infer default data dir, use -%s to specify", dataDirFlag.Name))
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		fatal(fmt.Sprintf("create data dir [%v]: %v", dataDir, err))
	}
	return dataDir
}

func makeInstanceDir(ctx *cli.Context, gene *genesis.Genesis) string {
	dataDir := makeDataDir(ctx)

	instanceDir := filepath.Join(dataDir, fmt.Sprintf("instance-%x", gene.ID().Bytes()[24:]))
	if err := os.MkdirAll(instanceDir, 0700); err != nil {
		fatal(fmt.Sprintf("create instance dir [%v]: %v", instanceDir, err))
	}
	return instanceDir
}

// openMainDB opens the state database, splitting the cache budget half
// to leveldb and half to the slot cache. The second return value is the
// slot cache share in MB.
func openMainDB(ctx *cli.Context, instanceDir string) (*lvldb.LevelDB, int) {
	cacheMB := normalizeCacheSize(ctx.Int(cacheFlag.Name))
	logger.Debug("cache size(MB)", "size", cacheMB)

	// Ensure Go's GC ignores the database cache for trigger percentage
	gogc := math.Max(20, math.Min(100, 100/(float64(cacheMB)/1024)))

	logger.Debug("sanitize Go's GC trigger", "percent", int(gogc))
	debug.SetGCPercent(int(gogc))

	fdCache := suggestFDCache()
	logger.Debug("fd cache", "n", fdCache)

	dir := filepath.Join(instanceDir, "main.db")
	db, err := lvldb.New(dir, lvldb.Options{
		CacheSize:              cacheMB / 2,
		OpenFilesCacheCapacity: fdCache,
	})
	if err != nil {
		fatal(fmt.Sprintf("open main database [%v]: %v", dir, err))
	}
	return db, cacheMB / 2
}

func openMemMainDB() *lvldb.LevelDB {
	db, err := lvldb.NewMem()
	if err != nil {
		fatal(fmt.Sprintf("open main database: %v", err))
	}
	return db
}

func normalizeCacheSize(sizeMB int) int {
	if sizeMB < 128 {
		sizeMB = 128
	}

	var mem gosigar.Mem
	if err := mem.Get(); err != nil {
		logger.Warn("failed to get total mem:", "err", err)
	} else {
		// limit to 1/2 os physical ram
		limitMB := int(mem.Total / 1024 / 1024 / 2)
		if sizeMB > limitMB {
			sizeMB = limitMB
			logger.Warn("cache size(MB) limited", "limit", limitMB)
		}
	}
	return sizeMB
}

func suggestFDCache() int {
	limit, err := fdlimit.Current()
	if err != nil {
		fatal("failed to get fd limit:", err)
	}
	if limit <= 1024 {
		logger.Warn("low fd limit, increase it if possible", "limit", limit)
	}

	n := limit / 2
	if n > 5120 {
		return 5120
	}
	return n
}

var genesisIDKey = []byte("genesis-id")

// initLedgerState seeds the genesis state on a fresh database and
// refuses a database initialized from a different genesis.
func initLedgerState(gene *genesis.Genesis, mainDB *lvldb.LevelDB, stateCacheMB int) *state.Stater {
	stater := state.NewStater(mainDB, stateCacheMB)

	stored, err := mainDB.Get(genesisIDKey)
	if err != nil {
		if !mainDB.IsNotFound(err) {
			fatal(fmt.Sprintf("read genesis id: %v", err))
		}
		if err := gene.Build(stater); err != nil {
			fatal(fmt.Sprintf("build genesis state: %v", err))
		}
		if err := mainDB.Put(genesisIDKey, gene.ID().Bytes()); err != nil {
			fatal(fmt.Sprintf("write genesis id: %v", err))
		}
		logger.Info("genesis state built", "id", gene.ID(), "name", gene.Name())
		return stater
	}

	if id := garner.BytesToBytes32(stored); id != gene.ID() {
		fatal(fmt.Sprintf("genesis mismatch: database holds %v, requested %v", id, gene.ID()))
	}
	return stater
}

func openJournal(instanceDir string) *journal.Journal {
	dir := filepath.Join(instanceDir, "journal.db")
	db, err := journal.New(dir)
	if err != nil {
		fatal(fmt.Sprintf("open journal database [%v]: %v", dir, err))
	}
	return db
}

func openMemJournal() *journal.Journal {
	db, err := journal.NewMem()
	if err != nil {
		fatal(fmt.Sprintf("open journal database: %v", err))
	}
	return db
}

func masterKeyPath(ctx *cli.Context) string {
	configDir := makeConfigDir(ctx)
	return filepath.Join(configDir, "master.key")
}

func loadOrGeneratePrivateKey(path string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.LoadECDSA(path)
	if err == nil {
		return key, nil
	}

	if !os.IsNotExist(err) {
		return nil, err
	}

	key, err = crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := crypto.SaveECDSA(path, key); err != nil {
		return nil, err
	}
	return key, nil
}

func loadNodeMaster(ctx *cli.Context) *node.Master {
	if ctx.String(networkFlag.Name) == "dev" {
		// the first dev account owns the devnet pool
		return &node.Master{PrivateKey: genesis.DevAccounts()[0].PrivateKey}
	}
	key, err := loadOrGeneratePrivateKey(masterKeyPath(ctx))
	if err != nil {
		fatal("load or generate master key:", err)
	}
	return &node.Master{PrivateKey: key}
}

func startAPIServer(ctx *cli.Context, handler http.Handler, genesisID garner.Bytes32) (string, func()) {
	addr := ctx.String(apiAddrFlag.Name)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		fatal(fmt.Sprintf("listen API addr [%v]: %v", addr, err))
	}
	timeout := ctx.Int(apiTimeoutFlag.Name)
	if timeout > 0 {
		handler = handleAPITimeout(handler, time.Duration(timeout)*time.Millisecond)
	}
	handler = handleXGarnerID(handler, genesisID)
	handler = handleXGarnerVersion(handler)
	handler = requestBodyLimit(handler)
	srv := &http.Server{Handler: handler}
	var goes co.Goes
	goes.Go(func() {
		srv.Serve(listener)
	})
	return "http://" + listener.Addr().String() + "/", func() {
		srv.Close()
		goes.Wait()
	}
}

func printStartupMessage(
	gene *genesis.Genesis,
	staking *ledger.Ledger,
	master *node.Master,
	instanceDir string,
	apiURL string,
) {
	status, err := staking.Status()
	if err != nil {
		fatal(fmt.Sprintf("read staking status: %v", err))
	}

	fmt.Printf(`Starting %v
    Network      [ %v %v ]
    Pool         [ owner %v, rate %v bps, enabled %v ]
    Totals       [ staked %v, pool %v ]
    Master       [ %v ]
    Instance dir [ %v ]
    API portal   [ %v ]
`,
		fmt.Sprintf("Garner/%s/%s-%s", fullVersion(), runtime.GOOS, runtime.Version()),
		gene.ID(), gene.Name(),
		status.Owner, status.RateBps, status.Enabled,
		status.TotalStaked, status.PoolBalance,
		master.Address(),
		instanceDir,
		apiURL)
}

func printDevStartupMessage(
	gene *genesis.Genesis,
	staking *ledger.Ledger,
	instanceDir string,
	apiURL string,
) {
	tableHead := `
┌────────────────────────────────────────────┬────────────────────────────────────────────────────────────────────┐
│                   Address                  │                             Private Key                            │`
	tableContent := `
├────────────────────────────────────────────┼────────────────────────────────────────────────────────────────────┤
│ %v │ %v │`
	tableEnd := `
└────────────────────────────────────────────┴────────────────────────────────────────────────────────────────────┘`

	status, err := staking.Status()
	if err != nil {
		fatal(fmt.Sprintf("read staking status: %v", err))
	}

	info := fmt.Sprintf(`Starting %v
    Network     [ %v %v ]
    Pool        [ owner %v, rate %v bps, enabled %v ]
    Data dir    [ %v ]
    API portal  [ %v ]`,
		fmt.Sprintf("Garner dev/%s/%s-%s", fullVersion(), runtime.GOOS, runtime.Version()),
		gene.ID(), gene.Name(),
		status.Owner, status.RateBps, status.Enabled,
		instanceDir,
		apiURL)

	info += tableHead

	for _, a := range genesis.DevAccounts() {
		info += fmt.Sprintf(tableContent,
			a.Address,
			garner.BytesToBytes32(crypto.FromECDSA(a.PrivateKey)),
		)
	}
	info += tableEnd + "\r\n"

	fmt.Print(info)
}
