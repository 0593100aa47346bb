// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"context"
	"math/big"
	"time"

	"github.com/beevik/ntp"
	"github.com/ethereum/go-ethereum/common"

	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/token"
)

// Accruals are priced off the wall clock, so a drifting clock silently
// misprices every open interval.
const maxClockOffset = 10 * time.Second

func (n *Node) houseKeeping(ctx context.Context) {
	logger.Debug("enter house keeping")

	custodyTicker := time.NewTicker(5 * time.Minute)
	clockSyncTicker := time.NewTicker(10 * time.Minute)

	defer func() {
		logger.Debug("leave house keeping")
		custodyTicker.Stop()
		clockSyncTicker.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-custodyTicker.C:
			n.checkCustody()
		case <-clockSyncTicker.C:
			go checkClockOffset()
		}
	}
}

// checkCustody verifies the custody account still covers every staked
// unit plus the pool float. A shortfall means a conservation bug, it is
// reported but never repaired here.
func (n *Node) checkCustody() {
	status, err := n.staking.Status()
	if err != nil {
		logger.Warn("failed to read staking status", "err", err)
		return
	}
	held, err := token.New(n.stater.NewState()).BalanceOf(garner.CustodyAddress)
	if err != nil {
		logger.Warn("failed to read custody balance", "err", err)
		return
	}

	obligation := new(big.Int).Add(status.TotalStaked, status.PoolBalance)
	if held.Cmp(obligation) < 0 {
		logger.Error("custody below obligations",
			"held", held,
			"staked", status.TotalStaked,
			"pool", status.PoolBalance,
		)
	}
}

func checkClockOffset() {
	resp, err := ntp.Query("pool.ntp.org")
	if err != nil {
		logger.Debug("failed to access NTP", "err", err)
		return
	}
	if resp.ClockOffset > maxClockOffset {
		logger.Warn("clock offset detected", "offset", common.PrettyDuration(resp.ClockOffset))
	}
}
