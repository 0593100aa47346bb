// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"context"

	"github.com/garnerfi/garner/co"
	"github.com/garnerfi/garner/ledger"
	"github.com/garnerfi/garner/log"
	"github.com/garnerfi/garner/state"
)

var logger = log.WithContext("pkg", "node")

// Node ties the running ledger to its background chores.
type Node struct {
	goes    co.Goes
	master  *Master
	staking *ledger.Ledger
	stater  *state.Stater
}

func New(
	master *Master,
	staking *ledger.Ledger,
	stater *state.Stater,
) *Node {
	return &Node{
		master:  master,
		staking: staking,
		stater:  stater,
	}
}

// Run blocks until the context is cancelled.
func (n *Node) Run(ctx context.Context) error {
	n.goes.Go(func() { n.houseKeeping(ctx) })
	n.goes.Wait()
	return nil
}
