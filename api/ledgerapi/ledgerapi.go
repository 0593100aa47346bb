// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package ledgerapi exposes the staking ledger over REST.
//
// Mutating endpoints act on behalf of the caller address carried in the
// request body. The service fronts custodial accounts, so the gateway in
// front of it is trusted to have authenticated the caller. Owner-gated
// operations are deliberately absent, they live on the admin listener.
package ledgerapi

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/garnerfi/garner/api/utils"
	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/ledger"
)

type Ledger struct {
	staking *ledger.Ledger
}

func New(staking *ledger.Ledger) *Ledger {
	return &Ledger{staking}
}

// convertError maps the ledger error taxonomy onto http statuses. An
// unclassified error stays internal.
func convertError(err error) error {
	switch {
	case ledger.IsNotAuthorized(err):
		return utils.Forbidden(err)
	case ledger.IsBadState(err),
		ledger.IsInsufficientBalance(err),
		ledger.IsInsufficientPool(err),
		ledger.IsNoRewards(err),
		ledger.IsTransferFailure(err):
		return utils.BadRequest(err)
	default:
		return err
	}
}

func parseCaller(addr garner.Address) (garner.Address, error) {
	if addr.IsZero() {
		return garner.Address{}, utils.BadRequest(errors.New("caller: zero address"))
	}
	return addr, nil
}

func parseAmount(amount *math.HexOrDecimal256) (*big.Int, error) {
	if amount == nil {
		return nil, utils.BadRequest(errors.New("amount: required"))
	}
	v := (*big.Int)(amount)
	if v.Sign() <= 0 {
		return nil, utils.BadRequest(errors.New("amount: must be positive"))
	}
	return v, nil
}

func (l *Ledger) handleGetStatus(w http.ResponseWriter, _ *http.Request) error {
	status, err := l.staking.Status()
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, ConvertStatus(status))
}

func (l *Ledger) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	addr, err := garner.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	acc, err := l.staking.GetAccount(addr)
	if err != nil {
		return err
	}
	pending, err := l.staking.CurrentRewards(addr)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, convertAccount(acc, pending))
}

func (l *Ledger) handleGetRewards(w http.ResponseWriter, req *http.Request) error {
	addr, err := garner.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	pending, err := l.staking.CurrentRewards(addr)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Rewards{PendingRewards: math.HexOrDecimal256(*pending)})
}

func (l *Ledger) handleStake(w http.ResponseWriter, req *http.Request) error {
	var stakeReq StakeRequest
	if err := utils.ParseJSON(req.Body, &stakeReq); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	caller, err := parseCaller(stakeReq.Caller)
	if err != nil {
		return err
	}
	amount, err := parseAmount(stakeReq.Amount)
	if err != nil {
		return err
	}
	if err := l.staking.Stake(caller, amount); err != nil {
		return convertError(err)
	}
	return l.writeAccount(w, caller)
}

func (l *Ledger) handleUnstake(w http.ResponseWriter, req *http.Request) error {
	var unstakeReq UnstakeRequest
	if err := utils.ParseJSON(req.Body, &unstakeReq); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	caller, err := parseCaller(unstakeReq.Caller)
	if err != nil {
		return err
	}
	amount, err := parseAmount(unstakeReq.Amount)
	if err != nil {
		return err
	}
	if err := l.staking.Unstake(caller, amount); err != nil {
		return convertError(err)
	}
	return l.writeAccount(w, caller)
}

func (l *Ledger) handleClaim(w http.ResponseWriter, req *http.Request) error {
	var claimReq ClaimRequest
	if err := utils.ParseJSON(req.Body, &claimReq); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	caller, err := parseCaller(claimReq.Caller)
	if err != nil {
		return err
	}
	reward, err := l.staking.ClaimRewards(caller)
	if err != nil {
		return convertError(err)
	}
	return utils.WriteJSON(w, &ClaimResult{Reward: math.HexOrDecimal256(*reward)})
}

func (l *Ledger) handleExit(w http.ResponseWriter, req *http.Request) error {
	var exitReq ExitRequest
	if err := utils.ParseJSON(req.Body, &exitReq); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	caller, err := parseCaller(exitReq.Caller)
	if err != nil {
		return err
	}
	principal, reward, err := l.staking.UnstakeAndClaim(caller)
	if err != nil {
		return convertError(err)
	}
	return utils.WriteJSON(w, &ExitResult{
		Principal: math.HexOrDecimal256(*principal),
		Reward:    math.HexOrDecimal256(*reward),
	})
}

// writeAccount responds with the post-operation view of caller.
func (l *Ledger) writeAccount(w http.ResponseWriter, addr garner.Address) error {
	acc, err := l.staking.GetAccount(addr)
	if err != nil {
		return err
	}
	pending, err := l.staking.CurrentRewards(addr)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, convertAccount(acc, pending))
}

func (l *Ledger) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /ledger").
		HandlerFunc(utils.WrapHandlerFunc(l.handleGetStatus))
	sub.Path("/accounts/{address}").
		Methods(http.MethodGet).
		Name("GET /ledger/accounts/{address}").
		HandlerFunc(utils.WrapHandlerFunc(l.handleGetAccount))
	sub.Path("/accounts/{address}/rewards").
		Methods(http.MethodGet).
		Name("GET /ledger/accounts/{address}/rewards").
		HandlerFunc(utils.WrapHandlerFunc(l.handleGetRewards))
	sub.Path("/stakes").
		Methods(http.MethodPost).
		Name("POST /ledger/stakes").
		HandlerFunc(utils.WrapHandlerFunc(l.handleStake))
	sub.Path("/unstakes").
		Methods(http.MethodPost).
		Name("POST /ledger/unstakes").
		HandlerFunc(utils.WrapHandlerFunc(l.handleUnstake))
	sub.Path("/claims").
		Methods(http.MethodPost).
		Name("POST /ledger/claims").
		HandlerFunc(utils.WrapHandlerFunc(l.handleClaim))
	sub.Path("/exits").
		Methods(http.MethodPost).
		Name("POST /ledger/exits").
		HandlerFunc(utils.WrapHandlerFunc(l.handleExit))
}
