// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package owner exposes the owner gated ledger controls on the admin
// listener. Every call runs as the node master address; the ledger
// itself rejects a master that is not the pool owner.
package owner

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/garnerfi/garner/api/ledgerapi"
	"github.com/garnerfi/garner/api/utils"
	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/ledger"
)

type Owner struct {
	staking *ledger.Ledger
	master  garner.Address
}

func New(staking *ledger.Ledger, master garner.Address) *Owner {
	return &Owner{
		staking: staking,
		master:  master,
	}
}

func convertError(err error) error {
	switch {
	case ledger.IsNotAuthorized(err):
		return utils.Forbidden(err)
	case ledger.IsBadState(err),
		ledger.IsInsufficientBalance(err),
		ledger.IsInsufficientPool(err),
		ledger.IsTransferFailure(err):
		return utils.BadRequest(err)
	default:
		return err
	}
}

func (o *Owner) writeStatus(w http.ResponseWriter) error {
	status, err := o.staking.Status()
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, ledgerapi.ConvertStatus(status))
}

func (o *Owner) handleDeposit(w http.ResponseWriter, req *http.Request) error {
	var body DepositRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if body.Amount == nil {
		return utils.BadRequest(errors.New("amount: required"))
	}
	amount := (*big.Int)(body.Amount)
	if amount.Sign() <= 0 {
		return utils.BadRequest(errors.New("amount: must be positive"))
	}

	if err := o.staking.DepositRewards(o.master, amount); err != nil {
		return convertError(err)
	}
	return o.writeStatus(w)
}

func (o *Owner) handleWithdraw(w http.ResponseWriter, _ *http.Request) error {
	amount, err := o.staking.WithdrawRewards(o.master)
	if err != nil {
		return convertError(err)
	}
	return utils.WriteJSON(w, WithdrawResult{Amount: math.HexOrDecimal256(*amount)})
}

func (o *Owner) handleGetRate(w http.ResponseWriter, _ *http.Request) error {
	status, err := o.staking.Status()
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, RateResponse{RateBps: status.RateBps})
}

func (o *Owner) handleSetRate(w http.ResponseWriter, req *http.Request) error {
	var body RateRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if body.RateBps == nil {
		return utils.BadRequest(errors.New("rateBps: required"))
	}

	if err := o.staking.UpdateRate(o.master, *body.RateBps); err != nil {
		return convertError(err)
	}
	return utils.WriteJSON(w, RateResponse{RateBps: *body.RateBps})
}

func (o *Owner) handleSetStaking(w http.ResponseWriter, req *http.Request) error {
	var body StakingRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if body.Enabled == nil {
		return utils.BadRequest(errors.New("missing 'enabled' field"))
	}

	var err error
	if *body.Enabled {
		err = o.staking.EnableStaking(o.master)
	} else {
		err = o.staking.DisableStaking(o.master)
	}
	if err != nil {
		return convertError(err)
	}
	return o.writeStatus(w)
}

func (o *Owner) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/pool/deposits").
		Methods(http.MethodPost).
		Name("post-pool-deposit").
		HandlerFunc(utils.WrapHandlerFunc(o.handleDeposit))
	sub.Path("/pool/withdrawals").
		Methods(http.MethodPost).
		Name("post-pool-withdrawal").
		HandlerFunc(utils.WrapHandlerFunc(o.handleWithdraw))
	sub.Path("/rate").
		Methods(http.MethodGet).
		Name("get-rate").
		HandlerFunc(utils.WrapHandlerFunc(o.handleGetRate))
	sub.Path("/rate").
		Methods(http.MethodPost).
		Name("post-rate").
		HandlerFunc(utils.WrapHandlerFunc(o.handleSetRate))
	sub.Path("/staking").
		Methods(http.MethodPost).
		Name("post-staking").
		HandlerFunc(utils.WrapHandlerFunc(o.handleSetStaking))
}
