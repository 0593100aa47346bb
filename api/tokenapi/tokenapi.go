// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package tokenapi exposes the token balances backing the staking ledger.
//
// Balances and supply are plain reads. The approval endpoint grants
// custody the allowance that stakes and deposits pull against. The
// transfer endpoint exists for dev networks, it is the same funding
// surface the genesis allocator uses, and it stays disabled unless the
// node opts in.
package tokenapi

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/garnerfi/garner/api/utils"
	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/ledger"
	"github.com/garnerfi/garner/state"
	"github.com/garnerfi/garner/token"
)

type Tokens struct {
	stater         *state.Stater
	staking        *ledger.Ledger
	allowTransfers bool
}

func New(stater *state.Stater, staking *ledger.Ledger, allowTransfers bool) *Tokens {
	return &Tokens{stater, staking, allowTransfers}
}

func (t *Tokens) token() *token.Token {
	return token.New(t.stater.NewState())
}

func (t *Tokens) handleGetSupply(w http.ResponseWriter, _ *http.Request) error {
	tok := t.token()
	supply, err := tok.TotalSupply()
	if err != nil {
		return err
	}
	custody, err := tok.BalanceOf(garner.CustodyAddress)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Supply{
		TotalSupply:    math.HexOrDecimal256(*supply),
		CustodyBalance: math.HexOrDecimal256(*custody),
	})
}

func (t *Tokens) handleGetBalance(w http.ResponseWriter, req *http.Request) error {
	addr, err := garner.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	balance, err := t.token().BalanceOf(addr)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Balance{Balance: math.HexOrDecimal256(*balance)})
}

func (t *Tokens) handleGetAllowance(w http.ResponseWriter, req *http.Request) error {
	addr, err := garner.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	spender, err := garner.ParseAddress(mux.Vars(req)["spender"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "spender"))
	}
	remaining, err := t.token().Allowance(addr, spender)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Allowance{Remaining: math.HexOrDecimal256(*remaining)})
}

func (t *Tokens) handleTransfer(w http.ResponseWriter, req *http.Request) error {
	if !t.allowTransfers {
		return utils.Forbidden(errors.New("transfers not enabled on this node"))
	}
	var transferReq TransferRequest
	if err := utils.ParseJSON(req.Body, &transferReq); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if transferReq.From.IsZero() {
		return utils.BadRequest(errors.New("from: zero address"))
	}
	if transferReq.To.IsZero() {
		return utils.BadRequest(errors.New("to: zero address"))
	}
	if transferReq.Amount == nil {
		return utils.BadRequest(errors.New("amount: required"))
	}
	amount := (*big.Int)(transferReq.Amount)
	if amount.Sign() <= 0 {
		return utils.BadRequest(errors.New("amount: must be positive"))
	}

	if err := t.staking.Transfer(transferReq.From, transferReq.To, amount); err != nil {
		if ledger.IsTransferFailure(err) || ledger.IsBadState(err) {
			return utils.BadRequest(err)
		}
		return err
	}

	tok := t.token()
	fromBalance, err := tok.BalanceOf(transferReq.From)
	if err != nil {
		return err
	}
	toBalance, err := tok.BalanceOf(transferReq.To)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &TransferResult{
		FromBalance: math.HexOrDecimal256(*fromBalance),
		ToBalance:   math.HexOrDecimal256(*toBalance),
	})
}

func (t *Tokens) handleApprove(w http.ResponseWriter, req *http.Request) error {
	var approvalReq ApprovalRequest
	if err := utils.ParseJSON(req.Body, &approvalReq); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if approvalReq.Caller.IsZero() {
		return utils.BadRequest(errors.New("caller: zero address"))
	}
	if approvalReq.Amount == nil {
		return utils.BadRequest(errors.New("amount: required"))
	}
	amount := (*big.Int)(approvalReq.Amount)
	if amount.Sign() < 0 {
		return utils.BadRequest(errors.New("amount: must not be negative"))
	}

	if err := t.staking.Approve(approvalReq.Caller, amount); err != nil {
		if ledger.IsBadState(err) {
			return utils.BadRequest(err)
		}
		return err
	}

	remaining, err := t.token().Allowance(approvalReq.Caller, garner.CustodyAddress)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &ApprovalResult{Remaining: math.HexOrDecimal256(*remaining)})
}

func (t *Tokens) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /tokens").
		HandlerFunc(utils.WrapHandlerFunc(t.handleGetSupply))
	sub.Path("/accounts/{address}").
		Methods(http.MethodGet).
		Name("GET /tokens/accounts/{address}").
		HandlerFunc(utils.WrapHandlerFunc(t.handleGetBalance))
	sub.Path("/accounts/{address}/allowances/{spender}").
		Methods(http.MethodGet).
		Name("GET /tokens/accounts/{address}/allowances/{spender}").
		HandlerFunc(utils.WrapHandlerFunc(t.handleGetAllowance))
	sub.Path("/approvals").
		Methods(http.MethodPost).
		Name("POST /tokens/approvals").
		HandlerFunc(utils.WrapHandlerFunc(t.handleApprove))
	sub.Path("/transfers").
		Methods(http.MethodPost).
		Name("POST /tokens/transfers").
		HandlerFunc(utils.WrapHandlerFunc(t.handleTransfer))
}
