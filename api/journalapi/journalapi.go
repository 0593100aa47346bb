// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package journalapi exposes the audit journal over REST.
//
// The same filter runs two ways: GET with query parameters for casual
// inspection, POST with a JSON filter body for programmatic paging.
package journalapi

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/garnerfi/garner/api/utils"
	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/journal"
)

var validOps = map[string]bool{
	journal.OpStake:           true,
	journal.OpUnstake:         true,
	journal.OpClaim:           true,
	journal.OpUnstakeAndClaim: true,
	journal.OpDeposit:         true,
	journal.OpWithdraw:        true,
	journal.OpUpdateRate:      true,
	journal.OpEnable:          true,
	journal.OpDisable:         true,
}

type Journal struct {
	db    *journal.Journal
	limit uint64
}

// New creates the journal API. limit caps the entries of one response.
func New(db *journal.Journal, limit uint64) *Journal {
	return &Journal{db, limit}
}

func (j *Journal) handleFilterEntries(w http.ResponseWriter, req *http.Request) error {
	var filter EntryFilter
	if err := utils.ParseJSON(req.Body, &filter); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	return j.respondEntries(w, req, &filter)
}

func (j *Journal) handleGetEntries(w http.ResponseWriter, req *http.Request) error {
	filter, err := j.parseQuery(req.URL.Query())
	if err != nil {
		return err
	}
	return j.respondEntries(w, req, filter)
}

func (j *Journal) respondEntries(w http.ResponseWriter, req *http.Request, filter *EntryFilter) error {
	if filter.Op != "" && !validOps[filter.Op] {
		return utils.BadRequest(errors.New("op: unknown operation kind"))
	}
	if filter.Range != nil {
		if filter.Range.From > math.MaxInt64 {
			return utils.BadRequest(fmt.Errorf("range.from exceeds the maximum allowed value of %d", int64(math.MaxInt64)))
		}
		if filter.Range.To > math.MaxInt64 {
			return utils.BadRequest(fmt.Errorf("range.to exceeds the maximum allowed value of %d", int64(math.MaxInt64)))
		}
		if filter.Range.To < filter.Range.From {
			return utils.BadRequest(errors.New("range.to must not be smaller than range.from"))
		}
	}
	if filter.AfterSequence > math.MaxInt64 {
		return utils.BadRequest(fmt.Errorf("afterSequence exceeds the maximum allowed value of %d", int64(math.MaxInt64)))
	}
	if filter.Options != nil {
		if filter.Options.Limit > j.limit {
			return utils.Forbidden(fmt.Errorf("options.limit exceeds the maximum allowed value of %d", j.limit))
		}
		if filter.Options.Offset > math.MaxInt64 {
			return utils.BadRequest(fmt.Errorf("options.offset exceeds the maximum allowed value of %d", int64(math.MaxInt64)))
		}
	}

	capped := *filter
	if capped.Options == nil {
		// one more than the cap uncovers an uncapped result set
		capped.Options = &Options{Offset: 0, Limit: j.limit + 1}
	}

	entries, err := j.db.Filter(req.Context(), convertFilter(&capped))
	if err != nil {
		return err
	}
	if len(entries) > int(j.limit) {
		return utils.Forbidden(errors.New("the number of entries exceeds the maximum allowed value of " +
			strconv.FormatUint(j.limit, 10) + ", please use pagination"))
	}

	converted := make([]*Entry, len(entries))
	for i, e := range entries {
		converted[i] = ConvertEntry(e)
	}
	return utils.WriteJSON(w, converted)
}

func (j *Journal) parseQuery(query url.Values) (*EntryFilter, error) {
	var filter EntryFilter

	filter.Op = query.Get("op")
	if user := query.Get("user"); user != "" {
		addr, err := garner.ParseAddress(user)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "user"))
		}
		filter.Caller = &addr
	}

	from, to := uint64(0), uint64(math.MaxInt64)
	ranged := false
	if s := query.Get("from"); s != "" {
		v, err := strconv.ParseUint(s, 10, 63)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "from"))
		}
		from, ranged = v, true
	}
	if s := query.Get("to"); s != "" {
		v, err := strconv.ParseUint(s, 10, 63)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "to"))
		}
		to, ranged = v, true
	}
	if ranged {
		filter.Range = &Range{From: from, To: to}
	}

	offset, limit := uint64(0), j.limit
	paged := false
	if s := query.Get("offset"); s != "" {
		v, err := strconv.ParseUint(s, 10, 63)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "offset"))
		}
		offset, paged = v, true
	}
	if s := query.Get("limit"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "limit"))
		}
		limit, paged = v, true
	}
	if paged {
		filter.Options = &Options{Offset: offset, Limit: limit}
	}

	switch order := query.Get("order"); order {
	case "", string(journal.ASC):
		filter.Order = journal.ASC
	case string(journal.DESC):
		filter.Order = journal.DESC
	default:
		return nil, utils.BadRequest(errors.New("order: expected asc or desc"))
	}
	return &filter, nil
}

func (j *Journal) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /journal").
		HandlerFunc(utils.WrapHandlerFunc(j.handleGetEntries))
	sub.Path("").
		Methods(http.MethodPost).
		Name("POST /journal").
		HandlerFunc(utils.WrapHandlerFunc(j.handleFilterEntries))
}
