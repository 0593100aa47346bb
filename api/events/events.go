// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package events streams settled ledger operations over websocket.
//
// A subscriber receives one JSON frame per journal entry, in settlement
// order. The optional pos query parameter is the last sequence the
// client has seen, stored entries after it are replayed before the live
// feed takes over. Without pos the stream starts at the tail.
package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"

	"github.com/garnerfi/garner/api/journalapi"
	"github.com/garnerfi/garner/api/utils"
	"github.com/garnerfi/garner/co"
	"github.com/garnerfi/garner/journal"
	"github.com/garnerfi/garner/ledger"
	"github.com/garnerfi/garner/log"
)

var logger = log.WithContext("pkg", "events")

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingPeriod   = (pongTimeout * 9) / 10
	backlogPage  = 256
)

type Events struct {
	staking        *ledger.Ledger
	db             *journal.Journal
	allowedOrigins []string
	stream         *stream
	cache          *messageCache
	done           chan struct{}
	goes           co.Goes
}

func New(staking *ledger.Ledger, db *journal.Journal, allowedOrigins []string, cacheSize uint32) *Events {
	e := &Events{
		staking:        staking,
		db:             db,
		allowedOrigins: allowedOrigins,
		stream:         newStream(),
		cache:          newMessageCache(cacheSize),
		done:           make(chan struct{}),
	}
	e.goes.Go(e.dispatchLoop)
	return e
}

// Close stops the dispatch loop. Connected subscribers are sent a close
// frame by their handlers.
func (e *Events) Close() {
	close(e.done)
	e.goes.Wait()
}

// frame returns the cached wire form of the entry.
func (e *Events) frame(entry *journal.Entry) ([]byte, error) {
	frame, _, err := e.cache.GetOrAdd(entry.Sequence, func() ([]byte, error) {
		return json.Marshal(journalapi.ConvertEntry(entry))
	})
	return frame, err
}

func (e *Events) dispatchLoop() {
	entryCh := make(chan *journal.Entry, 2*backlogPage)
	sub := e.staking.SubscribeEntries(entryCh)
	defer sub.Unsubscribe()

	for {
		select {
		case entry := <-entryCh:
			frame, err := e.frame(entry)
			if err != nil {
				logger.Warn("failed to encode entry", "seq", entry.Sequence, "err", err)
				continue
			}
			e.stream.Broadcast(message{seq: entry.Sequence, frame: frame})
		case <-e.done:
			return
		}
	}
}

func (e *Events) handleSubscribeEntries(w http.ResponseWriter, req *http.Request) error {
	var fromSeq uint64
	if pos := req.URL.Query().Get("pos"); pos != "" {
		v, err := strconv.ParseUint(pos, 10, 63)
		if err != nil {
			return utils.BadRequest(errors.WithMessage(err, "pos"))
		}
		fromSeq = v
	} else {
		latest, err := e.latestSequence(req.Context())
		if err != nil {
			return err
		}
		fromSeq = latest
	}

	upgrader := websocket.Upgrader{
		EnableCompression: true,
		CheckOrigin: func(req *http.Request) bool {
			return e.checkOrigin(req)
		},
	}
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		// the upgrader already replied with an error status
		logger.Debug("upgrade to websocket failed", "err", err)
		return nil
	}
	defer conn.Close()

	id := uuid.NewRandom().String()
	logger.Debug("subscriber connected", "id", id, "pos", fromSeq)

	if err := e.pipe(req.Context(), conn, fromSeq); err != nil {
		logger.Debug("subscriber dropped", "id", id, "err", err)
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()),
			time.Now().Add(writeTimeout))
	} else {
		logger.Debug("subscriber left", "id", id)
	}
	return nil
}

// pipe replays the backlog after fromSeq and then forwards the live
// feed until the client leaves or falls behind.
func (e *Events) pipe(ctx context.Context, conn *websocket.Conn, fromSeq uint64) error {
	// the reader detects the client going away and answers pings
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(pongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// subscribe before replaying so nothing settles unseen in between
	ch := e.stream.Subscribe()
	defer e.stream.Unsubscribe(ch)

	lastSeq, err := e.replay(ctx, conn, fromSeq)
	if err != nil {
		return err
	}

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return errors.New("channel overflow")
			}
			if msg.seq <= lastSeq {
				// already sent during replay
				continue
			}
			lastSeq = msg.seq
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg.frame); err != nil {
				return err
			}
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		case <-closed:
			return nil
		case <-e.done:
			return errors.New("service shutting down")
		}
	}
}

// replay streams stored entries after fromSeq, in pages, and returns the
// last sequence written.
func (e *Events) replay(ctx context.Context, conn *websocket.Conn, fromSeq uint64) (uint64, error) {
	lastSeq := fromSeq
	for {
		entries, err := e.db.Filter(ctx, &journal.Filter{
			AfterSequence: lastSeq,
			Options:       &journal.Options{Offset: 0, Limit: backlogPage},
		})
		if err != nil {
			return 0, err
		}
		for _, entry := range entries {
			frame, err := e.frame(entry)
			if err != nil {
				return 0, err
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return 0, err
			}
			lastSeq = entry.Sequence
		}
		if len(entries) < backlogPage {
			return lastSeq, nil
		}
	}
}

func (e *Events) latestSequence(ctx context.Context) (uint64, error) {
	entries, err := e.db.Filter(ctx, &journal.Filter{
		Order:   journal.DESC,
		Options: &journal.Options{Offset: 0, Limit: 1},
	})
	if err != nil || len(entries) == 0 {
		return 0, err
	}
	return entries[0].Sequence, nil
}

func (e *Events) checkOrigin(req *http.Request) bool {
	origin := req.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range e.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	// same host is always allowed
	return strings.EqualFold(u.Host, req.Host)
}

func (e *Events) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("WS /events").
		HandlerFunc(utils.WrapHandlerFunc(e.handleSubscribeEntries))
}
