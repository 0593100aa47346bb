// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import "sync"

// subscriberBuffer frames a subscriber may lag behind before it is
// dropped.
const subscriberBuffer = 64

type message struct {
	seq   uint64
	frame []byte
}

// stream fans settled entries out to connected subscribers. A subscriber
// that cannot drain its buffer is dropped, one stuck client must not
// stall the ledger feed.
type stream struct {
	listeners map[chan message]struct{}
	mu        sync.Mutex
}

func newStream() *stream {
	return &stream{listeners: make(map[chan message]struct{})}
}

func (s *stream) Subscribe() chan message {
	ch := make(chan message, subscriberBuffer)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners[ch] = struct{}{}
	return ch
}

func (s *stream) Unsubscribe(ch chan message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listeners[ch]; ok {
		delete(s.listeners, ch)
		close(ch)
	}
}

// Broadcast hands the message to every subscriber. A full buffer closes
// the subscriber channel, the writer loop reads that as eviction.
func (s *stream) Broadcast(msg message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for lsn := range s.listeners {
		select {
		case lsn <- msg:
		default:
			delete(s.listeners, lsn)
			close(lsn)
		}
	}
}
