// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"fmt"

	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/kv"
	"github.com/garnerfi/garner/stackedmap"
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

// State provides a revertable overlay over the persisted ledger keyspace.
// Writes are journaled in memory and flushed to the store in one atomic
// batch on Commit.
type State struct {
	store kv.GetPutter
	cache Cache
	sm    *stackedmap.StackedMap // keeps revisions of slot values
}

// New creates a state object backed by the given store.
// Reads fall through the cache to the store. A nil cache disables caching.
func New(store kv.GetPutter, cache Cache) *State {
	if cache == nil {
		cache = &dummyCache{}
	}
	state := State{
		store: store,
		cache: cache,
	}
	state.sm = stackedmap.New(func(key any) (any, bool, error) {
		return state.slotGetter(key)
	})
	return &state
}

// slotGetter implements stackedmap.MapGetter.
// Slots absent from the store resolve to empty values.
func (s *State) slotGetter(key any) (value any, exist bool, err error) {
	k := key.(garner.Bytes32)
	if raw, ok := s.cache.GetSlot(k); ok {
		return raw, true, nil
	}
	raw, err := s.store.Get(k[:])
	if err != nil {
		if !s.store.IsNotFound(err) {
			return nil, false, err
		}
		raw = nil
	}
	s.cache.AddSlot(k, raw)
	return raw, true, nil
}

func (s *State) getRaw(key garner.Bytes32) ([]byte, error) {
	v, _, err := s.sm.Get(key)
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// GetRawStorage returns the raw value of the given slot.
func (s *State) GetRawStorage(key garner.Bytes32) ([]byte, error) {
	raw, err := s.getRaw(key)
	if err != nil {
		return nil, &Error{err}
	}
	return raw, nil
}

// SetRawStorage sets the raw value of the given slot.
// An empty value marks the slot deleted.
func (s *State) SetRawStorage(key garner.Bytes32, raw []byte) {
	s.sm.Put(key, raw)
}

// EncodeStorage sets a slot value encoded by the given enc method.
// Error returned by enc will be absorbed by State instance.
func (s *State) EncodeStorage(key garner.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(key, raw)
	return nil
}

// DecodeStorage gets and decodes a slot value.
// Error returned by dec will be absorbed by State instance.
func (s *State) DecodeStorage(key garner.Bytes32, dec func([]byte) error) error {
	raw, err := s.getRaw(key)
	if err != nil {
		return &Error{err}
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// GetStructuredStorage gets and decodes a slot value into val.
// Types implementing StorageDecoder take over the decoding, otherwise
// the builtin codec is used.
func (s *State) GetStructuredStorage(key garner.Bytes32, val any) error {
	return s.DecodeStorage(key, func(raw []byte) error {
		return decodeStorage(raw, val)
	})
}

// SetStructuredStorage encodes val and stores it under key.
// Zero values are stored as deleted slots.
func (s *State) SetStructuredStorage(key garner.Bytes32, val any) error {
	return s.EncodeStorage(key, func() ([]byte, error) {
		return encodeStorage(val)
	})
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo reverts to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
}

// Commit flushes all journaled changes into the store in one batch.
// Slots holding empty values are deleted from the store.
func (s *State) Commit() error {
	changes := make(map[garner.Bytes32][]byte)
	s.sm.Journal(func(k, v any) bool {
		changes[k.(garner.Bytes32)] = v.([]byte)
		return true
	})
	if len(changes) == 0 {
		return nil
	}

	batch := s.store.NewBatch()
	for k, raw := range changes {
		if len(raw) == 0 {
			if err := batch.Delete(k[:]); err != nil {
				return &Error{err}
			}
		} else {
			if err := batch.Put(k[:], raw); err != nil {
				return &Error{err}
			}
		}
	}
	if err := batch.Write(); err != nil {
		return &Error{err}
	}
	for k, raw := range changes {
		s.cache.AddSlot(k, raw)
	}
	return nil
}
