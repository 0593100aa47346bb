// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/kv"
	"github.com/garnerfi/garner/lvldb"
	"github.com/garnerfi/garner/state"
)

// Builder helper to compose the initial ledger state.
type Builder struct {
	timestamp  uint64
	stateProcs []func(state *state.State) error
}

// Timestamp set launch timestamp.
func (b *Builder) Timestamp(t uint64) *Builder {
	b.timestamp = t
	return b
}

// State add a state process.
func (b *Builder) State(proc func(state *state.State) error) *Builder {
	b.stateProcs = append(b.stateProcs, proc)
	return b
}

// Build applies the composed state onto the given store.
func (b *Builder) Build(stater *state.Stater) error {
	state := stater.NewState()
	for _, proc := range b.stateProcs {
		if err := proc(state); err != nil {
			return errors.Wrap(err, "state process")
		}
	}
	return state.Commit()
}

// ComputeID computes the genesis ID, the hash of the launch timestamp
// and all initial slots in key order.
func (b *Builder) ComputeID() (garner.Bytes32, error) {
	store, err := lvldb.NewMem()
	if err != nil {
		return garner.Bytes32{}, err
	}
	defer store.Close()

	if err := b.Build(state.NewStater(store, 0)); err != nil {
		return garner.Bytes32{}, err
	}

	iter := store.NewIterator(kv.Range{})
	defer iter.Release()

	id := garner.Blake2bFn(func(w io.Writer) {
		var ts [8]byte
		binary.BigEndian.PutUint64(ts[:], b.timestamp)
		w.Write(ts[:])
		for iter.Next() {
			w.Write(iter.Key())
			w.Write(iter.Value())
		}
	})
	if err := iter.Error(); err != nil {
		return garner.Bytes32{}, err
	}
	return id, nil
}
