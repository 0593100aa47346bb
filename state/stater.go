// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/garnerfi/garner/kv"
)

// Stater is the state creator.
// All state instances created from it share one slot cache.
type Stater struct {
	store kv.GetPutter
	cache Cache
}

// NewStater creates a new stater with a slot cache of the given size.
func NewStater(store kv.GetPutter, cacheSizeMB int) *Stater {
	return &Stater{store, NewCache(cacheSizeMB)}
}

// NewState creates a new state object.
func (s *Stater) NewState() *State {
	return New(s.store, s.cache)
}
