// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// messageCache keeps the marshaled frame of recent entries so a burst of
// subscribers replaying the same backlog encodes each entry once.
type messageCache struct {
	cache *lru.Cache
	mu    sync.RWMutex
}

func newMessageCache(cacheSize uint32) *messageCache {
	if cacheSize > 1000 {
		cacheSize = 1000
	}
	if cacheSize == 0 {
		cacheSize = 1
	}
	cache, err := lru.New(int(cacheSize))
	if err != nil {
		// lru.New only throws an error if the number is less than 1
		panic(fmt.Errorf("failed to create message cache: %v", err))
	}
	return &messageCache{
		cache: cache,
	}
}

// GetOrAdd returns the frame of the entry with the given sequence. If the
// frame is not cached it is generated and added. The second return value
// reports whether the frame is newly generated.
func (mc *messageCache) GetOrAdd(seq uint64, createFrame func() ([]byte, error)) ([]byte, bool, error) {
	mc.mu.RLock()
	frame, ok := mc.cache.Get(seq)
	mc.mu.RUnlock()
	if ok {
		return frame.([]byte), false, nil
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	frame, ok = mc.cache.Get(seq)
	if ok {
		return frame.([]byte), false, nil
	}

	frame, err := createFrame()
	if err != nil {
		return nil, false, err
	}
	mc.cache.Add(seq, frame)
	return frame.([]byte), true, nil
}
