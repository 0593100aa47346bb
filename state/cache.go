// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/qianbin/directcache"

	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/log"
)

var logger = log.WithContext("pkg", "state")

// Cache is the read-through cache of persisted slot values.
type Cache interface {
	// AddSlot adds a slot value into the cache.
	// An empty raw marks a slot known to be absent.
	AddSlot(key garner.Bytes32, raw []byte)
	// GetSlot returns the cached slot value.
	GetSlot(key garner.Bytes32) ([]byte, bool)
}

// cache caches recently accessed slot values.
type cache struct {
	slots       *directcache.Cache
	stats       cacheStats
	lastLogTime atomic.Int64
}

// NewCache creates a cache object with the given size.
// Non-positive sizes disable caching.
func NewCache(sizeMB int) Cache {
	if sizeMB <= 0 {
		return &dummyCache{}
	}
	c := &cache{
		slots: directcache.New(sizeMB * 1024 * 1024),
	}
	c.lastLogTime.Store(time.Now().UnixNano())
	return c
}

func (c *cache) log() {
	now := time.Now().UnixNano()
	last := c.lastLogTime.Swap(now)

	if now-last > int64(time.Second*20) {
		should, hit, miss := c.stats.Stats()

		// log only when the hit rate has changed compared to the last
		// run, to avoid too many logs.
		if should {
			logStats("slot cache stats", hit, miss)
		}

		// metrics reported every 20 seconds
		metricCacheHitMiss().SetWithLabel(hit, map[string]string{"event": "hit"})
		metricCacheHitMiss().SetWithLabel(miss, map[string]string{"event": "miss"})
	} else {
		c.lastLogTime.CompareAndSwap(now, last)
	}
}

func (c *cache) AddSlot(key garner.Bytes32, raw []byte) {
	_ = c.slots.Set(key[:], raw)
}

func (c *cache) GetSlot(key garner.Bytes32) ([]byte, bool) {
	var raw []byte
	if c.slots.AdvGet(key[:], func(val []byte) {
		raw = slices.Clone(val)
	}, false) {
		if c.stats.Hit()%2000 == 0 {
			c.log()
		}
		return raw, true
	}
	if c.stats.Miss()%2000 == 0 {
		c.log()
	}
	return nil, false
}

type cacheStats struct {
	hit, miss atomic.Int64
	flag      atomic.Int32
}

func (cs *cacheStats) Hit() int64  { return cs.hit.Add(1) }
func (cs *cacheStats) Miss() int64 { return cs.miss.Add(1) }

func (cs *cacheStats) Stats() (bool, int64, int64) {
	hit := cs.hit.Load()
	miss := cs.miss.Load()
	lookups := hit + miss

	hitRate := float64(0)
	if lookups > 0 {
		hitRate = float64(hit) / float64(lookups)
	}
	flag := int32(hitRate * 1000)

	return cs.flag.Swap(flag) != flag, hit, miss
}

func logStats(msg string, hit, miss int64) {
	lookups := hit + miss
	var str string
	if lookups > 0 {
		str = fmt.Sprintf("%.3f", float64(hit)/float64(lookups))
	} else {
		str = "n/a"
	}

	logger.Info(msg,
		"lookups", lookups,
		"hitrate", str,
	)
}

type dummyCache struct{}

// AddSlot is a no-op.
func (*dummyCache) AddSlot(_ garner.Bytes32, _ []byte) {}

// GetSlot always returns not found.
func (*dummyCache) GetSlot(_ garner.Bytes32) ([]byte, bool) { return nil, false }
