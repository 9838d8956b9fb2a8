package cache

import (
	"coingecko-telegram-bot/internal/types"
	"sync"
	"time"
)

// TTL is how long a stored snapshot stays valid.
const TTL = 60 * time.Second

// CacheItem is a stored snapshot. Items are replaced whole, never mutated.
type CacheItem struct {
	Value    types.Snapshot
	StoredAt time.Time
}

// PriceCache keeps price snapshots for TTL and drops expired ones lazily on Get.
// There is no size cap: keys are bounded by coin and currency combinations.
type PriceCache struct {
	mu    sync.Mutex
	items map[string]CacheItem
	now   func() time.Time
}

func New() *PriceCache {
	return NewWithClock(time.Now)
}

// NewWithClock is New with a custom time source.
func NewWithClock(now func() time.Time) *PriceCache {
	return &PriceCache{
		items: make(map[string]CacheItem),
		now:   now,
	}
}

// Get returns the snapshot for key while it is younger than TTL.
// An expired item is removed before reporting a miss.
func (c *PriceCache) Get(key string) (types.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	if !found {
		return nil, false
	}

	if c.now().Sub(item.StoredAt) >= TTL {
		delete(c.items, key)
		return nil, false
	}

	return item.Value.Clone(), true
}

// Set stores value under key, replacing any previous item.
func (c *PriceCache) Set(key string, value types.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = CacheItem{
		Value:    value.Clone(),
		StoredAt: c.now(),
	}
}

// Age reports whole seconds since key was stored. Expired items still report an age.
func (c *PriceCache) Age(key string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	if !found {
		return 0, false
	}
	return int(c.now().Sub(item.StoredAt) / time.Second), true
}

func (c *PriceCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]CacheItem)
}

// Len includes expired items that have not been read since.
func (c *PriceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}
