package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Siddarth2230/qrlinks/pkg/metrics"
)

const layerMemory = "memory"

// node is an entry in the recency list.
type node struct {
	code      string
	target    string
	expiresAt time.Time
	prev      *node
	next      *node
}

// LRUCache is a thread-safe, size-bounded TargetCache. Entries also expire
// after ttl so a rewrite on another replica is picked up eventually.
//
// epoch advances on every Delete and invalidated remembers the epoch of the
// last Delete per code. The map is bounded by capacity: when it overflows it
// is cleared and floor rises to the current epoch, so fills that started
// before the clear are rejected.
type LRUCache struct {
	mu          sync.Mutex
	capacity    int
	ttl         time.Duration
	now         func() time.Time
	entries     map[string]*node
	head        *node // most recently used
	tail        *node // least recently used
	epoch       uint64
	floor       uint64
	invalidated map[string]uint64
}

// NewLRUCache creates an LRU cache. ttl <= 0 disables expiry.
func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	if capacity <= 0 {
		capacity = 1000
	}

	c := &LRUCache{
		capacity:    capacity,
		ttl:         ttl,
		now:         time.Now,
		entries:     make(map[string]*node, capacity),
		head:        &node{},
		tail:        &node{},
		invalidated: make(map[string]uint64),
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

func (c *LRUCache) Get(_ context.Context, code string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[code]
	if !ok {
		metrics.CacheMisses.WithLabelValues(layerMemory).Inc()
		return "", false
	}
	if c.expired(n) {
		c.remove(n)
		metrics.CacheMisses.WithLabelValues(layerMemory).Inc()
		return "", false
	}

	c.moveToFront(n)
	metrics.CacheHits.WithLabelValues(layerMemory).Inc()
	return n.target, true
}

func (c *LRUCache) Version(_ context.Context, _ string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

func (c *LRUCache) Set(_ context.Context, code, target string, version uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if version < c.floor || c.invalidated[code] > version {
		metrics.CacheStaleFills.WithLabelValues(layerMemory).Inc()
		return
	}

	if n, ok := c.entries[code]; ok {
		n.target = target
		n.expiresAt = c.expiry()
		c.moveToFront(n)
		return
	}
	if len(c.entries) >= c.capacity {
		c.evictTail()
	}

	n := &node{code: code, target: target, expiresAt: c.expiry()}
	c.addToFront(n)
	c.entries[code] = n
	metrics.CacheSize.WithLabelValues(layerMemory).Set(float64(len(c.entries)))
}

func (c *LRUCache) Delete(_ context.Context, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.entries[code]; ok {
		c.remove(n)
	}

	c.epoch++
	c.invalidated[code] = c.epoch
	if len(c.invalidated) > c.capacity {
		c.invalidated = make(map[string]uint64)
		c.floor = c.epoch
	}
}

func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *LRUCache) expiry() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(c.ttl)
}

func (c *LRUCache) expired(n *node) bool {
	return !n.expiresAt.IsZero() && !c.now().Before(n.expiresAt)
}

func (c *LRUCache) moveToFront(n *node) {
	c.unlink(n)
	c.addToFront(n)
}

// unlink detaches n from the list without touching the map.
func (c *LRUCache) unlink(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

func (c *LRUCache) addToFront(n *node) {
	first := c.head.next
	n.next = first
	n.prev = c.head
	c.head.next = n
	first.prev = n
}

func (c *LRUCache) remove(n *node) {
	c.unlink(n)
	delete(c.entries, n.code)
	metrics.CacheSize.WithLabelValues(layerMemory).Set(float64(len(c.entries)))
}

func (c *LRUCache) evictTail() {
	lru := c.tail.prev
	if lru == c.head {
		return
	}
	c.remove(lru)
}
