package dispatch

import (
	"container/list"
	"sync"
	"time"

	"udprpc/envelope"
)

// cacheEntry is the list payload for one cached reply.
type cacheEntry struct {
	key      envelope.Fingerprint
	reply    []byte
	expireAt time.Time
}

// FingerprintCache is the dispatcher's AtMostOnce duplicate-suppression
// cache (spec §4.5, §8 "At-most-once idempotence"/"Duplicate
// suppression TTL"): a TTL-bounded, size-bounded LRU keyed by request
// fingerprint. Grounded on ozontech-framer's utils/lru.LRU
// (container/list + map, move-to-front on touch, evict from the back
// on overflow), generalized with a per-entry expiry. An expired entry is
// dropped when Get looks it up; one that is never looked up again stays
// until LRU eviction removes it (with maxSize 0, it stays).
type FingerprintCache struct {
	ttl     time.Duration
	maxSize int

	mu    sync.Mutex
	items map[envelope.Fingerprint]*list.Element
	order *list.List
}

// NewFingerprintCache builds a cache with the given TTL and maximum
// entry count (0 means unbounded size, TTL-only eviction).
func NewFingerprintCache(ttl time.Duration, maxSize int) *FingerprintCache {
	return &FingerprintCache{
		ttl:     ttl,
		maxSize: maxSize,
		items:   make(map[envelope.Fingerprint]*list.Element),
		order:   list.New(),
	}
}

// Get returns the cached reply for fp, if present and not expired.
func (c *FingerprintCache) Get(fp envelope.Fingerprint) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[fp]
	if !ok {
		return nil, false
	}
	ent := elem.Value.(*cacheEntry)
	if time.Now().After(ent.expireAt) {
		c.order.Remove(elem)
		delete(c.items, fp)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return ent.reply, true
}

// Put inserts or refreshes the cached reply for fp, evicting the
// least-recently-used entry if the cache is at capacity.
func (c *FingerprintCache) Put(fp envelope.Fingerprint, reply []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[fp]; ok {
		ent := elem.Value.(*cacheEntry)
		ent.reply = reply
		ent.expireAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(elem)
		return
	}

	ent := &cacheEntry{key: fp, reply: reply, expireAt: time.Now().Add(c.ttl)}
	elem := c.order.PushFront(ent)
	c.items[fp] = elem

	if c.maxSize > 0 && c.order.Len() > c.maxSize {
		back := c.order.Back()
		if back != nil {
			c.order.Remove(back)
			delete(c.items, back.Value.(*cacheEntry).key)
		}
	}
}
