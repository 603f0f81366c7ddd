package cache

import (
	"container/list"
	"sync"
)

// Hashable is the constraint a Cache key must satisfy: a stable,
// deterministic hash used for segment selection (§4.4).
type Hashable interface {
	comparable
	Hash() uint64
}

// minSegments and maxSegments bound the auto-derived segment count (§4.4:
// "clamped to 4..32").
const (
	minSegments = 4
	maxSegments = 32
	// targetEntriesPerSegment is the density the auto-derivation aims for.
	targetEntriesPerSegment = 128
)

// Cache is a fixed-capacity, sharded, access-order LRU (§4.4).
type Cache[K Hashable, V any] struct {
	segments []*segment[K, V]
	mask     uint64
}

type entry[K Hashable, V any] struct {
	key   K
	value V
}

type segment[K Hashable, V any] struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	items    map[K]*list.Element
}

// Option configures a Cache at construction time.
type Option func(*config)

type config struct {
	maxSize      int
	segmentCount int
}

// MaxSize sets the total entry budget across all segments. Defaults to
// 1024 if unset or non-positive.
func MaxSize(n int) Option {
	return func(c *config) { c.maxSize = n }
}

// SegmentCount overrides the auto-derived segment count. The value is
// still rounded up to a power of two and capped at 32; the lower bound of
// 4 applies only to the auto-derived count, so SegmentCount(1) yields a
// single segment.
func SegmentCount(n int) Option {
	return func(c *config) { c.segmentCount = n }
}

// New returns a Cache configured by opts.
func New[K Hashable, V any](opts ...Option) *Cache[K, V] {
	cfg := config{maxSize: 1024}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxSize <= 0 {
		cfg.maxSize = 1024
	}

	segCount := cfg.segmentCount
	if segCount <= 0 {
		segCount = nextPowerOfTwo(cfg.maxSize / targetEntriesPerSegment)
		if segCount < minSegments {
			segCount = minSegments
		}
	} else {
		segCount = nextPowerOfTwo(segCount)
	}
	if segCount > maxSegments {
		segCount = maxSegments
	}

	perSegment := ceilDiv(cfg.maxSize, segCount)
	if perSegment < 1 {
		perSegment = 1
	}

	segs := make([]*segment[K, V], segCount)
	for i := range segs {
		segs[i] = &segment[K, V]{
			capacity: perSegment,
			order:    list.New(),
			items:    make(map[K]*list.Element, perSegment),
		}
	}
	return &Cache[K, V]{segments: segs, mask: uint64(segCount - 1)}
}

func nextPowerOfTwo(n int) int {
	if n < 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return a
	}
	return (a + b - 1) / b
}

// spread mixes the high bits of h into the low bits, matching §4.4's
// "spread(h) = h ^ (h >>> 16)" bit-mixing before masking down to a segment
// index, so that keys differing only in their high bits still distribute
// across segments.
func spread(h uint64) uint64 {
	return h ^ (h >> 16)
}

func (c *Cache[K, V]) segmentFor(k K) *segment[K, V] {
	idx := spread(k.Hash()) & c.mask
	return c.segments[idx]
}

// Get returns the value stored for k, promoting it to most-recently-used.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	seg := c.segmentFor(k)
	seg.mu.Lock()
	defer seg.mu.Unlock()
	el, ok := seg.items[k]
	if !ok {
		var zero V
		return zero, false
	}
	seg.order.MoveToFront(el)
	return el.Value.(*entry[K, V]).value, true
}

// Put stores v for k, evicting the least-recently-used entry in k's
// segment while that segment is over capacity.
func (c *Cache[K, V]) Put(k K, v V) {
	seg := c.segmentFor(k)
	seg.mu.Lock()
	defer seg.mu.Unlock()
	seg.putLocked(k, v)
}

func (s *segment[K, V]) putLocked(k K, v V) {
	if el, ok := s.items[k]; ok {
		el.Value.(*entry[K, V]).value = v
		s.order.MoveToFront(el)
		return
	}
	el := s.order.PushFront(&entry[K, V]{key: k, value: v})
	s.items[k] = el
	s.evictLocked()
}

func (s *segment[K, V]) evictLocked() {
	for len(s.items) > s.capacity {
		back := s.order.Back()
		if back == nil {
			return
		}
		s.order.Remove(back)
		delete(s.items, back.Value.(*entry[K, V]).key)
	}
}

// PutIfAbsent stores v for k only if k is not already present, returning
// the value now stored (v if this call won, the prior value otherwise)
// and whether this call's value was the one stored.
func (c *Cache[K, V]) PutIfAbsent(k K, v V) (actual V, stored bool) {
	seg := c.segmentFor(k)
	seg.mu.Lock()
	defer seg.mu.Unlock()
	if el, ok := seg.items[k]; ok {
		seg.order.MoveToFront(el)
		return el.Value.(*entry[K, V]).value, false
	}
	seg.putLocked(k, v)
	return v, true
}

// GetOrCompute returns the cached value for k, computing it via f on a
// miss. f runs outside the segment lock (§4.4), so concurrent callers may
// race to compute the same key; exactly one computed value is stored and
// every caller — including the ones whose computation lost the race —
// returns that same winning value (§5, §8 "segmented LRU concurrency").
// If f returns an error, nothing is cached and the error is returned
// as-is; the template compiler relies on this to never cache a failed
// compilation (§7: "The cache never stores failed compilations").
func (c *Cache[K, V]) GetOrCompute(k K, f func() (V, error)) (V, error) {
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	v, err := f()
	if err != nil {
		var zero V
		return zero, err
	}
	actual, _ := c.PutIfAbsent(k, v)
	return actual, nil
}

// Len returns the total number of entries across all segments.
func (c *Cache[K, V]) Len() int {
	n := 0
	for _, seg := range c.segments {
		seg.mu.Lock()
		n += len(seg.items)
		seg.mu.Unlock()
	}
	return n
}

// Reset removes every entry from every segment.
func (c *Cache[K, V]) Reset() {
	for _, seg := range c.segments {
		seg.mu.Lock()
		seg.order.Init()
		seg.items = make(map[K]*list.Element, seg.capacity)
		seg.mu.Unlock()
	}
}

// SegmentCount returns the number of segments the cache was built with,
// for tests and diagnostics.
func (c *Cache[K, V]) SegmentCount() int {
	return len(c.segments)
}
