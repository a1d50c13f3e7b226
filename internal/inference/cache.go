package inference

import (
	"context"
	"strings"
	"sync"

	"github.com/couchcryptid/crop-water-service/internal/domain"
	"github.com/couchcryptid/crop-water-service/internal/observability"
)

// Service is what the HTTP layer needs from a predictor.
type Service interface {
	Predict(ctx context.Context, rec domain.Record) (domain.Prediction, error)
	Report(ctx context.Context) (Report, error)
	Reload(ctx context.Context) error
	CheckReadiness(ctx context.Context) error
}

// CachedPredictor wraps a Predictor with an in-memory LRU cache of results.
// Entries are tagged with the model generation that produced them, so the
// cache only ever holds results of the newest model it has seen.
type CachedPredictor struct {
	*Predictor
	cache   *lruCache[domain.Prediction]
	metrics *observability.Metrics
}

// NewCachedPredictor creates a cache decorator around a predictor.
func NewCachedPredictor(inner *Predictor, maxEntries int, metrics *observability.Metrics) *CachedPredictor {
	return &CachedPredictor{
		Predictor: inner,
		cache:     newLRUCache[domain.Prediction](maxEntries),
		metrics:   metrics,
	}
}

func (c *CachedPredictor) Predict(ctx context.Context, rec domain.Record) (domain.Prediction, error) {
	key := cacheKey(rec)
	if pred, ok := c.cache.get(key); ok {
		c.metrics.PredictionCache.WithLabelValues("hit").Inc()
		return pred, nil
	}
	c.metrics.PredictionCache.WithLabelValues("miss").Inc()

	pred, gen, err := c.Predictor.predict(ctx, rec)
	if err != nil {
		return pred, err
	}
	c.cache.put(key, pred, gen)
	return pred, nil
}

func (c *CachedPredictor) Reload(ctx context.Context) error {
	gen, err := c.Predictor.reload(ctx)
	if err != nil {
		return err
	}
	c.cache.advance(gen)
	return nil
}

func cacheKey(rec domain.Record) string {
	return strings.Join([]string{rec.Crop, rec.Soil, rec.Region, rec.Weather, rec.Temperature}, "|")
}

// lruCache is a small thread-safe LRU cache. A non-positive size disables it.
// All entries belong to one generation; moving to a newer generation empties
// the cache and writes from an older one are ignored.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	gen        uint64
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V, gen uint64) {
	if c.maxEntries <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen < c.gen {
		return
	}
	c.advanceLocked(gen)

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		delete(c.entries, c.tail.key)
		c.unlink(c.tail)
	}
}

// advance moves the cache to gen, dropping every entry if gen is newer.
func (c *lruCache[V]) advance(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advanceLocked(gen)
}

func (c *lruCache[V]) advanceLocked(gen uint64) {
	if gen <= c.gen {
		return
	}
	c.gen = gen
	clear(c.entries)
	c.head, c.tail = nil, nil
}

func (c *lruCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[V]) unlink(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}
