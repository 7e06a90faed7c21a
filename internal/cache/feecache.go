// Package cache provides the short-lived fee quote cache with stampede
// protection.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/owlscommerce/shipping/pkg/carrier"
	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces a fee quote when the cache has no live entry for
// the key.
type ComputeFunc func(ctx context.Context) (*carrier.FeeQuote, error)

// FeeCache maps a route+weight+service key to a previously obtained fee
// quote. GetOrCompute invokes fn at most once per key under concurrent
// callers; a failed computation is never cached, so the next caller
// retries. The returned bool reports whether the quote was served from a
// stored entry: callers that wait on an in-flight computation get false,
// same as the caller that ran it.
type FeeCache interface {
	GetOrCompute(ctx context.Context, key string, fn ComputeFunc) (*carrier.FeeQuote, bool, error)
}

// TTLs holds the entry lifetimes. Fallback-sourced quotes are a backstop,
// not a carrier answer, so they expire sooner and get recomputed.
type TTLs struct {
	Quote    time.Duration
	Fallback time.Duration
}

func (t TTLs) ttlFor(q *carrier.FeeQuote) time.Duration {
	if q.Source == carrier.SourceFallback {
		return t.Fallback
	}
	return t.Quote
}

type memoryEntry struct {
	quote     carrier.FeeQuote
	expiresAt time.Time
}

// MemoryFeeCache is an in-process FeeCache. Expired entries are dropped
// lazily on read; the working set is bounded by the number of distinct
// route/weight keys seen within a TTL window.
type MemoryFeeCache struct {
	ttls    TTLs
	mu      sync.RWMutex
	entries map[string]memoryEntry
	group   singleflight.Group
}

// NewMemoryFeeCache creates an in-process fee cache.
func NewMemoryFeeCache(ttls TTLs) *MemoryFeeCache {
	return &MemoryFeeCache{
		ttls:    ttls,
		entries: make(map[string]memoryEntry),
	}
}

// flightResult carries the cached flag out of the singleflight closure so
// every caller sharing the flight sees how the value was obtained.
type flightResult struct {
	quote  *carrier.FeeQuote
	cached bool
}

// GetOrCompute returns the cached quote if present and unexpired;
// otherwise it computes the quote exactly once per key, concurrent
// callers for the same key wait for the in-flight computation.
func (c *MemoryFeeCache) GetOrCompute(ctx context.Context, key string, fn ComputeFunc) (*carrier.FeeQuote, bool, error) {
	if q, ok := c.get(key); ok {
		return q, true, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight: another caller may have stored the
		// value between the miss and the Do.
		if q, ok := c.get(key); ok {
			return flightResult{quote: q, cached: true}, nil
		}
		q, err := fn(ctx)
		if err != nil {
			return flightResult{}, err
		}
		c.set(key, q)
		return flightResult{quote: q}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := v.(flightResult)
	return res.quote, res.cached, nil
}

func (c *MemoryFeeCache) get(key string) (*carrier.FeeQuote, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		if cur, stillThere := c.entries[key]; stillThere && cur.expiresAt.Equal(entry.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	q := entry.quote
	return &q, true
}

func (c *MemoryFeeCache) set(key string, q *carrier.FeeQuote) {
	c.mu.Lock()
	c.entries[key] = memoryEntry{
		quote:     *q,
		expiresAt: time.Now().Add(c.ttls.ttlFor(q)),
	}
	c.mu.Unlock()
}

// Len returns the number of stored entries, including not-yet-collected
// expired ones.
func (c *MemoryFeeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ FeeCache = (*MemoryFeeCache)(nil)
