// Package cache provides the time-bounded analysis result store keyed by
// (address, network). Eviction is purely TTL-based; hit/miss counters are
// kept for reporting only.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/safeguard-ai/safeguard/internal/models"
)

const (
	DefaultTTL           = time.Hour
	DefaultSweepInterval = 10 * time.Minute
)

type entry struct {
	value     *models.AnalysisResult
	expiresAt time.Time
}

// Stats are the running counters exposed by the stats and health endpoints.
type Stats struct {
	Keys    int   `json:"keys"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Expired int64 `json:"expired"`
}

// Cache is a TTL key-value store for analysis results. The clock is
// injectable so TTL behavior can be tested without sleeping.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time

	hits    int64
	misses  int64
	expired int64

	stop chan struct{}
	once sync.Once
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the default one-hour entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithClock injects the time source used for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a Cache and starts a background sweep that evicts expired
// entries every sweepInterval. Close stops the sweep.
func New(sweepInterval time.Duration, opts ...Option) *Cache {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     DefaultTTL,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.sweepLoop(sweepInterval)
	return c
}

// Key builds the canonical cache key for an address on a network.
func Key(address string, network models.Network) string {
	return strings.ToLower(address) + "_" + string(network)
}

// Set stores a result under (address, network) with the configured TTL.
func (c *Cache) Set(address string, network models.Network, value *models.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[Key(address, network)] = entry{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Get returns the cached result or nil if absent or expired. An expired
// entry found during lookup is evicted immediately.
func (c *Cache) Get(address string, network models.Network) *models.AnalysisResult {
	key := Key(address, network)

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if ok && c.now().After(e.expiresAt) {
		delete(c.entries, key)
		c.expired++
		ok = false
	}
	if !ok {
		c.misses++
		return nil
	}
	c.hits++
	return e.value
}

// Has reports whether a live entry exists without touching hit/miss counts.
func (c *Cache) Has(address string, network models.Network) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[Key(address, network)]
	return ok && !c.now().After(e.expiresAt)
}

// Delete removes the entry for (address, network), if any.
func (c *Cache) Delete(address string, network models.Network) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, Key(address, network))
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Stats returns a snapshot of the running counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Keys:    len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
		Expired: c.expired,
	}
}

// Close stops the background sweep. Safe to call more than once.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			c.expired++
		}
	}
}
