package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/safeguard-ai/safeguard/internal/models"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(t *testing.T, clock *fakeClock) *Cache {
	t.Helper()
	c := New(time.Minute, WithTTL(time.Hour), WithClock(clock.now))
	t.Cleanup(c.Close)
	return c
}

func result(id string) *models.AnalysisResult {
	return &models.AnalysisResult{ID: id, RiskLevel: models.RiskMedium}
}

func TestRoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := newTestCache(t, clock)

	c.Set("0xABCD", models.NetworkEthereum, result("a1"))

	got := c.Get("0xabcd", models.NetworkEthereum)
	assert.NotNil(t, got)
	assert.Equal(t, "a1", got.ID)

	// Key is case-insensitive on address, distinct per network.
	assert.Nil(t, c.Get("0xabcd", models.NetworkBSC))
	assert.Nil(t, c.Get("0xother", models.NetworkEthereum))
}

func TestTTLExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := newTestCache(t, clock)

	c.Set("0xabcd", models.NetworkEthereum, result("a1"))
	assert.True(t, c.Has("0xabcd", models.NetworkEthereum))

	clock.advance(time.Hour + time.Second)

	assert.False(t, c.Has("0xabcd", models.NetworkEthereum))
	assert.Nil(t, c.Get("0xabcd", models.NetworkEthereum))
	assert.Equal(t, int64(1), c.Stats().Expired)
}

func TestDeleteAndClear(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := newTestCache(t, clock)

	c.Set("0xa", models.NetworkEthereum, result("a"))
	c.Set("0xb", models.NetworkPolygon, result("b"))

	c.Delete("0xA", models.NetworkEthereum)
	assert.Nil(t, c.Get("0xa", models.NetworkEthereum))
	assert.NotNil(t, c.Get("0xb", models.NetworkPolygon))

	c.Clear()
	assert.Equal(t, 0, c.Stats().Keys)
}

func TestStatsCounters(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := newTestCache(t, clock)

	c.Get("0xa", models.NetworkEthereum) // miss
	c.Set("0xa", models.NetworkEthereum, result("a"))
	c.Get("0xa", models.NetworkEthereum) // hit
	c.Get("0xa", models.NetworkEthereum) // hit

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Keys)
}

func TestSweepEvictsExpired(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := newTestCache(t, clock)

	c.Set("0xa", models.NetworkEthereum, result("a"))
	clock.advance(2 * time.Hour)
	c.sweep()

	stats := c.Stats()
	assert.Equal(t, 0, stats.Keys)
	assert.Equal(t, int64(1), stats.Expired)
}
