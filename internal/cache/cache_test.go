package cache

import (
	"testing"
	"time"
)

// fakeClock lets tests advance time deterministically.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache[V any](ttl time.Duration) (*Cache[V], *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := New[V](ttl)
	c.now = clock.Now
	return c, clock
}

func TestGetSetWithTTL(t *testing.T) {
	t.Parallel()

	c, clock := newTestCache[string](time.Minute)
	c.Set("k", "v", time.Second)

	// Half the TTL in: hit.
	clock.Advance(500 * time.Millisecond)
	if got, ok := c.Get("k"); !ok || got != "v" {
		t.Errorf("Get() = %q, %v; want %q, true", got, ok, "v")
	}

	// Past the TTL: miss, entry removed lazily.
	clock.Advance(time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("Get() after expiry should miss")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit and 1 miss", stats)
	}
	if stats.Size != 0 {
		t.Errorf("size = %d, want 0 after lazy removal", stats.Size)
	}
}

func TestSetDefaultUsesDefaultTTL(t *testing.T) {
	t.Parallel()

	c, clock := newTestCache[int](time.Minute)
	c.SetDefault("k", 42)

	clock.Advance(59 * time.Second)
	if got, ok := c.Get("k"); !ok || got != 42 {
		t.Errorf("Get() = %d, %v; want 42, true", got, ok)
	}

	clock.Advance(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("entry should be expired after the default TTL")
	}
}

func TestSetOverwrites(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache[string](time.Minute)
	c.SetDefault("k", "old")
	c.SetDefault("k", "new")

	if got, _ := c.Get("k"); got != "new" {
		t.Errorf("Get() = %q, want %q", got, "new")
	}
	if size := c.Stats().Size; size != 1 {
		t.Errorf("size = %d, want 1", size)
	}
}

func TestDeleteAndClear(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache[string](time.Minute)
	c.SetDefault("a", "1")
	c.SetDefault("b", "2")

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted entry still present")
	}

	c.Clear()
	if _, ok := c.Get("b"); ok {
		t.Error("cleared entry still present")
	}
	if size := c.Stats().Size; size != 0 {
		t.Errorf("size = %d, want 0 after clear", size)
	}
}

func TestCleanupExpired(t *testing.T) {
	t.Parallel()

	c, clock := newTestCache[string](time.Minute)
	c.Set("short", "v", time.Second)
	c.Set("long", "v", time.Hour)

	clock.Advance(2 * time.Second)
	removed := c.CleanupExpired()
	if removed != 1 {
		t.Errorf("CleanupExpired() = %d, want 1", removed)
	}
	if size := c.Stats().Size; size != 1 {
		t.Errorf("size = %d, want 1", size)
	}
}

func TestStatsHitRate(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache[string](time.Minute)
	c.SetDefault("k", "v")

	c.Get("k")      // hit
	c.Get("k")      // hit
	c.Get("absent") // miss

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	want := 2.0 / 3.0
	if diff := stats.HitRate - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("HitRate = %v, want %v", stats.HitRate, want)
	}
}

func TestKeyIsStableAndDistinct(t *testing.T) {
	t.Parallel()

	k1 := Key("knowledge.Query", "hoe werkt loting")
	k2 := Key("knowledge.Query", "hoe werkt loting")
	k3 := Key("knowledge.Query", "welke niveaus")
	k4 := Key("other.Fn", "hoe werkt loting")

	if k1 != k2 {
		t.Error("same function and args must produce the same key")
	}
	if k1 == k3 {
		t.Error("different args must produce different keys")
	}
	if k1 == k4 {
		t.Error("different functions must produce different keys")
	}
}
