package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestLRUCacheTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](4, time.Minute).WithClock(clock.now)

	c.Set("campaign/snapshot.json", "v1")
	if v, ok := c.Get("campaign/snapshot.json"); !ok || v != "v1" {
		t.Fatalf("Get() = %q, %v", v, ok)
	}

	clock.t = clock.t.Add(61 * time.Second)
	if _, ok := c.Get("campaign/snapshot.json"); ok {
		t.Fatalf("expired entry returned")
	}
	if c.Size() != 0 {
		t.Errorf("expired entry not removed on read, size=%d", c.Size())
	}
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Errorf("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Errorf("a was recently used and should remain")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCachePurgeAndDelete(t *testing.T) {
	c := NewLRUCache[int](8, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	if _, ok := c.Get("a"); ok || c.Size() != 1 {
		t.Errorf("Delete() left a, size=%d", c.Size())
	}
	c.Purge()
	if c.Size() != 0 {
		t.Errorf("Purge() left %d entries", c.Size())
	}
	c.Set("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Errorf("cache unusable after Purge()")
	}
}

func TestManagerCleanNow(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	short := NewLRUCache[int](8, time.Second).WithClock(clock.now)
	long := NewLRUCache[int](8, time.Hour).WithClock(clock.now)
	short.Set("a", 1)
	short.Set("b", 2)
	long.Set("c", 3)

	m := NewManager(nil)
	m.Register(short)
	m.Register(long)
	clock.t = clock.t.Add(2 * time.Second)

	if n := m.CleanNow(); n != 2 {
		t.Errorf("CleanNow() = %d, want 2", n)
	}
	if long.Size() != 1 {
		t.Errorf("live entry cleaned")
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
