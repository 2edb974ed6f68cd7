package cache

import (
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)

	if _, found := c.Get("missing"); found {
		t.Error("Get(missing) found = true, want false")
	}

	c.Set("a", "1")
	got, found := c.Get("a")
	if !found || got != "1" {
		t.Errorf("Get(a) = %q/%v, want 1/true", got, found)
	}
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now the most recent
	c.Set("c", 3)

	if _, found := c.Get("b"); found {
		t.Error("b should have been evicted")
	}
	if _, found := c.Get("a"); !found {
		t.Error("a should have survived eviction")
	}
	if _, found := c.Get("c"); !found {
		t.Error("c should be present")
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)

	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, found := c.Get("a"); found {
		t.Error("expired entry should not be returned")
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0 after expired read", c.Size())
	}
}

func TestLRUCacheCleanExpired(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)

	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)
	c.Set("fresh", 3)

	if removed := c.CleanExpired(); removed != 2 {
		t.Errorf("CleanExpired() = %d, want 2", removed)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCacheDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	c.Set("u1:2026-1", 1)
	c.Set("u1:2026-2", 2)
	c.Set("u2:2026-1", 3)

	if removed := c.DeletePrefix("u1:"); removed != 2 {
		t.Errorf("DeletePrefix(u1:) = %d, want 2", removed)
	}
	if _, found := c.Get("u2:2026-1"); !found {
		t.Error("other user's entry should survive prefix delete")
	}
}

func TestLRUCacheStats(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.Entries != 1 {
		t.Errorf("Stats() = %+v, want hits 2, misses 1, entries 1", stats)
	}
}

func TestManagerSweep(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)
	m := NewManager()
	m.Register(c)
	m.StartCleanup(20 * time.Millisecond)
	defer m.Stop()

	c.Set("a", 1)
	time.Sleep(60 * time.Millisecond)

	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0 after sweep", c.Size())
	}
}
