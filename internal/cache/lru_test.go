package cache

import (
	"testing"
	"time"
)

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)

	if _, found := c.Get("missing"); found {
		t.Error("Get() found = true for missing key, want false")
	}

	c.Set("a", "alpha")
	got, found := c.Get("a")
	if !found || got != "alpha" {
		t.Errorf("Get(a) = %v, %v, want alpha, true", got, found)
	}

	c.Set("a", "updated")
	got, _ = c.Get("a")
	if got != "updated" {
		t.Errorf("Get(a) after update = %v, want updated", got)
	}
}

func TestLRUCache_TTLExpiry(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)

	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, found := c.Get("a"); found {
		t.Error("Get() found = true for expired key, want false")
	}
	if cleaned := c.CleanExpired(); cleaned != 0 {
		// Get already removed the expired entry.
		t.Errorf("CleanExpired() = %d, want 0", cleaned)
	}
}

func TestLRUCache_EvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most recently used
	c.Set("c", 3)

	if _, found := c.Get("b"); found {
		t.Error("Get(b) found = true, want evicted")
	}
	if _, found := c.Get("a"); !found {
		t.Error("Get(a) found = false, want kept")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_Delete(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	c.Set("a", 1)
	c.Delete("a")
	if _, found := c.Get("a"); found {
		t.Error("Get() found = true after Delete, want false")
	}
	// Deleting a missing key is a no-op.
	c.Delete("missing")
}
