// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestLRU_BasicOperations(t *testing.T) {
	c := NewLRU[string](3, time.Minute)

	c.Add("a", "1")
	c.Add("b", "2")
	c.Add("c", "3")

	if v, found := c.Get("a"); !found || v != "1" {
		t.Errorf("Get(a) = %q, %v", v, found)
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
}

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU[string](3, time.Minute)

	c.Add("a", "1")
	c.Add("b", "2")
	c.Add("c", "3")

	// Touch 'a' so 'b' becomes least recently used.
	c.Get("a")
	c.Add("d", "4")

	if _, found := c.Get("b"); found {
		t.Error("expected 'b' to be evicted")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, found := c.Get(key); !found {
			t.Errorf("expected %q to be present", key)
		}
	}
}

func TestLRU_Remove(t *testing.T) {
	c := NewLRU[string](10, time.Minute)

	c.Add("a", "1")
	c.Remove("a")
	if _, found := c.Get("a"); found {
		t.Error("expected 'a' to be removed")
	}

	// Removing an absent key is a no-op.
	c.Remove("missing")
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestLRU_TTLExpiration(t *testing.T) {
	c := NewLRU[string](10, 30*time.Millisecond)

	c.Add("a", "1")
	if _, found := c.Get("a"); !found {
		t.Error("expected 'a' immediately after Add")
	}

	time.Sleep(40 * time.Millisecond)
	if _, found := c.Get("a"); found {
		t.Error("expected 'a' to expire")
	}
}

func TestLRU_ZeroTTLNeverExpires(t *testing.T) {
	c := NewLRU[string](10, 0)
	c.Add("a", "1")
	time.Sleep(10 * time.Millisecond)
	if _, found := c.Get("a"); !found {
		t.Error("zero TTL entry should not expire")
	}
}

func TestLRU_ReplaceExisting(t *testing.T) {
	c := NewLRU[string](2, time.Minute)
	c.Add("a", "1")
	c.Add("a", "2")
	if v, _ := c.Get("a"); v != "2" {
		t.Errorf("Get(a) = %q, want 2", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestLRU_Stats(t *testing.T) {
	c := NewLRU[string](10, time.Minute)
	c.Add("a", "1")
	c.Get("a")
	c.Get("missing")

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Stats = %d hits, %d misses; want 1, 1", hits, misses)
	}
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	c := NewLRU[int](100, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("key-%d", j%50)
				c.Add(key, j)
				c.Get(key)
				if j%10 == 0 {
					c.Remove(key)
				}
			}
		}(i)
	}
	wg.Wait()
}
