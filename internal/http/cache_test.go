package http

import (
	"strconv"
	"testing"
	"time"
)

func TestLRUCacheEviction(t *testing.T) {
	c := newLRUCache[int](3, time.Minute)

	for i := 0; i < 4; i++ {
		c.Set("k"+strconv.Itoa(i), i)
	}

	// Oldest entry evicted once over capacity
	if _, found := c.Get("k0"); found {
		t.Fatal("k0 should have been evicted")
	}
	for i := 1; i < 4; i++ {
		if v, found := c.Get("k" + strconv.Itoa(i)); !found || v != i {
			t.Fatalf("k%d missing or wrong: %v %v", i, v, found)
		}
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c := newLRUCache[string](10, 10*time.Millisecond)
	c.Set("k", "v")

	if _, found := c.Get("k"); !found {
		t.Fatal("expected fresh entry")
	}

	time.Sleep(20 * time.Millisecond)
	if _, found := c.Get("k"); found {
		t.Fatal("expected entry to expire")
	}
}

func TestLRUCachePurge(t *testing.T) {
	c := newLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Purge()

	if _, found := c.Get("a"); found {
		t.Fatal("purge left entries behind")
	}
	if _, found := c.Get("b"); found {
		t.Fatal("purge left entries behind")
	}
}

func TestRateLimiterWindow(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i < 60; i++ {
		if !rl.allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.allow("1.2.3.4") {
		t.Fatal("request 61 should be limited")
	}
	// Other clients are unaffected
	if !rl.allow("5.6.7.8") {
		t.Fatal("independent client should be allowed")
	}
}
