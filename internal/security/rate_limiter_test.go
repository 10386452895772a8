package security

import (
	"fmt"
	"testing"
)

func TestRateLimiterAllowsUnderThreshold(t *testing.T) {
	rl := NewRateLimiter(5, 1000, 100)

	for i := 0; i < 5; i++ {
		if !rl.Allow("192.168.1.10", 100) {
			t.Fatalf("query %d should be allowed under threshold", i)
		}
	}
}

func TestRateLimiterBlocksOverThreshold(t *testing.T) {
	rl := NewRateLimiter(3, 1000, 100)

	for i := 0; i < 3; i++ {
		if !rl.Allow("192.168.1.10", 100) {
			t.Fatalf("query %d should be allowed", i)
		}
	}
	if rl.Allow("192.168.1.10", 100) {
		t.Fatal("4th query in same window should be blocked")
	}
}

func TestRateLimiterCooldownExpires(t *testing.T) {
	rl := NewRateLimiter(1, 500, 100)

	if !rl.Allow("10.0.0.5", 0) {
		t.Fatal("first query should be allowed")
	}
	if rl.Allow("10.0.0.5", 10) {
		t.Fatal("second query in window should be blocked, starting cooldown")
	}
	if rl.Allow("10.0.0.5", 400) {
		t.Fatal("query during cooldown should still be blocked")
	}
	if !rl.Allow("10.0.0.5", 600) {
		t.Fatal("query after cooldown expiry should be allowed")
	}
}

func TestRateLimiterWindowResets(t *testing.T) {
	rl := NewRateLimiter(2, 1000, 100)

	if !rl.Allow("172.16.0.1", 0) {
		t.Fatal("query 1 should be allowed")
	}
	if !rl.Allow("172.16.0.1", 2000) {
		t.Fatal("query in a new window should be allowed even though it's the 2nd call")
	}
}

func TestRateLimiterEvictsOldestWhenFull(t *testing.T) {
	rl := NewRateLimiter(100, 1000, 10)

	for i := 0; i < 10; i++ {
		rl.Allow(ipFor(i), int64(i))
	}
	if len(rl.sources) != 10 {
		t.Fatalf("expected 10 sources, got %d", len(rl.sources))
	}

	rl.Allow(ipFor(10), 100)
	if len(rl.sources) >= 11 {
		t.Fatalf("expected eviction to keep map bounded, got %d entries", len(rl.sources))
	}
	if rl.EvictionCount() == 0 {
		t.Fatal("expected eviction count to be nonzero")
	}
}

func TestRateLimiterCleanupRemovesStale(t *testing.T) {
	rl := NewRateLimiter(100, 1000, 100)
	rl.Allow("192.168.1.1", 0)

	rl.Cleanup(61_000)
	if _, ok := rl.sources["192.168.1.1"]; ok {
		t.Fatal("expected stale source to be removed")
	}
}

func ipFor(i int) string {
	return fmt.Sprintf("10.0.0.%d", i)
}
