// Package security implements the ambient hardening a multicast
// responder needs beyond the wire protocol itself: per-source query
// rate limiting and source-address validation, so a single misbehaving
// host on the link cannot use beacon as an amplifier or exhaust its
// CPU with a multicast storm.
package security

import "sync"

// rateLimitEntry tracks query volume for a single source IP using a
// fixed window that restarts once more than a second has passed since it
// opened, plus a cooldown once the window's threshold is exceeded.
type rateLimitEntry struct {
	windowStartMs    int64
	cooldownExpiryMs int64
	lastSeenMs       int64
	queryCount       int
}

// RateLimiter drops packets from sources that exceed a configured query
// rate, same design as the Record Store and Query Tracker: every method
// takes the caller's clock as nowMs instead of calling time.Now()
// internally, so the whole engine stays deterministic under test.
type RateLimiter struct {
	mu            sync.Mutex
	thresholdQPS  int
	cooldownMs    int64
	maxEntries    int
	sources       map[string]*rateLimitEntry
	evictionCount uint64
}

// NewRateLimiter creates a rate limiter allowing up to thresholdQPS
// queries per second per source IP before imposing cooldownMs of
// silence, tracking at most maxEntries distinct sources.
func NewRateLimiter(thresholdQPS int, cooldownMs int64, maxEntries int) *RateLimiter {
	return &RateLimiter{
		thresholdQPS: thresholdQPS,
		cooldownMs:   cooldownMs,
		maxEntries:   maxEntries,
		sources:      make(map[string]*rateLimitEntry),
	}
}

// Allow reports whether a query arriving from sourceIP at nowMs should
// be processed. A source in cooldown, or one that has just crossed the
// threshold within the current window, is rejected.
func (rl *RateLimiter) Allow(sourceIP string, nowMs int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.sources[sourceIP]
	if !exists {
		rl.sources[sourceIP] = &rateLimitEntry{
			windowStartMs: nowMs,
			lastSeenMs:    nowMs,
			queryCount:    1,
		}
		if len(rl.sources) > rl.maxEntries {
			rl.evict()
		}
		return true
	}

	if entry.cooldownExpiryMs != 0 {
		if nowMs < entry.cooldownExpiryMs {
			entry.lastSeenMs = nowMs
			return false
		}
		entry.cooldownExpiryMs = 0
		entry.windowStartMs = nowMs
		entry.queryCount = 1
		entry.lastSeenMs = nowMs
		return true
	}

	if nowMs-entry.windowStartMs > 1000 {
		entry.windowStartMs = nowMs
		entry.queryCount = 1
	} else {
		entry.queryCount++
	}
	entry.lastSeenMs = nowMs

	if entry.queryCount > rl.thresholdQPS {
		entry.cooldownExpiryMs = nowMs + rl.cooldownMs
		return false
	}

	return true
}

// evict drops the oldest 10% of tracked sources by last-seen time.
// Caller must hold rl.mu.
func (rl *RateLimiter) evict() {
	evictCount := rl.maxEntries / 10
	if evictCount == 0 {
		evictCount = 1
	}

	type seen struct {
		ip         string
		lastSeenMs int64
	}
	entries := make([]seen, 0, len(rl.sources))
	for ip, entry := range rl.sources {
		entries = append(entries, seen{ip: ip, lastSeenMs: entry.lastSeenMs})
	}

	for i := 0; i < evictCount && i < len(entries); i++ {
		oldest := i
		for j := i + 1; j < len(entries); j++ {
			if entries[j].lastSeenMs < entries[oldest].lastSeenMs {
				oldest = j
			}
		}
		entries[i], entries[oldest] = entries[oldest], entries[i]
	}

	for i := 0; i < evictCount && i < len(entries); i++ {
		delete(rl.sources, entries[i].ip)
		rl.evictionCount++
	}
}

// Cleanup removes sources that haven't sent a query in the last minute,
// keeping the map bounded between evictions triggered by maxEntries.
func (rl *RateLimiter) Cleanup(nowMs int64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, entry := range rl.sources {
		if nowMs-entry.lastSeenMs > 60_000 {
			delete(rl.sources, ip)
		}
	}
}

// EvictionCount returns how many sources have been dropped by evict
// since the rate limiter was created, exported for metrics.
func (rl *RateLimiter) EvictionCount() uint64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.evictionCount
}
