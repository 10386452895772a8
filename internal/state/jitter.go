package state

import (
	"math/rand"
	"time"
)

// Jitter supplies randomized delays for probe start and response
// aggregation, per spec.md's design note that randomness must be
// injectable for deterministic tests (RFC 6762 §8.1's recommended
// 0-250ms initial probe delay, and §6.1's 20-120ms response aggregation
// window).
type Jitter interface {
	// Duration returns a value uniformly distributed in [min, max).
	Duration(min, max time.Duration) time.Duration
}

// randomJitter is the production Jitter, backed by math/rand. It is not
// safe for concurrent use, matching the single-threaded engine model.
type randomJitter struct {
	rnd *rand.Rand
}

// NewJitter creates a Jitter seeded from seed. Callers that want
// reproducible runs (tests, simulation) pass a fixed seed; production
// callers seed from a real entropy source once at startup.
func NewJitter(seed int64) Jitter {
	return &randomJitter{rnd: rand.New(rand.NewSource(seed))}
}

func (j *randomJitter) Duration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	span := int64(max - min)
	return min + time.Duration(j.rnd.Int63n(span))
}

// FixedJitter always returns d, letting tests assert exact schedules
// without fighting randomness.
type FixedJitter time.Duration

func (f FixedJitter) Duration(time.Duration, time.Duration) time.Duration {
	return time.Duration(f)
}
