package responder

import (
	"net"

	"github.com/rs/zerolog"

	"github.com/crowlark/beacon/internal/metrics"
	"github.com/crowlark/beacon/internal/security"
	"github.com/crowlark/beacon/internal/state"
)

// Option configures a Responder at construction time.
type Option func(*Responder)

// WithJitter overrides the default production Jitter (seeded from a
// random source) with j, letting tests and simulations get deterministic
// probe-start and response-aggregation delays.
func WithJitter(j state.Jitter) Option {
	return func(r *Responder) { r.jitter = j }
}

// WithSeed seeds the default Jitter deterministically without requiring
// the caller to construct a state.Jitter directly.
func WithSeed(seed int64) Option {
	return func(r *Responder) { r.jitter = state.NewJitter(seed) }
}

// WithRateLimit overrides the default per-source query rate limit
// (100 qps, 60s cooldown, 10000 tracked sources).
func WithRateLimit(thresholdQPS int, cooldownMs int64, maxEntries int) Option {
	return func(r *Responder) { r.rateLimiter = newRateLimiterOrDefault(thresholdQPS, cooldownMs, maxEntries) }
}

// WithoutSourceFiltering disables the link-local source address check,
// for embedders that run in test harnesses where loopback traffic never
// looks link-local.
func WithoutSourceFiltering() Option {
	return func(r *Responder) { r.sourceFilterDisabled = true }
}

// WithMetrics attaches an externally owned Collector, so an embedder like
// cmd/beacond can register the same counters a Responder updates with its
// own prometheus.Registerer and /metrics endpoint.
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Responder) { r.metrics = c }
}

// WithLogger overrides the default stderr console logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Responder) { r.logger = l }
}

// WithSourceFilter enables validation of inbound packet source addresses
// against iface's configured subnets and link-local ranges (spec.md §6's
// interface metadata collaborator). Source filtering is off by default
// since the core has no interface access of its own.
func WithSourceFilter(iface net.Interface) Option {
	return func(r *Responder) {
		sf, err := security.NewSourceFilter(iface)
		if err == nil {
			r.sourceFilter = sf
		}
	}
}
