package querier

import (
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/crowlark/beacon/internal/metrics"
	"github.com/crowlark/beacon/internal/state"
	"github.com/crowlark/beacon/internal/transport"
	"github.com/crowlark/beacon/responder"
)

// Option configures a Querier at construction time.
type Option func(*Querier)

// WithTransport injects an already-constructed Transport in place of the
// real IPv4 UDP multicast socket New would otherwise open, so tests can
// drive a Querier against a transport.MockTransport.
func WithTransport(tr transport.Transport) Option {
	return func(q *Querier) { q.transportV4Override = tr }
}

// WithLocalAddress skips interface discovery and uses addr as the engine's
// own address, for tests run on hosts with no usable non-loopback IPv4.
func WithLocalAddress(addr net.IP) Option {
	return func(q *Querier) { q.localAddrOverride = addr }
}

// WithTimeout overrides the default collection window (1 second) Query
// waits for responses when the caller's context carries no deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(q *Querier) { q.defaultTimeout = timeout }
}

// WithInterfaces restricts the Querier to local addresses on one of
// ifaces, instead of the first viable non-loopback interface.
func WithInterfaces(ifaces []net.Interface) Option {
	return func(q *Querier) { q.explicitInterfaces = ifaces }
}

// WithIPv6 additionally joins the IPv6 mDNS multicast group (ff02::fb),
// for callers that want dual-stack discovery. IPv4 is always enabled.
func WithIPv6() Option {
	return func(q *Querier) { q.ipv6Enabled = true }
}

// WithSeed seeds the underlying Responder's Jitter deterministically,
// for reproducible tests (spec.md's design note on injectable randomness).
func WithSeed(seed int64) Option {
	return func(q *Querier) { q.responderOpts = append(q.responderOpts, responder.WithSeed(seed)) }
}

// WithJitter overrides the underlying Responder's Jitter directly.
func WithJitter(j state.Jitter) Option {
	return func(q *Querier) { q.responderOpts = append(q.responderOpts, responder.WithJitter(j)) }
}

// WithLogger overrides the underlying Responder's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(q *Querier) { q.responderOpts = append(q.responderOpts, responder.WithLogger(l)) }
}

// WithMetrics attaches an externally owned metrics.Collector to the
// underlying Responder.
func WithMetrics(c *metrics.Collector) Option {
	return func(q *Querier) { q.responderOpts = append(q.responderOpts, responder.WithMetrics(c)) }
}

// WithRateLimit overrides the underlying Responder's per-source query
// rate limit (100 qps, 60s cooldown, 10000 tracked sources by default).
func WithRateLimit(thresholdQPS int, cooldownMs int64, maxEntries int) Option {
	return func(q *Querier) {
		q.responderOpts = append(q.responderOpts, responder.WithRateLimit(thresholdQPS, cooldownMs, maxEntries))
	}
}
