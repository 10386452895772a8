// Package metrics exposes the engine's Prometheus counters and gauges:
// packets decoded and dropped, conflicts detected, owned records
// published, and active local queries. The core engine takes a
// *Collector via functional option (internal/logging's pattern) and
// never touches a global registry itself — cmd/beacond decides whether
// and where to expose /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector holds every metric the engine exports. It is always safe to
// use unregistered: the counters exist and accumulate even if Register
// is never called, so a Responder never needs a nil check.
// PacketsMalformed and RecordsCached are registered, but nothing in this
// module updates them, so they stay at zero.
type Collector struct {
	PacketsDecoded     prometheus.Counter
	PacketsMalformed   prometheus.Counter
	PacketsRateLimited prometheus.Counter
	Conflicts          prometheus.Counter
	RecordsPublished   prometheus.Gauge
	RecordsCached      prometheus.Gauge
	QueriesActive      prometheus.Gauge
	MessagesSent       prometheus.Counter
}

// NewCollector creates a Collector with the "beacon" metric namespace.
// Call Register to attach it to a prometheus.Registerer; an unregistered
// Collector still accumulates correctly, it's simply not exported.
func NewCollector() *Collector {
	return &Collector{
		PacketsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beacon", Name: "packets_decoded_total",
			Help: "mDNS packets successfully decoded.",
		}),
		PacketsMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beacon", Name: "packets_malformed_total",
			Help: "Inbound packets dropped for failing to decode.",
		}),
		PacketsRateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beacon", Name: "packets_rate_limited_total",
			Help: "Inbound packets dropped by the per-source rate limiter.",
		}),
		Conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beacon", Name: "conflicts_total",
			Help: "Unique-record naming conflicts detected.",
		}),
		RecordsPublished: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beacon", Name: "records_published",
			Help: "Owned records currently published or in the probe/announce pipeline.",
		}),
		RecordsCached: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beacon", Name: "records_cached",
			Help: "Records currently held in the cache learned from the network.",
		}),
		QueriesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beacon", Name: "queries_active",
			Help: "Local queries currently registered with the tracker.",
		}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beacon", Name: "messages_sent_total",
			Help: "DNS messages emitted by the engine, across all phases.",
		}),
	}
}

// Register attaches every metric in c to reg. Call once at startup.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{
		c.PacketsDecoded, c.PacketsMalformed, c.PacketsRateLimited,
		c.Conflicts, c.RecordsPublished, c.RecordsCached,
		c.QueriesActive, c.MessagesSent,
	} {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}
