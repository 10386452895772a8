package responder

import (
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/crowlark/beacon/internal/arena"
	berrors "github.com/crowlark/beacon/internal/errors"
	"github.com/crowlark/beacon/internal/logging"
	"github.com/crowlark/beacon/internal/message"
	"github.com/crowlark/beacon/internal/metrics"
	"github.com/crowlark/beacon/internal/protocol"
	"github.com/crowlark/beacon/internal/query"
	"github.com/crowlark/beacon/internal/records"
	"github.com/crowlark/beacon/internal/security"
	"github.com/crowlark/beacon/internal/state"
)

// Default per-source rate limit applied by New: 100 qps per source, 60s
// cooldown, 10000 tracked sources.
const (
	defaultRateThresholdQPS = 100
	defaultRateCooldownMs   = 60_000
	defaultRateMaxEntries   = 10_000
)

// serviceEnumerationName is the well-known DNS-SD meta-query name that
// enumerates every service *type* a responder advertises (RFC 6763 §9).
const serviceEnumerationName = "_services._dns-sd._udp.local."

// pendingResponse accumulates answers destined for one recipient
// (multicast, or a specific unicast source) until dueMs, so multiple
// matching questions arriving close together render as a single message
// and so an answer another responder puts on the wire first can cancel
// ours before it is sent (RFC 6762 §6, §7.1).
type pendingResponse struct {
	dest        net.Addr
	dueMs       int64
	answers     map[records.Key]Record
	additionals map[records.Key]Record
}

// Responder is the engine spec.md §4.5 describes: one per link, composing
// the message codec, record store, query tracker, and publish scheduler.
// It performs no I/O and holds no goroutines or timers of its own
// (spec.md §5); every time-aware method takes the caller's monotonic
// clock explicitly, and Output/Sleep tell the caller what to send and
// when to call back.
type Responder struct {
	address net.IP
	class   uint16

	store     *records.Store
	tracker   *query.Tracker
	scheduler *state.Scheduler
	jitter    state.Jitter

	rateLimiter          *security.RateLimiter
	sourceFilter         *security.SourceFilter
	sourceFilterDisabled bool

	conflictCb ConflictCallback
	recordCb   RecordReceivedCallback

	withdrawing map[records.Key][]arena.Index
	pending     map[string]*pendingResponse
	outQueue    []OutMessage

	clockMs      int64
	shuttingDown bool

	logger  zerolog.Logger
	metrics *metrics.Collector
}

// New creates a Responder bound to address, the local IP whose family
// picks the IPv4/IPv6 multicast group.
func New(address net.IP, opts ...Option) *Responder {
	j := state.NewJitter(time.Now().UnixNano())
	r := &Responder{
		address:     address,
		class:       protocol.ClassIN,
		store:       records.NewStore(),
		tracker:     query.NewTracker(),
		scheduler:   state.NewScheduler(j),
		jitter:      j,
		rateLimiter: security.NewRateLimiter(defaultRateThresholdQPS, defaultRateCooldownMs, defaultRateMaxEntries),
		withdrawing: make(map[records.Key][]arena.Index),
		pending:     make(map[string]*pendingResponse),
		logger:      logging.New(logging.WithComponent("responder")),
		metrics:     metrics.NewCollector(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.scheduler.SetJitter(r.jitter)
	return r
}

func newRateLimiterOrDefault(thresholdQPS int, cooldownMs int64, maxEntries int) *security.RateLimiter {
	return security.NewRateLimiter(thresholdQPS, cooldownMs, maxEntries)
}

// SetAddress updates the local address whose family picks the IPv4/IPv6
// multicast group.
func (r *Responder) SetAddress(addr net.IP) { r.address = addr }

// multicastGroup returns the mDNS group endpoint for this Responder's
// configured address family (RFC 6762 §5).
func (r *Responder) multicastGroup() net.Addr {
	if r.address != nil && r.address.To4() == nil {
		return protocol.MulticastGroupIPv6()
	}
	return protocol.MulticastGroupIPv4()
}

// Publish adds rec to the owned set and, for unique records, starts
// probing (spec.md §4.2, §4.3). Re-publishing an identical (name, type,
// rdata, unique) triple is a no-op (spec.md §7's idempotence property).
func (r *Responder) Publish(rec Record, unique bool) error {
	rec.Unique = unique
	rec.Class = protocol.ClassIN
	_, err := r.store.Publish(rec, r.clockMs)
	if err != nil {
		if isDuplicate(err) {
			return nil
		}
		return err
	}
	key := rec.Key()
	r.scheduler.Start(key, unique, r.clockMs)
	r.metrics.RecordsPublished.Inc()

	if rec.Type == protocol.TypePTR && message.CanonicalName(rec.Name) != message.CanonicalName(serviceEnumerationName) {
		r.ensureServiceEnumeration(rec.Name)
	}
	return nil
}

// ensureServiceEnumeration publishes (idempotently) the DNS-SD meta-query
// PTR record enumerating serviceType under _services._dns-sd._udp.local.,
// so a querier doing generic service discovery (spec.md end-to-end
// scenario 1) sees every service type this Responder advertises without
// the embedder registering the meta-query by hand.
func (r *Responder) ensureServiceEnumeration(serviceType string) {
	meta := records.Record{
		Name:   serviceEnumerationName,
		Type:   protocol.TypePTR,
		Class:  protocol.ClassIN,
		TTL:    protocol.TTLService,
		Unique: false,
		RData:  message.PTRData{Name: serviceType},
	}
	_, err := r.store.Publish(meta, r.clockMs)
	if err != nil {
		return // already enumerated: isDuplicate is the only possible error here
	}
	r.scheduler.Start(meta.Key(), false, r.clockMs)
}

// Withdraw schedules goodbye emissions for every owned record at
// (name, type); the records themselves are removed from the store once
// the goodbye sequence completes (spec.md §4.3 Goodbye phase). Withdraw
// of an unknown key is a no-op.
func (r *Responder) Withdraw(name string, typ RecordType) error {
	idxs, err := r.store.Withdraw(name, typ)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	key := records.Key{Name: message.CanonicalName(name), Type: typ}
	r.scheduler.Withdraw(key, r.clockMs)
	r.withdrawing[key] = idxs
	r.metrics.RecordsPublished.Dec()
	return nil
}

// Query registers a local query for (name, type). cb fires synchronously
// for every existing cached or owned match, then again for every future
// matching record received (spec.md §4.4). monitor additionally delivers
// a removed=true callback when a previously-delivered record goes away.
func (r *Responder) Query(name string, typ RecordType, monitor bool, cb Callback) QueryHandle {
	h := r.tracker.Register(name, typ, monitor, query.Callback(cb), r.store, r.clockMs)
	r.metrics.QueriesActive.Inc()
	return h
}

// CancelQuery stops re-issuance and callback delivery for h. Per spec.md
// §5, cb is guaranteed never to fire again once CancelQuery returns.
func (r *Responder) CancelQuery(h QueryHandle) {
	r.tracker.Cancel(h)
	r.metrics.QueriesActive.Dec()
}

// OnConflict registers the callback invoked whenever a uniquely-owned
// record loses a naming conflict (spec.md §4.3, §7). This engine only
// reports conflicts; it never auto-renames (spec.md §9 Open Questions).
func (r *Responder) OnConflict(cb ConflictCallback) { r.conflictCb = cb }

// OnRecordReceived registers the callback invoked once for every resource
// record parsed out of an inbound message, whether or not it matches a
// registered query (spec.md §4.5).
func (r *Responder) OnRecordReceived(cb RecordReceivedCallback) { r.recordCb = cb }

// Shutdown transitions every owned record to Goodbye (spec.md §5). The
// caller must keep draining Output until it returns nothing further.
// Input is a no-op from this call on.
func (r *Responder) Shutdown(nowMs int64) {
	r.clockMs = nowMs
	r.shuttingDown = true
	for _, key := range r.store.AllOwnedKeys() {
		idxs := r.store.OwnedIndices(key)
		r.scheduler.Withdraw(key, nowMs)
		r.withdrawing[key] = idxs
	}
}

// Withdrawing reports how many keys still have a goodbye sequence in
// flight. Callers driving Shutdown externally (querier.Querier) poll this
// to know when it is safe to stop pumping Output and tear down sockets.
func (r *Responder) Withdrawing() int {
	return len(r.withdrawing)
}

// Sleep returns the earliest future deadline across scheduled publish
// actions, pending aggregated responses, outstanding query re-issuance,
// and cache TTL expiry. A nil deadline means the engine is idle
// indefinitely until the next Input call.
func (r *Responder) Sleep(nowMs int64) *int64 {
	r.clockMs = nowMs
	var earliest *int64
	consider := func(d *int64) {
		if d == nil {
			return
		}
		if earliest == nil || *d < *earliest {
			earliest = d
		}
	}
	consider(r.scheduler.NextDeadline())
	consider(r.tracker.NextDeadline())
	consider(r.nextPendingDeadline())
	_, next := r.store.ExpireDue(nowMs)
	consider(next)
	return earliest
}

func (r *Responder) nextPendingDeadline() *int64 {
	var earliest *int64
	for _, pr := range r.pending {
		v := pr.dueMs
		if earliest == nil || v < *earliest {
			earliest = &v
		}
	}
	return earliest
}

func isDuplicate(err error) bool {
	var d *berrors.DuplicateError
	return errors.As(err, &d)
}

func isNotFound(err error) bool {
	var n *berrors.NotFoundError
	return errors.As(err, &n)
}

func isOversize(err error) bool {
	var o *berrors.OversizeError
	return errors.As(err, &o)
}
