// Package query implements the Query Tracker (spec.md §4.4): registration
// and deduplication of outstanding local queries, immediate callback
// delivery against the existing cache, dispatch of subsequently learned
// records, and the backoff schedule that drives re-issuance of question
// packets while a query remains unanswered.
package query

import (
	"github.com/crowlark/beacon/internal/arena"
	"github.com/crowlark/beacon/internal/protocol"
	"github.com/crowlark/beacon/internal/records"
)

// Callback is invoked once per matching record. Removed is true only for a
// monitor-mode query whose previously-delivered record has gone away
// (ttl=0 sentinel per spec.md §4.4); callers that did not ask for monitor
// mode never see Removed=true.
type Callback func(rec records.Record, removed bool)

// Handle identifies one registered query, returned by Register and
// consumed by Cancel.
type Handle struct {
	idx arena.Index
}

type registration struct {
	key       records.Key
	callback  Callback
	monitor   bool
	cancelled bool
}

// schedule tracks the outbound-question backoff for one (name, type) pair
// shared by every registration at that key (spec.md §4.3 "Query issuance").
type schedule struct {
	nextSendMs int64
	intervalMs int64 // 0 means "not yet sent once"
	refs       int   // number of live registrations sharing this key
}

// Tracker is the Query Tracker. It holds no socket and no clock of its
// own: every time-aware operation takes an explicit monotonic "now" in
// milliseconds, matching internal/records and internal/state.
type Tracker struct {
	regs      *arena.Arena[registration]
	byKey     map[records.Key][]arena.Index
	schedules map[records.Key]*schedule
}

// NewTracker creates an empty query tracker.
func NewTracker() *Tracker {
	return &Tracker{
		regs:      arena.New[registration](),
		byKey:     make(map[records.Key][]arena.Index),
		schedules: make(map[records.Key]*schedule),
	}
}

// Register adds a local query for (name, type). store is consulted
// immediately so the callback fires synchronously for every existing
// cached or owned match, exactly as if those records had just arrived
// (spec.md §4.4). monitor enables the ttl=0 removal callback.
func (t *Tracker) Register(name string, typ protocol.RecordType, monitor bool, cb Callback, store *records.Store, nowMs int64) Handle {
	key := records.Key{Name: records.Record{Name: name}.Key().Name, Type: typ}

	idx := t.regs.Insert(registration{key: key, callback: cb, monitor: monitor})
	t.byKey[key] = append(t.byKey[key], idx)

	sch, ok := t.schedules[key]
	if !ok {
		sch = &schedule{nextSendMs: nowMs}
		t.schedules[key] = sch
	}
	sch.refs++

	for _, rec := range store.Lookup(name, typ, nowMs) {
		cb(rec, false)
	}

	return Handle{idx: idx}
}

// Cancel removes a registration. Its callback is guaranteed never to fire
// again once Cancel returns (spec.md §5). If no registrations remain for
// the underlying key, periodic re-issuance of that question stops.
func (t *Tracker) Cancel(h Handle) {
	reg, ok := t.regs.Get(h.idx)
	if !ok || reg.cancelled {
		return
	}
	reg.cancelled = true
	t.regs.Set(h.idx, reg)

	idxs := t.byKey[reg.key]
	for i, idx := range idxs {
		if idx == h.idx {
			idxs = append(idxs[:i], idxs[i+1:]...)
			break
		}
	}
	if len(idxs) == 0 {
		delete(t.byKey, reg.key)
	} else {
		t.byKey[reg.key] = idxs
	}

	if sch, ok := t.schedules[reg.key]; ok {
		sch.refs--
		if sch.refs <= 0 {
			delete(t.schedules, reg.key)
		}
	}
}

// Deliver dispatches rec to every active registration matching its key,
// and to ANY-type registrations for the same name. removed marks a
// monitor-mode departure notification; it is suppressed for registrations
// that did not request monitor mode.
func (t *Tracker) Deliver(rec records.Record, removed bool) {
	key := rec.Key()
	t.deliverToKey(key, rec, removed)
	if key.Type != protocol.TypeANY {
		t.deliverToKey(records.Key{Name: key.Name, Type: protocol.TypeANY}, rec, removed)
	}
}

func (t *Tracker) deliverToKey(key records.Key, rec records.Record, removed bool) {
	for _, idx := range t.byKey[key] {
		reg, ok := t.regs.Get(idx)
		if !ok || reg.cancelled {
			continue
		}
		if removed && !reg.monitor {
			continue
		}
		reg.callback(rec, removed)
	}
}

// DueQuestion is one outbound question the scheduler should emit,
// annotated with the known answers to include for suppression.
type DueQuestion struct {
	Name         string
	Type         protocol.RecordType
	KnownAnswers []records.Record
}

// DueQuestions returns every registered query whose backoff deadline has
// elapsed by nowMs, advances each one's backoff (first send is immediate,
// then protocol.QueryBackoffInitial doubling up to protocol.QueryBackoffCap
// per spec.md §4.3), and attaches every currently cached or owned match as
// a known answer. Cached matches carry their remaining TTL (store.Lookup
// computes it from the stored expiry); the caller (responder) decides
// which of them to render in the Answer section.
func (t *Tracker) DueQuestions(store *records.Store, nowMs int64) []DueQuestion {
	var due []DueQuestion
	for key, sch := range t.schedules {
		if sch.nextSendMs > nowMs {
			continue
		}
		due = append(due, DueQuestion{
			Name:         key.Name,
			Type:         key.Type,
			KnownAnswers: store.Lookup(key.Name, key.Type, nowMs),
		})
		sch.advance(nowMs)
	}
	return due
}

func (s *schedule) advance(nowMs int64) {
	if s.intervalMs == 0 {
		s.intervalMs = protocol.QueryBackoffInitial.Milliseconds()
	} else {
		s.intervalMs *= 2
		if ceiling := protocol.QueryBackoffCap.Milliseconds(); s.intervalMs > ceiling {
			s.intervalMs = ceiling
		}
	}
	s.nextSendMs = nowMs + s.intervalMs
}

// NextDeadline returns the earliest pending re-issuance deadline across
// all active queries, for the scheduler's Sleep computation.
func (t *Tracker) NextDeadline() *int64 {
	var next *int64
	for _, sch := range t.schedules {
		if next == nil || sch.nextSendMs < *next {
			v := sch.nextSendMs
			next = &v
		}
	}
	return next
}
