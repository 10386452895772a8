package state

import (
	"math"

	"github.com/crowlark/beacon/internal/protocol"
	"github.com/crowlark/beacon/internal/records"
)

// neverDue is the DueMs sentinel for phases the scheduler does not poll
// (Published is idle until Withdraw; Conflict is terminal).
const neverDue = math.MaxInt64

// Progress tracks one owned record key's position in the publish
// lifecycle (RFC 6762 §8). Keys, not individual records, carry progress:
// every shared record sharing a key announces together, and a unique
// key holds at most one owned record at a time (spec.md §3).
type Progress struct {
	Key     records.Key
	Unique  bool
	Phase   Phase
	Attempt int   // sends already completed in the current phase
	DueMs   int64 // next scheduled action; neverDue when idle or terminal
}

// Action is one scheduled send the caller must render and emit:
// PhaseProbe asks for a query with the candidate record in Authority;
// PhaseAnnounce asks for an unsolicited response; PhaseGoodbye asks for a
// response with TTL=0.
type Action struct {
	Key     records.Key
	Phase   Phase
	Attempt int
}

// Scheduler drives every owned record key through Probe/Announce/
// Published/Goodbye. It holds no goroutines or timers: Due is a pure
// function of the progress table and an explicit "now".
type Scheduler struct {
	jitter   Jitter
	progress map[records.Key]*Progress
}

// NewScheduler creates a scheduler using j for probe-start and
// response-aggregation jitter.
func NewScheduler(j Jitter) *Scheduler {
	return &Scheduler{jitter: j, progress: make(map[records.Key]*Progress)}
}

// Start begins the publish lifecycle for key. Unique records enter Probe
// with a randomized 0-250ms initial delay (RFC 6762 §8.1); shared records
// skip straight to Announce(1), fired immediately. A key already tracked
// is left untouched (Start is idempotent, matching publish's duplicate
// handling in internal/records).
func (s *Scheduler) Start(key records.Key, unique bool, nowMs int64) {
	if _, ok := s.progress[key]; ok {
		return
	}
	p := &Progress{Key: key, Unique: unique}
	if unique {
		p.Phase = PhaseProbe
		p.DueMs = nowMs + s.jitter.Duration(0, protocol.ProbeInterval).Milliseconds()
	} else {
		p.Phase = PhaseAnnounce
		p.DueMs = nowMs
	}
	s.progress[key] = p
}

// SetJitter replaces the scheduler's jitter source, letting an embedder
// that builds its Jitter after constructing the Scheduler (internal/responder
// does, since WithSeed/WithJitter are Responder options) swap it in before
// any key starts probing.
func (s *Scheduler) SetJitter(j Jitter) { s.jitter = j }

// Phase reports the current phase for key, if tracked.
func (s *Scheduler) Phase(key records.Key) (Phase, bool) {
	p, ok := s.progress[key]
	if !ok {
		return 0, false
	}
	return p.Phase, true
}

// Conflict forces key into the terminal Conflict phase, regardless of
// its current phase (spec.md §4.3: conflicts can be detected during
// Probe or after Published). The caller is expected to invoke the
// embedder's conflict callback and withdraw the record; Conflict itself
// schedules nothing further.
func (s *Scheduler) Conflict(key records.Key) {
	p, ok := s.progress[key]
	if !ok {
		return
	}
	p.Phase = PhaseConflict
	p.DueMs = neverDue
}

// Withdraw moves key into Goodbye from any phase, firing the first
// goodbye immediately. If key was never tracked (e.g. a shared record
// withdrawn before its first Announce tick ran), Withdraw still starts a
// Goodbye sequence so the caller's emitted TTL=0 response reaches the
// network.
func (s *Scheduler) Withdraw(key records.Key, nowMs int64) {
	p, ok := s.progress[key]
	if !ok {
		p = &Progress{Key: key}
		s.progress[key] = p
	}
	p.Phase = PhaseGoodbye
	p.Attempt = 0
	p.DueMs = nowMs
}

// Remove drops key's progress entirely without emitting a goodbye, for
// the Conflict-callback path where the embedder withdraws the record
// out of band.
func (s *Scheduler) Remove(key records.Key) {
	delete(s.progress, key)
}

// Due advances every key whose next action has arrived by nowMs and
// returns the actions the caller must render and emit, in map iteration
// order — callers that care about FIFO-by-schedule-time ordering should
// sort by (Phase, Attempt) or track their own insertion order, since Go
// map iteration order is unspecified.
func (s *Scheduler) Due(nowMs int64) []Action {
	var actions []Action
	for key, p := range s.progress {
		if p.DueMs > nowMs {
			continue
		}
		switch p.Phase {
		case PhaseProbe:
			p.Attempt++
			actions = append(actions, Action{Key: key, Phase: PhaseProbe, Attempt: p.Attempt})
			if p.Attempt >= protocol.ProbeCount {
				p.Phase = PhaseAnnounce
				p.Attempt = 0
				p.DueMs = nowMs
			} else {
				p.DueMs = nowMs + protocol.ProbeInterval.Milliseconds()
			}
		case PhaseAnnounce:
			p.Attempt++
			actions = append(actions, Action{Key: key, Phase: PhaseAnnounce, Attempt: p.Attempt})
			if p.Attempt >= protocol.AnnounceCount {
				p.Phase = PhasePublished
				p.DueMs = neverDue
			} else {
				p.DueMs = nowMs + protocol.AnnounceInterval.Milliseconds()
			}
		case PhaseGoodbye:
			p.Attempt++
			actions = append(actions, Action{Key: key, Phase: PhaseGoodbye, Attempt: p.Attempt})
			if p.Attempt >= protocol.GoodbyeCount {
				delete(s.progress, key)
			} else {
				p.DueMs = nowMs + protocol.GoodbyeInterval.Milliseconds()
			}
		case PhasePublished, PhaseConflict:
			p.DueMs = neverDue
		}
	}
	return actions
}

// NextDeadline returns the earliest pending action deadline across all
// tracked keys, for the Responder's Sleep computation.
func (s *Scheduler) NextDeadline() *int64 {
	var next *int64
	for _, p := range s.progress {
		if p.DueMs == neverDue {
			continue
		}
		if next == nil || p.DueMs < *next {
			v := p.DueMs
			next = &v
		}
	}
	return next
}
