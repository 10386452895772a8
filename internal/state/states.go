// Package state implements the per-record publish lifecycle state machine
// of RFC 6762 §8: probing for name uniqueness, announcing, steady-state
// publication, and goodbye on withdrawal. Unlike a goroutine-per-record
// design, the scheduler here holds no timers of its own — every
// transition is computed from an explicit monotonic "now" supplied by the
// caller, so the whole machine can be driven from a single event loop
// (see internal/records and responder for the collaborating pieces).
package state

// Phase is a position in the per-record publish lifecycle.
//
// RFC 6762 §8: state transitions
//   - Probe: sending probe queries to detect a name conflict
//   - Conflict: a conflict was detected; the record is withdrawn and the
//     embedder is notified so it can choose a new name
//   - Announce: broadcasting unsolicited announcements
//   - Published: steady state; responds to matching queries
//   - Goodbye: sending TTL=0 responses before final removal
type Phase int

const (
	PhaseProbe Phase = iota
	PhaseConflict
	PhaseAnnounce
	PhasePublished
	PhaseGoodbye
)

// String returns the human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseProbe:
		return "Probe"
	case PhaseConflict:
		return "Conflict"
	case PhaseAnnounce:
		return "Announce"
	case PhasePublished:
		return "Published"
	case PhaseGoodbye:
		return "Goodbye"
	default:
		return "Unknown"
	}
}
