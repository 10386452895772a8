package responder

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crowlark/beacon/internal/message"
	"github.com/crowlark/beacon/internal/protocol"
)

// TestQueryDeliversCachedMatchSynchronously verifies spec.md §4.4: Query
// fires its callback immediately for any already-learned matching record.
func TestQueryDeliversCachedMatchSynchronously(t *testing.T) {
	r := newTestResponder(t)
	rec := Record{Name: "peer.local.", Type: TypeA, RData: AData{Addr: net.ParseIP("10.0.0.5")}, TTL: protocol.TTLHostname}
	r.store.PutCached(rec, false, 0)

	var got []Record
	r.Query("peer.local.", TypeA, false, func(rec Record, removed bool) { got = append(got, rec) })

	require.Len(t, got, 1)
	require.Equal(t, "peer.local.", got[0].Name)
}

// TestQueryEmitsQuestionOnNextOutput verifies a registered query produces
// an outbound question packet, matching spec.md §4.3's query issuance.
func TestQueryEmitsQuestionOnNextOutput(t *testing.T) {
	r := newTestResponder(t)
	r.Query("peer.local.", TypeA, false, func(Record, bool) {})

	out := drainOutput(r, 0)
	require.Len(t, out, 1)
	require.True(t, out[0].Header.IsQuery())
	require.Equal(t, "peer.local", out[0].Questions[0].Name)
}

// TestQueryBackoffDoublesBetweenReissues verifies spec.md §4.3: repeat
// questions double their interval up to the configured cap rather than
// firing on every call.
func TestQueryBackoffDoublesBetweenReissues(t *testing.T) {
	r := newTestResponder(t)
	r.Query("peer.local.", TypeA, false, func(Record, bool) {})

	first := drainOutput(r, 0)
	require.Len(t, first, 1)

	// Immediately re-polling before the backoff interval elapses yields
	// no further question.
	again := drainOutput(r, 10)
	require.Empty(t, again)

	afterBackoff := drainOutput(r, protocol.QueryBackoffInitial.Milliseconds())
	require.Len(t, afterBackoff, 1)

	// The next interval is doubled: nothing one initial interval after the
	// second question, the third only once two intervals have passed.
	beforeDoubled := drainOutput(r, 2*protocol.QueryBackoffInitial.Milliseconds())
	require.Empty(t, beforeDoubled)
	afterDoubled := drainOutput(r, 3*protocol.QueryBackoffInitial.Milliseconds())
	require.Len(t, afterDoubled, 1)
}

// TestCancelQueryStopsDelivery verifies spec.md §5: once CancelQuery
// returns, the callback never fires again.
func TestCancelQueryStopsDelivery(t *testing.T) {
	r := newTestResponder(t)
	var calls int
	h := r.Query("peer.local.", TypeA, true, func(Record, bool) { calls++ })
	r.CancelQuery(h)

	rec := Record{Name: "peer.local.", Type: TypeA, RData: AData{Addr: net.ParseIP("10.0.0.5")}, TTL: protocol.TTLHostname}
	answer := &message.Message{
		Header:  message.Header{Flags: protocol.FlagQR | protocol.FlagAA},
		Answers: []message.ResourceRecord{{Name: rec.Name, Type: rec.Type, Class: protocol.ClassIN, TTL: rec.TTL, RData: rec.RData}},
	}
	r.Input(answer, net.ParseIP("10.0.0.1"), protocol.Port, 0)

	require.Zero(t, calls)
}

// TestRateLimitedSourceIsDropped verifies spec.md §7's abuse-resistance
// requirement: once a source exceeds its query rate, further packets from
// it are dropped before decoding metrics even count them as processed.
func TestRateLimitedSourceIsDropped(t *testing.T) {
	r := New(net.ParseIP("192.168.1.10"), WithSeed(1), WithoutSourceFiltering(), WithRateLimit(1, 60_000, 100))
	rec := Record{Name: "host.local.", Type: TypeA, RData: AData{Addr: net.ParseIP("192.168.1.50")}, TTL: protocol.TTLHostname}
	publishPublished(t, r, rec)

	flood := net.ParseIP("192.168.1.77")
	for i := 0; i < 5; i++ {
		query := &message.Message{Questions: []message.Question{{Name: "host.local.", Type: TypeA, Class: protocol.ClassIN}}}
		r.Input(query, flood, protocol.Port, int64(i))
	}

	out := drainOutput(r, 0)
	// Only the first request before the threshold trips should have
	// produced a queued response; later ones are dropped on arrival.
	require.LessOrEqual(t, len(out), 1)
}
