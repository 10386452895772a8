package responder

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crowlark/beacon/internal/message"
	"github.com/crowlark/beacon/internal/protocol"
	"github.com/crowlark/beacon/internal/state"
)

// TestProbeTiebreakLoss verifies RFC 6762 §8.2: an inbound probe whose
// candidate rdata lexicographically follows ours during our own Probe
// phase means we lost and must report a conflict rather than continue.
func TestProbeTiebreakLoss(t *testing.T) {
	r := newTestResponder(t)
	var conflicted bool
	r.OnConflict(func(name string, typ RecordType) { conflicted = true })

	rec := Record{Name: "host.local.", Type: TypeA, RData: AData{Addr: net.ParseIP("169.254.99.200")}, TTL: protocol.TTLHostname}
	require.NoError(t, r.Publish(rec, true))

	probe := &message.Message{
		Questions:   []message.Question{{Name: "host.local.", Type: TypeA, Class: protocol.ClassIN}},
		Authorities: []message.ResourceRecord{{Name: "host.local.", Type: TypeA, Class: protocol.ClassIN, TTL: protocol.TTLHostname, RData: AData{Addr: net.ParseIP("169.254.200.50")}}},
	}
	r.Input(probe, net.ParseIP("192.168.1.99"), protocol.Port, 0)

	require.True(t, conflicted)
	phase, _ := r.scheduler.Phase(rec.Key())
	require.Equal(t, state.PhaseConflict, phase)
}

// TestProbeTiebreakWin verifies we keep probing (no conflict reported)
// when our candidate lexicographically beats theirs.
func TestProbeTiebreakWin(t *testing.T) {
	r := newTestResponder(t)
	var conflicted bool
	r.OnConflict(func(name string, typ RecordType) { conflicted = true })

	rec := Record{Name: "host.local.", Type: TypeA, RData: AData{Addr: net.ParseIP("169.254.200.50")}, TTL: protocol.TTLHostname}
	require.NoError(t, r.Publish(rec, true))

	probe := &message.Message{
		Questions:   []message.Question{{Name: "host.local.", Type: TypeA, Class: protocol.ClassIN}},
		Authorities: []message.ResourceRecord{{Name: "host.local.", Type: TypeA, Class: protocol.ClassIN, TTL: protocol.TTLHostname, RData: AData{Addr: net.ParseIP("169.254.99.200")}}},
	}
	r.Input(probe, net.ParseIP("192.168.1.99"), protocol.Port, 0)

	require.False(t, conflicted)
	phase, _ := r.scheduler.Phase(rec.Key())
	require.Equal(t, state.PhaseProbe, phase)
}

// TestPostProbeConflictIsUnconditional verifies RFC 6762 §9: once a unique
// record is Announced or Published, any differing answer is a conflict
// with no tiebreak, and the owned record is withdrawn from the store.
func TestPostProbeConflictIsUnconditional(t *testing.T) {
	r := newFixedDelayResponder(t)
	var conflicted bool
	r.OnConflict(func(name string, typ RecordType) { conflicted = true })

	rec := Record{Name: "host.local.", Type: TypeA, RData: AData{Addr: net.ParseIP("192.168.1.10")}, TTL: protocol.TTLHostname}
	require.NoError(t, r.Publish(rec, true))

	// Drive the probe/announce sequence to completion so the record
	// reaches Published, where post-probe conflict detection applies.
	now := int64(0)
	for i := 0; i < int(protocol.ProbeCount)+int(protocol.AnnounceCount); i++ {
		r.scheduler.Due(now)
		now += protocol.AnnounceInterval.Milliseconds()
	}
	phase, _ := r.scheduler.Phase(rec.Key())
	require.Equal(t, state.PhasePublished, phase)

	answer := &message.Message{
		Header:  message.Header{Flags: protocol.FlagQR | protocol.FlagAA},
		Answers: []message.ResourceRecord{{Name: "host.local.", Type: TypeA, Class: protocol.ClassIN | protocol.ClassCacheFlushBit, TTL: protocol.TTLHostname, RData: AData{Addr: net.ParseIP("192.168.1.250")}}},
	}
	r.Input(answer, net.ParseIP("192.168.1.200"), protocol.Port, now)

	require.True(t, conflicted)
	require.Empty(t, r.store.OwnedIndices(rec.Key()))
}
