package responder

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crowlark/beacon/internal/message"
	"github.com/crowlark/beacon/internal/protocol"
	"github.com/crowlark/beacon/internal/state"
)

func newTestResponder(t *testing.T) *Responder {
	t.Helper()
	return New(net.ParseIP("192.168.1.10"), WithSeed(1), WithoutSourceFiltering())
}

func drainOutput(r *Responder, nowMs int64) []*message.Message {
	var out []*message.Message
	for {
		om, ok := r.Output(nowMs)
		if !ok {
			return out
		}
		msg, err := message.Decode(om.Packet)
		if err != nil {
			continue
		}
		out = append(out, msg)
	}
}

// TestPublishLifecycle walks a published unique record through probe,
// announce and into steady-state publication, matching spec.md §4.3's
// probe/announce state machine and §8 end-to-end scenario 1.
func TestPublishLifecycle(t *testing.T) {
	r := New(net.ParseIP("192.168.1.10"), WithJitter(state.FixedJitter(0)), WithoutSourceFiltering())

	rec := Record{Name: "host.local.", Type: TypeA, RData: AData{Addr: net.ParseIP("192.168.1.10")}, TTL: protocol.TTLHostname}
	require.NoError(t, r.Publish(rec, true))

	key := rec.Key()
	phase, tracked := r.scheduler.Phase(key)
	require.True(t, tracked)
	require.Equal(t, state.PhaseProbe, phase)

	now := int64(0)
	for i := 0; i < int(protocol.ProbeCount); i++ {
		msgs := drainOutput(r, now)
		require.Len(t, msgs, 1)
		require.True(t, msgs[0].Header.IsQuery())
		require.Len(t, msgs[0].Questions, 1)
		require.Equal(t, "host.local", msgs[0].Questions[0].Name)
		require.Len(t, msgs[0].Authorities, 1)
		now += protocol.ProbeInterval.Milliseconds()
	}

	phase, _ = r.scheduler.Phase(key)
	require.Equal(t, state.PhaseAnnounce, phase)

	for i := 0; i < int(protocol.AnnounceCount); i++ {
		msgs := drainOutput(r, now)
		require.Len(t, msgs, 1)
		require.True(t, msgs[0].Header.IsResponse())
		require.Len(t, msgs[0].Answers, 1)
		require.Equal(t, uint16(protocol.ClassIN)|protocol.ClassCacheFlushBit, msgs[0].Answers[0].Class)
		now += protocol.AnnounceInterval.Milliseconds()
	}

	phase, _ = r.scheduler.Phase(key)
	require.Equal(t, state.PhasePublished, phase)
}

// TestWithdrawSendsGoodbyeThenRemoves verifies Withdraw schedules TTL=0
// goodbye emissions and only removes the record from the store once the
// goodbye sequence finishes (spec.md §4.3 Goodbye phase).
func TestWithdrawSendsGoodbyeThenRemoves(t *testing.T) {
	r := newTestResponder(t)
	rec := Record{Name: "printer.local.", Type: TypeA, RData: AData{Addr: net.ParseIP("192.168.1.20")}, TTL: protocol.TTLHostname}
	require.NoError(t, r.Publish(rec, false))

	now := int64(0)
	require.NoError(t, r.Withdraw("printer.local.", TypeA))

	for i := 0; i < int(protocol.GoodbyeCount); i++ {
		msgs := drainOutput(r, now)
		require.Len(t, msgs, 1)
		require.True(t, msgs[0].Header.IsResponse())
		require.Len(t, msgs[0].Answers, 1)
		require.Equal(t, uint32(0), msgs[0].Answers[0].TTL)
		now += protocol.GoodbyeInterval.Milliseconds()
	}

	require.Empty(t, r.store.AllOwnedKeys())
}

// TestShutdownGoodbyesEveryOwnedRecord verifies Shutdown (spec.md §4.5)
// withdraws every owned record, not just one.
func TestShutdownGoodbyesEveryOwnedRecord(t *testing.T) {
	r := newTestResponder(t)
	require.NoError(t, r.Publish(Record{Name: "a.local.", Type: TypeA, RData: AData{Addr: net.ParseIP("10.0.0.1")}, TTL: protocol.TTLHostname}, true))
	require.NoError(t, r.Publish(Record{Name: "b.local.", Type: TypeA, RData: AData{Addr: net.ParseIP("10.0.0.2")}, TTL: protocol.TTLHostname}, true))

	r.Shutdown(0)
	require.Len(t, r.withdrawing, 2)
}
