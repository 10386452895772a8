package state

import (
	"testing"

	"github.com/crowlark/beacon/internal/protocol"
	"github.com/crowlark/beacon/internal/records"
)

func key(name string) records.Key {
	return records.Key{Name: name, Type: protocol.TypeA}
}

func TestUniqueRecordStartsInProbe(t *testing.T) {
	s := NewScheduler(FixedJitter(0))
	k := key("host.local.")
	s.Start(k, true, 0)

	phase, ok := s.Phase(k)
	if !ok || phase != PhaseProbe {
		t.Fatalf("expected unique record to start in Probe, got %v ok=%v", phase, ok)
	}
}

func TestSharedRecordSkipsProbe(t *testing.T) {
	s := NewScheduler(FixedJitter(0))
	k := key("_ipp._tcp.local.")
	s.Start(k, false, 0)

	phase, ok := s.Phase(k)
	if !ok || phase != PhaseAnnounce {
		t.Fatalf("expected shared record to start in Announce, got %v ok=%v", phase, ok)
	}

	due := s.Due(0)
	if len(due) != 1 || due[0].Phase != PhaseAnnounce || due[0].Attempt != 1 {
		t.Fatalf("expected an immediate Announce(1), got %+v", due)
	}
}

func TestProbeSequenceThenAnnounceThenPublished(t *testing.T) {
	s := NewScheduler(FixedJitter(0))
	k := key("host.local.")
	s.Start(k, true, 0)

	due := s.Due(0)
	if len(due) != 1 || due[0].Phase != PhaseProbe || due[0].Attempt != 1 {
		t.Fatalf("expected Probe(1) at t=0, got %+v", due)
	}

	if due := s.Due(100); len(due) != 0 {
		t.Fatalf("expected no action before the 250ms probe interval, got %+v", due)
	}

	due = s.Due(250)
	if len(due) != 1 || due[0].Attempt != 2 {
		t.Fatalf("expected Probe(2) at t=250, got %+v", due)
	}

	due = s.Due(500)
	if len(due) != 1 || due[0].Attempt != 3 {
		t.Fatalf("expected Probe(3) at t=500, got %+v", due)
	}
	if phase, _ := s.Phase(k); phase != PhaseAnnounce {
		t.Fatalf("expected transition to Announce after 3 probes")
	}

	due = s.Due(500)
	if len(due) != 1 || due[0].Phase != PhaseAnnounce || due[0].Attempt != 1 {
		t.Fatalf("expected immediate Announce(1) after probing completes, got %+v", due)
	}

	if due := s.Due(1000); len(due) != 0 {
		t.Fatalf("expected no action before the 1s announce interval, got %+v", due)
	}

	due = s.Due(1500)
	if len(due) != 1 || due[0].Attempt != 2 {
		t.Fatalf("expected Announce(2) at t=1500, got %+v", due)
	}
	if phase, _ := s.Phase(k); phase != PhasePublished {
		t.Fatalf("expected transition to Published after 2 announcements")
	}

	if due := s.Due(100_000); len(due) != 0 {
		t.Fatalf("expected no further action once Published, got %+v", due)
	}
}

func TestConflictStopsFurtherScheduling(t *testing.T) {
	s := NewScheduler(FixedJitter(0))
	k := key("host.local.")
	s.Start(k, true, 0)
	s.Due(0) // Probe(1) fires

	s.Conflict(k)
	if phase, _ := s.Phase(k); phase != PhaseConflict {
		t.Fatalf("expected Conflict phase")
	}
	if due := s.Due(10_000); len(due) != 0 {
		t.Fatalf("expected no further scheduled actions after conflict, got %+v", due)
	}
}

func TestWithdrawEmitsThreeGoodbyesThenRemoves(t *testing.T) {
	s := NewScheduler(FixedJitter(0))
	k := key("host.local.")
	s.Start(k, true, 0)
	s.Due(0)
	s.Due(250)
	s.Due(500)
	s.Due(500) // Announce(1)
	s.Due(1500) // Announce(2) -> Published

	s.Withdraw(k, 2000)
	due := s.Due(2000)
	if len(due) != 1 || due[0].Phase != PhaseGoodbye || due[0].Attempt != 1 {
		t.Fatalf("expected immediate Goodbye(1) on withdraw, got %+v", due)
	}

	due = s.Due(2250)
	if len(due) != 1 || due[0].Attempt != 2 {
		t.Fatalf("expected Goodbye(2) at t=2250, got %+v", due)
	}

	due = s.Due(2500)
	if len(due) != 1 || due[0].Attempt != 3 {
		t.Fatalf("expected Goodbye(3) at t=2500, got %+v", due)
	}

	if _, ok := s.Phase(k); ok {
		t.Fatalf("expected the key to be fully removed after the third goodbye")
	}
}

func TestWithdrawBeforeFirstAnnounceStillGoodbyes(t *testing.T) {
	s := NewScheduler(FixedJitter(0))
	k := key("_ipp._tcp.local.")
	s.Start(k, false, 0)
	// never drained via Due before withdrawing

	s.Withdraw(k, 10)
	due := s.Due(10)
	if len(due) != 1 || due[0].Phase != PhaseGoodbye {
		t.Fatalf("expected goodbye scheduling even pre-announce, got %+v", due)
	}
}

func TestNextDeadlineTracksEarliestPendingAction(t *testing.T) {
	s := NewScheduler(FixedJitter(0))
	s.Start(key("a.local."), false, 100)
	s.Start(key("b.local."), false, 50)

	next := s.NextDeadline()
	if next == nil || *next != 50 {
		t.Fatalf("expected earliest deadline 50, got %v", next)
	}
}

func TestNextDeadlineNilWhenAllPublished(t *testing.T) {
	s := NewScheduler(FixedJitter(0))
	k := key("_ipp._tcp.local.")
	s.Start(k, false, 0)
	s.Due(0)
	s.Due(1000) // Published

	if next := s.NextDeadline(); next != nil {
		t.Fatalf("expected no pending deadline once published, got %v", *next)
	}
}
