package query

import (
	"net"
	"testing"

	"github.com/crowlark/beacon/internal/message"
	"github.com/crowlark/beacon/internal/protocol"
	"github.com/crowlark/beacon/internal/records"
)

func aData(ip string) message.RData {
	return message.AData{Addr: net.ParseIP(ip)}
}

func TestRegisterDeliversExistingCacheImmediately(t *testing.T) {
	store := records.NewStore()
	store.PutCached(records.Record{Name: "host.local.", Type: protocol.TypeA, TTL: 120, RData: aData("10.0.0.1")}, false, 0)

	var got []records.Record
	tr := NewTracker()
	tr.Register("host.local.", protocol.TypeA, false, func(r records.Record, removed bool) {
		got = append(got, r)
	}, store, 0)

	if len(got) != 1 {
		t.Fatalf("expected immediate delivery of 1 cached record, got %d", len(got))
	}
}

func TestDeliverDispatchesToMatchingRegistration(t *testing.T) {
	store := records.NewStore()
	var got records.Record
	tr := NewTracker()
	tr.Register("svc.local.", protocol.TypeA, false, func(r records.Record, removed bool) {
		got = r
	}, store, 0)

	rec := records.Record{Name: "svc.local.", Type: protocol.TypeA, TTL: 120, RData: aData("10.0.0.2")}
	tr.Deliver(rec, false)

	if got.Name != "svc.local." {
		t.Fatalf("expected delivery to reach the registered callback, got %+v", got)
	}
}

func TestMonitorModeReceivesRemoval(t *testing.T) {
	store := records.NewStore()
	var removedSeen bool
	tr := NewTracker()
	tr.Register("svc.local.", protocol.TypeA, true, func(r records.Record, removed bool) {
		if removed {
			removedSeen = true
		}
	}, store, 0)

	tr.Deliver(records.Record{Name: "svc.local.", Type: protocol.TypeA}, true)

	if !removedSeen {
		t.Fatalf("expected monitor-mode registration to observe removal")
	}
}

func TestNonMonitorModeIgnoresRemoval(t *testing.T) {
	store := records.NewStore()
	calls := 0
	tr := NewTracker()
	tr.Register("svc.local.", protocol.TypeA, false, func(r records.Record, removed bool) {
		calls++
	}, store, 0)

	tr.Deliver(records.Record{Name: "svc.local.", Type: protocol.TypeA}, true)

	if calls != 0 {
		t.Fatalf("expected non-monitor registration to ignore a removal event, got %d calls", calls)
	}
}

func TestCancelStopsFurtherDelivery(t *testing.T) {
	store := records.NewStore()
	calls := 0
	tr := NewTracker()
	h := tr.Register("svc.local.", protocol.TypeA, false, func(r records.Record, removed bool) {
		calls++
	}, store, 0)

	tr.Cancel(h)
	tr.Deliver(records.Record{Name: "svc.local.", Type: protocol.TypeA}, false)

	if calls != 0 {
		t.Fatalf("expected cancelled registration to receive nothing, got %d calls", calls)
	}
}

func TestCancelStopsReissuanceWhenNoQueriesRemain(t *testing.T) {
	store := records.NewStore()
	tr := NewTracker()
	h := tr.Register("svc.local.", protocol.TypeA, false, func(records.Record, bool) {}, store, 0)
	tr.Cancel(h)

	due := tr.DueQuestions(store, 0)
	if len(due) != 0 {
		t.Fatalf("expected no due questions once the only registrant cancelled, got %d", len(due))
	}
	if tr.NextDeadline() != nil {
		t.Fatalf("expected no pending deadline after cancellation")
	}
}

func TestDueQuestionsFirstSendIsImmediateThenBacksOff(t *testing.T) {
	store := records.NewStore()
	tr := NewTracker()
	tr.Register("svc.local.", protocol.TypePTR, false, func(records.Record, bool) {}, store, 1000)

	due := tr.DueQuestions(store, 1000)
	if len(due) != 1 {
		t.Fatalf("expected an immediate first send, got %d", len(due))
	}

	due = tr.DueQuestions(store, 1000)
	if len(due) != 0 {
		t.Fatalf("expected no second send before the 1s backoff elapses, got %d", len(due))
	}

	due = tr.DueQuestions(store, 2000)
	if len(due) != 1 {
		t.Fatalf("expected the second send after 1s, got %d", len(due))
	}

	due = tr.DueQuestions(store, 3500)
	if len(due) != 0 {
		t.Fatalf("expected no send before the doubled 2s backoff elapses, got %d", len(due))
	}
	due = tr.DueQuestions(store, 4000)
	if len(due) != 1 {
		t.Fatalf("expected the third send after the doubled interval, got %d", len(due))
	}
}

func TestDueQuestionsIncludesKnownAnswers(t *testing.T) {
	store := records.NewStore()
	store.PutCached(records.Record{Name: "svc.local.", Type: protocol.TypePTR, TTL: 120, RData: message.PTRData{Name: "instance.svc.local."}}, false, 0)

	tr := NewTracker()
	tr.Register("svc.local.", protocol.TypePTR, false, func(records.Record, bool) {}, store, 0)

	due := tr.DueQuestions(store, 0)
	if len(due) != 1 || len(due[0].KnownAnswers) != 1 {
		t.Fatalf("expected the cached PTR to be attached as a known answer, got %+v", due)
	}
}

func TestRegisterMergesDuplicateQueriesIntoOneSchedule(t *testing.T) {
	store := records.NewStore()
	tr := NewTracker()
	tr.Register("svc.local.", protocol.TypePTR, false, func(records.Record, bool) {}, store, 0)
	tr.Register("svc.local.", protocol.TypePTR, false, func(records.Record, bool) {}, store, 0)

	due := tr.DueQuestions(store, 0)
	if len(due) != 1 {
		t.Fatalf("expected duplicate registrations to merge into a single outbound question, got %d", len(due))
	}
}
