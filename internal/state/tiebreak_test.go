package state

import (
	"testing"

	"github.com/crowlark/beacon/internal/protocol"
)

func TestTiebreakHigherRDataWins(t *testing.T) {
	ours := Candidate{Class: protocol.ClassIN, Type: protocol.TypeA, RData: []byte{192, 0, 2, 5}}
	theirs := Candidate{Class: protocol.ClassIN, Type: protocol.TypeA, RData: []byte{192, 0, 2, 9}}

	if Tiebreak(ours, theirs) >= 0 {
		t.Fatalf("expected ours to lose to the lexicographically greater rdata")
	}
	if Tiebreak(theirs, ours) <= 0 {
		t.Fatalf("expected theirs to win against the lexicographically smaller rdata")
	}
}

func TestTiebreakComparesTypeBeforeRData(t *testing.T) {
	a := Candidate{Class: protocol.ClassIN, Type: protocol.TypeA, RData: []byte{255}}
	b := Candidate{Class: protocol.ClassIN, Type: protocol.TypeAAAA, RData: []byte{0}}

	if Tiebreak(a, b) >= 0 {
		t.Fatalf("expected lower type to precede higher type regardless of rdata")
	}
}

func TestTiebreakIdenticalRecordsCompareEqual(t *testing.T) {
	a := Candidate{Class: protocol.ClassIN, Type: protocol.TypeA, RData: []byte{10, 0, 0, 1}}
	b := Candidate{Class: protocol.ClassIN, Type: protocol.TypeA, RData: []byte{10, 0, 0, 1}}

	if Tiebreak(a, b) != 0 {
		t.Fatalf("expected identical candidates to compare equal")
	}
}
