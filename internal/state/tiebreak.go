package state

import (
	"bytes"

	"github.com/crowlark/beacon/internal/protocol"
)

// Candidate is the minimal data RFC 6762 §8.2's simultaneous-probe
// tiebreaker compares: class, type, and the rendered rdata bytes. Callers
// render rdata once via message.RDataBytes before invoking Tiebreak.
type Candidate struct {
	Class uint16
	Type  protocol.RecordType
	RData []byte
}

// Tiebreak compares two probing records for the same name per RFC 6762
// §8.2: compare class numerically, then type numerically, then rdata
// octet-by-octet; the lexicographically later record wins. It returns a
// negative number if a precedes (loses to) b, zero if they are identical,
// and a positive number if a follows (beats) b.
func Tiebreak(a, b Candidate) int {
	if a.Class != b.Class {
		return int(a.Class) - int(b.Class)
	}
	if a.Type != b.Type {
		return int(a.Type) - int(b.Type)
	}
	return bytes.Compare(a.RData, b.RData)
}
