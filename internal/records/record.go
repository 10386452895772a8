// Package records implements the record store: owned and cached resource
// records indexed by (name, type), with TTL tracking and the RFC 6762
// §10.2 cache-flush rule, per spec.md §4.2. It is clock-agnostic — every
// operation that cares about time takes an explicit monotonic millisecond
// "now" from the caller, so the store itself never calls time.Now.
package records

import (
	"reflect"

	"github.com/crowlark/beacon/internal/message"
	"github.com/crowlark/beacon/internal/protocol"
)

// Key identifies a record slot: lowercased name plus type. ANY is never a
// storage key — it is a lookup-time wildcard expanded by Lookup.
type Key struct {
	Name string
	Type protocol.RecordType
}

// Record is the domain-level resource record spec.md §3 describes: either
// owned (published by this responder) or learned from the network.
type Record struct {
	Name   string // original casing, as published or received
	Type   protocol.RecordType
	Class  uint16 // always protocol.ClassIN
	TTL    uint32 // nominal TTL in seconds, as published/received
	Unique bool
	RData  message.RData
}

// Key returns the storage key for r.
func (r Record) Key() Key {
	return Key{Name: message.CanonicalName(r.Name), Type: r.Type}
}

func sameRData(a, b message.RData) bool {
	return reflect.DeepEqual(a, b)
}

// entry is the arena payload: a record plus the bookkeeping the store needs
// to expire cached entries and clean up index maps on removal.
type entry struct {
	record       Record
	key          Key
	owned        bool
	lastUpdateMs int64 // cached: last refresh time: owned: publish time
	expiresAtMs  int64 // cached only; meaningless for owned entries
}
