package responder

import (
	"net"

	"github.com/crowlark/beacon/internal/message"
	"github.com/crowlark/beacon/internal/protocol"
	"github.com/crowlark/beacon/internal/query"
	"github.com/crowlark/beacon/internal/records"
)

// Record is the domain-level resource record spec.md §3 describes. It is
// an alias of internal/records.Record rather than a copy so a Responder's
// callbacks and Publish/Withdraw calls use exactly the same type the
// record store and query tracker already operate on.
type Record = records.Record

// RecordType names a DNS resource record type (spec.md §3).
type RecordType = protocol.RecordType

// Record type constants re-exported for embedders that don't want to
// import internal/protocol directly.
const (
	TypeA     = protocol.TypeA
	TypeNS    = protocol.TypeNS
	TypeCNAME = protocol.TypeCNAME
	TypePTR   = protocol.TypePTR
	TypeTXT   = protocol.TypeTXT
	TypeAAAA  = protocol.TypeAAAA
	TypeSRV   = protocol.TypeSRV
	TypeANY   = protocol.TypeANY
)

// RData variants, re-exported the same way as RecordType.
type (
	AData     = message.AData
	AAAAData  = message.AAAAData
	NSData    = message.NSData
	CNAMEData = message.CNAMEData
	PTRData   = message.PTRData
	TXTData   = message.TXTData
	SRVData   = message.SRVData
	RawData   = message.RawData
)

// Callback is invoked once per record matching a registered query
// (spec.md §4.4). removed is true only for monitor-mode queries whose
// previously-delivered record has gone away.
type Callback func(rec Record, removed bool)

// ConflictCallback is invoked once per detected naming conflict
// (spec.md §4.3), identifying the owned key that lost.
type ConflictCallback func(name string, typ RecordType)

// RecordReceivedCallback is invoked once for every resource record parsed
// out of an inbound message, regardless of whether it matches an active
// query (spec.md §4.5 on_record_received).
type RecordReceivedCallback func(rec Record)

// QueryHandle identifies one registered query, returned by Query and
// consumed by CancelQuery.
type QueryHandle = query.Handle

// OutMessage is one encoded packet the caller must hand to its transport,
// along with its destination: the mDNS multicast group for the
// Responder's address family, or the unicast source of a direct query.
// Dest is never nil.
type OutMessage struct {
	Packet []byte
	Dest   net.Addr
}
