// Package message implements the DNS wire codec: message parse/serialize
// with label compression, per spec.md §4.1. It knows nothing about record
// ownership, TTL bookkeeping, or scheduling — those live in internal/records
// and internal/state. This package only moves bytes to structs and back.
package message

import (
	"net"

	"github.com/crowlark/beacon/internal/protocol"
)

// Header is the 12-byte DNS message header (RFC 1035 §4.1.1).
type Header struct {
	ID      uint16
	Flags   uint16
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// IsQuery reports whether the QR bit is clear.
func (h Header) IsQuery() bool { return h.Flags&protocol.FlagQR == 0 }

// IsResponse reports whether the QR bit is set.
func (h Header) IsResponse() bool { return h.Flags&protocol.FlagQR != 0 }

// Truncated reports whether the TC bit is set.
func (h Header) Truncated() bool { return h.Flags&protocol.FlagTC != 0 }

// Question is a single entry in the question section (RFC 1035 §4.1.2).
type Question struct {
	Name  string
	Type  protocol.RecordType
	Class uint16
}

// RData is the type-specific payload of a resource record. Each concrete
// type below mirrors one of the variants spec.md §3 names; Raw is the
// catch-all for record types beacon does not interpret, which must
// round-trip losslessly.
type RData interface {
	rdata()
}

type AData struct{ Addr net.IP }      // 4-byte IPv4 address
type AAAAData struct{ Addr net.IP }   // 16-byte IPv6 address
type NSData struct{ Name string }     // domain name
type CNAMEData struct{ Name string }  // domain name
type PTRData struct{ Name string }    // domain name
type TXTData struct{ Pairs []string } // sequence of key=value strings

type SRVData struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   string
}

type RawData struct {
	Type protocol.RecordType
	Data []byte
}

func (AData) rdata()     {}
func (AAAAData) rdata()  {}
func (NSData) rdata()    {}
func (CNAMEData) rdata() {}
func (PTRData) rdata()   {}
func (TXTData) rdata()   {}
func (SRVData) rdata()   {}
func (RawData) rdata()   {}

// ResourceRecord is one wire-level answer/authority/additional entry
// (RFC 1035 §4.1.3). Class carries the cache-flush bit as received/sent;
// use CacheFlush/PlainClass to interpret it.
type ResourceRecord struct {
	Name  string
	Type  protocol.RecordType
	Class uint16
	TTL   uint32
	RData RData
}

// CacheFlush reports whether the cache-flush/unique bit is set on the wire
// class field (RFC 6762 §10.2).
func (rr ResourceRecord) CacheFlush() bool {
	return rr.Class&protocol.ClassCacheFlushBit != 0
}

// PlainClass returns the class with the cache-flush bit masked off.
func (rr ResourceRecord) PlainClass() uint16 {
	return rr.Class & protocol.ClassMask
}

// Message is a fully decoded (or to-be-encoded) DNS message.
type Message struct {
	Header      Header
	Questions   []Question
	Answers     []ResourceRecord
	Authorities []ResourceRecord
	Additionals []ResourceRecord
}
