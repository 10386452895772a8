package message

import (
	"encoding/binary"
	"strings"

	berrors "github.com/crowlark/beacon/internal/errors"
	"github.com/crowlark/beacon/internal/protocol"
)

// nameCompressor tracks, for the packet currently being built, the offset
// at which each fully-qualified name suffix was first written, so later
// occurrences can be replaced by a 2-byte pointer (RFC 1035 §4.1.4).
// Offsets beyond 0x3FFF cannot be expressed as a pointer and are simply
// never recorded as compression candidates.
type nameCompressor struct {
	offsets map[string]int
}

func newNameCompressor() *nameCompressor {
	return &nameCompressor{offsets: make(map[string]int)}
}

func (c *nameCompressor) appendName(buf []byte, name string) ([]byte, error) {
	labels := splitLabels(name)
	if err := validateLabels(name, labels); err != nil {
		return nil, err
	}

	for i := range labels {
		suffix := strings.ToLower(strings.Join(labels[i:], "."))
		if off, ok := c.offsets[suffix]; ok {
			buf = append(buf, byte(protocol.CompressionPointerMask)|byte(off>>8), byte(off))
			return buf, nil
		}
		if len(buf) <= 0x3FFF {
			c.offsets[suffix] = len(buf)
		}
		buf = append(buf, byte(len(labels[i])))
		buf = append(buf, labels[i]...)
	}
	buf = append(buf, 0)
	return buf, nil
}

// Encode serializes msg to wire format with maximum name compression.
// It never fails for well-formed input; if the result still exceeds
// protocol.MaxMessageSize, it returns an *errors.OversizeError and the
// caller is expected to split the answer set across multiple emissions
// (spec.md §4.1 contract).
func Encode(msg *Message) ([]byte, error) {
	buf := make([]byte, 12, 512)
	c := newNameCompressor()

	binary.BigEndian.PutUint16(buf[0:2], msg.Header.ID)
	binary.BigEndian.PutUint16(buf[2:4], msg.Header.Flags)
	binary.BigEndian.PutUint16(buf[4:6], uint16(len(msg.Questions)))
	binary.BigEndian.PutUint16(buf[6:8], uint16(len(msg.Answers)))
	binary.BigEndian.PutUint16(buf[8:10], uint16(len(msg.Authorities)))
	binary.BigEndian.PutUint16(buf[10:12], uint16(len(msg.Additionals)))

	var err error
	for _, q := range msg.Questions {
		buf, err = c.appendName(buf, q.Name)
		if err != nil {
			return nil, err
		}
		buf = binary.BigEndian.AppendUint16(buf, uint16(q.Type))
		buf = binary.BigEndian.AppendUint16(buf, q.Class)
	}

	for _, section := range [][]ResourceRecord{msg.Answers, msg.Authorities, msg.Additionals} {
		for _, rr := range section {
			buf, err = appendRecord(buf, c, rr)
			if err != nil {
				return nil, err
			}
		}
	}

	if len(buf) > protocol.MaxMessageSize {
		return nil, &berrors.OversizeError{Operation: "encode message", Size: len(buf), Limit: protocol.MaxMessageSize}
	}
	return buf, nil
}

func appendRecord(buf []byte, c *nameCompressor, rr ResourceRecord) ([]byte, error) {
	var err error
	buf, err = c.appendName(buf, rr.Name)
	if err != nil {
		return nil, err
	}
	buf = binary.BigEndian.AppendUint16(buf, uint16(rr.Type))
	buf = binary.BigEndian.AppendUint16(buf, rr.Class)
	buf = binary.BigEndian.AppendUint32(buf, rr.TTL)

	lenPos := len(buf)
	buf = binary.BigEndian.AppendUint16(buf, 0) // placeholder RDLENGTH

	rdataStart := len(buf)
	buf, err = appendRData(buf, c, rr.Type, rr.RData)
	if err != nil {
		return nil, err
	}
	rdlen := len(buf) - rdataStart
	binary.BigEndian.PutUint16(buf[lenPos:lenPos+2], uint16(rdlen))
	return buf, nil
}

func appendRData(buf []byte, c *nameCompressor, rt protocol.RecordType, rd RData) ([]byte, error) {
	switch v := rd.(type) {
	case AData:
		ip4 := v.Addr.To4()
		if ip4 == nil {
			return nil, &berrors.ValidationError{Field: "rdata", Value: v.Addr, Message: "A record requires an IPv4 address"}
		}
		return append(buf, ip4...), nil
	case AAAAData:
		ip6 := v.Addr.To16()
		if ip6 == nil {
			return nil, &berrors.ValidationError{Field: "rdata", Value: v.Addr, Message: "AAAA record requires an IPv6 address"}
		}
		return append(buf, ip6...), nil
	case NSData:
		return c.appendName(buf, v.Name)
	case CNAMEData:
		return c.appendName(buf, v.Name)
	case PTRData:
		return c.appendName(buf, v.Name)
	case SRVData:
		buf = binary.BigEndian.AppendUint16(buf, v.Priority)
		buf = binary.BigEndian.AppendUint16(buf, v.Weight)
		buf = binary.BigEndian.AppendUint16(buf, v.Port)
		return c.appendName(buf, v.Target)
	case TXTData:
		if len(v.Pairs) == 0 {
			return append(buf, 0), nil
		}
		for _, s := range v.Pairs {
			if len(s) > 255 {
				return nil, &berrors.ValidationError{Field: "rdata", Value: s, Message: "TXT string exceeds 255 bytes"}
			}
			buf = append(buf, byte(len(s)))
			buf = append(buf, s...)
		}
		return buf, nil
	case RawData:
		return append(buf, v.Data...), nil
	default:
		return nil, &berrors.ValidationError{Field: "rdata", Value: rt, Message: "unknown rdata variant"}
	}
}

// RDataBytes renders rdata to its uncompressed wire representation, used by
// internal/state to compare records octet-by-octet for the RFC 6762 §8.2
// probe tiebreaker and for rdata-equality checks. It never participates in
// a shared compression table, so two calls never reference each other.
func RDataBytes(rt protocol.RecordType, rd RData) ([]byte, error) {
	return appendRData(nil, newNameCompressor(), rt, rd)
}

