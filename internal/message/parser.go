package message

import (
	"encoding/binary"
	"net"

	berrors "github.com/crowlark/beacon/internal/errors"
	"github.com/crowlark/beacon/internal/protocol"
)

// Decode parses a wire-format DNS message. It never panics on untrusted
// input: any malformed condition (bad pointer, truncated section, invalid
// RDLENGTH) yields a *errors.WireFormatError and a nil message, per
// spec.md §7 ("the engine never panics on untrusted input").
func Decode(buf []byte) (*Message, error) {
	if len(buf) < 12 {
		return nil, &berrors.WireFormatError{Operation: "decode header", Offset: 0, Message: "message shorter than 12-byte header"}
	}

	h := Header{
		ID:      binary.BigEndian.Uint16(buf[0:2]),
		Flags:   binary.BigEndian.Uint16(buf[2:4]),
		QDCount: binary.BigEndian.Uint16(buf[4:6]),
		ANCount: binary.BigEndian.Uint16(buf[6:8]),
		NSCount: binary.BigEndian.Uint16(buf[8:10]),
		ARCount: binary.BigEndian.Uint16(buf[10:12]),
	}

	pos := 12
	msg := &Message{Header: h}

	questions, pos, err := decodeQuestions(buf, pos, int(h.QDCount))
	if err != nil {
		return nil, err
	}
	msg.Questions = questions

	msg.Answers, pos, err = decodeRecords(buf, pos, int(h.ANCount))
	if err != nil {
		return nil, err
	}
	msg.Authorities, pos, err = decodeRecords(buf, pos, int(h.NSCount))
	if err != nil {
		return nil, err
	}
	msg.Additionals, _, err = decodeRecords(buf, pos, int(h.ARCount))
	if err != nil {
		return nil, err
	}

	return msg, nil
}

func decodeQuestions(buf []byte, pos, count int) ([]Question, int, error) {
	if count == 0 {
		return nil, pos, nil
	}
	out := make([]Question, 0, count)
	for i := 0; i < count; i++ {
		name, next, err := decodeName(buf, pos)
		if err != nil {
			return nil, 0, err
		}
		pos = next
		if pos+4 > len(buf) {
			return nil, 0, &berrors.WireFormatError{Operation: "decode question", Offset: pos, Message: "truncated question"}
		}
		out = append(out, Question{
			Name:  name,
			Type:  protocol.RecordType(binary.BigEndian.Uint16(buf[pos : pos+2])),
			Class: binary.BigEndian.Uint16(buf[pos+2 : pos+4]),
		})
		pos += 4
	}
	return out, pos, nil
}

func decodeRecords(buf []byte, pos, count int) ([]ResourceRecord, int, error) {
	if count == 0 {
		return nil, pos, nil
	}
	out := make([]ResourceRecord, 0, count)
	for i := 0; i < count; i++ {
		name, next, err := decodeName(buf, pos)
		if err != nil {
			return nil, 0, err
		}
		pos = next
		if pos+10 > len(buf) {
			return nil, 0, &berrors.WireFormatError{Operation: "decode record", Offset: pos, Message: "truncated record header"}
		}
		rt := protocol.RecordType(binary.BigEndian.Uint16(buf[pos : pos+2]))
		class := binary.BigEndian.Uint16(buf[pos+2 : pos+4])
		ttl := binary.BigEndian.Uint32(buf[pos+4 : pos+8])
		rdlen := int(binary.BigEndian.Uint16(buf[pos+8 : pos+10]))
		pos += 10

		if pos+rdlen > len(buf) {
			return nil, 0, &berrors.WireFormatError{Operation: "decode record", Offset: pos, Message: "RDLENGTH exceeds message bounds"}
		}
		rdataEnd := pos + rdlen

		rdata, err := decodeRData(buf, pos, rdataEnd, rt)
		if err != nil {
			return nil, 0, err
		}

		out = append(out, ResourceRecord{Name: name, Type: rt, Class: class, TTL: ttl, RData: rdata})
		pos = rdataEnd
	}
	return out, pos, nil
}

func decodeRData(buf []byte, start, end int, rt protocol.RecordType) (RData, error) {
	raw := buf[start:end]
	switch rt {
	case protocol.TypeA:
		if len(raw) != 4 {
			return nil, &berrors.WireFormatError{Operation: "decode A rdata", Offset: start, Message: "A record rdata must be 4 bytes"}
		}
		return AData{Addr: net.IP(append([]byte(nil), raw...))}, nil
	case protocol.TypeAAAA:
		if len(raw) != 16 {
			return nil, &berrors.WireFormatError{Operation: "decode AAAA rdata", Offset: start, Message: "AAAA record rdata must be 16 bytes"}
		}
		return AAAAData{Addr: net.IP(append([]byte(nil), raw...))}, nil
	case protocol.TypeNS:
		name, _, err := decodeName(buf, start)
		if err != nil {
			return nil, err
		}
		return NSData{Name: name}, nil
	case protocol.TypeCNAME:
		name, _, err := decodeName(buf, start)
		if err != nil {
			return nil, err
		}
		return CNAMEData{Name: name}, nil
	case protocol.TypePTR:
		name, _, err := decodeName(buf, start)
		if err != nil {
			return nil, err
		}
		return PTRData{Name: name}, nil
	case protocol.TypeSRV:
		if len(raw) < 6 {
			return nil, &berrors.WireFormatError{Operation: "decode SRV rdata", Offset: start, Message: "truncated SRV rdata"}
		}
		target, _, err := decodeName(buf, start+6)
		if err != nil {
			return nil, err
		}
		return SRVData{
			Priority: binary.BigEndian.Uint16(raw[0:2]),
			Weight:   binary.BigEndian.Uint16(raw[2:4]),
			Port:     binary.BigEndian.Uint16(raw[4:6]),
			Target:   target,
		}, nil
	case protocol.TypeTXT:
		pairs, err := decodeTXT(raw)
		if err != nil {
			return nil, err
		}
		return TXTData{Pairs: pairs}, nil
	default:
		return RawData{Type: rt, Data: append([]byte(nil), raw...)}, nil
	}
}

func decodeTXT(raw []byte) ([]string, error) {
	var pairs []string
	pos := 0
	for pos < len(raw) {
		n := int(raw[pos])
		pos++
		if pos+n > len(raw) {
			return nil, &berrors.WireFormatError{Operation: "decode TXT rdata", Offset: pos, Message: "truncated TXT string"}
		}
		if n > 0 {
			pairs = append(pairs, string(raw[pos:pos+n]))
		}
		pos += n
	}
	return pairs, nil
}
