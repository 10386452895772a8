package message

import (
	"strings"

	berrors "github.com/crowlark/beacon/internal/errors"
	"github.com/crowlark/beacon/internal/protocol"
)

// decodeName parses a DNS name starting at offset within the full message
// buffer, following compression pointers per RFC 1035 §4.1.4. It returns
// the dotted name, the offset immediately following the name as it
// appeared on the wire (before any pointer jump), and an error for any of
// the malformed-packet conditions spec.md §4.1 enumerates:
//
//   - a pointer that points at or beyond its own position
//   - a pointer chain exceeding MaxCompressionPointers hops
//   - a decompressed name exceeding MaxNameLength bytes
//   - a label length byte with reserved top bits (10 or 01)
func decodeName(buf []byte, offset int) (name string, next int, err error) {
	if offset < 0 || offset >= len(buf) {
		return "", 0, &berrors.WireFormatError{Operation: "decode name", Offset: offset, Message: "offset out of bounds"}
	}

	var labels []string
	pos := offset
	jumps := 0
	jumped := false
	next = offset

loop:
	for {
		if pos >= len(buf) {
			return "", 0, &berrors.WireFormatError{Operation: "decode name", Offset: pos, Message: "truncated name"}
		}
		length := buf[pos]

		switch length & 0xC0 {
		case 0xC0: // compression pointer
			if pos+1 >= len(buf) {
				return "", 0, &berrors.WireFormatError{Operation: "decode name", Offset: pos, Message: "truncated compression pointer"}
			}
			ptr := int(length&0x3F)<<8 | int(buf[pos+1])
			if ptr >= pos {
				return "", 0, &berrors.WireFormatError{Operation: "decode name", Offset: pos, Message: "compression pointer does not point backwards"}
			}
			if !jumped {
				next = pos + 2
				jumped = true
			}
			jumps++
			if jumps > protocol.MaxCompressionPointers {
				return "", 0, &berrors.WireFormatError{Operation: "decode name", Offset: pos, Message: "compression pointer chain too long"}
			}
			pos = ptr
			continue
		case 0x80, 0x40: // reserved label length prefixes (RFC 1035 §4.1.4)
			return "", 0, &berrors.WireFormatError{Operation: "decode name", Offset: pos, Message: "reserved label length bits"}
		}

		if length == 0 {
			if !jumped {
				next = pos + 1
			}
			break loop
		}

		if int(length) > protocol.MaxLabelLength {
			return "", 0, &berrors.WireFormatError{Operation: "decode name", Offset: pos, Message: "label exceeds 63 bytes"}
		}
		if pos+1+int(length) > len(buf) {
			return "", 0, &berrors.WireFormatError{Operation: "decode name", Offset: pos, Message: "truncated label"}
		}
		labels = append(labels, string(buf[pos+1:pos+1+int(length)]))
		pos += 1 + int(length)

		// Guard against unbounded label accumulation from a crafted buffer
		// even when no single label or pointer rule was individually violated.
		if wireLen(labels) > protocol.MaxNameLength {
			return "", 0, &berrors.WireFormatError{Operation: "decode name", Offset: offset, Message: "name exceeds 255 bytes"}
		}
	}

	name = strings.Join(labels, ".")
	if wireLen(labels) > protocol.MaxNameLength {
		return "", 0, &berrors.WireFormatError{Operation: "decode name", Offset: offset, Message: "name exceeds 255 bytes"}
	}
	return name, next, nil
}

// wireLen is the wire-format length (length-prefixed labels, plus the
// terminating zero byte) a set of labels would occupy uncompressed.
func wireLen(labels []string) int {
	n := 1
	for _, l := range labels {
		n += 1 + len(l)
	}
	return n
}

func splitLabels(name string) []string {
	name = strings.TrimSuffix(name, ".")
	if name == "" {
		return nil
	}
	return strings.Split(name, ".")
}

// validateLabels checks label length and total wire length without
// touching character sets — mDNS service names legitimately contain
// characters (spaces, UTF-8) that strict RFC 1035 hostnames forbid, so
// beacon does not reject on character class, only on length.
func validateLabels(name string, labels []string) error {
	if wireLen(labels) > protocol.MaxNameLength {
		return &berrors.ValidationError{Field: "name", Value: name, Message: "name exceeds 255 bytes on the wire"}
	}
	for _, l := range labels {
		if len(l) == 0 {
			return &berrors.ValidationError{Field: "name", Value: name, Message: "empty label (consecutive dots)"}
		}
		if len(l) > protocol.MaxLabelLength {
			return &berrors.ValidationError{Field: "name", Value: name, Message: "label exceeds 63 bytes"}
		}
	}
	return nil
}

// EqualNames compares two DNS names case-insensitively per spec.md §3.
func EqualNames(a, b string) bool {
	return strings.EqualFold(strings.TrimSuffix(a, "."), strings.TrimSuffix(b, "."))
}

// CanonicalName lowercases a name for use as a record-store key; the
// original casing is preserved in the record itself for wire output.
func CanonicalName(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, "."))
}
