// Package errors defines the error kinds the beacon engine surfaces to its
// embedder, per §7 of the engine's design: malformed input is reported and
// dropped, never panicked on; conflicts, duplicates, and missing keys are
// distinguishable by type so the caller can react without string matching.
package errors

import (
	"fmt"
)

// NetworkError represents network-related failures such as socket creation,
// binding, or I/O operations. The core engine performs no I/O itself; this
// type is for the transport/network collaborator packages the embedder
// uses to drive it.
type NetworkError struct {
	// Operation describes what network operation failed (e.g., "bind socket", "send query")
	Operation string

	// Err is the underlying error from the network stack
	Err error

	// Details provides additional context for troubleshooting
	Details string
}

func (e *NetworkError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("network error during %s: %v (%s)", e.Operation, e.Err, e.Details)
	}
	return fmt.Sprintf("network error during %s: %v", e.Operation, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ValidationError represents validation failures for caller inputs: an
// invalid name, an unsupported record type, an out-of-range parameter.
type ValidationError struct {
	// Field identifies which input field failed validation (e.g., "name", "type")
	Field string

	// Value is the invalid value that was provided (if safe to include)
	Value interface{}

	// Message describes why the validation failed
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

// WireFormatError represents a decode failure: a bad compression pointer,
// a truncated label, an oversize name, or any other malformed-packet
// condition from spec.md §4.1/§7. The caller drops the packet and
// continues; it is never a reason to panic.
type WireFormatError struct {
	// Operation describes what parsing operation failed (e.g., "parse header", "decompress name")
	Operation string

	// Offset indicates the byte offset in the message where the error occurred (if known)
	Offset int

	// Message describes why the wire format is invalid
	Message string

	// Err is the underlying error (if any)
	Err error
}

func (e *WireFormatError) Error() string {
	if e.Offset >= 0 {
		if e.Err != nil {
			return fmt.Sprintf("malformed packet during %s at offset %d: %s (underlying: %v)", e.Operation, e.Offset, e.Message, e.Err)
		}
		return fmt.Sprintf("malformed packet during %s at offset %d: %s", e.Operation, e.Offset, e.Message)
	}

	if e.Err != nil {
		return fmt.Sprintf("malformed packet during %s: %s (underlying: %v)", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("malformed packet during %s: %s", e.Operation, e.Message)
}

func (e *WireFormatError) Unwrap() error {
	return e.Err
}

// OversizeError reports that a message could not be encoded within the
// wire size limit even with maximum name compression. The caller splits
// the answer set across multiple emissions and sets TC on every partial
// message but the last.
type OversizeError struct {
	Operation string
	Size      int
	Limit     int
}

func (e *OversizeError) Error() string {
	return fmt.Sprintf("%s: encoded size %d exceeds limit %d bytes", e.Operation, e.Size, e.Limit)
}

// ConflictError reports that a uniquely-owned record collided with an
// answer observed on the wire, during probing or after publication.
type ConflictError struct {
	Name string
	Type uint16
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict for (%s, type %d)", e.Name, e.Type)
}

// DuplicateError reports that Publish was called again for an
// already-published (name, type, rdata) triple. It is idempotent: the
// caller treats it as a no-op, not a failure.
type DuplicateError struct {
	Name string
	Type uint16
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate publish for (%s, type %d)", e.Name, e.Type)
}

// NotFoundError reports Withdraw or CancelQuery against an unknown key or
// handle. It is idempotent: the caller treats it as a no-op, not a failure.
type NotFoundError struct {
	Operation string
	Key       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: not found: %s", e.Operation, e.Key)
}
