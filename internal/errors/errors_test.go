package errors

import (
	"errors"
	"testing"
)

func TestWireFormatErrorUnwrap(t *testing.T) {
	underlying := errors.New("boom")
	e := &WireFormatError{Operation: "parse name", Offset: 12, Message: "bad pointer", Err: underlying}

	if !errors.Is(e, underlying) {
		t.Fatalf("expected errors.Is to find underlying error")
	}
	if got := e.Error(); got == "" {
		t.Fatalf("expected non-empty message")
	}
}

func TestNetworkErrorUnwrap(t *testing.T) {
	underlying := errors.New("refused")
	e := &NetworkError{Operation: "bind", Err: underlying}
	if !errors.Is(e, underlying) {
		t.Fatalf("expected errors.Is to find underlying error")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	e := &ValidationError{Field: "name", Value: "bad..name", Message: "empty label"}
	got := e.Error()
	if got == "" {
		t.Fatalf("expected non-empty message")
	}
}

func TestDuplicateAndNotFoundAreDistinctTypes(t *testing.T) {
	var err1 error = &DuplicateError{Name: "a.local", Type: 1}
	var err2 error = &NotFoundError{Operation: "withdraw", Key: "a.local/1"}

	var dup *DuplicateError
	if !errors.As(err1, &dup) {
		t.Fatalf("expected DuplicateError")
	}
	var nf *NotFoundError
	if !errors.As(err2, &nf) {
		t.Fatalf("expected NotFoundError")
	}
	if errors.As(err1, &nf) {
		t.Fatalf("DuplicateError must not satisfy NotFoundError")
	}
}
