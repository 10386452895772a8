package arena

import "testing"

func TestInsertGetRemove(t *testing.T) {
	a := New[string]()
	idx := a.Insert("hello")

	got, ok := a.Get(idx)
	if !ok || got != "hello" {
		t.Fatalf("expected hello, got %q ok=%v", got, ok)
	}

	if !a.Remove(idx) {
		t.Fatalf("expected remove to succeed")
	}
	if _, ok := a.Get(idx); ok {
		t.Fatalf("expected removed index to report gone")
	}
}

func TestStaleIndexAfterRecycle(t *testing.T) {
	a := New[int]()
	idx1 := a.Insert(1)
	a.Remove(idx1)
	idx2 := a.Insert(2)

	if _, ok := a.Get(idx1); ok {
		t.Fatalf("stale index must not resolve even after slot recycling")
	}
	got, ok := a.Get(idx2)
	if !ok || got != 2 {
		t.Fatalf("expected fresh index to resolve to 2, got %d ok=%v", got, ok)
	}
}

func TestZeroIndexIsNeverValid(t *testing.T) {
	var zero Index
	if zero.Valid() {
		t.Fatalf("zero Index must be invalid")
	}
	a := New[int]()
	if _, ok := a.Get(zero); ok {
		t.Fatalf("zero Index must never resolve")
	}
}

func TestLenTracksOccupancy(t *testing.T) {
	a := New[int]()
	i1 := a.Insert(1)
	a.Insert(2)
	if a.Len() != 2 {
		t.Fatalf("expected len 2, got %d", a.Len())
	}
	a.Remove(i1)
	if a.Len() != 1 {
		t.Fatalf("expected len 1 after remove, got %d", a.Len())
	}
}
