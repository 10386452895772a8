// Package arena provides a generation-tagged slot arena, per spec.md §9's
// design note on cyclic references between records, the query tracker, and
// the scheduler: those components hold indices, not pointers, so a record's
// removal cannot leave a dangling reference for something else to
// dereference. A stale index simply resolves to "gone".
package arena

// Index identifies a slot within an Arena. The zero Index is never valid
// (Gen starts at 1 on first use of a slot), so a zero-valued Index field
// safely means "unset".
type Index struct {
	slot uint32
	gen  uint32
}

// Valid reports whether idx was ever issued by an Arena.
func (idx Index) Valid() bool { return idx.gen != 0 }

type entry[T any] struct {
	value    T
	gen      uint32
	occupied bool
}

// Arena is a stable-identity store: Insert returns an Index that remains
// valid (though its Get may report "gone" after Remove) for the lifetime of
// the program, never reused in a way that lets an old Index alias a new
// value.
type Arena[T any] struct {
	entries []entry[T]
	free    []uint32
}

// New creates an empty arena.
func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Insert stores v and returns a stable Index for it.
func (a *Arena[T]) Insert(v T) Index {
	if n := len(a.free); n > 0 {
		slot := a.free[n-1]
		a.free = a.free[:n-1]
		e := &a.entries[slot]
		e.value = v
		e.occupied = true
		return Index{slot: slot, gen: e.gen}
	}
	slot := uint32(len(a.entries))
	a.entries = append(a.entries, entry[T]{value: v, gen: 1, occupied: true})
	return Index{slot: slot, gen: 1}
}

// Get returns the value at idx and whether it is still present.
func (a *Arena[T]) Get(idx Index) (T, bool) {
	var zero T
	if !idx.Valid() || int(idx.slot) >= len(a.entries) {
		return zero, false
	}
	e := &a.entries[idx.slot]
	if !e.occupied || e.gen != idx.gen {
		return zero, false
	}
	return e.value, true
}

// Set replaces the value at idx in place, returning false if idx is stale.
func (a *Arena[T]) Set(idx Index, v T) bool {
	if !idx.Valid() || int(idx.slot) >= len(a.entries) {
		return false
	}
	e := &a.entries[idx.slot]
	if !e.occupied || e.gen != idx.gen {
		return false
	}
	e.value = v
	return true
}

// Remove invalidates idx. Future Get/Set calls with this Index (or any copy
// of it) report "gone"; the slot is recycled for a future Insert under a
// new generation.
func (a *Arena[T]) Remove(idx Index) bool {
	if !idx.Valid() || int(idx.slot) >= len(a.entries) {
		return false
	}
	e := &a.entries[idx.slot]
	if !e.occupied || e.gen != idx.gen {
		return false
	}
	var zero T
	e.value = zero
	e.occupied = false
	e.gen++
	a.free = append(a.free, idx.slot)
	return true
}

// Len returns the number of currently occupied slots.
func (a *Arena[T]) Len() int {
	return len(a.entries) - len(a.free)
}
