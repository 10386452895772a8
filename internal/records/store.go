package records

import (
	"container/heap"

	"github.com/crowlark/beacon/internal/arena"
	berrors "github.com/crowlark/beacon/internal/errors"
	"github.com/crowlark/beacon/internal/protocol"
)

// Store holds owned and cached records keyed by (name, type), with a
// secondary expiry-time index for O(log n) eviction scanning (spec.md
// §4.2). Indices returned by Publish/Withdraw are arena.Index values —
// stable identifiers that resolve to "gone" once a record is removed,
// rather than raw pointers (spec.md §9).
type Store struct {
	arena  *arena.Arena[entry]
	owned  map[Key][]arena.Index
	cached map[Key][]arena.Index
	expiry expiryHeap
}

// NewStore creates an empty record store.
func NewStore() *Store {
	return &Store{
		arena:  arena.New[entry](),
		owned:  make(map[Key][]arena.Index),
		cached: make(map[Key][]arena.Index),
	}
}

// Publish adds rec to the owned set. A second Publish of the same (name,
// type, rdata, unique) triple is a no-op reported as *errors.DuplicateError
// (spec.md §7, §8 idempotence property). Publishing a unique record whose
// key already holds a different-rdata unique owned record replaces it in
// place, since at most one unique record may occupy a key (spec.md §3).
func (s *Store) Publish(rec Record, nowMs int64) (arena.Index, error) {
	key := rec.Key()
	for _, idx := range s.owned[key] {
		e, _ := s.arena.Get(idx)
		if e.record.Unique == rec.Unique && sameRData(e.record.RData, rec.RData) {
			return idx, &berrors.DuplicateError{Name: rec.Name, Type: uint16(rec.Type)}
		}
	}
	if rec.Unique {
		for i, idx := range s.owned[key] {
			e, ok := s.arena.Get(idx)
			if ok && e.record.Unique {
				e.record = rec
				e.lastUpdateMs = nowMs
				s.arena.Set(idx, e)
				s.owned[key][i] = idx
				return idx, nil
			}
		}
	}
	idx := s.arena.Insert(entry{record: rec, key: key, owned: true, lastUpdateMs: nowMs})
	s.owned[key] = append(s.owned[key], idx)
	return idx, nil
}

// Withdraw returns the owned indices for (name, type) so the scheduler can
// emit goodbye announcements; it does not remove them — call Remove once
// the goodbye sequence completes. Returns *errors.NotFoundError if the key
// holds no owned records (idempotent no-op per spec.md §7).
func (s *Store) Withdraw(name string, typ protocol.RecordType) ([]arena.Index, error) {
	key := Key{Name: canonical(name), Type: typ}
	idxs := s.owned[key]
	if len(idxs) == 0 {
		return nil, &berrors.NotFoundError{Operation: "withdraw", Key: key.Name}
	}
	out := make([]arena.Index, len(idxs))
	copy(out, idxs)
	return out, nil
}

// Remove permanently removes an owned or cached record by its arena index.
func (s *Store) Remove(idx arena.Index) {
	e, ok := s.arena.Get(idx)
	if !ok {
		return
	}
	if e.owned {
		s.owned[e.key] = removeIndex(s.owned[e.key], idx)
		if len(s.owned[e.key]) == 0 {
			delete(s.owned, e.key)
		}
	} else {
		s.cached[e.key] = removeIndex(s.cached[e.key], idx)
		if len(s.cached[e.key]) == 0 {
			delete(s.cached, e.key)
		}
	}
	s.arena.Remove(idx)
}

// Get resolves an arena index to its current record, if still present.
func (s *Store) Get(idx arena.Index) (Record, bool) {
	e, ok := s.arena.Get(idx)
	if !ok {
		return Record{}, false
	}
	return e.record, true
}

// OwnedIndices returns the current owned indices for a key (a defensive
// copy), used by the scheduler to drive per-record publish state.
func (s *Store) OwnedIndices(key Key) []arena.Index {
	idxs := s.owned[key]
	out := make([]arena.Index, len(idxs))
	copy(out, idxs)
	return out
}

// AllOwnedKeys returns every key with at least one owned record, for
// shutdown-time goodbye fan-out.
func (s *Store) AllOwnedKeys() []Key {
	keys := make([]Key, 0, len(s.owned))
	for k := range s.owned {
		keys = append(keys, k)
	}
	return keys
}

// PutCached inserts or refreshes a cached record learned from the network.
// If cacheFlush is set (RFC 6762 §10.2), cached entries for the same key
// whose Unique flag was set and whose last update is older than
// protocol.CacheFlushGraceWindow are evicted first. A TTL of zero means
// the incoming record is itself a goodbye and the matching cached entry
// (if any) is evicted rather than retained.
func (s *Store) PutCached(rec Record, cacheFlush bool, nowMs int64) {
	key := rec.Key()

	if cacheFlush {
		kept := s.cached[key][:0:0]
		for _, idx := range s.cached[key] {
			e, ok := s.arena.Get(idx)
			if !ok {
				continue
			}
			if e.record.Unique && nowMs-e.lastUpdateMs >= protocol.CacheFlushGraceWindow.Milliseconds() {
				s.arena.Remove(idx)
				continue
			}
			kept = append(kept, idx)
		}
		if len(kept) == 0 {
			delete(s.cached, key)
		} else {
			s.cached[key] = kept
		}
	}

	for _, idx := range s.cached[key] {
		e, ok := s.arena.Get(idx)
		if !ok || !sameRData(e.record.RData, rec.RData) {
			continue
		}
		if rec.TTL == 0 {
			s.Remove(idx)
			return
		}
		e.record.TTL = rec.TTL
		e.lastUpdateMs = nowMs
		e.expiresAtMs = nowMs + int64(rec.TTL)*1000
		s.arena.Set(idx, e)
		heap.Push(&s.expiry, expiryItem{idx: idx, dueMs: e.expiresAtMs})
		return
	}

	if rec.TTL == 0 {
		return // goodbye for something we never cached: nothing to do
	}

	e := entry{record: rec, key: key, owned: false, lastUpdateMs: nowMs, expiresAtMs: nowMs + int64(rec.TTL)*1000}
	idx := s.arena.Insert(e)
	s.cached[key] = append(s.cached[key], idx)
	heap.Push(&s.expiry, expiryItem{idx: idx, dueMs: e.expiresAtMs})
}

// Lookup returns owned and cached records matching (name, type) at nowMs,
// expiring due cached entries for the key first. protocol.TypeANY matches
// every type held for name.
func (s *Store) Lookup(name string, typ protocol.RecordType, nowMs int64) []Record {
	canon := canonical(name)

	if typ == protocol.TypeANY {
		var out []Record
		seen := make(map[protocol.RecordType]bool)
		collect := func(m map[Key][]arena.Index) {
			for k := range m {
				if k.Name == canon {
					seen[k.Type] = true
				}
			}
		}
		collect(s.owned)
		collect(s.cached)
		for t := range seen {
			out = append(out, s.Lookup(name, t, nowMs)...)
		}
		return out
	}

	key := Key{Name: canon, Type: typ}
	s.expireKey(key, nowMs)

	var out []Record
	for _, idx := range s.owned[key] {
		if e, ok := s.arena.Get(idx); ok {
			out = append(out, e.record)
		}
	}
	for _, idx := range s.cached[key] {
		e, ok := s.arena.Get(idx)
		if !ok {
			continue
		}
		rec := e.record
		// Cached TTL decreases with wall time (spec.md §3): report what's
		// actually left, not the nominal value last advertised on the wire.
		if remaining := e.expiresAtMs - nowMs; remaining > 0 {
			rec.TTL = uint32((remaining + 999) / 1000)
		} else {
			rec.TTL = 0
		}
		out = append(out, rec)
	}
	return out
}

func (s *Store) expireKey(key Key, nowMs int64) {
	idxs := s.cached[key]
	if len(idxs) == 0 {
		return
	}
	kept := idxs[:0:0]
	for _, idx := range idxs {
		e, ok := s.arena.Get(idx)
		if !ok {
			continue
		}
		if e.expiresAtMs <= nowMs {
			s.arena.Remove(idx)
			continue
		}
		kept = append(kept, idx)
	}
	if len(kept) == 0 {
		delete(s.cached, key)
	} else {
		s.cached[key] = kept
	}
}

// ExpireDue evicts every cached record whose TTL has elapsed by nowMs and
// returns how many were evicted, plus the next future expiry deadline (nil
// if no cached records remain), for the scheduler's Sleep computation.
func (s *Store) ExpireDue(nowMs int64) (evicted int, nextMs *int64) {
	for s.expiry.Len() > 0 {
		top := s.expiry[0]
		e, ok := s.arena.Get(top.idx)
		if !ok || e.owned || e.expiresAtMs != top.dueMs {
			heap.Pop(&s.expiry) // stale heap entry: refreshed, removed, or recycled
			continue
		}
		if top.dueMs > nowMs {
			next := top.dueMs
			return evicted, &next
		}
		heap.Pop(&s.expiry)
		s.Remove(top.idx)
		evicted++
	}
	return evicted, nil
}

func canonical(name string) string {
	return Record{Name: name}.Key().Name
}

func removeIndex(idxs []arena.Index, target arena.Index) []arena.Index {
	out := idxs[:0]
	for _, idx := range idxs {
		if idx != target {
			out = append(out, idx)
		}
	}
	return out
}

// expiryItem is one entry in the expiry min-heap.
type expiryItem struct {
	idx   arena.Index
	dueMs int64
}

type expiryHeap []expiryItem

func (h expiryHeap) Len() int            { return len(h) }
func (h expiryHeap) Less(i, j int) bool  { return h[i].dueMs < h[j].dueMs }
func (h expiryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *expiryHeap) Push(x interface{}) { *h = append(*h, x.(expiryItem)) }
func (h *expiryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
