// Package expectationstore holds the live set of registered expectations.
// Readers (the matcher, on every inbound request) never block behind
// writers (register/clear/reset): the store keeps its set behind a single
// atomic pointer to an immutable, insertion-ordered slice and replaces that
// pointer under a write mutex, copy-on-write.
package expectationstore

import (
	"sync"
	"sync/atomic"

	"github.com/mockdcore/mockdcore/internal/id"
	"github.com/mockdcore/mockdcore/pkg/expectation"
)

// Store is the thread-safe set of registered expectations, ordered by
// priority index (insertion order; lower registers first).
type Store struct {
	mu           sync.Mutex // serializes writers only
	current      atomic.Pointer[[]expectation.Expectation]
	nextPriority int64
}

// New returns an empty Store.
func New() *Store {
	s := &Store{}
	empty := make([]expectation.Expectation, 0)
	s.current.Store(&empty)
	return s
}

// Add registers exp, assigning it an ID (if unset) and a priority index
// one past the last one assigned (Clear does not restart this count).
// Returns the stored copy.
func (s *Store) Add(exp expectation.Expectation) expectation.Expectation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exp.ID == "" {
		exp.ID = id.UUID()
	}
	exp.PriorityIndex = s.nextPriority
	s.nextPriority++

	old := *s.current.Load()
	next := make([]expectation.Expectation, len(old), len(old)+1)
	copy(next, old)
	next = append(next, exp)
	s.current.Store(&next)
	return exp
}

// Snapshot returns the current insertion-ordered slice. The returned slice
// is never mutated in place; callers may iterate it without holding a lock
// or copying it further.
func (s *Store) Snapshot() []expectation.Expectation {
	return *s.current.Load()
}

// Get returns the expectation with the given ID, if still registered.
func (s *Store) Get(id string) (expectation.Expectation, bool) {
	for _, e := range s.Snapshot() {
		if e.ID == id {
			return e, true
		}
	}
	return expectation.Expectation{}, false
}

// Remove deregisters the expectation with the given ID. Reports whether an
// entry was removed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := *s.current.Load()
	next := make([]expectation.Expectation, 0, len(old))
	removed := false
	for _, e := range old {
		if e.ID == id {
			removed = true
			continue
		}
		next = append(next, e)
	}
	if removed {
		s.current.Store(&next)
	}
	return removed
}

// Clear deregisters every expectation, leaving priority indexing untouched
// so that expectations registered afterward keep strictly increasing
// indices.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	empty := make([]expectation.Expectation, 0)
	s.current.Store(&empty)
}

// Reset deregisters every expectation and restarts priority indexing from
// zero, for the management reset operation.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	empty := make([]expectation.Expectation, 0)
	s.current.Store(&empty)
	s.nextPriority = 0
}

// DecrementOrRetire consumes one use of the expectation with the given ID.
// If its remaining uses are unlimited, this is a no-op. If bounded, the
// count is decremented; once it reaches zero the expectation is removed
// from the set. Reports whether the expectation was found and whether this
// call retired it.
func (s *Store) DecrementOrRetire(expID string) (found, retired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := *s.current.Load()
	next := make([]expectation.Expectation, 0, len(old))
	for _, e := range old {
		if e.ID != expID {
			next = append(next, e)
			continue
		}
		found = true
		if e.RemainingUses.Unlimited {
			next = append(next, e)
			continue
		}
		e.RemainingUses.Count--
		if e.RemainingUses.Count <= 0 {
			retired = true
			continue // dropped from next: retired
		}
		next = append(next, e)
	}
	if found {
		s.current.Store(&next)
	}
	return found, retired
}

// Len reports the number of currently registered expectations.
func (s *Store) Len() int {
	return len(s.Snapshot())
}
