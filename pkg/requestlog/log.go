package requestlog

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mockdcore/mockdcore/pkg/expectation"
	"github.com/mockdcore/mockdcore/pkg/matcher"
)

// RetrieveKind selects which projection of a recorded interaction
// `Retrieve` returns.
type RetrieveKind string

const (
	RetrieveRequests            RetrieveKind = "REQUESTS"
	RetrieveResponses           RetrieveKind = "RESPONSES"
	RetrieveRequestResponses    RetrieveKind = "REQUEST_RESPONSES"
	RetrieveRecordedExpectations RetrieveKind = "RECORDED_EXPECTATIONS"
	RetrieveLogMessages         RetrieveKind = "LOG_MESSAGES"
)

// Times is a verification count range; exactly(n) desugars to {n, n}. A nil
// bound means that side of the range is unconstrained; it is tracked
// separately from the zero value so Exactly(0) ("never matched") is
// distinguishable from an unset bound.
type Times struct {
	AtLeast *int
	AtMost  *int
}

// Exactly returns a Times matching precisely n occurrences, including zero.
func Exactly(n int) Times { return Times{AtLeast: &n, AtMost: &n} }

func (t Times) satisfiedBy(n int) bool {
	if t.AtLeast != nil && n < *t.AtLeast {
		return false
	}
	if t.AtMost != nil && n > *t.AtMost {
		return false
	}
	return true
}

// Log is the append-only, FIFO-evicted ring of recorded interactions.
type Log struct {
	mu           sync.Mutex
	entries      []Entry
	capacity     int
	nextSequence int64
}

// New returns an empty Log bounded to capacity entries.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Log{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
	}
}

// Append records interaction, assigning it the next sequence number under
// the same lock that performs FIFO eviction, so sequence is strictly
// increasing and contiguous over the retained window.
func (l *Log) Append(entry Entry) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextSequence++
	entry.Sequence = l.nextSequence
	if entry.ReceivedAt.IsZero() {
		entry.ReceivedAt = time.Now()
	}

	if len(l.entries) >= l.capacity {
		l.entries = l.entries[1:]
	}
	l.entries = append(l.entries, entry)
	return entry.Sequence
}

// Clear empties the log. Sequence numbering continues from where it left
// off, so entries recorded after Clear still have strictly increasing
// sequence values relative to everything ever appended.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make([]Entry, 0, l.capacity)
}

// Reset empties the log and restarts sequence numbering from zero.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make([]Entry, 0, l.capacity)
	l.nextSequence = 0
}

// Count returns the number of entries currently retained.
func (l *Log) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// snapshot returns a copy of the retained entries, oldest first.
func (l *Log) snapshot() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Retrieve returns the entries matching m (nil matches everything),
// oldest first. kind is not applied: every kind returns the same full
// entries, with no per-kind projection.
func (l *Log) Retrieve(m *expectation.RequestMatcher, kind RetrieveKind) []Entry {
	var out []Entry
	for _, e := range l.snapshot() {
		if m != nil && !matcher.Matches(*m, e.Request).Matched {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Verify reports whether the number of retained, non-outer entries whose
// request satisfies m falls within times. On failure it also renders a
// human-readable diff report.
func (l *Log) Verify(m expectation.RequestMatcher, times Times) (ok bool, report string) {
	entries := l.snapshot()
	count := 0
	for _, e := range entries {
		if e.Outer {
			continue
		}
		if matcher.Matches(m, e.Request).Matched {
			count++
		}
	}
	if times.satisfiedBy(count) {
		return true, ""
	}
	return false, renderVerifyMismatch(m, times, count, entries)
}

// VerifySequence reports whether matchers appear in the log, in the given
// order, not necessarily contiguously, ignoring outer entries.
func (l *Log) VerifySequence(matchers []expectation.RequestMatcher) (ok bool, report string) {
	entries := l.snapshot()
	idx := 0
	matchedAt := make([]int64, 0, len(matchers))
	for _, e := range entries {
		if e.Outer || idx >= len(matchers) {
			continue
		}
		if matcher.Matches(matchers[idx], e.Request).Matched {
			matchedAt = append(matchedAt, e.Sequence)
			idx++
		}
	}
	if idx == len(matchers) {
		return true, ""
	}
	return false, renderSequenceMismatch(matchers, idx, entries)
}

func renderVerifyMismatch(m expectation.RequestMatcher, times Times, actual int, entries []Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "expected %s, but matched %d time(s)\n", times.describe(), actual)
	fmt.Fprintf(&b, "matcher: %+v\n", m)
	fmt.Fprintf(&b, "log contains %d entries:\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&b, "  [%d] %s %s -> %d\n", e.Sequence, e.Request.Method, e.Request.Path, e.Response.StatusCode)
	}
	return b.String()
}

func renderSequenceMismatch(matchers []expectation.RequestMatcher, matchedCount int, entries []Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "expected %d matchers in sequence, matched %d before exhausting the log\n", len(matchers), matchedCount)
	fmt.Fprintf(&b, "log contains %d entries:\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&b, "  [%d] %s %s -> %d\n", e.Sequence, e.Request.Method, e.Request.Path, e.Response.StatusCode)
	}
	return b.String()
}

func (t Times) describe() string {
	switch {
	case t.AtLeast != nil && t.AtMost != nil && *t.AtLeast == *t.AtMost:
		return fmt.Sprintf("exactly %d", *t.AtLeast)
	case t.AtLeast != nil && t.AtMost != nil:
		return fmt.Sprintf("between %d and %d", *t.AtLeast, *t.AtMost)
	case t.AtLeast != nil:
		return fmt.Sprintf("at least %d", *t.AtLeast)
	case t.AtMost != nil:
		return fmt.Sprintf("at most %d", *t.AtMost)
	default:
		return "any number of"
	}
}
