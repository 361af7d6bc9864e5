// Package strings provides string-set helpers for the aggregation passes.
package strings

import "strings"

// Set accumulates distinct non-empty strings in insertion order. The
// Directory treats attribute lists as sets, but keeping first-seen order makes
// aggregation output reproducible run to run.
type Set struct {
	seen   map[string]struct{}
	values []string
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Add trims v and records it unless it is empty or already present.
func (s *Set) Add(v string) {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return
	}
	if _, ok := s.seen[trimmed]; ok {
		return
	}
	s.seen[trimmed] = struct{}{}
	s.values = append(s.values, trimmed)
}

// Values returns the accumulated values in insertion order. The returned
// slice is a copy; never nil, so empty sets serialize as [].
func (s *Set) Values() []string {
	out := make([]string, 0, len(s.values))
	return append(out, s.values...)
}

// Len reports the number of distinct values.
func (s *Set) Len() int {
	return len(s.values)
}

// DedupeAndTrim removes duplicates and empty strings from a slice, trimming
// whitespace from each element. Order is preserved.
func DedupeAndTrim(values []string) []string {
	s := NewSet()
	for _, v := range values {
		s.Add(v)
	}
	return s.Values()
}
