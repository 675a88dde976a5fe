// File: internal/simulation/seen.go
package simulation

import (
	"hash/fnv"
	"strings"
)

// SeenSet tracks which posts a session has already considered, keyed by a
// hash of normalized post text so the same post re-rendered with a
// different DOM identity is still recognized.
type SeenSet struct {
	seen map[uint64]struct{}
}

// NewSeenSet creates an empty set.
func NewSeenSet() *SeenSet {
	return &SeenSet{seen: make(map[uint64]struct{})}
}

// hashText normalizes the text (lowercase, collapsed whitespace) and
// hashes it with FNV-64a.
func hashText(text string) uint64 {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	h := fnv.New64a()
	h.Write([]byte(normalized))
	return h.Sum64()
}

// Mark records the text as seen and reports whether it was new.
func (s *SeenSet) Mark(text string) bool {
	key := hashText(text)
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Contains reports whether the text was marked before.
func (s *SeenSet) Contains(text string) bool {
	_, ok := s.seen[hashText(text)]
	return ok
}

// Len returns the number of distinct posts seen.
func (s *SeenSet) Len() int {
	return len(s.seen)
}
