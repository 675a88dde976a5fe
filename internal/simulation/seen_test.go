// File: internal/simulation/seen_test.go
package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeenSet(t *testing.T) {
	s := NewSeenSet()

	assert.False(t, s.Contains("hello world"))
	assert.True(t, s.Mark("hello world"))
	assert.True(t, s.Contains("hello world"))

	// Re-marking is idempotent.
	assert.False(t, s.Mark("hello world"))
	assert.Equal(t, 1, s.Len())
}

func TestSeenSetNormalization(t *testing.T) {
	s := NewSeenSet()
	s.Mark("Hello   World")

	// Case and whitespace differences still hit the same entry.
	assert.True(t, s.Contains("hello world"))
	assert.True(t, s.Contains("  HELLO\tWORLD  "))
	assert.False(t, s.Contains("hello worlds"))
}

func TestSeenSetDistinctEntries(t *testing.T) {
	s := NewSeenSet()
	for _, text := range []string{"first post", "second post", "third post"} {
		assert.True(t, s.Mark(text))
	}
	assert.Equal(t, 3, s.Len())
}
