// File: internal/humanoid/pacer_test.go
package humanoid

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacerBetween(t *testing.T) {
	p := NewPacer(rand.New(rand.NewSource(1)))

	for i := 0; i < 1000; i++ {
		d := p.between(100*time.Millisecond, 300*time.Millisecond)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}

	// Degenerate range collapses to min.
	assert.Equal(t, time.Second, p.between(time.Second, time.Second))
	assert.Equal(t, time.Second, p.between(time.Second, time.Millisecond))
}

func TestPacerSleepCancellation(t *testing.T) {
	p := NewPacer(rand.New(rand.NewSource(1)))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := p.Sleep(ctx, 10*time.Second)
	require.Error(t, err)
	// Cancellation must interrupt the wait promptly, far below the full duration.
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPacerSleepAlreadyCancelled(t *testing.T) {
	p := NewPacer(rand.New(rand.NewSource(1)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, p.Sleep(ctx, time.Second))
}

func TestTypingDelayRange(t *testing.T) {
	p := NewPacer(rand.New(rand.NewSource(7)))
	for i := 0; i < 200; i++ {
		d := p.TypingDelay()
		assert.GreaterOrEqual(t, d, 45*time.Millisecond)
		assert.LessOrEqual(t, d, 160*time.Millisecond)
	}
}
