// File: internal/humanoid/pacer.go
// Package humanoid provides the timing primitives that make automated
// browsing read like a person: reading pauses scaled to content length,
// jittered scroll delays, and inter-action cooldowns.
package humanoid

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// maxSleepSlice bounds each individual wait so cancellation is noticed
// promptly even inside a long cooldown.
const maxSleepSlice = time.Second

// Pacer produces human-shaped delays. Safe for concurrent use; the rng
// is guarded because math/rand.Rand instances are not.
type Pacer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPacer creates a pacer. A nil rng gets a time-seeded one, which is
// what production uses; tests pass a fixed-seed rng for determinism.
func NewPacer(rng *rand.Rand) *Pacer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Pacer{rng: rng}
}

// between returns a uniform duration in [min, max].
func (p *Pacer) between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return min + time.Duration(p.rng.Int63n(int64(max-min)))
}

// ReadingPause waits roughly as long as a person takes to read textLen
// characters, noisy around a base rate, clamped to [800ms, 8s].
func (p *Pacer) ReadingPause(ctx context.Context, textLen int) error {
	p.mu.Lock()
	perChar := 28.0 + p.rng.NormFloat64()*6.0 // milliseconds per character
	p.mu.Unlock()

	d := time.Duration(float64(textLen)*perChar) * time.Millisecond
	if d < 800*time.Millisecond {
		d = 800 * time.Millisecond
	}
	if d > 8*time.Second {
		d = 8 * time.Second
	}
	return p.Sleep(ctx, d)
}

// ScrollPause is the short dwell between scroll gestures.
func (p *Pacer) ScrollPause(ctx context.Context) error {
	return p.Sleep(ctx, p.between(600*time.Millisecond, 2200*time.Millisecond))
}

// Cooldown waits a uniform duration in [min, max] after an interaction.
func (p *Pacer) Cooldown(ctx context.Context, min, max time.Duration) error {
	return p.Sleep(ctx, p.between(min, max))
}

// TypingDelay is the pause between keystrokes when composing text.
func (p *Pacer) TypingDelay() time.Duration {
	return p.between(45*time.Millisecond, 160*time.Millisecond)
}

// Sleep waits for d, slicing the wait into short increments so a
// cancelled context interrupts within one second.
func (p *Pacer) Sleep(ctx context.Context, d time.Duration) error {
	for d > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		slice := d
		if slice > maxSleepSlice {
			slice = maxSleepSlice
		}
		timer := time.NewTimer(slice)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		d -= slice
	}
	return ctx.Err()
}
