// Package clock holds the cancellable waits used between attempts, chunks and items.
package clock

import (
	"context"
	"math/rand"
	"time"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper. It returns ctx.Err() if ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Uniform returns a duration drawn from [lo, hi]. It returns lo when hi <= lo.
func Uniform(r func() float64, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(r()*float64(hi-lo))
}

// Float64 is the default random source.
func Float64() float64 { return rand.Float64() }
