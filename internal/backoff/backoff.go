package backoff

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Delay computes the capped exponential delay for the given zero-based
// attempt index: min(max, base*expBase^attempt).
func Delay(base, max time.Duration, expBase float64, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if expBase < 1 {
		expBase = 1
	}
	d := time.Duration(float64(base) * math.Pow(expBase, float64(attempt)))
	if d > max || d <= 0 {
		// d <= 0 guards float overflow at large attempt counts.
		d = max
	}
	return d
}

// FullJitter samples uniformly from [0, d]. Decorrelating retries this way
// avoids synchronized retry storms across independent callers.
func FullJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

// Sleep blocks for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
