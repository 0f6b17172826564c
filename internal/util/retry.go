// ABOUTME: Retry with exponential backoff for calls to the sync server
// ABOUTME: Jittered delays, a 30s cap and context cancellation between attempts
package util

import (
	"context"
	"math/rand/v2"
	"time"
)

// MaxBackoff caps a single delay before jitter.
const MaxBackoff = 30 * time.Second

// CalculateBackoff returns base * 2^attempt capped at MaxBackoff, with
// jitter of up to 25% either way. Attempts below 1 wait nothing.
func CalculateBackoff(baseDelay time.Duration, attempt int) time.Duration {
	if attempt <= 0 || baseDelay <= 0 {
		return 0
	}
	// 1<<30 already exceeds the cap for any sane base
	if attempt > 30 {
		attempt = 30
	}
	backoff := baseDelay * time.Duration(1<<uint(attempt))
	if backoff > MaxBackoff || backoff <= 0 {
		backoff = MaxBackoff
	}
	jitter := time.Duration(rand.Int64N(int64(backoff)/2+1)) - backoff/4
	return backoff + jitter
}

// Retry calls fn up to attempts times, sleeping CalculateBackoff between
// failures. It returns nil on the first success, the context error if ctx
// ends while waiting, or the last error from fn.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(CalculateBackoff(baseDelay, attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
