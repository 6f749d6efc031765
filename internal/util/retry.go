package util

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Retry calls fn up to maxAttempts times with exponential backoff starting
// at baseDelay, plus up to half a step of jitter so concurrent fetchers do
// not resynchronize against the venue's rate window. It returns nil on the
// first successful call, or the last error once the attempts are exhausted.
// Cancellation is honored between attempts.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	delay := baseDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		wait := delay
		if half := delay / 2; half > 0 {
			wait += rand.N(half)
		}
		slog.Debug("retrying after error",
			"attempt", attempt, "max_attempts", maxAttempts, "wait", wait, "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
	}

	return err
}
