package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	attempts := 0
	targetAttempts := 3

	err := Retry(context.Background(), 5, 0, func() error {
		attempts++
		if attempts < targetAttempts {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned unexpected error: %v", err)
	}
	if attempts != targetAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, targetAttempts)
	}
}

func TestRetryAllFail(t *testing.T) {
	attempts := 0
	maxAttempts := 3

	err := Retry(context.Background(), maxAttempts, 0, func() error {
		attempts++
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("Retry should return error when all attempts fail")
	}
	if attempts != maxAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, maxAttempts)
	}
}

func TestRetryCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Retry(ctx, 3, time.Minute, func() error {
		attempts++
		return errors.New("transient error")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry returned %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("Retry called fn %d times after cancellation, want 1", attempts)
	}
}

func TestRateLimiterNew(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	if rl == nil {
		t.Fatal("NewRateLimiter returned nil")
	}
}

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(60, 3)
	ctx := context.Background()

	// The bucket starts full, so the burst goes through without blocking.
	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait %d within burst: %v", i, err)
		}
	}

	// Burst spent: the next Wait blocks, so a cancelled context must
	// surface instead of sleeping for the next token.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := rl.Wait(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait after burst returned %v, want context.Canceled", err)
	}
}

func TestReadVersion(t *testing.T) {
	v := ReadVersion()
	if v.Revision == "" {
		t.Error("ReadVersion must report a revision, even outside a checkout")
	}
}

func TestGranularityDuration(t *testing.T) {
	d, err := GranularityDuration("M5")
	if err != nil {
		t.Fatalf("GranularityDuration(M5) returned error: %v", err)
	}
	if d != 5*time.Minute {
		t.Errorf("GranularityDuration(M5) = %v, want 5m", d)
	}

	if _, err := GranularityDuration("W"); err == nil {
		t.Error("GranularityDuration should reject unknown granularity")
	}
}
