package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

func isTransient(err error) bool { return errors.Is(err, errTransient) }

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	v, err := Retry(context.Background(), RetryPolicy{Attempts: 3, InitialBackoff: time.Millisecond}, isTransient,
		func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errTransient
			}
			return "ok", nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" || calls != 3 {
		t.Fatalf("expected ok after 3 calls, got %q after %d", v, calls)
	}
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	errFatal := errors.New("schema mismatch")
	calls := 0
	_, err := Retry(context.Background(), RetryPolicy{Attempts: 5, InitialBackoff: time.Millisecond}, isTransient,
		func(context.Context) (int, error) {
			calls++
			return 0, errFatal
		})
	if !errors.Is(err, errFatal) {
		t.Fatalf("expected original error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), RetryPolicy{Attempts: 3, InitialBackoff: time.Millisecond}, isTransient,
		func(context.Context) (int, error) {
			calls++
			return 0, errTransient
		})
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_SingleAttemptCallsOnce(t *testing.T) {
	calls := 0
	_, _ = Retry(context.Background(), RetryPolicy{Attempts: 1}, isTransient,
		func(context.Context) (int, error) {
			calls++
			return 0, errTransient
		})
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}
