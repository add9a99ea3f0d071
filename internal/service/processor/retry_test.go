package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deliverysystem/dts/internal/domain"
)

func fastRetryConfig(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:   maxAttempts,
		InitialDelay:  0,
		MaxDelay:      0,
		BackoffFactor: 2.0,
	}
}

func TestRetryTransient_SucceedsAfterTransientErrors(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retryTransient(context.Background(), fastRetryConfig(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryTransient_PermanentErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retryTransient(context.Background(), fastRetryConfig(5), func() error {
		calls++
		return domain.ErrOrderNotFound
	})

	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", calls)
	}
}

func TestRetryTransient_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	transient := errors.New("db down")
	calls := 0
	err := retryTransient(context.Background(), fastRetryConfig(3), func() error {
		calls++
		return transient
	})

	if !errors.Is(err, transient) {
		t.Fatalf("expected last transient error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryTransient_CanceledContextStopsRetries(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: time.Minute, BackoffFactor: 2.0}
	calls := 0
	err := retryTransient(ctx, cfg, func() error {
		calls++
		return errors.New("transient")
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", calls)
	}
}
