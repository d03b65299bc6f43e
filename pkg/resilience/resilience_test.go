package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func fastRetryConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "flaky", fastRetryConfig(5), func() error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "doomed", fastRetryConfig(3), func() error {
		calls++
		return errBoom
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if !errors.Is(err, errBoom) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryAbortsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, "cancelled", fastRetryConfig(5), func() error {
		calls++
		return errBoom
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single attempt before the abort, got %d", calls)
	}
}

func TestCircuitBreakerTripsAndRecovers(t *testing.T) {
	var transitions []State
	cb := NewCircuitBreaker("store", CircuitBreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     25 * time.Millisecond,
		OnStateChange: func(name string, state State) {
			transitions = append(transitions, state)
		},
	})

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("failure %d: expected errBoom, got %v", i, err)
		}
	}
	if got := cb.GetState(); got != StateOpen {
		t.Fatalf("expected open after %d failures, got %v", 3, got)
	}

	calls := 0
	err := cb.Execute(func() error { calls++; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen while open, got %v", err)
	}
	if calls != 0 {
		t.Error("open circuit must not invoke the function")
	}

	time.Sleep(30 * time.Millisecond)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("half-open probe should pass through: %v", err)
	}
	if got := cb.GetState(); got != StateClosed {
		t.Fatalf("expected closed after successful probe, got %v", got)
	}

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, transitions)
	}
	for i, s := range want {
		if transitions[i] != s {
			t.Errorf("transition %d: expected %v, got %v", i, s, transitions[i])
		}
	}
}

func TestCircuitBreakerReopensOnFailedProbe(t *testing.T) {
	cb := NewCircuitBreaker("store", CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     20 * time.Millisecond,
	})

	if err := cb.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	if got := cb.GetState(); got != StateOpen {
		t.Fatalf("expected open, got %v", got)
	}

	time.Sleep(25 * time.Millisecond)
	if err := cb.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
		t.Fatalf("probe should run and fail: %v", err)
	}
	if got := cb.GetState(); got != StateOpen {
		t.Errorf("expected re-open after failed probe, got %v", got)
	}
}

func TestCircuitBreakerReset(t *testing.T) {
	cb := NewCircuitBreaker("store", CircuitBreakerConfig{FailureThreshold: 1})

	cb.Execute(func() error { return errBoom })
	if got := cb.GetState(); got != StateOpen {
		t.Fatalf("expected open, got %v", got)
	}

	cb.Reset()
	if got := cb.GetState(); got != StateClosed {
		t.Fatalf("expected closed after reset, got %v", got)
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Errorf("reset breaker should execute: %v", err)
	}
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 50*time.Millisecond, "fast", func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("fast function should succeed: %v", err)
	}

	err = WithTimeout(context.Background(), 10*time.Millisecond, "slow", func(ctx context.Context) error {
		select {
		case <-time.After(200 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestWithTimeoutDisabled(t *testing.T) {
	err := WithTimeout(context.Background(), 0, "unbounded", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); ok {
			t.Error("zero timeout must not attach a deadline")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success: %v", err)
	}
}
