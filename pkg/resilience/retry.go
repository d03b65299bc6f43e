package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// RetryConfig shapes the backoff schedule. Zero values fall back to three
// attempts starting at 100ms, doubling up to a 10s ceiling, with 10% jitter.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      float64
}

func (c RetryConfig) normalized() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2
	}
	if c.Jitter <= 0 {
		c.Jitter = 0.1
	}
	return c
}

// Retry runs fn until it succeeds, the attempts are exhausted, or ctx ends.
// The delay between attempts grows geometrically with jitter so competing
// retries spread out.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func() error) error {
	cfg = cfg.normalized()
	log := slog.Default().With("component", "retry", "operation", name)

	delay := cfg.BaseDelay
	var lastErr error
	for attempt := 1; ; attempt++ {
		if lastErr = fn(); lastErr == nil {
			if attempt > 1 {
				log.Info("recovered", "attempt", attempt)
			}
			return nil
		}
		if attempt >= cfg.MaxAttempts {
			return fmt.Errorf("%s failed after %d attempts: %w", name, attempt, lastErr)
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s retry abandoned: %w", name, err)
		}

		wait := jittered(delay, cfg.Jitter)
		log.Warn("attempt failed, backing off",
			"attempt", attempt,
			"remaining", cfg.MaxAttempts-attempt,
			"error", lastErr,
			"wait", wait,
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return fmt.Errorf("%s retry abandoned during backoff: %w", name, ctx.Err())
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}

// jittered spreads d by up to frac of itself in either direction.
func jittered(d time.Duration, frac float64) time.Duration {
	offset := (rand.Float64()*2 - 1) * frac * float64(d)
	out := time.Duration(float64(d) + offset)
	if out <= 0 {
		return d
	}
	return out
}
