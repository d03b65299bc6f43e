package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout bounds fn by the given limit. fn receives the bounded context
// and should honor its cancellation; WithTimeout itself returns once the
// limit passes even when fn lingers. A limit of zero or less runs fn
// directly with the caller's context.
func WithTimeout(ctx context.Context, limit time.Duration, name string, fn func(ctx context.Context) error) error {
	if limit <= 0 {
		return fn(ctx)
	}
	bounded, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- fn(bounded) }()

	select {
	case err := <-errc:
		return err
	case <-bounded.Done():
		if parentErr := ctx.Err(); parentErr != nil {
			return fmt.Errorf("%s cancelled: %w", name, parentErr)
		}
		return fmt.Errorf("%s exceeded %v: %w", name, limit, context.DeadlineExceeded)
	}
}
