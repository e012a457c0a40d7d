package chain

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// withRetry runs fn up to maxRetries+1 times with exponential backoff,
// logging each failed attempt. The context cancels both the operation and
// the backoff wait.
func withRetry(ctx context.Context, logger *zap.Logger, op string, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt > maxRetries {
			return err
		}

		logger.Warn(op+" failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxRetries+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
