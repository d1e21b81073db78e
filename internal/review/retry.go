package review

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// retryPolicy gives a single oracle call a bounded second chance. attempts
// counts the first try; backoff doubles between tries. Context cancellation
// stops retries immediately.
type retryPolicy struct {
	attempts int
	backoff  time.Duration
}

func (p retryPolicy) do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := p.backoff
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || attempt >= attempts-1 {
			return lastErr
		}

		zap.L().Debug("retrying oracle call",
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
		delay *= 2
	}
	return lastErr
}
