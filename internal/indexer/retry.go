package indexer

import (
	"context"
	"time"
)

// maxRetryDelay caps the exponential backoff so long outages poll at a
// steady rate instead of sleeping for minutes.
const maxRetryDelay = 30 * time.Second

func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	var err error
	delay := baseDelay
	for attempt := 0; attempt <= maxRetries || attempt == 0; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= maxRetries {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if delay *= 2; delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
	return err
}
