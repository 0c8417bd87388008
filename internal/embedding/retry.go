package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// retryPolicy configures retry behavior for provider calls.
type retryPolicy struct {
	MaxRetries      int           // Additional attempts after the first
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
}

// defaultRetryPolicy yields delays of 1s, 2s, 4s across 4 total attempts.
func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		MaxRetries:      3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     8 * time.Second,
	}
}

// do executes fn with exponential backoff. Only transient provider errors
// are retried; quota and fatal errors return immediately.
func (p retryPolicy) do(ctx context.Context, logger *slog.Logger, fn func() error) error {
	var lastErr error
	delay := p.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				logger.Debug("provider call succeeded after retry",
					"attempts", attempt+1,
					"elapsed", time.Since(start))
			}
			return nil
		}
		lastErr = err

		if classifyProviderError(err) != classTransient {
			return err
		}

		// Last attempt - don't sleep
		if attempt == p.MaxRetries {
			break
		}

		logger.Debug("retrying provider call",
			"attempt", attempt+1,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, p.MaxInterval)
		}
	}

	return fmt.Errorf("provider call failed after %d retries: %w", p.MaxRetries, lastErr)
}
