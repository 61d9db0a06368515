package llm

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = time.Second
)

// RetryPolicy re-runs a completion on retryable failures with exponential
// backoff: BaseDelay, 2x, 4x... No jitter, no circuit breaker. After
// exhausting MaxRetries the last error is surfaced unchanged.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Logger     *slog.Logger

	// sleep is swappable in tests.
	sleep func(time.Duration)
}

// NewRetryPolicy applies the default 3-retry / 1s-base policy for
// unset fields.
func NewRetryPolicy(maxRetries int, baseDelay time.Duration, logger *slog.Logger) RetryPolicy {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	return RetryPolicy{
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
		Logger:     logger,
		sleep:      time.Sleep,
	}
}

// Do invokes fn up to MaxRetries+1 times. Non-retryable errors and
// context cancellation end the loop immediately.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	pause := p.sleep
	if pause == nil {
		pause = time.Sleep
	}

	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.BaseDelay << (attempt - 1)
			if p.Logger != nil {
				p.Logger.Warn("retrying completion",
					"attempt", attempt+1,
					"max_attempts", p.MaxRetries+1,
					"delay", delay,
					"error", lastErr)
			}
			pause(delay)
		}

		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return "", lastErr
			}
			return "", err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return "", err
		}
	}

	return "", lastErr
}
