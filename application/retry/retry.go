package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/domain"
)

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// MaxDelay caps the backoff. Zero means uncapped.
	MaxDelay time.Duration
}

// Do invokes op until it succeeds, fails with a non-transient error, the
// context is cancelled, or MaxAttempts transient failures accumulate.
// MaxAttempts below 1 is treated as 1: op always runs at least once.
// Backoff before attempt n+1 is BaseDelay * 2^(n-1) with +/-20% jitter,
// capped at MaxDelay. Do holds no state across calls.
func Do[T any](ctx context.Context, policy Policy, logger outbound.LoggerPort, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, domain.Cancelled(err)
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if !domain.IsTransient(err) {
			return zero, err
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		delay := backoffDelay(policy, attempt)
		logger.WarnWithFields("Transient failure, retrying after backoff", map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": maxAttempts,
			"delay":        delay.String(),
			"error":        err.Error(),
		})

		select {
		case <-ctx.Done():
			return zero, domain.Cancelled(ctx.Err())
		case <-time.After(delay):
		}
	}

	return zero, &domain.RetryExhaustedError{Attempts: maxAttempts, Last: lastErr}
}

func backoffDelay(policy Policy, attempt int) time.Duration {
	delay := float64(policy.BaseDelay) * math.Pow(2, float64(attempt-1))
	delay *= 0.8 + 0.4*rand.Float64()
	if policy.MaxDelay > 0 && delay > float64(policy.MaxDelay) {
		delay = float64(policy.MaxDelay)
	}
	return time.Duration(delay)
}
