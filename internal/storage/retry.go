package storage

import (
	"context"
	"time"
)

// Connection retry defaults
const (
	DefaultConnectRetries    = 3
	DefaultConnectBaseDelay  = 100 * time.Millisecond
	DefaultConnectMaxDelay   = 2 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// RetryConfig configures exponential backoff when connecting to a database
type RetryConfig struct {
	MaxAttempts int           // Total attempts, including the first
	BaseDelay   time.Duration // Delay after the first failure
	MaxDelay    time.Duration // Upper bound on any single delay
	Multiplier  float64       // Growth factor between delays
}

// DefaultRetryConfig returns the connection retry defaults
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: DefaultConnectRetries,
		BaseDelay:   DefaultConnectBaseDelay,
		MaxDelay:    DefaultConnectMaxDelay,
		Multiplier:  DefaultBackoffMultiplier,
	}
}

// retryWithBackoff calls fn until it succeeds, the attempts run out or ctx
// is done. The last error from fn is returned.
func retryWithBackoff[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := config.BaseDelay

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = time.Duration(float64(backoff) * config.Multiplier)
		if config.MaxDelay > 0 && backoff > config.MaxDelay {
			backoff = config.MaxDelay
		}
	}

	return zero, lastErr
}
