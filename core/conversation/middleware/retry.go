package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/leofalp/convo/core/conversation"
	"github.com/leofalp/convo/providers/ai"
)

// RetryConfig holds the tuning parameters for the retry middleware. Zero values
// are replaced with the defaults documented below when NewRetryMiddleware is called.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts after the first failure.
	// Default: 3.
	MaxRetries int

	// InitialBackoff is the wait before the first retry. Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the computed backoff. Default: 30s.
	MaxBackoff time.Duration

	// BackoffFactor is the exponential growth multiplier. Default: 2.0.
	BackoffFactor float64

	// JitterFraction adds up to JitterFraction * backoff of random noise.
	// Default: 0.1.
	JitterFraction float64

	// RetryableFunc reports whether an error should trigger a retry.
	// Default: ai.IsRetryable (unavailable, interrupted, and HTTP 429).
	RetryableFunc func(error) bool
}

// applyRetryDefaults fills in zero-valued fields in config.
func applyRetryDefaults(config *RetryConfig) {
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.BackoffFactor == 0 {
		config.BackoffFactor = 2.0
	}
	if config.JitterFraction == 0 {
		config.JitterFraction = 0.1
	}
	if config.RetryableFunc == nil {
		config.RetryableFunc = ai.IsRetryable
	}
}

// computeBackoff returns the backoff for the given attempt (0-indexed):
// min(InitialBackoff * BackoffFactor^attempt, MaxBackoff) + jitter.
func computeBackoff(config RetryConfig, attempt int) time.Duration {
	base := float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(attempt))
	if base > float64(config.MaxBackoff) {
		base = float64(config.MaxBackoff)
	}

	jitter := base * config.JitterFraction * rand.Float64() //nolint:gosec // non-cryptographic jitter
	return time.Duration(base + jitter)
}

// NewRetryMiddleware constructs a MiddlewareConfig that retries failed
// exchanges according to config.
//
// Streams are retried only while opening: once the first event has been
// handed to the caller the stream is never restarted.
//
// The retry happens below the conversation client, so a retried exchange
// records its user turn once.
func NewRetryMiddleware(config RetryConfig) conversation.MiddlewareConfig {
	applyRetryDefaults(&config)

	sendMiddleware := func(next conversation.SendFunc) conversation.SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			return withRetry(ctx, config, func() (*ai.ChatResponse, error) {
				return next(ctx, request)
			})
		}
	}

	streamMiddleware := func(next conversation.StreamFunc) conversation.StreamFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
			return withRetry(ctx, config, func() (*ai.ChatStream, error) {
				return next(ctx, request)
			})
		}
	}

	return conversation.MiddlewareConfig{
		Send:   sendMiddleware,
		Stream: streamMiddleware,
	}
}

// withRetry calls attempt until it succeeds, fails with a non-retryable
// error, the retries run out, or ctx ends.
func withRetry[T any](ctx context.Context, config RetryConfig, attempt func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for i := 0; i <= config.MaxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return zero, ai.NewRemoteError(ai.ErrRemoteUnavailable, 0, "retry aborted", errors.Join(ctx.Err(), lastErr))
			case <-time.After(computeBackoff(config, i-1)):
			}
		}

		result, err := attempt()
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !config.RetryableFunc(err) {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%w after %d retries: %w", ErrRetryExhausted, config.MaxRetries, lastErr)
}
