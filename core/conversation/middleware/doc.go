// Package middleware provides opt-in layers for the conversation client.
// Each constructor returns a [conversation.MiddlewareConfig] ready to be
// passed to [conversation.WithMiddleware].
//
//   - [NewRetryMiddleware] retries failed exchanges with exponential backoff
//     and jitter. Which errors are retried is configurable; by default it is
//     ai.IsRetryable.
//   - [NewTimeoutMiddleware] bounds each exchange, including the whole
//     lifetime of a stream. An expired deadline surfaces as
//     ai.ErrRemoteUnavailable.
//   - [NewLoggingMiddleware] emits structured slog entries around every
//     provider call at three verbosity levels.
//
// Middlewares execute outermost-first:
//
//	c, err := conversation.New(provider,
//	    conversation.WithMiddleware(
//	        middleware.NewTimeoutMiddleware(30*time.Second),
//	        middleware.NewRetryMiddleware(middleware.RetryConfig{MaxRetries: 3}),
//	        middleware.NewLoggingMiddleware(slog.Default(), middleware.LogLevelStandard),
//	    ),
//	)
//
// Here a request travels Timeout → Retry → Logging → Provider, so the
// timeout covers all retry attempts and every attempt is logged.
package middleware
