package middleware

import (
	"context"
	"time"

	"github.com/leofalp/convo/core/conversation"
	"github.com/leofalp/convo/providers/ai"
)

// NewTimeoutMiddleware bounds every exchange with timeout.
//
// For streams the deadline covers the whole stream, not just the time to the
// first byte: the context is cancelled once the stream ends, fails, or the
// caller stops iterating. A caller context with a shorter deadline wins.
func NewTimeoutMiddleware(timeout time.Duration) conversation.MiddlewareConfig {
	return conversation.MiddlewareConfig{
		Send:   buildSendTimeout(timeout),
		Stream: buildStreamTimeout(timeout),
	}
}

func buildSendTimeout(timeout time.Duration) conversation.Middleware {
	return func(next conversation.SendFunc) conversation.SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			return next(ctx, request)
		}
	}
}

func buildStreamTimeout(timeout time.Duration) conversation.StreamMiddleware {
	return func(next conversation.StreamFunc) conversation.StreamFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)

			stream, err := next(ctx, request)
			if err != nil {
				cancel()
				return nil, err
			}

			return wrapStreamWithCancel(stream, cancel), nil
		}
	}
}

// wrapStreamWithCancel calls cancel once the wrapped iterator returns. Usage
// can arrive after the done event, so the inner stream is always drained
// rather than cut at StreamEventDone.
func wrapStreamWithCancel(stream *ai.ChatStream, cancel context.CancelFunc) *ai.ChatStream {
	iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
		defer cancel()

		for event, err := range stream.Iter() {
			if !yield(event, err) || err != nil {
				return
			}
		}
	}

	return ai.NewChatStream(iteratorFunc)
}
