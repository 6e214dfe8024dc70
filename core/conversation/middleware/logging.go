package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/leofalp/convo/core/conversation"
	"github.com/leofalp/convo/internal/utils"
	"github.com/leofalp/convo/providers/ai"
)

// LogLevel selects how much of each exchange the logging middleware records.
type LogLevel int

const (
	// LogLevelMinimal records the model, duration and token counts.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard also records the transcript length and finish reason.
	LogLevelStandard

	// LogLevelVerbose also records the last transcript turn and the reply,
	// truncated to 500 characters.
	//
	// WARNING: this writes conversation text to the log.
	LogLevelVerbose
)

const truncateLen = 500

// NewLoggingMiddleware logs every provider call on logger: one entry when
// the exchange starts and one when it ends. A streamed exchange ends when the
// stream completes, fails or is abandoned by the caller. Failures carry the
// error kind (invalid_input, remote_rejected, ...).
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel) conversation.MiddlewareConfig {
	l := &exchangeLogger{logger: logger, level: level}

	return conversation.MiddlewareConfig{
		Send: func(next conversation.SendFunc) conversation.SendFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
				start := l.started(ctx, "llm send", request)

				response, err := next(ctx, request)
				if err != nil {
					l.failed(ctx, "llm send failed", request.Model, start, err)
					return nil, err
				}

				l.finished(ctx, "llm send completed", response, start)
				return response, nil
			}
		},
		Stream: func(next conversation.StreamFunc) conversation.StreamFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
				start := l.started(ctx, "llm stream", request)

				stream, err := next(ctx, request)
				if err != nil {
					l.failed(ctx, "llm stream failed", request.Model, start, err)
					return nil, err
				}

				return l.observe(ctx, stream, request.Model, start), nil
			}
		},
	}
}

type exchangeLogger struct {
	logger *slog.Logger
	level  LogLevel
}

func (l *exchangeLogger) started(ctx context.Context, msg string, request ai.ChatRequest) time.Time {
	attrs := []slog.Attr{slog.String("model", request.Model)}

	if l.level >= LogLevelStandard {
		attrs = append(attrs, slog.Int("message_count", len(request.Messages)))
	}
	if n := len(request.Messages); l.level >= LogLevelVerbose && n > 0 {
		last := request.Messages[n-1]
		attrs = append(attrs,
			slog.String("last_message_role", string(last.Role)),
			slog.String("last_message_content", utils.TruncateString(last.Content, truncateLen)),
		)
	}

	l.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
	return time.Now()
}

func (l *exchangeLogger) finished(ctx context.Context, msg string, response *ai.ChatResponse, start time.Time) {
	attrs := []slog.Attr{
		slog.String("model", response.Model),
		slog.Duration("duration", time.Since(start)),
	}

	if usage := response.Usage; usage != nil {
		attrs = append(attrs,
			slog.Int("prompt_tokens", usage.PromptTokens),
			slog.Int("completion_tokens", usage.CompletionTokens),
			slog.Int("total_tokens", usage.TotalTokens),
		)
	}
	if l.level >= LogLevelStandard && response.FinishReason != "" {
		attrs = append(attrs, slog.String("finish_reason", response.FinishReason))
	}
	if l.level >= LogLevelVerbose && response.Content != "" {
		attrs = append(attrs, slog.String("response_content", utils.TruncateString(response.Content, truncateLen)))
	}

	l.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (l *exchangeLogger) failed(ctx context.Context, msg, model string, start time.Time, err error) {
	l.logger.LogAttrs(ctx, slog.LevelError, msg,
		slog.String("model", model),
		slog.Duration("duration", time.Since(start)),
		slog.String("kind", errorKind(err)),
		slog.String("error", err.Error()),
	)
}

// observe re-yields stream and logs its outcome. The inner stream is drained
// to the end so that usage sent after the done event is not lost.
func (l *exchangeLogger) observe(ctx context.Context, stream *ai.ChatStream, model string, start time.Time) *ai.ChatStream {
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		summary := &ai.ChatResponse{Model: model}
		var content strings.Builder

		for event, err := range stream.Iter() {
			if err != nil {
				l.failed(ctx, "llm stream failed", model, start, err)
				yield(event, err)
				return
			}

			switch event.Type {
			case ai.StreamEventContent:
				if l.level >= LogLevelVerbose {
					content.WriteString(event.Content)
				}
			case ai.StreamEventUsage:
				summary.Usage = event.Usage
			case ai.StreamEventDone:
				summary.FinishReason = event.FinishReason
			}

			if !yield(event, nil) {
				l.logger.LogAttrs(ctx, slog.LevelInfo, "llm stream abandoned",
					slog.String("model", model),
					slog.Duration("duration", time.Since(start)),
				)
				return
			}
		}

		summary.Content = content.String()
		l.finished(ctx, "llm stream completed", summary, start)
	})
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ai.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ai.ErrRemoteRejected):
		return "remote_rejected"
	case errors.Is(err, ai.ErrStreamInterrupted):
		return "stream_interrupted"
	case errors.Is(err, ai.ErrRemoteUnavailable):
		return "remote_unavailable"
	}
	return "unknown"
}
