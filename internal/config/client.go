package config

import (
	"log/slog"

	"github.com/leofalp/convo/core/conversation"
	"github.com/leofalp/convo/core/conversation/middleware"
	"github.com/leofalp/convo/internal/logging"
	"github.com/leofalp/convo/providers/ai"
	"github.com/leofalp/convo/providers/ai/openai"
)

// Provider returns the OpenAI-compatible provider described by c.
func (c *Config) Provider() ai.Provider {
	return openai.New().WithAPIKey(c.APIKey).WithBaseURL(c.BaseURL)
}

// ClientOptions returns the conversation options described by c: generation
// defaults, system prompt, logger and the caller-side middlewares.
//
// Middlewares are ordered logging, retry, timeout (outermost first), so the
// timeout bounds each attempt and the log shows one entry per exchange.
func (c *Config) ClientOptions(logger *slog.Logger) []conversation.Option {
	opts := []conversation.Option{
		conversation.WithConfig(c.Generation),
		conversation.WithLogger(logger),
	}
	if c.SystemPrompt != "" {
		opts = append(opts, conversation.WithSystemPrompt(c.SystemPrompt))
	}

	middlewares := []conversation.MiddlewareConfig{
		middleware.NewLoggingMiddleware(logger, c.middlewareLogLevel()),
	}
	if c.MaxRetries > 0 {
		middlewares = append(middlewares, middleware.NewRetryMiddleware(middleware.RetryConfig{MaxRetries: c.MaxRetries}))
	}
	if c.RequestTimeout > 0 {
		middlewares = append(middlewares, middleware.NewTimeoutMiddleware(c.RequestTimeout))
	}

	return append(opts, conversation.WithMiddleware(middlewares...))
}

// middlewareLogLevel adds message counts and finish reasons at DEBUG. Content
// is never logged by the binaries.
func (c *Config) middlewareLogLevel() middleware.LogLevel {
	if level, err := logging.ParseLevel(c.LogLevel); err == nil && level <= slog.LevelDebug {
		return middleware.LogLevelStandard
	}
	return middleware.LogLevelMinimal
}
