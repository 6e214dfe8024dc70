// Package server exposes conversation sessions over HTTP with echo.
//
// Routes:
//
//	POST   /v1/sessions                 create a session
//	GET    /v1/sessions                 list open and stored session IDs
//	DELETE /v1/sessions/:id             drop a session
//	GET    /v1/sessions/:id/messages    transcript, or its newest ?last=n turns
//	POST   /v1/sessions/:id/messages    send a message (JSON or SSE)
//	DELETE /v1/sessions/:id/messages    reset the transcript
//	GET    /healthz
package server

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/leofalp/convo/internal/session"
)

// Handler serves the session API.
type Handler struct {
	registry *session.Registry
	logger   *slog.Logger
}

// NewHandler creates a Handler over registry.
func NewHandler(registry *session.Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry: registry,
		logger:   logger,
	}
}

// RegisterRoutes registers the session API on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	sessions := e.Group("/v1/sessions")
	sessions.POST("", h.CreateSession)
	sessions.GET("", h.ListSessions)
	sessions.DELETE("/:id", h.DeleteSession)
	sessions.GET("/:id/messages", h.GetMessages)
	sessions.POST("/:id/messages", h.PostMessage)
	sessions.DELETE("/:id/messages", h.ResetMessages)
}

// New creates the echo server with request IDs, panic recovery and access
// logging through logger.
func New(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			h.logger.LogAttrs(c.Request().Context(), level, "http request", attrs...)
			return nil
		},
	}))

	h.RegisterRoutes(e)
	return e
}
