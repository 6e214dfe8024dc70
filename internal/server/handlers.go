package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/leofalp/convo/core/conversation"
	"github.com/leofalp/convo/providers/ai"
)

// SessionResponse is returned when a session is created.
type SessionResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// MessagesResponse carries a transcript.
type MessagesResponse struct {
	Messages []ai.Message `json:"messages"`
}

// MessageResponse carries one assistant reply.
type MessageResponse struct {
	Message ai.Message `json:"message"`
}

// SendRequest is the body of POST /v1/sessions/:id/messages. Unset fields
// keep the session's defaults.
type SendRequest struct {
	Content         string   `json:"content"`
	Model           *string  `json:"model,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"top_p,omitempty"`
	MaxOutputTokens *int     `json:"max_output_tokens,omitempty"`
	Stream          *bool    `json:"stream,omitempty"`
}

func (r SendRequest) options() []conversation.SendOption {
	var opts []conversation.SendOption
	if r.Model != nil {
		opts = append(opts, conversation.WithModel(*r.Model))
	}
	if r.Temperature != nil {
		opts = append(opts, conversation.WithTemperature(*r.Temperature))
	}
	if r.TopP != nil {
		opts = append(opts, conversation.WithTopP(*r.TopP))
	}
	if r.MaxOutputTokens != nil {
		opts = append(opts, conversation.WithMaxOutputTokens(*r.MaxOutputTokens))
	}
	return opts
}

// Health reports liveness.
// GET /healthz
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.registry.Len(),
	})
}

// CreateSession starts a conversation.
// POST /v1/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	s, err := h.registry.Create(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, SessionResponse{ID: s.ID, CreatedAt: s.CreatedAt})
}

// ListSessions returns the IDs of open and stored sessions.
// GET /v1/sessions
func (h *Handler) ListSessions(c echo.Context) error {
	ids, err := h.registry.IDs(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string][]string{"sessions": ids})
}

// DeleteSession resets and drops a session.
// DELETE /v1/sessions/:id
func (h *Handler) DeleteSession(c echo.Context) error {
	if err := h.registry.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetMessages returns the transcript, or its newest ?last=n turns. It waits
// for a reply in flight on the same session.
// GET /v1/sessions/:id/messages
func (h *Handler) GetMessages(c echo.Context) error {
	last := -1
	if err := echo.QueryParamsBinder(c).Int("last", &last).BindError(); err != nil {
		return writeError(c, ai.InvalidInput("invalid last: must be an integer"))
	}
	if c.QueryParam("last") != "" && last < 0 {
		return writeError(c, ai.InvalidInput("invalid last: must not be negative"))
	}

	ctx := c.Request().Context()
	s, err := h.registry.Get(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}

	var history []ai.Message
	err = s.Do(func(client *conversation.Client) error {
		if last >= 0 {
			history, err = client.Recent(ctx, last)
		} else {
			history, err = client.History(ctx)
		}
		return err
	})
	if err != nil {
		return writeError(c, err)
	}
	if history == nil {
		history = []ai.Message{}
	}
	return c.JSON(http.StatusOK, MessagesResponse{Messages: history})
}

// ResetMessages clears the transcript.
// DELETE /v1/sessions/:id/messages
func (h *Handler) ResetMessages(c echo.Context) error {
	s, err := h.registry.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}

	err = s.Do(func(client *conversation.Client) error {
		return client.Reset(c.Request().Context())
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// PostMessage sends one user message. The reply is a JSON MessageResponse,
// or an SSE stream when the request (or the session default) asks for
// streaming.
// POST /v1/sessions/:id/messages
func (h *Handler) PostMessage(c echo.Context) error {
	s, err := h.registry.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}

	var req SendRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, ai.InvalidInput("invalid request body: %s", bindMessage(err)))
	}

	ctx := c.Request().Context()
	return s.Do(func(client *conversation.Client) error {
		stream := client.Config().Stream
		if req.Stream != nil {
			stream = *req.Stream
		}

		if stream {
			return h.streamReply(c, client, req)
		}

		message, err := client.Send(ctx, req.Content, append(req.options(), conversation.WithStreaming(false))...)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, MessageResponse{Message: message})
	})
}

func bindMessage(err error) string {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Sprint(httpErr.Message)
	}
	return err.Error()
}
