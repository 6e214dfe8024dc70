package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leofalp/convo/core/conversation"
)

// streamDelta is the payload of one SSE data frame.
type streamDelta struct {
	Delta string `json:"delta"`
}

// streamReply writes the reply as server-sent events:
//
//	data: {"delta":"Hel"}
//	data: {"delta":"lo"}
//	data: [DONE]
//
// Failures before the first frame are returned as a JSON error with the
// usual status. A failure after that is sent as an "error" event carrying an
// ErrorBody, and no [DONE] follows.
func (h *Handler) streamReply(c echo.Context, client *conversation.Client, req SendRequest) error {
	ctx := c.Request().Context()

	stream, err := client.Stream(ctx, req.Content, req.options()...)
	if err != nil {
		return writeError(c, err)
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	for fragment, err := range stream.Fragments() {
		if err != nil {
			_, detail := statusFor(err)
			h.logger.WarnContext(ctx, "stream ended with error",
				slog.String("kind", detail.Kind),
				slog.String("error", err.Error()),
			)
			_ = writeEvent(res, "error", ErrorBody{Error: detail})
			return nil
		}
		if err := writeEvent(res, "", streamDelta{Delta: fragment}); err != nil {
			// The client went away; leaving the loop abandons the stream.
			return nil
		}
	}

	if _, err := fmt.Fprint(res, "data: [DONE]\n\n"); err != nil {
		return nil
	}
	res.Flush()
	return nil
}

func writeEvent(res *echo.Response, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if event != "" {
		if _, err := fmt.Fprintf(res, "event: %s\n", event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(res, "data: %s\n\n", data); err != nil {
		return err
	}
	res.Flush()
	return nil
}
