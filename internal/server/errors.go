package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leofalp/convo/internal/session"
	"github.com/leofalp/convo/providers/ai"
)

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed call. Kind is one of invalid_input,
// remote_rejected, remote_unavailable, stream_interrupted, not_found or
// internal.
type ErrorDetail struct {
	Kind           string `json:"kind"`
	Message        string `json:"message"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
	UpstreamCode   string `json:"upstream_code,omitempty"`
}

// statusFor maps an error to the HTTP status and error detail returned to
// the client.
func statusFor(err error) (int, ErrorDetail) {
	detail := ErrorDetail{Message: err.Error()}

	var remoteErr *ai.RemoteError
	if errors.As(err, &remoteErr) {
		detail.UpstreamStatus = remoteErr.StatusCode
		detail.UpstreamCode = remoteErr.Code
	}

	switch {
	case errors.Is(err, session.ErrNotFound):
		detail.Kind = "not_found"
		return http.StatusNotFound, detail
	case errors.Is(err, ai.ErrInvalidInput):
		detail.Kind = "invalid_input"
		return http.StatusBadRequest, detail
	case errors.Is(err, ai.ErrRemoteRejected):
		detail.Kind = "remote_rejected"
		return http.StatusBadGateway, detail
	case errors.Is(err, ai.ErrStreamInterrupted):
		detail.Kind = "stream_interrupted"
		return http.StatusServiceUnavailable, detail
	case errors.Is(err, ai.ErrRemoteUnavailable):
		detail.Kind = "remote_unavailable"
		return http.StatusServiceUnavailable, detail
	}

	detail.Kind = "internal"
	return http.StatusInternalServerError, detail
}

func writeError(c echo.Context, err error) error {
	status, detail := statusFor(err)
	return c.JSON(status, ErrorBody{Error: detail})
}
