package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error kinds. Every error returned by a conversation call matches exactly one
// of them through errors.Is.
var (
	// ErrInvalidInput marks caller errors detected before any network call.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRemoteUnavailable marks transport failures, timeouts, cancellation and
	// server-side (5xx) errors. Safe to retry unchanged.
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// ErrRemoteRejected marks an explicit refusal by the endpoint: bad
	// parameters, authentication, rate limiting or content policy. Retry only
	// after correcting the cause.
	ErrRemoteRejected = errors.New("remote rejected")

	// ErrStreamInterrupted marks a streaming exchange that ended abnormally
	// after it had started. Treated like ErrRemoteUnavailable for retries.
	ErrStreamInterrupted = errors.New("stream interrupted")
)

// RemoteError describes a failed exchange with the endpoint. Kind is one of
// ErrRemoteUnavailable, ErrRemoteRejected or ErrStreamInterrupted; Err is the
// underlying cause when there is one (a transport error, context.DeadlineExceeded...).
type RemoteError struct {
	Kind       error
	StatusCode int    // HTTP status, 0 when no response was received
	Type       string // Provider error type, e.g. "invalid_request_error"
	Code       string // Provider error code, e.g. "invalid_api_key"
	Message    string // Human-readable detail from the endpoint
	Err        error
}

// NewRemoteError builds a RemoteError of the given kind.
func NewRemoteError(kind error, statusCode int, message string, cause error) *RemoteError {
	return &RemoteError{
		Kind:       kind,
		StatusCode: statusCode,
		Message:    message,
		Err:        cause,
	}
}

func (e *RemoteError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.Error())

	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, ": status %d", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&sb, " (%s)", e.Code)
	}

	switch {
	case e.Message != "" && e.Err != nil:
		fmt.Fprintf(&sb, ": %s: %v", e.Message, e.Err)
	case e.Message != "":
		fmt.Fprintf(&sb, ": %s", e.Message)
	case e.Err != nil:
		fmt.Fprintf(&sb, ": %v", e.Err)
	}

	return sb.String()
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *RemoteError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Retryable reports the default retry eligibility for this failure:
// unavailable and interrupted exchanges are retryable, and so is a rejection
// caused by rate limiting (HTTP 429) once the caller has backed off.
func (e *RemoteError) Retryable() bool {
	switch {
	case errors.Is(e.Kind, ErrRemoteUnavailable), errors.Is(e.Kind, ErrStreamInterrupted):
		return true
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	}
	return false
}

// IsRetryable reports whether err is a RemoteError that is retryable by
// default. Invalid input and unknown errors are never retryable.
func IsRetryable(err error) bool {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.Retryable()
	}
	return false
}

// InvalidInput returns an error wrapping ErrInvalidInput with the given detail.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
