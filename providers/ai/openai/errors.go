package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/kaptinlin/jsonrepair"

	"github.com/leofalp/convo/internal/utils"
	"github.com/leofalp/convo/providers/ai"
)

// statusSiteOverloaded is the non-standard status some gateways return when
// the upstream model is overloaded.
const statusSiteOverloaded = 529

// errorEnvelope is the body OpenAI-compatible endpoints return on failure.
type errorEnvelope struct {
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"` // string for OpenAI, number for some gateways
	Param   string `json:"param,omitempty"`
}

func errMissingAPIKey() *ai.RemoteError {
	remoteErr := ai.NewRemoteError(ai.ErrRemoteRejected, 0, "API key is not set", nil)
	remoteErr.Code = "missing_api_key"
	return remoteErr
}

// classifyError maps an error from the HTTP helpers onto the error taxonomy.
// Non-2xx answers are classified by status; everything else (transport
// failures, deadlines, undecodable bodies) is treated as unavailability.
func classifyError(ctx context.Context, err error) *ai.RemoteError {
	var statusErr *utils.StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr)
	}

	// The client may surface a generic error after cancellation; keep the
	// context cause visible to errors.Is.
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}

	return ai.NewRemoteError(ai.ErrRemoteUnavailable, 0, "", err)
}

// classifyStatus builds a RemoteError from a non-2xx answer.
func classifyStatus(statusErr *utils.StatusError) *ai.RemoteError {
	kind := ai.ErrRemoteRejected
	switch {
	case statusErr.StatusCode == http.StatusRequestTimeout,
		statusErr.StatusCode == statusSiteOverloaded,
		statusErr.StatusCode >= 500,
		statusErr.StatusCode < 400:
		kind = ai.ErrRemoteUnavailable
	}

	remoteErr := ai.NewRemoteError(kind, statusErr.StatusCode, "", nil)

	if detail := decodeErrorBody(statusErr); detail != nil {
		remoteErr.Message = detail.Message
		remoteErr.Type = detail.Type
		remoteErr.Code = codeString(detail.Code)
	} else {
		remoteErr.Message = plainErrorText(statusErr)
	}

	if remoteErr.Message == "" {
		remoteErr.Message = http.StatusText(statusErr.StatusCode)
	}

	return remoteErr
}

// decodeErrorBody extracts the OpenAI error envelope. Bodies cut by the read
// limit are repaired before a second attempt.
func decodeErrorBody(statusErr *utils.StatusError) *apiError {
	if isHTML(statusErr.ContentType) || len(statusErr.Body) == 0 {
		return nil
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(statusErr.Body, &envelope); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(string(statusErr.Body))
		if repairErr != nil {
			return nil
		}
		if err := json.Unmarshal([]byte(repaired), &envelope); err != nil {
			return nil
		}
	}

	return envelope.Error
}

// plainErrorText renders a body that is not an error envelope as short text.
func plainErrorText(statusErr *utils.StatusError) string {
	body := string(statusErr.Body)

	if isHTML(statusErr.ContentType) {
		if markdown, err := htmltomarkdown.ConvertString(body); err == nil {
			body = markdown
		}
	}

	return utils.TruncateString(strings.TrimSpace(body), utils.DefaultMaxStringLength)
}

func isHTML(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/html")
}

func codeString(code any) string {
	switch value := code.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return fmt.Sprintf("%d", int64(value))
	default:
		return fmt.Sprint(value)
	}
}
