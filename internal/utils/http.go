package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// maxResponseBodySize caps how much of a successful response body is read (10 MB).
const maxResponseBodySize int64 = 10 * 1024 * 1024

// maxErrorBodySize caps how much of an error response body is kept (64 KiB).
// Longer bodies are truncated, so callers decoding them must tolerate cut-off JSON.
const maxErrorBodySize int64 = 64 * 1024

// StatusError is returned when the endpoint answers with a non-2xx status.
// Body holds at most maxErrorBodySize bytes of the response.
type StatusError struct {
	StatusCode  int
	ContentType string
	Body        []byte
	Truncated   bool
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status %d: %s", e.StatusCode, TruncateString(string(e.Body), DefaultMaxStringLength))
}

// DoPostSync performs a POST with a JSON body and decodes the JSON response
// into OutputStruct.
//
// Transport failures are returned wrapped, so context errors stay visible to
// errors.Is. Non-2xx answers are returned as *StatusError. The response body
// is always closed before returning.
func DoPostSync[OutputStruct any](ctx context.Context, client *http.Client, url string, apiKey string, body any) (*http.Response, *OutputStruct, error) {
	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := newJSONRequest(ctx, url, apiKey, body)
	if err != nil {
		return nil, nil, err
	}

	res, err := httpClient.Do(req)
	if err != nil {
		return res, nil, fmt.Errorf("error sending request: %w", err)
	}
	defer CloseWithLog(res.Body)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return res, nil, readStatusError(res)
	}

	respBody, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBodySize))
	if err != nil {
		return res, nil, fmt.Errorf("error reading response body: %w", err)
	}

	var resStruct OutputStruct
	if err = json.Unmarshal(respBody, &resStruct); err != nil {
		return res, nil, fmt.Errorf("error unmarshaling response body (status %d): %w\nResponse preview: %s", res.StatusCode, err, TruncateString(string(respBody), DefaultMaxStringLength))
	}

	return res, &resStruct, nil
}

// newJSONRequest marshals body and builds an authorized POST request.
func newJSONRequest(ctx context.Context, url string, apiKey string, body any) (*http.Request, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	return req, nil
}

// readStatusError reads at most maxErrorBodySize bytes of a non-2xx body.
func readStatusError(res *http.Response) *StatusError {
	statusErr := &StatusError{
		StatusCode:  res.StatusCode,
		ContentType: res.Header.Get("Content-Type"),
	}

	// Read one extra byte to learn whether the body was cut.
	body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodySize+1))
	if int64(len(body)) > maxErrorBodySize {
		body = body[:maxErrorBodySize]
		statusErr.Truncated = true
	}
	statusErr.Body = body

	return statusErr
}

// CloseWithLog closes c and logs a warning if that fails.
func CloseWithLog(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err.Error())
	}
}
