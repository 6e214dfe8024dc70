package utils

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DoPostStream performs a POST with a JSON body and returns the response with
// its body left open for SSE reading. The caller must close the body.
// Non-2xx answers are read, closed and returned as *StatusError.
func DoPostStream(ctx context.Context, client *http.Client, url string, apiKey string, body any) (*http.Response, error) {
	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := newJSONRequest(ctx, url, apiKey, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	response, err := httpClient.Do(req)
	if err != nil {
		return response, fmt.Errorf("error sending stream request: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		defer CloseWithLog(response.Body)
		return response, readStatusError(response)
	}

	return response, nil
}

// maxSSELineSize is the maximum size of a single SSE line (1 MB). The default
// bufio.Scanner limit of 64 KiB is too small for long completions.
const maxSSELineSize = 1 * 1024 * 1024

// doneSentinel is the payload OpenAI-compatible APIs send as the last event.
const doneSentinel = "[DONE]"

// SSEScanner reads Server-Sent Events from an io.Reader. It joins multi-line
// data fields, skips comments and other fields, and recognizes the [DONE]
// sentinel.
type SSEScanner struct {
	scanner *bufio.Scanner
}

// NewSSEScanner creates an SSEScanner over reader. Lines longer than
// maxSSELineSize make Next return an error wrapping bufio.ErrTooLong.
func NewSSEScanner(reader io.Reader) *SSEScanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &SSEScanner{scanner: scanner}
}

// Next returns the next data payload.
//
// It returns io.EOF once the [DONE] sentinel is read, and
// io.ErrUnexpectedEOF when the body ends without it. A trailing event that
// was not terminated by a blank line is still returned before that.
func (sseScanner *SSEScanner) Next() (string, error) {
	var dataLines []string

	for sseScanner.scanner.Scan() {
		line := sseScanner.scanner.Text()

		// A blank line ends an event.
		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == doneSentinel {
				return "", io.EOF
			}
			dataLines = append(dataLines, data)
		}

		// event:, id: and retry: fields carry nothing we use.
	}

	if err := sseScanner.scanner.Err(); err != nil {
		return "", fmt.Errorf("SSE scanner error: %w", err)
	}

	if len(dataLines) > 0 {
		return strings.Join(dataLines, "\n"), nil
	}

	return "", io.ErrUnexpectedEOF
}
