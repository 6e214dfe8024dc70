package ai

import (
	"context"
	"net/http"
)

// Provider is the interface every remote text-generation endpoint adapter
// satisfies. SendMessage blocks until the complete response is available.
type Provider interface {
	// SendMessage sends the request and returns the completed response.
	// Failures are returned as *RemoteError values classified by kind.
	SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	// WithAPIKey sets the credential used for authenticating requests.
	WithAPIKey(apiKey string) Provider

	// WithBaseURL overrides the default base URL for API requests.
	WithBaseURL(baseURL string) Provider

	// WithHttpClient sets the HTTP client used for outbound requests.
	WithHttpClient(httpClient *http.Client) Provider
}

// StreamProvider is implemented by providers that can deliver a response as
// an ordered sequence of fragments over one connection. Callers detect support
// with a type assertion and fall back to SendMessage otherwise.
type StreamProvider interface {
	Provider

	// StreamMessage starts a streaming exchange. Pre-stream failures
	// (auth, bad request, network) are returned directly; mid-stream
	// failures are yielded through the iterator.
	StreamMessage(ctx context.Context, request ChatRequest) (*ChatStream, error)
}
