package openai

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/leofalp/convo/internal/utils"
	"github.com/leofalp/convo/providers/ai"
)

const (
	defaultBaseURL          = "https://api.openai.com/v1"
	chatCompletionsEndpoint = "/chat/completions"
)

// OpenAIProvider implements ai.StreamProvider for OpenAI-compatible APIs.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a provider configured from OPENAI_API_KEY and
// OPENAI_API_BASE_URL. A missing key is reported on the first call, not here.
func New() *OpenAIProvider {
	baseURL := os.Getenv("OPENAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &OpenAIProvider{
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key for the provider
func (p *OpenAIProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API
func (p *OpenAIProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = strings.TrimRight(baseURL, "/")
	return p
}

// WithHttpClient sets a custom HTTP client
func (p *OpenAIProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

// SendMessage posts the request to /chat/completions and waits for the full reply.
func (p *OpenAIProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if p.apiKey == "" {
		return nil, errMissingAPIKey()
	}

	_, resp, err := utils.DoPostSync[chatCompletionResponse](ctx, p.client, p.baseURL+chatCompletionsEndpoint, p.apiKey, requestToChatCompletion(request))
	if err != nil {
		return nil, classifyError(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return nil, ai.NewRemoteError(ai.ErrRemoteUnavailable, http.StatusOK, "no choices in response", nil)
	}

	response := chatCompletionToGeneric(*resp)
	if err := checkRefusal(response); err != nil {
		return nil, err
	}

	return response, nil
}

// checkRefusal turns a policy refusal into a rejection. A reply that carries
// content is kept even when it was cut by the content filter.
func checkRefusal(response *ai.ChatResponse) error {
	if response.Content != "" {
		return nil
	}

	switch {
	case response.Refusal != "":
		remoteErr := ai.NewRemoteError(ai.ErrRemoteRejected, http.StatusOK, response.Refusal, nil)
		remoteErr.Code = "refusal"
		return remoteErr
	case response.FinishReason == finishReasonContentFilter:
		remoteErr := ai.NewRemoteError(ai.ErrRemoteRejected, http.StatusOK, "response blocked by content filter", nil)
		remoteErr.Code = finishReasonContentFilter
		return remoteErr
	}

	return nil
}
