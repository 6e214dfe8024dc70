package openai

import "encoding/json"

/*
	CHAT COMPLETIONS STREAMING API - RESPONSE TYPES

	These types model the SSE chunks returned by the /v1/chat/completions
	endpoint when stream=true. Each chunk carries an incremental content
	delta, and the final one carries usage when stream_options.include_usage
	is set.
*/

// chatCompletionStreamChunk represents a single SSE chunk from the streaming
// chat completions endpoint.
type chatCompletionStreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"` // "chat.completion.chunk"
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []streamChoice `json:"choices"`
	Usage   *chatUsage     `json:"usage,omitempty"`
	Error   *apiError      `json:"error,omitempty"` // Some gateways report mid-stream failures in-band
}

// streamChoice uses Delta instead of the non-streaming Message.
type streamChoice struct {
	Index        int         `json:"index"`
	Delta        streamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"` // nil until the final chunk for this choice
}

type streamDelta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
	Refusal *string `json:"refusal,omitempty"`
}

// streamOptions configures streaming behavior in the request.
type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// unmarshalStreamChunk parses a raw SSE data payload into a chatCompletionStreamChunk.
func unmarshalStreamChunk(data string) (*chatCompletionStreamChunk, error) {
	var chunk chatCompletionStreamChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return nil, err
	}
	return &chunk, nil
}
