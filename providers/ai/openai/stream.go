package openai

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/leofalp/convo/internal/utils"
	"github.com/leofalp/convo/providers/ai"
)

// StreamMessage implements ai.StreamProvider for the chat completions endpoint.
// It sends the request with stream=true and returns a ChatStream that yields
// incremental deltas as SSE events arrive.
//
// Failures before the first byte of the body (missing key, transport, non-2xx)
// are returned directly. Once the stream has started, failures are yielded by
// the iterator: ai.ErrStreamInterrupted when the body breaks off or carries
// garbage, ai.ErrRemoteUnavailable when ctx ends first.
func (p *OpenAIProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	if p.apiKey == "" {
		return nil, errMissingAPIKey()
	}

	chatRequest := requestToChatCompletion(request)
	streamEnabled := true
	chatRequest.Stream = &streamEnabled
	chatRequest.StreamOptions = &streamOptions{IncludeUsage: true}

	// Body is left open for SSE reading
	httpResponse, err := utils.DoPostStream(ctx, p.client, p.baseURL+chatCompletionsEndpoint, p.apiKey, chatRequest)
	if err != nil {
		return nil, classifyError(ctx, err)
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

		var (
			finished   bool
			sawContent bool
			lastReason string
			refusal    strings.Builder
		)

		for {
			if ctx.Err() != nil {
				yield(ai.StreamEvent{}, interruptedError(ctx, ctx.Err()))
				return
			}

			payload, sseErr := sseScanner.Next()
			if sseErr == io.EOF || (errors.Is(sseErr, io.ErrUnexpectedEOF) && finished) {
				// [DONE], or a server that closes right after finish_reason
				if err := endOfStreamError(sawContent, refusal.String(), lastReason); err != nil {
					yield(ai.StreamEvent{}, err)
				}
				return
			}
			if sseErr != nil {
				yield(ai.StreamEvent{}, interruptedError(ctx, sseErr))
				return
			}

			chunk, parseErr := unmarshalStreamChunk(payload)
			if parseErr != nil {
				yield(ai.StreamEvent{}, ai.NewRemoteError(ai.ErrStreamInterrupted, 0, "malformed stream chunk", parseErr))
				return
			}

			if chunk.Error != nil {
				remoteErr := ai.NewRemoteError(ai.ErrStreamInterrupted, 0, chunk.Error.Message, nil)
				remoteErr.Type = chunk.Error.Type
				remoteErr.Code = codeString(chunk.Error.Code)
				yield(ai.StreamEvent{}, remoteErr)
				return
			}

			for _, choice := range chunk.Choices {
				if choice.Delta.Refusal != nil {
					refusal.WriteString(*choice.Delta.Refusal)
				}
				if choice.FinishReason != nil && *choice.FinishReason != "" {
					finished = true
					lastReason = *choice.FinishReason
				}
			}

			for _, event := range openaiChunkToStreamEvents(chunk) {
				if event.Type == ai.StreamEventContent {
					sawContent = true
				}
				if !yield(event, nil) {
					return // Caller stopped iterating
				}
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}

// interruptedError classifies a failure after the stream started. When ctx
// has ended, the read error is a consequence of that and the exchange is
// reported as unavailable.
func interruptedError(ctx context.Context, cause error) *ai.RemoteError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if !errors.Is(cause, ctxErr) {
			cause = errors.Join(ctxErr, cause)
		}
		return ai.NewRemoteError(ai.ErrRemoteUnavailable, 0, "stream ended by context", cause)
	}

	if errors.Is(cause, io.ErrUnexpectedEOF) {
		return ai.NewRemoteError(ai.ErrStreamInterrupted, 0, "stream ended before completion", cause)
	}
	return ai.NewRemoteError(ai.ErrStreamInterrupted, 0, "stream read failed", cause)
}

// endOfStreamError reports a stream that completed without any content
// because the model refused or the content filter fired.
func endOfStreamError(sawContent bool, refusal string, finishReason string) error {
	if sawContent {
		return nil
	}
	return checkRefusal(&ai.ChatResponse{Refusal: refusal, FinishReason: finishReason})
}

// openaiChunkToStreamEvents converts a single streaming chunk into zero or
// more StreamEvents. Usage is emitted before choices because the usage chunk
// normally has no choices.
func openaiChunkToStreamEvents(chunk *chatCompletionStreamChunk) []ai.StreamEvent {
	var events []ai.StreamEvent

	if usage := usageToGeneric(chunk.Usage); usage != nil {
		events = append(events, ai.StreamEvent{
			Type:  ai.StreamEventUsage,
			Usage: usage,
		})
	}

	for _, choice := range chunk.Choices {
		if choice.Delta.Content != nil && *choice.Delta.Content != "" {
			events = append(events, ai.StreamEvent{
				Type:    ai.StreamEventContent,
				Content: *choice.Delta.Content,
			})
		}

		if choice.FinishReason != nil && *choice.FinishReason != "" {
			events = append(events, ai.StreamEvent{
				Type:         ai.StreamEventDone,
				FinishReason: *choice.FinishReason,
			})
		}
	}

	return events
}

var _ ai.StreamProvider = (*OpenAIProvider)(nil)
