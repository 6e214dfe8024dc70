package ai

import (
	"iter"
	"strings"
)

// StreamEventType identifies the kind of delta carried by a StreamEvent.
type StreamEventType string

const (
	// StreamEventContent carries a text fragment.
	StreamEventContent StreamEventType = "content"
	// StreamEventUsage carries token usage metadata (typically near the end).
	StreamEventUsage StreamEventType = "usage"
	// StreamEventDone signals that the model finished generating.
	StreamEventDone StreamEventType = "done"
)

// StreamEvent is a single delta yielded while a response is streamed.
// Each event carries exactly one kind of payload, identified by Type.
type StreamEvent struct {
	Type         StreamEventType `json:"type"`
	Content      string          `json:"content,omitempty"`       // Type == StreamEventContent
	Usage        *Usage          `json:"usage,omitempty"`         // Type == StreamEventUsage
	FinishReason string          `json:"finish_reason,omitempty"` // Type == StreamEventDone
}

// ChatStream wraps a streaming iterator. It supports range-based iteration
// for live consumption and Collect for callers who only want the result.
//
// Callers must consume the stream, either by ranging over Iter (breaking out
// early is fine) or by calling Collect. The provider keeps the HTTP response
// body open until the iterator returns; a stream that is never iterated
// leaks it.
type ChatStream struct {
	iterator iter.Seq2[StreamEvent, error]
}

// NewChatStream creates a ChatStream from a raw iterator. The iterator yields
// events with a nil error and at most one non-nil error, after which it stops.
func NewChatStream(iterator iter.Seq2[StreamEvent, error]) *ChatStream {
	return &ChatStream{iterator: iterator}
}

// NewSingleEventStream wraps a complete response as a stream. It is the
// fallback for providers that do not implement StreamProvider.
func NewSingleEventStream(response *ChatResponse) *ChatStream {
	iteratorFunc := func(yield func(StreamEvent, error) bool) {
		if response.Content != "" {
			if !yield(StreamEvent{Type: StreamEventContent, Content: response.Content}, nil) {
				return
			}
		}

		if response.Usage != nil {
			if !yield(StreamEvent{Type: StreamEventUsage, Usage: response.Usage}, nil) {
				return
			}
		}

		yield(StreamEvent{Type: StreamEventDone, FinishReason: response.FinishReason}, nil)
	}

	return NewChatStream(iteratorFunc)
}

// Iter returns the underlying iterator for use with range-over-func loops.
//
//	for event, err := range stream.Iter() {
//	    if err != nil { handle error }
//	    fmt.Print(event.Content)
//	}
func (stream *ChatStream) Iter() iter.Seq2[StreamEvent, error] {
	return stream.iterator
}

// Collect consumes the entire stream and returns the accumulated response.
// A mid-stream error stops collection and is returned with the partial
// response gathered so far.
func (stream *ChatStream) Collect() (*ChatResponse, error) {
	accumulated := &ChatResponse{}
	var content strings.Builder

	for event, err := range stream.iterator {
		if err != nil {
			accumulated.Content = content.String()
			return accumulated, err
		}

		switch event.Type {
		case StreamEventContent:
			content.WriteString(event.Content)
		case StreamEventUsage:
			if event.Usage != nil {
				accumulated.Usage = event.Usage
			}
		case StreamEventDone:
			accumulated.FinishReason = event.FinishReason
		}
	}

	accumulated.Content = content.String()
	return accumulated, nil
}
