package conversation

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/leofalp/convo/providers/ai"
)

var (
	// ErrStreamConsumed is yielded when a Stream is iterated a second time.
	ErrStreamConsumed = fmt.Errorf("%w: stream already consumed", ai.ErrInvalidInput)

	// ErrStreamSuperseded is yielded when a Stream finishes after a later
	// exchange or a Reset on the same Client. Its reply is not committed.
	ErrStreamSuperseded = fmt.Errorf("%w: stream superseded by a later exchange", ai.ErrInvalidInput)
)

// Stream is the reply to one streaming exchange, delivered as an ordered,
// finite sequence of text fragments. It can be consumed once.
//
// When the sequence ends normally, the concatenated fragments are appended
// to the transcript as one assistant turn. Stopping the iteration early, or a
// failure mid-stream, leaves the transcript without an assistant turn and
// releases the connection.
type Stream struct {
	client   *Client
	exchange *exchange
	inner    *ai.ChatStream
	ctx      context.Context

	consumed     bool
	message      *ai.Message
	usage        *ai.Usage
	finishReason string
	err          error
}

func newStream(ctx context.Context, client *Client, exchange *exchange, inner *ai.ChatStream) *Stream {
	return &Stream{
		client:   client,
		exchange: exchange,
		inner:    inner,
		ctx:      ctx,
	}
}

// Fragments returns the reply fragments in arrival order. The sequence yields
// at most one non-nil error, after which it stops.
//
//	for fragment, err := range stream.Fragments() {
//	    if err != nil { handle error }
//	    fmt.Print(fragment)
//	}
func (s *Stream) Fragments() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if s.consumed {
			yield("", ErrStreamConsumed)
			return
		}
		s.consumed = true

		var content strings.Builder

		for event, err := range s.inner.Iter() {
			if err != nil {
				s.err = s.client.fail(s.ctx, s.exchange, classify(s.ctx, err, true))
				yield("", s.err)
				return
			}

			switch event.Type {
			case ai.StreamEventContent:
				content.WriteString(event.Content)
				if !yield(event.Content, nil) {
					s.client.logger.DebugContext(s.ctx, "conversation stream abandoned",
						slog.String("model", s.exchange.config.Model),
						slog.Int("received_bytes", content.Len()),
					)
					return
				}
			case ai.StreamEventUsage:
				s.usage = event.Usage
			case ai.StreamEventDone:
				s.finishReason = event.FinishReason
			}
		}

		message, err := s.client.commit(s.ctx, s.exchange, content.String())
		if err != nil {
			s.err = err
			yield("", err)
			return
		}
		s.message = &message
	}
}

// Collect consumes the remaining fragments and returns the committed
// assistant message.
func (s *Stream) Collect() (ai.Message, error) {
	if s.consumed {
		if s.message != nil {
			return *s.message, nil
		}
		if s.err != nil {
			return ai.Message{}, s.err
		}
	}

	for _, err := range s.Fragments() {
		if err != nil {
			return ai.Message{}, err
		}
	}

	if s.message == nil {
		// Fragments stopped without error only if the caller broke out,
		// which Collect never does.
		return ai.Message{}, ErrStreamConsumed
	}
	return *s.message, nil
}

// Message returns the committed assistant message once the stream has been
// consumed to the end.
func (s *Stream) Message() (ai.Message, bool) {
	if s.message == nil {
		return ai.Message{}, false
	}
	return *s.message, true
}

// Usage returns the token usage reported by the endpoint, or nil.
func (s *Stream) Usage() *ai.Usage {
	return s.usage
}

// FinishReason returns the endpoint's stop reason, e.g. "stop" or "length".
func (s *Stream) FinishReason() string {
	return s.finishReason
}

// Err returns the error that ended the stream, if any.
func (s *Stream) Err() error {
	return s.err
}
