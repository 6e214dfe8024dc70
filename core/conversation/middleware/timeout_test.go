package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leofalp/convo/providers/ai"
)

// makeSendFunc returns a SendFunc that waits for sleep before returning,
// simulating a slow provider.
func makeSendFunc(sleep time.Duration, response *ai.ChatResponse) func(context.Context, ai.ChatRequest) (*ai.ChatResponse, error) {
	return func(ctx context.Context, _ ai.ChatRequest) (*ai.ChatResponse, error) {
		select {
		case <-time.After(sleep):
			return response, nil
		case <-ctx.Done():
			return nil, ai.NewRemoteError(ai.ErrRemoteUnavailable, 0, "request aborted", ctx.Err())
		}
	}
}

// makeStreamFunc returns a StreamFunc whose stream waits for sleep before
// yielding content, done and usage, in that order.
func makeStreamFunc(sleep time.Duration, ctxSeen *context.Context) func(context.Context, ai.ChatRequest) (*ai.ChatStream, error) {
	return func(ctx context.Context, _ ai.ChatRequest) (*ai.ChatStream, error) {
		if ctxSeen != nil {
			*ctxSeen = ctx
		}
		return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
			select {
			case <-time.After(sleep):
			case <-ctx.Done():
				yield(ai.StreamEvent{}, ai.NewRemoteError(ai.ErrRemoteUnavailable, 0, "stream aborted", ctx.Err()))
				return
			}
			if !yield(ai.StreamEvent{Type: ai.StreamEventContent, Content: "hello"}, nil) {
				return
			}
			if !yield(ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: "stop"}, nil) {
				return
			}
			yield(ai.StreamEvent{Type: ai.StreamEventUsage, Usage: &ai.Usage{TotalTokens: 7}}, nil)
		}), nil
	}
}

func TestTimeoutMiddleware_SendCompletesBeforeTimeout(t *testing.T) {
	mw := NewTimeoutMiddleware(time.Second)
	send := mw.Send(makeSendFunc(time.Millisecond, &ai.ChatResponse{Content: "fast"}))

	response, err := send(context.Background(), ai.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Content != "fast" {
		t.Errorf("content = %q, want %q", response.Content, "fast")
	}
}

func TestTimeoutMiddleware_SendExceedsTimeout(t *testing.T) {
	mw := NewTimeoutMiddleware(10 * time.Millisecond)
	send := mw.Send(makeSendFunc(time.Second, &ai.ChatResponse{Content: "slow"}))

	_, err := send(context.Background(), ai.ChatRequest{})
	if !errors.Is(err, ai.ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded in chain, got %v", err)
	}
}

func TestTimeoutMiddleware_StreamCompletesAndKeepsTrailingUsage(t *testing.T) {
	mw := NewTimeoutMiddleware(time.Second)

	var seen context.Context
	stream, err := mw.Stream(makeStreamFunc(time.Millisecond, &seen))(context.Background(), ai.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if response.Content != "hello" {
		t.Errorf("content = %q, want %q", response.Content, "hello")
	}
	if response.Usage == nil || response.Usage.TotalTokens != 7 {
		t.Errorf("usage after done was dropped: %+v", response.Usage)
	}
	if seen.Err() == nil {
		t.Error("expected timeout context to be cancelled once the stream finished")
	}
}

func TestTimeoutMiddleware_StreamExceedsTimeout(t *testing.T) {
	mw := NewTimeoutMiddleware(10 * time.Millisecond)

	stream, err := mw.Stream(makeStreamFunc(time.Second, nil))(context.Background(), ai.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = stream.Collect()
	if !errors.Is(err, ai.ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
}

func TestTimeoutMiddleware_StreamEarlyBreakCancels(t *testing.T) {
	mw := NewTimeoutMiddleware(time.Minute)

	var seen context.Context
	stream, err := mw.Stream(makeStreamFunc(0, &seen))(context.Background(), ai.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for range stream.Iter() {
		break
	}

	if seen.Err() == nil {
		t.Error("expected context to be cancelled after early break")
	}
}

func TestTimeoutMiddleware_OpenFailureCancels(t *testing.T) {
	mw := NewTimeoutMiddleware(time.Minute)

	var seen context.Context
	next := func(ctx context.Context, _ ai.ChatRequest) (*ai.ChatStream, error) {
		seen = ctx
		return nil, rejected(400)
	}

	if _, err := mw.Stream(next)(context.Background(), ai.ChatRequest{}); !errors.Is(err, ai.ErrRemoteRejected) {
		t.Fatalf("expected ErrRemoteRejected, got %v", err)
	}
	if seen.Err() == nil {
		t.Error("expected context to be cancelled when opening failed")
	}
}
