package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/leofalp/convo/providers/ai"
)

// testLogger creates an slog.Logger that writes to buf so tests can inspect
// emitted lines.
func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func sampleRequest() ai.ChatRequest {
	return ai.ChatRequest{
		Model: "test-model",
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: "what is the capital of Italy?"},
		},
	}
}

func sampleSend(_ context.Context, _ ai.ChatRequest) (*ai.ChatResponse, error) {
	return &ai.ChatResponse{
		Model:        "test-model",
		Content:      "Rome",
		FinishReason: "stop",
		Usage:        &ai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func TestLoggingMiddleware_Send_Minimal(t *testing.T) {
	buf := &bytes.Buffer{}
	send := NewLoggingMiddleware(testLogger(buf), LogLevelMinimal).Send(sampleSend)

	if _, err := send(context.Background(), sampleRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"llm send", "llm send completed", "model=test-model", "total_tokens=15"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in log, got:\n%s", want, output)
		}
	}
	for _, unwanted := range []string{"message_count", "finish_reason", "Rome", "capital"} {
		if strings.Contains(output, unwanted) {
			t.Errorf("did not expect %q at minimal level, got:\n%s", unwanted, output)
		}
	}
}

func TestLoggingMiddleware_Send_Standard(t *testing.T) {
	buf := &bytes.Buffer{}
	send := NewLoggingMiddleware(testLogger(buf), LogLevelStandard).Send(sampleSend)

	if _, err := send(context.Background(), sampleRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "message_count=1") || !strings.Contains(output, "finish_reason=stop") {
		t.Errorf("expected message_count and finish_reason, got:\n%s", output)
	}
	if strings.Contains(output, "Rome") {
		t.Errorf("content must not be logged at standard level, got:\n%s", output)
	}
}

func TestLoggingMiddleware_Send_Verbose(t *testing.T) {
	buf := &bytes.Buffer{}
	send := NewLoggingMiddleware(testLogger(buf), LogLevelVerbose).Send(sampleSend)

	if _, err := send(context.Background(), sampleRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "capital of Italy") || !strings.Contains(output, "response_content=Rome") {
		t.Errorf("expected request and response content, got:\n%s", output)
	}
}

func TestLoggingMiddleware_Send_Error(t *testing.T) {
	buf := &bytes.Buffer{}
	failing := func(_ context.Context, _ ai.ChatRequest) (*ai.ChatResponse, error) {
		return nil, rejected(401)
	}

	_, err := NewLoggingMiddleware(testLogger(buf), LogLevelMinimal).Send(failing)(context.Background(), sampleRequest())
	if err == nil {
		t.Fatal("expected error")
	}

	output := buf.String()
	if !strings.Contains(output, "llm send failed") || !strings.Contains(output, "level=ERROR") {
		t.Errorf("expected error log, got:\n%s", output)
	}
}

func TestLoggingMiddleware_Stream_Completed(t *testing.T) {
	buf := &bytes.Buffer{}
	mw := NewLoggingMiddleware(testLogger(buf), LogLevelVerbose)

	stream, err := mw.Stream(makeStreamFunc(0, nil))(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if response.Usage == nil {
		t.Error("usage after done must reach the caller")
	}

	output := buf.String()
	for _, want := range []string{"llm stream completed", "total_tokens=7", "finish_reason=stop", "response_content=hello"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in log, got:\n%s", want, output)
		}
	}
}

func TestLoggingMiddleware_Stream_Abandoned(t *testing.T) {
	buf := &bytes.Buffer{}
	mw := NewLoggingMiddleware(testLogger(buf), LogLevelMinimal)

	stream, err := mw.Stream(makeStreamFunc(0, nil))(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range stream.Iter() {
		break
	}

	output := buf.String()
	if !strings.Contains(output, "llm stream abandoned") {
		t.Errorf("expected abandoned log, got:\n%s", output)
	}
	if strings.Contains(output, "llm stream completed") {
		t.Errorf("abandoned stream must not log completion, got:\n%s", output)
	}
}

func TestLoggingMiddleware_Stream_Failed(t *testing.T) {
	buf := &bytes.Buffer{}
	mw := NewLoggingMiddleware(testLogger(buf), LogLevelMinimal)

	next := func(_ context.Context, _ ai.ChatRequest) (*ai.ChatStream, error) {
		return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
			yield(ai.StreamEvent{}, ai.NewRemoteError(ai.ErrStreamInterrupted, 0, "reset", nil))
		}), nil
	}

	stream, err := mw.Stream(next)(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := stream.Collect(); err == nil {
		t.Fatal("expected error")
	}

	if !strings.Contains(buf.String(), "llm stream failed") {
		t.Errorf("expected failure log, got:\n%s", buf.String())
	}
}

func TestLoggingMiddleware_TruncatesLongContent(t *testing.T) {
	buf := &bytes.Buffer{}
	request := ai.ChatRequest{
		Model:    "m",
		Messages: []ai.Message{{Role: ai.RoleUser, Content: strings.Repeat("x", 2000)}},
	}

	send := NewLoggingMiddleware(testLogger(buf), LogLevelVerbose).Send(sampleSend)
	if _, err := send(context.Background(), request); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "truncated, total: 2000 chars") {
		t.Errorf("expected truncated content, got:\n%s", output)
	}
	if strings.Contains(output, strings.Repeat("x", 501)) {
		t.Error("content longer than the limit was logged")
	}
}

func TestLoggingMiddleware_FailureCarriesKind(t *testing.T) {
	buf := &bytes.Buffer{}
	failing := func(_ context.Context, _ ai.ChatRequest) (*ai.ChatResponse, error) {
		return nil, unavailable()
	}

	_, _ = NewLoggingMiddleware(testLogger(buf), LogLevelMinimal).Send(failing)(context.Background(), sampleRequest())

	if !strings.Contains(buf.String(), "kind=remote_unavailable") {
		t.Errorf("expected error kind in log, got:\n%s", buf.String())
	}
}
