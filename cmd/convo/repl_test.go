package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/leofalp/convo/core/conversation"
	"github.com/leofalp/convo/providers/ai"
)

// scriptedProvider answers with replies in order and fails when a user
// message equals "fail".
type scriptedProvider struct {
	replies []string
	calls   int
}

func (p *scriptedProvider) SendMessage(_ context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	if req.Messages[len(req.Messages)-1].Content == "fail" {
		return nil, ai.NewRemoteError(ai.ErrRemoteRejected, http.StatusBadRequest, "bad request", nil)
	}
	reply := p.replies[p.calls%len(p.replies)]
	p.calls++
	return &ai.ChatResponse{Content: reply, FinishReason: "stop"}, nil
}
func (p *scriptedProvider) WithAPIKey(string) ai.Provider           { return p }
func (p *scriptedProvider) WithBaseURL(string) ai.Provider          { return p }
func (p *scriptedProvider) WithHttpClient(*http.Client) ai.Provider { return p }

func runREPL(t *testing.T, provider ai.Provider, stream bool, input string) string {
	t.Helper()
	client, err := conversation.New(provider)
	if err != nil {
		t.Fatalf("conversation.New: %v", err)
	}

	var out bytes.Buffer
	if err := newREPL(client, strings.NewReader(input), &out, stream).run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	return out.String()
}

func TestREPL_SendHistoryReset(t *testing.T) {
	provider := &scriptedProvider{replies: []string{"Rome.", "About 2.8 million."}}
	input := "Capital of Italy?\nPopulation?\n/history\n/reset\n/history\n/quit\nnever sent\n"

	out := runREPL(t, provider, false, input)

	for _, want := range []string{
		"Rome.\n",
		"About 2.8 million.\n",
		"[user] Capital of Italy?\n[assistant] Rome.\n[user] Population?\n[assistant] About 2.8 million.\n",
		"(conversation cleared)\n",
		"(empty)\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if provider.calls != 2 {
		t.Errorf("provider calls = %d, want 2 (commands and lines after /quit are not sent)", provider.calls)
	}
}

func TestREPL_ErrorsAreReportedAndLoopContinues(t *testing.T) {
	provider := &scriptedProvider{replies: []string{"ok"}}

	out := runREPL(t, provider, false, "fail\nhello\n/history\n")

	if !strings.Contains(out, "error (rejected)") {
		t.Errorf("expected rejected error in output:\n%s", out)
	}
	if !strings.Contains(out, "[user] fail\n[user] hello\n[assistant] ok\n") {
		t.Errorf("failed exchange must keep its user turn:\n%s", out)
	}
}

func TestREPL_StreamingUsesFallbackForPlainProvider(t *testing.T) {
	provider := &scriptedProvider{replies: []string{"streamed reply"}}

	out := runREPL(t, provider, true, "hi\n")

	if !strings.Contains(out, "streamed reply\n") {
		t.Errorf("expected streamed reply:\n%s", out)
	}
}

func TestREPL_CancelAtIdlePrompt(t *testing.T) {
	client, err := conversation.New(&scriptedProvider{replies: []string{"unused"}})
	if err != nil {
		t.Fatalf("conversation.New: %v", err)
	}

	// Nothing is ever written, so a blocking read would hang the loop.
	in, w := io.Pipe()
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- newREPL(client, in, io.Discard, false).run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}

func TestErrorKind(t *testing.T) {
	if got := errorKind(ai.InvalidInput("x")); got != "invalid input" {
		t.Errorf("errorKind = %q", got)
	}
	if got := errorKind(ai.NewRemoteError(ai.ErrStreamInterrupted, 0, "", nil)); got != "interrupted" {
		t.Errorf("errorKind = %q", got)
	}
}
