package inmemory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/leofalp/convo/providers/ai"
)

func TestArrayMemory_AppendAndAllMessages(t *testing.T) {
	ctx := context.Background()
	m := New()
	if n, _ := m.Count(ctx); n != 0 {
		t.Fatalf("expected empty memory")
	}

	if err := m.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = m.AppendMessage(ctx, &ai.Message{Role: ai.RoleAssistant, Content: "hello"})

	if n, _ := m.Count(ctx); n != 2 {
		t.Fatalf("expected 2 messages, got %d", n)
	}

	all, err := m.AllMessages(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("expected AllMessages to return 2, got %d (%v)", len(all), err)
	}

	// mutate returned slice should not affect internal state
	all[0].Content = "changed"
	again, _ := m.AllMessages(ctx)
	if again[0].Content == "changed" {
		t.Fatalf("expected copy protection in AllMessages")
	}
}

func TestArrayMemory_AppendCopiesMessage(t *testing.T) {
	ctx := context.Background()
	m := New()

	msg := &ai.Message{Role: ai.RoleUser, Content: "original"}
	_ = m.AppendMessage(ctx, msg)
	msg.Content = "mutated"

	all, _ := m.AllMessages(ctx)
	if all[0].Content != "original" {
		t.Fatalf("expected stored message to be a copy, got %q", all[0].Content)
	}
}

func TestArrayMemory_NilIsIgnored(t *testing.T) {
	ctx := context.Background()
	m := New()

	if err := m.AppendMessage(ctx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := m.Count(ctx); n != 0 {
		t.Fatalf("expected nil append to be ignored, got %d messages", n)
	}
}

func TestArrayMemory_LastMessages(t *testing.T) {
	ctx := context.Background()
	m := New()
	for i := 0; i < 5; i++ {
		_ = m.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: string(rune('a' + i))})
	}

	last, _ := m.LastMessages(ctx, 2)
	if len(last) != 2 {
		t.Fatalf("expected 2, got %d", len(last))
	}
	if last[0].Content != "d" || last[1].Content != "e" {
		t.Fatalf("unexpected last messages order: %v", last)
	}

	none, _ := m.LastMessages(ctx, 0)
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice when n <= 0")
	}

	all, _ := m.LastMessages(ctx, 10)
	if len(all) != 5 {
		t.Fatalf("expected full slice when n > len, got %d", len(all))
	}
}

func TestArrayMemory_ClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := New()
	_ = m.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: "x"})

	for i := 0; i < 2; i++ {
		if err := m.ClearMessages(ctx); err != nil {
			t.Fatalf("clear %d: unexpected error: %v", i, err)
		}
		all, _ := m.AllMessages(ctx)
		if len(all) != 0 {
			t.Fatalf("clear %d: expected empty, got %d", i, len(all))
		}
	}

	_ = m.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: "y"})
	if n, _ := m.Count(ctx); n != 1 {
		t.Fatalf("expected store usable after clear, got %d", n)
	}
}

func TestArrayMemory_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	m := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = m.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: fmt.Sprint(i)})
			_, _ = m.AllMessages(ctx)
		}(i)
	}
	wg.Wait()

	if n, _ := m.Count(ctx); n != 50 {
		t.Fatalf("expected 50 messages, got %d", n)
	}
}
