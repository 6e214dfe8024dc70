package memory

import (
	"context"

	"github.com/leofalp/convo/providers/ai"
)

// Provider stores the transcript of one conversation, oldest message first.
type Provider interface {
	// AppendMessage stores a copy of message at the end of the transcript.
	// A nil message is ignored.
	AppendMessage(ctx context.Context, message *ai.Message) error

	// AllMessages returns every message in conversation order. The returned
	// slice is owned by the caller.
	AllMessages(ctx context.Context) ([]ai.Message, error)

	// LastMessages returns up to the last n messages in conversation order.
	LastMessages(ctx context.Context, n int) ([]ai.Message, error)

	// Count returns the number of stored messages.
	Count(ctx context.Context) (int, error)

	// ClearMessages removes every message. Clearing an empty store succeeds.
	ClearMessages(ctx context.Context) error
}
