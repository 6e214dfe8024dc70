package inmemory

import (
	"context"
	"slices"
	"sync"

	"github.com/leofalp/convo/providers/ai"
	"github.com/leofalp/convo/providers/memory"
)

// ArrayMemory keeps the transcript in a slice. It is safe for concurrent
// use, and every read returns a copy.
type ArrayMemory struct {
	mu       sync.RWMutex
	messages []ai.Message
}

var _ memory.Provider = (*ArrayMemory)(nil)

// New returns an empty store.
func New() *ArrayMemory {
	return &ArrayMemory{}
}

// AppendMessage stores a copy of message. nil is a no-op.
func (m *ArrayMemory) AppendMessage(_ context.Context, message *ai.Message) error {
	if message == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, *message)
	return nil
}

func (m *ArrayMemory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages), nil
}

func (m *ArrayMemory) AllMessages(_ context.Context) ([]ai.Message, error) {
	return m.tail(-1), nil
}

// LastMessages returns up to n of the newest turns, oldest first, or an empty
// slice when n <= 0.
func (m *ArrayMemory) LastMessages(_ context.Context, n int) ([]ai.Message, error) {
	if n <= 0 {
		return []ai.Message{}, nil
	}
	return m.tail(n), nil
}

// tail copies the newest n messages, or all of them when n < 0.
func (m *ArrayMemory) tail(n int) []ai.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	from := 0
	if n >= 0 {
		from = max(len(m.messages)-n, 0)
	}
	return append([]ai.Message{}, m.messages[from:]...)
}

// ClearMessages empties the store and keeps its capacity.
func (m *ArrayMemory) ClearMessages(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = slices.Delete(m.messages, 0, len(m.messages))
	return nil
}
