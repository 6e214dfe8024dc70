// Package session keeps one conversation.Client per session ID.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leofalp/convo/core/conversation"
)

// ErrNotFound is returned for an unknown session ID.
var ErrNotFound = errors.New("session: not found")

// Factory builds the client of a new session. id is the session's ID, which
// a persistent transcript store can use as its key.
type Factory func(ctx context.Context, id string) (*conversation.Client, error)

// Session is a conversation addressed by ID. A conversation.Client supports a
// single caller at a time, so every use goes through Do.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu     sync.Mutex
	client *conversation.Client
}

// Do runs fn with exclusive access to the session's client. Calls on one
// session run one at a time: a transcript read waits for a reply in flight,
// streamed or not, to finish.
func (s *Session) Do(fn func(client *conversation.Client) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.client)
}

// Store finds sessions whose transcripts outlive the process, such as a
// pgmemory.Catalog.
type Store interface {
	Exists(ctx context.Context, id string) (bool, error)
	SessionIDs(ctx context.Context) ([]string, error)
}

// Option configures a Registry.
type Option func(*Registry)

// WithStore lets the Registry reopen sessions found in store. The factory
// must then build clients whose transcripts live in the same store.
func WithStore(store Store) Option {
	return func(r *Registry) {
		r.store = store
	}
}

// Registry tracks live sessions.
type Registry struct {
	factory Factory
	store   Store

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns an empty Registry that creates clients with factory.
func NewRegistry(factory Factory, opts ...Option) *Registry {
	r := &Registry{
		factory:  factory,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create starts a session with a fresh random ID.
func (r *Registry) Create(ctx context.Context) (*Session, error) {
	id := uuid.NewString()

	s, err := r.open(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	return s, nil
}

// Get returns the session with the given ID. A session unknown to this
// Registry is reopened when its transcript is in the store. Otherwise Get
// returns ErrNotFound.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	if r.store == nil || uuid.Validate(id) != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	found, err := r.store.Exists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session: looking up %s: %w", id, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	reopened, err := r.open(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another request may have reopened it meanwhile.
	if s, ok := r.sessions[id]; ok {
		return s, nil
	}
	r.sessions[id] = reopened
	return reopened, nil
}

// open builds the session of id. CreatedAt is the time this process opened
// it.
func (r *Registry) open(ctx context.Context, id string) (*Session, error) {
	client, err := r.factory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session: creating client: %w", err)
	}
	return &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		client:    client,
	}, nil
}

// Delete resets the session's transcript and forgets the session. The session
// is removed even when the reset fails; the reset error is returned.
func (r *Registry) Delete(ctx context.Context, id string) error {
	s, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()

	return s.Do(func(client *conversation.Client) error {
		return client.Reset(ctx)
	})
}

// IDs returns the IDs of the live sessions and of those in the store,
// sorted.
func (r *Registry) IDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	if r.store != nil {
		stored, err := r.store.SessionIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("session: listing stored sessions: %w", err)
		}
		ids = append(ids, stored...)
	}

	r.mu.RLock()
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// Len returns the number of sessions open in this process.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
