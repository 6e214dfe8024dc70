package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/leofalp/convo/providers/ai"
	"github.com/leofalp/convo/providers/memory"
	"github.com/leofalp/convo/providers/memory/inmemory"
)

// Client is a stateful conversation with one remote endpoint.
//
// The transcript alternates user and assistant turns for successful
// exchanges. A failed exchange leaves its user turn in place and adds no
// assistant turn, so the transcript is never rolled back.
type Client struct {
	provider     ai.Provider
	memory       memory.Provider
	config       Config
	systemPrompt string
	logger       *slog.Logger
	middlewares  []MiddlewareConfig

	sendChain   SendFunc
	streamChain StreamFunc

	// generation advances on every exchange and every Reset; a stream only
	// commits its reply while it still belongs to the current generation.
	generation uint64
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithConfig replaces the default generation Config. It is validated by New.
func WithConfig(config Config) Option {
	return func(c *Client) { c.config = config.clone() }
}

// WithMemory sets the transcript store. Defaults to an in-memory store.
func WithMemory(m memory.Provider) Option {
	return func(c *Client) { c.memory = m }
}

// WithSystemPrompt sets instructions sent ahead of the transcript on every
// exchange. The prompt is not part of the transcript.
func WithSystemPrompt(prompt string) Option {
	return func(c *Client) { c.systemPrompt = prompt }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMiddleware appends middlewares to the provider call chain. The first
// middleware given is the outermost.
func WithMiddleware(middlewares ...MiddlewareConfig) Option {
	return func(c *Client) { c.middlewares = append(c.middlewares, middlewares...) }
}

// New creates a Client for provider. The resulting Config must be valid.
func New(provider ai.Provider, opts ...Option) (*Client, error) {
	if provider == nil {
		return nil, errors.New("conversation: provider must not be nil")
	}

	client := &Client{
		provider: provider,
		config:   DefaultConfig(),
	}
	for _, opt := range opts {
		opt(client)
	}

	if err := client.config.Validate(); err != nil {
		return nil, fmt.Errorf("conversation: invalid config: %w", err)
	}
	for i, mw := range client.middlewares {
		if mw.Send == nil {
			return nil, fmt.Errorf("conversation: middleware at index %d has a nil Send function", i)
		}
	}

	if client.memory == nil {
		client.memory = inmemory.New()
	}
	if client.logger == nil {
		client.logger = slog.Default()
	}

	client.sendChain = buildSendChain(provider, client.middlewares)
	client.streamChain = buildStreamChain(provider, client.middlewares)

	return client, nil
}

// Config returns a copy of the default generation parameters.
func (c *Client) Config() Config {
	return c.config.clone()
}

// Send appends userText as a user turn, sends the transcript and appends the
// assistant reply, which is also returned.
//
// Empty or whitespace-only text and invalid overrides fail with
// ai.ErrInvalidInput before anything is recorded. When the resolved config
// selects streaming, the reply is received incrementally but only the
// complete message is returned.
func (c *Client) Send(ctx context.Context, userText string, opts ...SendOption) (ai.Message, error) {
	exchange, err := c.begin(ctx, userText, opts)
	if err != nil {
		return ai.Message{}, err
	}

	if exchange.config.Stream {
		stream, err := c.openStream(ctx, exchange)
		if err != nil {
			return ai.Message{}, err
		}
		return stream.Collect()
	}

	response, err := c.sendChain(ctx, exchange.request)
	if err != nil {
		return ai.Message{}, c.fail(ctx, exchange, classify(ctx, err, false))
	}

	return c.commit(ctx, exchange, response.Content)
}

// Stream appends userText as a user turn and opens a streaming exchange.
//
// Failures before the first fragment (validation, connection, rejection) are
// returned here. The reply is committed once the returned Stream has been
// consumed to the end; abandoning it commits nothing.
func (c *Client) Stream(ctx context.Context, userText string, opts ...SendOption) (*Stream, error) {
	exchange, err := c.begin(ctx, userText, opts)
	if err != nil {
		return nil, err
	}

	exchange.config.Stream = true
	return c.openStream(ctx, exchange)
}

// Reset clears the transcript. It never contacts the endpoint and succeeds
// on an empty transcript. A stream still open from before the reset will not
// commit its reply.
func (c *Client) Reset(ctx context.Context) error {
	c.generation++

	if err := c.memory.ClearMessages(ctx); err != nil {
		return fmt.Errorf("conversation: reset: %w", err)
	}

	c.logger.DebugContext(ctx, "conversation reset")
	return nil
}

// History returns a copy of the transcript in conversation order.
func (c *Client) History(ctx context.Context) ([]ai.Message, error) {
	messages, err := c.memory.AllMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("conversation: history: %w", err)
	}
	return slices.Clone(messages), nil
}

// Recent returns up to the n newest turns in conversation order. n <= 0
// yields an empty slice.
func (c *Client) Recent(ctx context.Context, n int) ([]ai.Message, error) {
	messages, err := c.memory.LastMessages(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("conversation: recent history: %w", err)
	}
	return slices.Clone(messages), nil
}

// exchange is one request in flight.
type exchange struct {
	generation uint64
	config     Config
	request    ai.ChatRequest
}

// begin validates the call, records the user turn and builds the request.
func (c *Client) begin(ctx context.Context, userText string, opts []SendOption) (*exchange, error) {
	if strings.TrimSpace(userText) == "" {
		return nil, ai.InvalidInput("message text must not be empty")
	}

	config := resolve(c.config, opts)
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := c.memory.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: userText}); err != nil {
		return nil, fmt.Errorf("conversation: store user turn: %w", err)
	}

	transcript, err := c.memory.AllMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("conversation: load transcript: %w", err)
	}

	c.generation++

	c.logger.DebugContext(ctx, "conversation exchange",
		slog.String("model", config.Model),
		slog.Bool("stream", config.Stream),
		slog.Int("message_count", len(transcript)),
	)

	return &exchange{
		generation: c.generation,
		config:     config,
		request: ai.ChatRequest{
			Model:            config.Model,
			Messages:         transcript,
			SystemPrompt:     c.systemPrompt,
			GenerationConfig: config.generationConfig(),
		},
	}, nil
}

// openStream starts the streaming transport for exchange.
func (c *Client) openStream(ctx context.Context, exchange *exchange) (*Stream, error) {
	chatStream, err := c.streamChain(ctx, exchange.request)
	if err != nil {
		return nil, c.fail(ctx, exchange, classify(ctx, err, false))
	}

	return newStream(ctx, c, exchange, chatStream), nil
}

// commit appends the assistant turn for exchange.
func (c *Client) commit(ctx context.Context, exchange *exchange, content string) (ai.Message, error) {
	if exchange.generation != c.generation {
		return ai.Message{}, ErrStreamSuperseded
	}

	message := ai.Message{Role: ai.RoleAssistant, Content: content}
	if err := c.memory.AppendMessage(ctx, &message); err != nil {
		return ai.Message{}, fmt.Errorf("conversation: store assistant turn: %w", err)
	}

	return message, nil
}

// fail logs a failed exchange and returns err.
func (c *Client) fail(ctx context.Context, exchange *exchange, err error) error {
	c.logger.WarnContext(ctx, "conversation exchange failed",
		slog.String("model", exchange.config.Model),
		slog.String("kind", kindOf(err)),
		slog.String("error", err.Error()),
	)
	return err
}

// classify makes sure err matches one of the error kinds. Errors from custom
// providers or middlewares that carry no kind are treated as unavailability,
// or as an interruption once the stream had started.
func classify(ctx context.Context, err error, midStream bool) error {
	switch {
	case errors.Is(err, ai.ErrInvalidInput),
		errors.Is(err, ai.ErrRemoteUnavailable),
		errors.Is(err, ai.ErrRemoteRejected),
		errors.Is(err, ai.ErrStreamInterrupted):
		return err
	case ctx.Err() != nil, errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ai.NewRemoteError(ai.ErrRemoteUnavailable, 0, "", err)
	case midStream:
		return ai.NewRemoteError(ai.ErrStreamInterrupted, 0, "", err)
	default:
		return ai.NewRemoteError(ai.ErrRemoteUnavailable, 0, "", err)
	}
}

func kindOf(err error) string {
	switch {
	case errors.Is(err, ai.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ai.ErrRemoteRejected):
		return "remote_rejected"
	case errors.Is(err, ai.ErrStreamInterrupted):
		return "stream_interrupted"
	case errors.Is(err, ai.ErrRemoteUnavailable):
		return "remote_unavailable"
	}
	return "unknown"
}
