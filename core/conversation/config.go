package conversation

import (
	"errors"
	"math"
	"strings"

	"github.com/leofalp/convo/providers/ai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// Config holds the generation parameters applied to every exchange unless a
// SendOption overrides them for a single call.
type Config struct {
	// Model is the remote model identifier. Required.
	Model string

	// MaxOutputTokens caps the reply length. 0 leaves it to the endpoint.
	MaxOutputTokens int

	// Temperature in [0, 2]. nil leaves it to the endpoint.
	Temperature *float64

	// TopP in (0, 1]. nil leaves it to the endpoint.
	TopP *float64

	// Stream makes Send receive the reply incrementally. Send still returns
	// the complete message.
	Stream bool
}

// DefaultConfig returns a Config with DefaultModel and every other field unset.
func DefaultConfig() Config {
	return Config{Model: DefaultModel}
}

// Validate reports every out-of-range field. The returned error matches
// ai.ErrInvalidInput.
func (c Config) Validate() error {
	var problems []error

	if strings.TrimSpace(c.Model) == "" {
		problems = append(problems, ai.InvalidInput("model must not be empty"))
	}
	if c.MaxOutputTokens < 0 {
		problems = append(problems, ai.InvalidInput("max output tokens must not be negative, got %d", c.MaxOutputTokens))
	}
	if t := c.Temperature; t != nil && (math.IsNaN(*t) || *t < 0 || *t > 2) {
		problems = append(problems, ai.InvalidInput("temperature must be in [0, 2], got %v", *t))
	}
	if p := c.TopP; p != nil && (math.IsNaN(*p) || *p <= 0 || *p > 1) {
		problems = append(problems, ai.InvalidInput("top_p must be in (0, 1], got %v", *p))
	}

	return errors.Join(problems...)
}

// clone returns a deep copy so that later changes to the caller's pointers
// are not observed.
func (c Config) clone() Config {
	out := c
	if c.Temperature != nil {
		temperature := *c.Temperature
		out.Temperature = &temperature
	}
	if c.TopP != nil {
		topP := *c.TopP
		out.TopP = &topP
	}
	return out
}

// generationConfig returns the sampling parameters for a request, or nil when
// none is set.
func (c Config) generationConfig() *ai.GenerationConfig {
	if c.MaxOutputTokens == 0 && c.Temperature == nil && c.TopP == nil {
		return nil
	}
	return &ai.GenerationConfig{
		MaxOutputTokens: c.MaxOutputTokens,
		Temperature:     c.Temperature,
		TopP:            c.TopP,
	}
}

// SendOption overrides one field of the client's Config for a single call.
type SendOption func(*Config)

// WithModel overrides the model for one call.
func WithModel(model string) SendOption {
	return func(c *Config) { c.Model = model }
}

// WithMaxOutputTokens overrides the output token cap for one call.
func WithMaxOutputTokens(n int) SendOption {
	return func(c *Config) { c.MaxOutputTokens = n }
}

// WithTemperature overrides the sampling temperature for one call.
func WithTemperature(temperature float64) SendOption {
	return func(c *Config) { c.Temperature = &temperature }
}

// WithTopP overrides nucleus sampling for one call.
func WithTopP(topP float64) SendOption {
	return func(c *Config) { c.TopP = &topP }
}

// WithStreaming selects incremental delivery for one Send call.
func WithStreaming(stream bool) SendOption {
	return func(c *Config) { c.Stream = stream }
}

// resolve applies opts to a copy of base.
func resolve(base Config, opts []SendOption) Config {
	resolved := base.clone()
	for _, opt := range opts {
		if opt != nil {
			opt(&resolved)
		}
	}
	return resolved
}
