// Package config loads convo settings from .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/leofalp/convo/core/conversation"
	"github.com/leofalp/convo/internal/logging"
)

const (
	// DefaultBaseURL is the OpenAI API root.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultHTTPAddr is the listen address of convo-server.
	DefaultHTTPAddr = ":8080"
)

// Config holds everything the convo binaries read from the environment.
type Config struct {
	APIKey  string
	BaseURL string

	// Generation is the default generation configuration of every client.
	Generation   conversation.Config
	SystemPrompt string

	// Caller-side policies. Zero disables them.
	RequestTimeout time.Duration
	MaxRetries     int

	LogLevel  string
	LogFormat string

	HTTPAddr    string
	DatabaseURL string
}

// Load reads envFiles (".env" when none are given) into the process
// environment and builds a Config from it. Missing files are ignored and
// variables already set in the environment take precedence.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: loading %s: %w", file, err)
		}
	}

	r := &reader{}
	cfg := &Config{
		APIKey:       os.Getenv("OPENAI_API_KEY"),
		BaseURL:      getEnv("OPENAI_API_BASE_URL", DefaultBaseURL),
		SystemPrompt: os.Getenv("CONVO_SYSTEM_PROMPT"),
		Generation: conversation.Config{
			Model:           getEnv("OPENAI_MODEL", conversation.DefaultModel),
			MaxOutputTokens: r.intVar("OPENAI_MAX_OUTPUT_TOKENS"),
			Temperature:     r.floatVar("OPENAI_TEMPERATURE"),
			TopP:            r.floatVar("OPENAI_TOP_P"),
			Stream:          r.boolVar("OPENAI_STREAM"),
		},
		RequestTimeout: r.durationVar("CONVO_REQUEST_TIMEOUT"),
		MaxRetries:     r.intVar("CONVO_MAX_RETRIES"),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
		LogFormat:      getEnv("LOG_FORMAT", string(logging.FormatText)),
		HTTPAddr:       getEnv("HTTP_ADDR", DefaultHTTPAddr),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
	}
	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges. A missing API key is not an error here: the
// provider reports it as a rejected exchange.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Generation.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("config: CONVO_REQUEST_TIMEOUT must not be negative, got %s", c.RequestTimeout))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("config: CONVO_MAX_RETRIES must not be negative, got %d", c.MaxRetries))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("config: LOG_LEVEL: %w", err))
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		errs = append(errs, fmt.Errorf("config: LOG_FORMAT: %w", err))
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("config: OPENAI_API_BASE_URL must be an http(s) URL, got %q", c.BaseURL))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

// reader parses typed variables, collecting one error per malformed value.
type reader struct {
	errs []error
}

func (r *reader) fail(key, val string, err error) {
	r.errs = append(r.errs, fmt.Errorf("config: invalid %s=%q: %w", key, val, err))
}

func (r *reader) intVar(key string) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return 0
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		r.fail(key, val, err)
	}
	return n
}

func (r *reader) floatVar(key string) *float64 {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		r.fail(key, val, err)
		return nil
	}
	return &f
}

func (r *reader) boolVar(key string) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return false
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		r.fail(key, val, err)
	}
	return b
}

func (r *reader) durationVar(key string) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return 0
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		r.fail(key, val, err)
	}
	return d
}
