package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leofalp/convo/core/conversation"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY", "OPENAI_API_BASE_URL", "OPENAI_MODEL", "OPENAI_MAX_OUTPUT_TOKENS",
		"OPENAI_TEMPERATURE", "OPENAI_TOP_P", "OPENAI_STREAM", "CONVO_SYSTEM_PROMPT",
		"CONVO_REQUEST_TIMEOUT", "CONVO_MAX_RETRIES", "LOG_LEVEL", "LOG_FORMAT",
		"HTTP_ADDR", "DATABASE_URL",
	} {
		t.Setenv(key, "")
	}
}

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(missingFile(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.Generation.Model != conversation.DefaultModel {
		t.Errorf("Model = %q, want %q", cfg.Generation.Model, conversation.DefaultModel)
	}
	if cfg.Generation.Temperature != nil || cfg.Generation.TopP != nil {
		t.Error("sampling parameters must be unset by default")
	}
	if cfg.HTTPAddr != DefaultHTTPAddr {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, DefaultHTTPAddr)
	}
	if cfg.RequestTimeout != 0 || cfg.MaxRetries != 0 {
		t.Error("caller-side policies must be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4.1")
	t.Setenv("OPENAI_MAX_OUTPUT_TOKENS", "256")
	t.Setenv("OPENAI_TEMPERATURE", "0.7")
	t.Setenv("OPENAI_TOP_P", "0.9")
	t.Setenv("OPENAI_STREAM", "true")
	t.Setenv("CONVO_REQUEST_TIMEOUT", "45s")
	t.Setenv("CONVO_MAX_RETRIES", "2")
	t.Setenv("DATABASE_URL", "postgres://localhost/convo")

	cfg, err := Load(missingFile(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.APIKey != "sk-test" || cfg.Generation.Model != "gpt-4.1" {
		t.Errorf("unexpected key/model: %+v", cfg)
	}
	if cfg.Generation.MaxOutputTokens != 256 || !cfg.Generation.Stream {
		t.Errorf("unexpected generation config: %+v", cfg.Generation)
	}
	if cfg.Generation.Temperature == nil || *cfg.Generation.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", cfg.Generation.Temperature)
	}
	if cfg.Generation.TopP == nil || *cfg.Generation.TopP != 0.9 {
		t.Errorf("TopP = %v, want 0.9", cfg.Generation.TopP)
	}
	if cfg.RequestTimeout != 45*time.Second || cfg.MaxRetries != 2 {
		t.Errorf("unexpected policies: timeout=%v retries=%d", cfg.RequestTimeout, cfg.MaxRetries)
	}
	if cfg.DatabaseURL != "postgres://localhost/convo" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
}

func TestLoad_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_MODEL", "from-env")
	// godotenv skips variables that exist, even when empty. t.Setenv in
	// clearEnv still restores the original value afterwards.
	os.Unsetenv("CONVO_SYSTEM_PROMPT")

	file := filepath.Join(t.TempDir(), ".env")
	content := "OPENAI_MODEL=from-file\nCONVO_SYSTEM_PROMPT=\"Be brief.\"\n"
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Generation.Model != "from-env" {
		t.Errorf("Model = %q, want the environment value", cfg.Generation.Model)
	}
	if cfg.SystemPrompt != "Be brief." {
		t.Errorf("SystemPrompt = %q, want value from file", cfg.SystemPrompt)
	}
}

func TestLoad_MalformedValuesNameTheVariable(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_MAX_OUTPUT_TOKENS", "lots")
	t.Setenv("OPENAI_STREAM", "maybe")
	t.Setenv("CONVO_REQUEST_TIMEOUT", "30")

	_, err := Load(missingFile(t))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, name := range []string{"OPENAI_MAX_OUTPUT_TOKENS", "OPENAI_STREAM", "CONVO_REQUEST_TIMEOUT"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error does not name %s: %v", name, err)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			BaseURL:    DefaultBaseURL,
			Generation: conversation.DefaultConfig(),
			LogLevel:   "INFO",
			LogFormat:  "text",
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		substr string
	}{
		{"negative timeout", func(c *Config) { c.RequestTimeout = -time.Second }, "CONVO_REQUEST_TIMEOUT"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "CONVO_MAX_RETRIES"},
		{"bad level", func(c *Config) { c.LogLevel = "chatty" }, "LOG_LEVEL"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"bad base url", func(c *Config) { c.BaseURL = "api.openai.com" }, "OPENAI_API_BASE_URL"},
		{"bad temperature", func(c *Config) { v := 3.0; c.Generation.Temperature = &v }, "temperature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error %q does not mention %q", err, tt.substr)
			}
		})
	}

	if err := valid().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}
