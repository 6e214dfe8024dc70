// Package logging builds the slog.Logger shared by the convo binaries.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Format is the output format of the logger.
type Format string

const (
	// FormatText is slog's key=value text output.
	FormatText Format = "text"

	// FormatJSON is one JSON object per line, for log aggregation.
	FormatJSON Format = "json"

	// FormatCompact is a single human-readable line with JSON attributes:
	// 2025-11-03 10:40:35 DEBUG message → {"key":"value"}
	FormatCompact Format = "compact"
)

// ParseLevel parses DEBUG, INFO, WARN (or WARNING) and ERROR, in any case.
// An empty string means INFO.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "", "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", s)
}

// ParseFormat parses text, json and compact. An empty string means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatCompact:
		return FormatCompact, nil
	}
	return FormatText, fmt.Errorf("logging: unknown format %q", s)
}

// New returns a logger writing to w at the given level and format.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	options := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch f {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, options)
	case FormatCompact:
		handler = newCompactHandler(w, lvl)
	default:
		handler = slog.NewTextHandler(w, options)
	}

	return slog.New(handler), nil
}
