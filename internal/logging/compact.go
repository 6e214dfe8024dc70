package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// compactHandler writes one line per record: time, level, message and the
// attributes as a JSON object. Groups become nested objects.
type compactHandler struct {
	mu     *sync.Mutex
	output io.Writer
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func newCompactHandler(output io.Writer, level slog.Level) *compactHandler {
	return &compactHandler{
		mu:     &sync.Mutex{},
		output: output,
		level:  level,
	}
}

func (h *compactHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *compactHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)
	buf = append(buf, r.Time.Format("2006-01-02 15:04:05")...)
	buf = fmt.Appendf(buf, " %5s ", r.Level.String())
	buf = append(buf, r.Message...)

	attrs := h.collectAttrs(r)
	if len(attrs) > 0 {
		data, err := json.Marshal(attrs)
		if err != nil {
			buf = append(buf, " → [json-error]"...)
		} else {
			buf = append(buf, " → "...)
			buf = append(buf, data...)
		}
	}
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.output.Write(buf)
	return err
}

func (h *compactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), h.grouped(attrs)...)
	return &clone
}

func (h *compactHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

// grouped nests attrs under the handler's open groups.
func (h *compactHandler) grouped(attrs []slog.Attr) []slog.Attr {
	if len(h.groups) == 0 {
		return attrs
	}
	anyAttrs := make([]any, len(attrs))
	for i, a := range attrs {
		anyAttrs[i] = a
	}
	for i := len(h.groups) - 1; i >= 0; i-- {
		group := slog.Group(h.groups[i], anyAttrs...)
		anyAttrs = []any{group}
	}
	return []slog.Attr{anyAttrs[0].(slog.Attr)}
}

func (h *compactHandler) collectAttrs(r slog.Record) map[string]any {
	out := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		addAttr(out, a)
	}

	var recordAttrs []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		recordAttrs = append(recordAttrs, a)
		return true
	})
	for _, a := range h.grouped(recordAttrs) {
		addAttr(out, a)
	}
	return out
}

func addAttr(out map[string]any, a slog.Attr) {
	value := a.Value.Resolve()
	if a.Key == "" && value.Kind() != slog.KindGroup {
		return
	}

	switch value.Kind() {
	case slog.KindGroup:
		group := value.Group()
		if len(group) == 0 {
			return
		}
		target := out
		if a.Key != "" {
			nested, ok := out[a.Key].(map[string]any)
			if !ok {
				nested = make(map[string]any, len(group))
				out[a.Key] = nested
			}
			target = nested
		}
		for _, ga := range group {
			addAttr(target, ga)
		}
	case slog.KindDuration:
		out[a.Key] = value.Duration().String()
	case slog.KindTime:
		out[a.Key] = value.Time().Format("2006-01-02T15:04:05.000Z07:00")
	default:
		if err, ok := value.Any().(error); ok {
			out[a.Key] = err.Error()
			return
		}
		out[a.Key] = value.Any()
	}
}
