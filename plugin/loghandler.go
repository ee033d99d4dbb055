package plugin

import (
	"context"
	"log/slog"
)

// sinkMarker marks contexts of log records produced while delivering to
// LogSink plugins. Marked records are forwarded to the wrapped handler
// only, never re-broadcast.
type sinkMarker struct{}

func markSink(ctx context.Context) context.Context {
	return context.WithValue(ctx, sinkMarker{}, true)
}

func fromSink(ctx context.Context) bool {
	v, _ := ctx.Value(sinkMarker{}).(bool)
	return v
}

// LogHandler is a slog.Handler that tees every record into the manager's
// LogSink plugins before forwarding it to the wrapped handler. Build the
// core's logger on it to let plugins observe the core's own logging:
//
//	mgr := plugin.NewManager(nil)
//	logger := slog.New(plugin.NewLogHandler(slog.NewJSONHandler(os.Stderr, nil), mgr))
type LogHandler struct {
	inner slog.Handler
	mgr   *Manager

	// prefix is the dotted path of open groups; attrs holds accumulated
	// WithAttrs attrs, keys pre-qualified with the prefix active when
	// they were added.
	prefix string
	attrs  []slog.Attr
}

var _ slog.Handler = (*LogHandler)(nil)

// NewLogHandler wraps inner so records are also delivered to mgr's
// LogSink plugins.
func NewLogHandler(inner slog.Handler, mgr *Manager) *LogHandler {
	if inner == nil {
		inner = slog.Default().Handler()
	}
	return &LogHandler{inner: inner, mgr: mgr}
}

// Enabled reports whether the wrapped handler handles records at level.
// Records below that level reach neither the wrapped handler nor the sinks.
func (h *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle delivers the record to the LogSink plugins and then to the
// wrapped handler.
func (h *LogHandler) Handle(ctx context.Context, rec slog.Record) error {
	if !fromSink(ctx) {
		lr := LogRecord{
			Time:    rec.Time,
			Level:   rec.Level,
			Message: rec.Message,
			Attrs:   make(map[string]any, rec.NumAttrs()+len(h.attrs)),
		}
		for _, a := range h.attrs {
			lr.Attrs[a.Key] = a.Value.Resolve().Any()
		}
		rec.Attrs(func(a slog.Attr) bool {
			lr.Attrs[h.prefix+a.Key] = a.Value.Resolve().Any()
			return true
		})
		h.mgr.EmitLog(ctx, lr)
	}
	return h.inner.Handle(ctx, rec)
}

// WithAttrs returns a handler whose records carry attrs.
func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := *h
	c.inner = h.inner.WithAttrs(attrs)
	qualified := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	qualified = append(qualified, h.attrs...)
	for _, a := range attrs {
		qualified = append(qualified, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	c.attrs = qualified
	return &c
}

// WithGroup returns a handler that qualifies subsequent attr keys with name.
func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.inner = h.inner.WithGroup(name)
	c.prefix = h.prefix + name + "."
	return &c
}
