package loghook

import "log/slog"

// Option configures a Hook.
type Option func(*Hook)

// WithEvents restricts the hook to log only the listed events.
// By default every event is logged. Unknown events are silently ignored.
//
// Example:
//
//	loghook.New(
//	    loghook.WithEvents(loghook.EventJobEnd, loghook.EventError),
//	)
func WithEvents(events ...string) Option {
	return func(h *Hook) {
		h.enabled = make(map[string]bool, len(events))
		for _, e := range events {
			h.enabled[e] = true
		}
	}
}

// WithLogger sets a custom logger for the hook.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hook) { h.logger = l }
}
