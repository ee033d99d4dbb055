package trackhook

import "log/slog"

// Option configures the Hook.
type Option func(*Hook)

// WithLogger sets the logger for chain-continuation diagnostics.
// Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hook) {
		if logger != nil {
			h.logger = logger
		}
	}
}
