package deadline

import (
	"log/slog"
	"time"
)

// Defaults applied by NewManager.
const (
	// DefaultSafetyMargin is how much budget is reserved for teardown.
	DefaultSafetyMargin = 500 * time.Millisecond

	// DefaultPollInterval is how often the monitor samples the budget.
	DefaultPollInterval = 50 * time.Millisecond

	// DefaultMaxDuration is the fixed budget used when no remaining-time
	// oracle is configured.
	DefaultMaxDuration = 30 * time.Second
)

// Option is a functional option for configuring a Manager.
type Option func(*Manager)

// WithRemainingFunc supplies the host's remaining-time oracle, e.g. a
// serverless runtime's budget query. It is polled from the monitor
// goroutine and must be safe for concurrent use.
func WithRemainingFunc(fn func() time.Duration) Option {
	return func(m *Manager) {
		m.remaining = fn
	}
}

// WithMaxDuration sets a fixed budget counted from manager construction.
// Ignored when a remaining-time oracle is configured.
func WithMaxDuration(d time.Duration) Option {
	return func(m *Manager) {
		m.maxDuration = d
	}
}

// WithSafetyMargin sets how much budget to leave for teardown.
func WithSafetyMargin(d time.Duration) Option {
	return func(m *Manager) {
		m.safetyMargin = d
	}
}

// WithPollInterval sets how often the monitor samples the budget.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.poll = d
	}
}

// WithLogger sets the logger used for deadline warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}
