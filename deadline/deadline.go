// Package deadline manages execution deadlines for dispatch invocations.
//
// Hosts with hard execution limits (serverless runtimes, cron slots) expose
// how much time is left; a [Manager] polls that budget and cancels work
// before the host kills the process, leaving a safety margin to flush
// buffered state. Hosts without a native budget use a fixed maximum
// duration anchored at manager construction.
package deadline

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Manager tracks one invocation's time budget. Create one per invocation;
// all methods are safe for concurrent use.
type Manager struct {
	remaining    func() time.Duration
	maxDuration  time.Duration
	safetyMargin time.Duration
	poll         time.Duration
	logger       *slog.Logger

	start time.Time

	once sync.Once

	mu          sync.Mutex
	fired       bool
	cancels     []context.CancelFunc
	monitorStop chan struct{}
}

// NewManager creates a deadline manager. Without WithRemainingFunc the
// budget is a fixed clock of WithMaxDuration (default DefaultMaxDuration)
// anchored at construction.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		safetyMargin: DefaultSafetyMargin,
		poll:         DefaultPollInterval,
		logger:       slog.Default(),
		start:        time.Now(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.remaining == nil && m.maxDuration == 0 {
		m.maxDuration = DefaultMaxDuration
	}
	return m
}

// Remaining returns the time left in the budget. With a remaining-time
// oracle this is whatever the host reports; otherwise it counts down from
// the fixed maximum. May go negative once the budget is exhausted.
func (m *Manager) Remaining() time.Duration {
	if m.remaining != nil {
		return m.remaining()
	}
	return m.maxDuration - time.Since(m.start)
}

// Elapsed returns the time since the manager was created.
func (m *Manager) Elapsed() time.Duration {
	return time.Since(m.start)
}

// IsApproachingTimeout reports whether the remaining budget is at or below
// the safety margin.
func (m *Manager) IsApproachingTimeout() bool {
	return m.Remaining() <= m.safetyMargin
}

// Context derives a context that is cancelled when the deadline fires.
// The returned stop func releases the context's resources; callers must
// invoke it. If the deadline already fired the context comes back
// cancelled.
func (m *Manager) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	m.mu.Lock()
	if m.fired {
		m.mu.Unlock()
		cancel()
		return ctx, cancel
	}
	m.cancels = append(m.cancels, cancel)
	m.mu.Unlock()
	return ctx, cancel
}

// StartMonitoring polls the budget and, when the safety margin is reached,
// cancels every context issued by Context and then invokes onApproaching.
// Only one monitor runs at a time; starting again replaces the previous
// monitor.
func (m *Manager) StartMonitoring(onApproaching func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.monitorStop != nil {
		close(m.monitorStop)
	}
	stop := make(chan struct{})
	m.monitorStop = stop
	go m.monitor(stop, onApproaching)
}

// StopMonitoring halts the poll loop. Safe to call repeatedly and when no
// monitor is running.
func (m *Manager) StopMonitoring() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.monitorStop != nil {
		close(m.monitorStop)
		m.monitorStop = nil
	}
}

func (m *Manager) monitor(stop <-chan struct{}, onApproaching func()) {
	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()
	// Sample before the first tick so an already-exhausted budget fires
	// without waiting a full poll interval.
	for {
		if m.IsApproachingTimeout() {
			m.fire()
			if onApproaching != nil {
				onApproaching()
			}
			return
		}
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// fire cancels all issued contexts. The shared cancellation happens
// exactly once no matter how many monitors observe the margin.
func (m *Manager) fire() {
	m.once.Do(func() {
		m.mu.Lock()
		m.fired = true
		cancels := m.cancels
		m.cancels = nil
		m.mu.Unlock()

		m.logger.Warn("deadline approaching, cancelling work",
			slog.Duration("remaining", m.Remaining()),
			slog.Duration("elapsed", m.Elapsed()),
		)
		for _, cancel := range cancels {
			cancel()
		}
	})
}

// ExecuteWithTimeout runs fn under deadline supervision. fn receives a
// context cancelled when the safety margin is reached; if that happens
// onApproaching is invoked (flush buffers there) and a *TimeoutError
// carrying msg is returned while fn drains in the background. fn's own
// return travels through unchanged when it finishes in time.
func (m *Manager) ExecuteWithTimeout(ctx context.Context, fn func(context.Context) error, onApproaching func(), msg string) error {
	runCtx, stop := m.Context(ctx)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- fn(runCtx) }()

	timedOut := make(chan struct{})
	m.StartMonitoring(func() {
		if onApproaching != nil {
			onApproaching()
		}
		close(timedOut)
	})
	defer m.StopMonitoring()

	select {
	case err := <-done:
		return err
	case <-timedOut:
		return &TimeoutError{Message: msg, Remaining: m.Remaining(), Elapsed: m.Elapsed()}
	case <-ctx.Done():
		return ctx.Err()
	}
}
