// Package plugin defines the plugin system for Reflex.
// Plugins are notified of lifecycle events (invocation started, module
// detected, job finished, etc.) and can react to them — logging, auditing,
// correlation tracking, etc.
//
// Each lifecycle hook is a separate interface so plugins opt in only to the
// events they care about.
package plugin

import (
	"context"
	"log/slog"
	"time"

	"github.com/reflexhq/reflex"
	"github.com/reflexhq/reflex/job"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// Toggler lets a plugin report whether it is enabled. Plugins that do not
// implement it are always enabled; a disabled plugin is skipped by every
// broadcast without being initialized.
type Toggler interface {
	Enabled() bool
}

// Initializer is called once before the plugin receives any other hook.
// An error (or panic) disables the plugin for the life of the manager.
type Initializer interface {
	OnInit(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Invocation lifecycle hooks
// ──────────────────────────────────────────────────

// PreConfigurer is called before dispatch options are finalized. Plugins
// receive the config produced by the previous plugin and return the config
// the next one sees; returning an error keeps the incoming config.
type PreConfigurer interface {
	OnPreConfigure(ctx context.Context, n *reflex.Notification, cfg reflex.DispatchConfig) (reflex.DispatchConfig, error)
}

// InvocationStarted is called once per dispatch, after the tracking token
// is attached and before any module is evaluated.
type InvocationStarted interface {
	OnInvocationStart(ctx context.Context, n *reflex.Notification) error
}

// InvocationEnded is called once per dispatch with the aggregated result.
// It fires even when the invocation timed out or no module detected.
type InvocationEnded interface {
	OnInvocationEnd(ctx context.Context, n *reflex.Notification, res *reflex.Result) error
}

// ──────────────────────────────────────────────────
// Module evaluation hooks
// ──────────────────────────────────────────────────

// DetectionStarted is called before a module's detector runs.
type DetectionStarted interface {
	OnDetectionStart(ctx context.Context, module string, n *reflex.Notification) error
}

// DetectionEnded is called after a module's detector returns.
type DetectionEnded interface {
	OnDetectionEnd(ctx context.Context, module string, n *reflex.Notification, detected bool) error
}

// HandlerStarted is called before a detecting module's handler runs.
type HandlerStarted interface {
	OnHandlerStart(ctx context.Context, module string, n *reflex.Notification) error
}

// HandlerEnded is called after a module's handler and all of its jobs
// finished, with the per-job results.
type HandlerEnded interface {
	OnHandlerEnd(ctx context.Context, module string, n *reflex.Notification, results []job.Result) error
}

// ──────────────────────────────────────────────────
// Job lifecycle hooks
// ──────────────────────────────────────────────────

// JobStarted is called before a job function runs. The StartInfo is
// mutable: plugins may rewrite the name or options and the worker applies
// the final state. Delivery is sequential, in registration order.
type JobStarted interface {
	OnJobStart(ctx context.Context, n *reflex.Notification, info *job.StartInfo) error
}

// JobEnded is called after a job finished, timed out, or was cancelled.
type JobEnded interface {
	OnJobEnd(ctx context.Context, n *reflex.Notification, res *job.Result) error
}

// ──────────────────────────────────────────────────
// Diagnostic hooks
// ──────────────────────────────────────────────────

// LogRecord is one structured log line delivered to LogSink plugins.
type LogRecord struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogSink receives the core's structured log records via [LogHandler].
type LogSink interface {
	OnLog(ctx context.Context, rec LogRecord) error
}

// ErrorSink receives errors recovered during dispatch: detector, handler,
// and job failures, including recovered panics.
type ErrorSink interface {
	OnError(ctx context.Context, n *reflex.Notification, stage string, err error) error
}

// Stage values passed to ErrorSink hooks.
const (
	StageDispatch = "dispatch"
	StageDetect   = "detect"
	StageHandle   = "handle"
	StageJob      = "job"
)

// ──────────────────────────────────────────────────
// Teardown hooks
// ──────────────────────────────────────────────────

// Flusher is called when buffered state should be persisted: ahead of an
// approaching deadline and at the end of a dispatch on long-lived hosts.
type Flusher interface {
	OnFlush(ctx context.Context) error
}

// ShutdownHook is called during graceful shutdown. The manager starts no
// new dispatches after it fires, but cooperative stragglers cut off by a
// deadline may still deliver their pending job-end and handler-end hooks
// while they drain; plugins that buffer must tolerate those late arrivals.
type ShutdownHook interface {
	OnShutdown(ctx context.Context) error
}
