package loghook

import (
	"context"
	"log/slog"

	"github.com/reflexhq/reflex"
	"github.com/reflexhq/reflex/job"
	"github.com/reflexhq/reflex/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin            = (*Hook)(nil)
	_ plugin.InvocationStarted = (*Hook)(nil)
	_ plugin.InvocationEnded   = (*Hook)(nil)
	_ plugin.DetectionStarted  = (*Hook)(nil)
	_ plugin.DetectionEnded    = (*Hook)(nil)
	_ plugin.HandlerStarted    = (*Hook)(nil)
	_ plugin.HandlerEnded      = (*Hook)(nil)
	_ plugin.JobStarted        = (*Hook)(nil)
	_ plugin.JobEnded          = (*Hook)(nil)
	_ plugin.ErrorSink         = (*Hook)(nil)
)

// Hook logs dispatch lifecycle events through slog.
type Hook struct {
	logger  *slog.Logger
	enabled map[string]bool // nil = all enabled
}

// New creates the logging hook.
func New(opts ...Option) *Hook {
	h := &Hook{logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements plugin.Plugin.
func (h *Hook) Name() string { return "log-hook" }

func (h *Hook) on(event string) bool {
	return h.enabled == nil || h.enabled[event]
}

// ── Invocation hooks ────────────────────────────────

// OnInvocationStart implements plugin.InvocationStarted.
func (h *Hook) OnInvocationStart(ctx context.Context, n *reflex.Notification) error {
	if !h.on(EventInvocationStart) {
		return nil
	}
	attrs := []any{
		slog.String("notification_id", n.ID),
		slog.String("trigger", n.Trigger.Name),
	}
	if n.Event != nil {
		attrs = append(attrs, slog.String("op", string(n.Event.Op)))
	}
	h.logger.InfoContext(ctx, "invocation started", attrs...)
	return nil
}

// OnInvocationEnd implements plugin.InvocationEnded.
func (h *Hook) OnInvocationEnd(ctx context.Context, n *reflex.Notification, res *reflex.Result) error {
	if !h.on(EventInvocationEnd) {
		return nil
	}
	detected, jobs := 0, 0
	for _, m := range res.Modules {
		if m.Detected {
			detected++
		}
		jobs += len(m.Jobs)
	}
	attrs := []any{
		slog.String("notification_id", n.ID),
		slog.Int("modules", len(res.Modules)),
		slog.Int("detected", detected),
		slog.Int("jobs", jobs),
		slog.Duration("duration", res.Duration),
	}
	if res.TimedOut {
		attrs = append(attrs, slog.Bool("timed_out", true), slog.String("error", res.Error))
		h.logger.WarnContext(ctx, "invocation timed out", attrs...)
		return nil
	}
	h.logger.InfoContext(ctx, "invocation finished", attrs...)
	return nil
}

// ── Module evaluation hooks ─────────────────────────

// OnDetectionStart implements plugin.DetectionStarted.
func (h *Hook) OnDetectionStart(ctx context.Context, module string, _ *reflex.Notification) error {
	if !h.on(EventDetectionStart) {
		return nil
	}
	h.logger.DebugContext(ctx, "detection started", slog.String("module", module))
	return nil
}

// OnDetectionEnd implements plugin.DetectionEnded.
func (h *Hook) OnDetectionEnd(ctx context.Context, module string, _ *reflex.Notification, detected bool) error {
	if !h.on(EventDetectionEnd) {
		return nil
	}
	h.logger.DebugContext(ctx, "detection finished",
		slog.String("module", module),
		slog.Bool("detected", detected),
	)
	return nil
}

// OnHandlerStart implements plugin.HandlerStarted.
func (h *Hook) OnHandlerStart(ctx context.Context, module string, _ *reflex.Notification) error {
	if !h.on(EventHandlerStart) {
		return nil
	}
	h.logger.DebugContext(ctx, "handler started", slog.String("module", module))
	return nil
}

// OnHandlerEnd implements plugin.HandlerEnded.
func (h *Hook) OnHandlerEnd(ctx context.Context, module string, _ *reflex.Notification, results []job.Result) error {
	if !h.on(EventHandlerEnd) {
		return nil
	}
	completed := 0
	for _, r := range results {
		if r.Completed {
			completed++
		}
	}
	h.logger.InfoContext(ctx, "handler finished",
		slog.String("module", module),
		slog.Int("jobs", len(results)),
		slog.Int("completed", completed),
	)
	return nil
}

// ── Job hooks ───────────────────────────────────────

// OnJobStart implements plugin.JobStarted. It only observes the payload.
func (h *Hook) OnJobStart(ctx context.Context, _ *reflex.Notification, info *job.StartInfo) error {
	if !h.on(EventJobStart) {
		return nil
	}
	h.logger.InfoContext(ctx, "job starting",
		slog.String("job", info.Name),
		slog.String("run_id", info.RunID),
		slog.String("trigger", info.Trigger),
	)
	return nil
}

// OnJobEnd implements plugin.JobEnded.
func (h *Hook) OnJobEnd(ctx context.Context, _ *reflex.Notification, res *job.Result) error {
	if !h.on(EventJobEnd) {
		return nil
	}
	if !res.Completed {
		h.logger.WarnContext(ctx, "job failed",
			slog.String("job", res.Name),
			slog.String("error", res.Error),
			slog.Duration("duration", res.Duration),
		)
		return nil
	}
	h.logger.InfoContext(ctx, "job finished",
		slog.String("job", res.Name),
		slog.Duration("duration", res.Duration),
	)
	return nil
}

// ── Diagnostics ─────────────────────────────────────

// OnError implements plugin.ErrorSink.
func (h *Hook) OnError(ctx context.Context, n *reflex.Notification, stage string, err error) error {
	if !h.on(EventError) {
		return nil
	}
	h.logger.ErrorContext(ctx, "dispatch stage error",
		slog.String("stage", stage),
		slog.String("notification_id", n.ID),
		slog.String("error", err.Error()),
	)
	return nil
}
