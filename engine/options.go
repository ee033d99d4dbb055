package engine

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/reflexhq/reflex"
	"github.com/reflexhq/reflex/limit"
	"github.com/reflexhq/reflex/middleware"
	"github.com/reflexhq/reflex/module"
	"github.com/reflexhq/reflex/plugin"
)

// Option configures an Engine.
type Option func(*Engine)

// WithModuleDir sets the directory scanned for module artifacts.
func WithModuleDir(dir string) Option {
	return func(e *Engine) { e.defaults.ModuleDir = dir }
}

// WithAutoDiscovery scans the module directory for candidates when a
// dispatch call names no modules explicitly.
func WithAutoDiscovery() Option {
	return func(e *Engine) { e.defaults.AutoDiscover = true }
}

// WithModules registers in-process reaction modules. Registered modules
// are always dispatch candidates; the directory source supplements them.
func WithModules(ms ...module.Module) Option {
	return func(e *Engine) { e.modules = append(e.modules, ms...) }
}

// WithPlugins registers lifecycle plugins, in order.
func WithPlugins(ps ...plugin.Plugin) Option {
	return func(e *Engine) { e.pluginList = append(e.pluginList, ps...) }
}

// WithLogger sets the engine's logger. Defaults to slog.Default. The
// engine bridges it so LogSink plugins observe the core's own records.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMiddleware appends job middleware after the built-in chain
// (recover, tracing, metrics, logging).
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(e *Engine) { e.userMws = append(e.userMws, mws...) }
}

// WithLimits configures per-trigger and per-job rate and concurrency
// gates.
func WithLimits(configs ...limit.Config) Option {
	return func(e *Engine) { e.limitConfigs = append(e.limitConfigs, configs...) }
}

// WithModuleConcurrency caps how many modules are evaluated at once.
// Zero or negative leaves the fan-out unbounded.
func WithModuleConcurrency(n int) Option {
	return func(e *Engine) { e.moduleConcurrency = n }
}

// WithDeadline enables invocation deadlines with the given budget. Zero
// fields fall back to the deadline package defaults.
func WithDeadline(cfg reflex.DeadlineConfig) Option {
	return func(e *Engine) {
		cfg.Enabled = true
		e.defaults.Deadline = cfg
	}
}

// WithEphemeralHost marks the host as one that may be frozen or killed
// after dispatch returns. Plugins are fully shut down after every
// invocation instead of just flushed.
func WithEphemeralHost() Option {
	return func(e *Engine) { e.defaults.EphemeralHost = true }
}

// WithSource attributes new tracking chains to the given source name.
// Empty falls back to the notification's trigger name.
func WithSource(s string) Option {
	return func(e *Engine) { e.defaults.Source = s }
}

// WithTrackingField overrides the after-image column the tracking token
// round-trips through. Defaults to "updated_by".
func WithTrackingField(f string) Option {
	return func(e *Engine) { e.defaults.TrackingField = f }
}

// WithoutTracking disables token extraction and the built-in tracking
// hook. Fresh correlation ids are still minted per invocation.
func WithoutTracking() Option {
	return func(e *Engine) {
		e.tracking = false
		e.defaults.TrackingField = ""
	}
}

// WithTracerProvider sets a custom OTel TracerProvider for the job
// tracing middleware. If not set, the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider for the job metrics
// middleware. If not set, the global provider is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) { e.meterProvider = mp }
}

// DispatchOption adjusts the configuration of a single dispatch call.
// Call options apply on top of the engine defaults, before the plugins'
// pre-configure reduction.
type DispatchOption func(*reflex.DispatchConfig)

// WithCallModules names the candidate modules for this call, bypassing
// registry listing and directory discovery.
func WithCallModules(names ...string) DispatchOption {
	return func(cfg *reflex.DispatchConfig) { cfg.Modules = names }
}

// WithCallModuleDir overrides the module directory for this call.
func WithCallModuleDir(dir string) DispatchOption {
	return func(cfg *reflex.DispatchConfig) { cfg.ModuleDir = dir }
}

// WithCallAutoDiscovery turns on directory discovery for this call.
func WithCallAutoDiscovery() DispatchOption {
	return func(cfg *reflex.DispatchConfig) { cfg.AutoDiscover = true }
}

// WithCorrelationID continues an existing chain. Values that are not
// UUID-shaped are ignored and a fresh id is minted.
func WithCorrelationID(id string) DispatchOption {
	return func(cfg *reflex.DispatchConfig) { cfg.CorrelationID = id }
}

// WithCallerContext threads an opaque value through the invocation. Job
// functions read it back with reflex.CallerContextFrom.
func WithCallerContext(v any) DispatchOption {
	return func(cfg *reflex.DispatchConfig) { cfg.CallerContext = v }
}

// WithRemainingTime supplies the host's remaining-time oracle and
// enables the deadline for this call.
func WithRemainingTime(fn func() time.Duration) DispatchOption {
	return func(cfg *reflex.DispatchConfig) {
		if fn != nil {
			cfg.Deadline.RemainingTime = fn
			cfg.Deadline.Enabled = true
		}
	}
}

// WithCallSource overrides the chain source for this call.
func WithCallSource(s string) DispatchOption {
	return func(cfg *reflex.DispatchConfig) { cfg.Source = s }
}
