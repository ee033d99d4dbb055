package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/reflexhq/reflex"
	"github.com/reflexhq/reflex/deadline"
	"github.com/reflexhq/reflex/id"
	"github.com/reflexhq/reflex/job"
	"github.com/reflexhq/reflex/limit"
	"github.com/reflexhq/reflex/middleware"
	"github.com/reflexhq/reflex/module"
	"github.com/reflexhq/reflex/plugin"
	"github.com/reflexhq/reflex/token"
	trackhook "github.com/reflexhq/reflex/track_hook"
	"github.com/reflexhq/reflex/worker"
)

// otelName is the instrumentation scope for the built-in middleware.
const otelName = "github.com/reflexhq/reflex"

// Engine evaluates reaction modules against change notifications. Build
// one per process with New; Dispatch is safe for concurrent use.
type Engine struct {
	defaults          reflex.DispatchConfig
	registry          *module.Registry
	pm                *plugin.Manager
	limits            *limit.Manager
	logger            *slog.Logger
	mws               []middleware.Middleware
	moduleConcurrency int
	tracking          bool

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	// Staged by options, consumed by New.
	modules      []module.Module
	pluginList   []plugin.Plugin
	limitConfigs []limit.Config
	userMws      []middleware.Middleware

	initOnce sync.Once
}

// New creates an Engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		defaults: reflex.DefaultDispatchConfig(),
		registry: module.NewRegistry(),
		logger:   slog.Default(),
		tracking: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	// The manager logs through the raw logger; everything else goes
	// through the bridge so LogSink plugins see the core's records.
	raw := e.logger
	e.pm = plugin.NewManager(raw)
	e.logger = slog.New(plugin.NewLogHandler(raw.Handler(), e.pm))

	if e.tracking {
		if err := e.pm.Register(trackhook.New(trackhook.WithLogger(e.logger))); err != nil {
			return nil, fmt.Errorf("engine: register tracking hook: %w", err)
		}
	}
	for _, p := range e.pluginList {
		if err := e.pm.Register(p); err != nil {
			return nil, fmt.Errorf("engine: register plugin: %w", err)
		}
	}
	for _, m := range e.modules {
		if err := e.registry.Register(m); err != nil {
			return nil, fmt.Errorf("engine: register module: %w", err)
		}
	}
	if len(e.limitConfigs) > 0 {
		e.limits = limit.NewManager(e.limitConfigs...)
	}

	// Built-in middleware stack: recover → tracing → metrics → logging,
	// then user middleware.
	var tracingMw middleware.Middleware
	if e.tracerProvider != nil {
		tracingMw = middleware.TracingWithTracer(e.tracerProvider.Tracer(otelName))
	} else {
		tracingMw = middleware.Tracing()
	}
	var metricsMw middleware.Middleware
	if e.meterProvider != nil {
		metricsMw = middleware.MetricsWithMeter(e.meterProvider.Meter(otelName))
	} else {
		metricsMw = middleware.Metrics()
	}
	e.mws = append([]middleware.Middleware{
		middleware.Recover(e.logger),
		tracingMw,
		metricsMw,
		middleware.Logging(e.logger),
	}, e.userMws...)

	return e, nil
}

// Dispatch evaluates all candidate modules against the notification and
// executes the jobs the detected modules plan. It always returns a
// result: module and plugin failures are isolated, and a deadline shows
// up as Result.TimedOut. The returned error is reserved for invariant
// violations in the engine itself.
func (e *Engine) Dispatch(ctx context.Context, n *reflex.Notification, opts ...DispatchOption) (*reflex.Result, error) {
	started := time.Now()

	// Structurally broken input is dropped before any hook fires.
	if !n.WellFormed() {
		return &reflex.Result{Duration: time.Since(started)}, nil
	}

	e.initOnce.Do(func() { e.pm.Initialize(ctx) })

	cfg := e.defaults
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = e.pm.EmitPreConfigure(ctx, n, cfg)

	tok := e.resolveToken(cfg, n)
	n.SetTrackingToken(tok)
	n.SetCallerContext(cfg.CallerContext)

	inv := id.NewInvocationID()
	ctx = reflex.WithTrackingToken(ctx, tok)
	ctx = reflex.WithInvocationID(ctx, inv)
	if cfg.CallerContext != nil {
		ctx = reflex.WithCallerContext(ctx, cfg.CallerContext)
	}

	logger := e.logger.With(
		slog.String("invocation_id", inv.String()),
		slog.String("trigger", n.Trigger.Name),
	)
	logger.DebugContext(ctx, "dispatching notification",
		slog.String("notification_id", n.ID),
		slog.String("op", string(n.Event.Op)),
		slog.String("correlation_id", tok.CorrelationID),
	)

	e.pm.EmitInvocationStart(ctx, n)

	names, src := e.resolveCandidates(cfg, logger)

	res := &reflex.Result{}
	if len(names) > 0 {
		runner := worker.NewRunner(e.pm, e.limits, logger, cfg.Deadline.JobTimeout, e.mws...)
		collect := make(chan reflex.ModuleResult, len(names))

		run := func(runCtx context.Context) error {
			g, gctx := errgroup.WithContext(runCtx)
			if e.moduleConcurrency > 0 {
				g.SetLimit(e.moduleConcurrency)
			}
			for _, name := range names {
				g.Go(func() error {
					collect <- e.evaluateModule(gctx, name, n, src, runner)
					return nil
				})
			}
			return g.Wait()
		}

		if cfg.Deadline.Enabled {
			dm := e.newDeadline(cfg.Deadline, logger)
			err := dm.ExecuteWithTimeout(ctx, run, func() {
				e.pm.Flush(context.WithoutCancel(ctx))
			}, "invocation deadline reached")
			switch {
			case err == nil:
			case deadline.IsTimeout(err):
				res.TimedOut = true
				res.Error = err.Error()
			default:
				res.Error = err.Error()
			}
		} else if err := run(ctx); err != nil {
			res.Error = err.Error()
		}

		// Drain completed outcomes. On timeout stragglers may still be
		// sending into the buffer; what is present now is the snapshot.
		for drained := false; !drained; {
			select {
			case mr := <-collect:
				res.Modules = append(res.Modules, mr)
			default:
				drained = true
			}
		}
	}

	res.Duration = time.Since(started)

	// End-of-invocation hooks run even after a fired deadline.
	endCtx := context.WithoutCancel(ctx)
	e.pm.EmitInvocationEnd(endCtx, n, res)

	// Flush is not gated by the shutdown flag, so a reused ephemeral
	// process (whose manager already shut down on an earlier dispatch)
	// still drains buffering plugins on every invocation.
	e.pm.Flush(endCtx)
	if cfg.EphemeralHost {
		e.pm.Shutdown(endCtx)
	}

	return res, nil
}

// Shutdown shuts the plugin manager down. Hosts that keep the engine
// alive between invocations call this once on process exit; ephemeral
// hosts get the same treatment automatically after every dispatch.
func (e *Engine) Shutdown(ctx context.Context) {
	e.pm.Shutdown(ctx)
}

// Plugins returns the plugin manager.
func (e *Engine) Plugins() *plugin.Manager { return e.pm }

// Modules returns the in-process module registry.
func (e *Engine) Modules() *module.Registry { return e.registry }

// Limits returns the gate manager, or nil when no limits are configured.
func (e *Engine) Limits() *limit.Manager { return e.limits }

// Logger returns the bridged engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// resolveToken continues the caller's chain when a usable correlation id
// is present, otherwise mints a fresh one.
func (e *Engine) resolveToken(cfg reflex.DispatchConfig, n *reflex.Notification) token.Token {
	source := cfg.Source
	if source == "" {
		source = n.Trigger.Name
	}
	if source == "" {
		source = "manual"
	}
	corr := cfg.CorrelationID
	if corr != "" {
		if _, err := uuid.Parse(corr); err != nil {
			e.logger.Debug("ignoring non-uuid correlation id", slog.String("correlation_id", corr))
			corr = ""
		}
	}
	return token.New(source, corr)
}

// resolveCandidates returns the module names to evaluate and the
// directory source used to load unregistered names, if any.
func (e *Engine) resolveCandidates(cfg reflex.DispatchConfig, logger *slog.Logger) ([]string, *module.DirSource) {
	var src *module.DirSource
	if cfg.ModuleDir != "" {
		src = module.NewDirSource(cfg.ModuleDir, module.WithLogger(logger))
	}

	if len(cfg.Modules) > 0 {
		return cfg.Modules, src
	}

	names := e.registry.Names()
	if cfg.AutoDiscover && src != nil {
		seen := make(map[string]bool, len(names))
		for _, name := range names {
			seen[name] = true
		}
		for _, name := range src.Names() {
			if !seen[name] {
				names = append(names, name)
			}
		}
	}
	return names, src
}

// evaluateModule takes one module through detection and handling. All
// failures stay inside this module's result.
func (e *Engine) evaluateModule(ctx context.Context, name string, n *reflex.Notification, src *module.DirSource, runner *worker.Runner) reflex.ModuleResult {
	mr := reflex.ModuleResult{Module: name}

	e.pm.EmitDetectionStart(ctx, name, n)

	m, err := e.lookupModule(name, src)
	if err != nil {
		// Not-applicable artifacts were already warned about by the
		// source; anything else is a load failure worth reporting.
		if !errors.Is(err, module.ErrNotApplicable) {
			e.logger.Warn("module load failed",
				slog.String("module", name),
				slog.String("error", err.Error()),
			)
			e.pm.EmitError(ctx, n, plugin.StageDetect, err)
		}
		e.pm.EmitDetectionEnd(ctx, name, n, false)
		return mr
	}

	detected, err := e.runDetector(ctx, m, n)
	if err != nil {
		e.pm.EmitError(ctx, n, plugin.StageDetect, err)
		detected = false
	}
	e.pm.EmitDetectionEnd(ctx, name, n, detected)
	if !detected {
		return mr
	}
	mr.Detected = true

	e.pm.EmitHandlerStart(ctx, name, n)
	jobs, err := e.runHandler(ctx, m, n)
	if err != nil {
		e.pm.EmitError(ctx, n, plugin.StageHandle, err)
		e.pm.EmitHandlerEnd(ctx, name, n, nil)
		return mr
	}
	mr.Jobs = runner.Run(ctx, n.Trigger.Name, n, jobs)
	e.pm.EmitHandlerEnd(ctx, name, n, mr.Jobs)
	return mr
}

func (e *Engine) lookupModule(name string, src *module.DirSource) (module.Module, error) {
	if m, ok := e.registry.Get(name); ok {
		return m, nil
	}
	if src != nil {
		return src.Load(name)
	}
	return module.Module{}, fmt.Errorf("%w: %q has no registration and no module directory is configured", module.ErrNotFound, name)
}

func (e *Engine) runDetector(ctx context.Context, m module.Module, n *reflex.Notification) (detected bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("detector panicked",
				slog.String("module", m.Name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			detected = false
			err = fmt.Errorf("panic in detector: %v", r)
		}
	}()
	return m.Detect(ctx, n)
}

func (e *Engine) runHandler(ctx context.Context, m module.Module, n *reflex.Notification) (jobs []*job.Job, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("handler panicked",
				slog.String("module", m.Name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			jobs = nil
			err = fmt.Errorf("panic in handler: %v", r)
		}
	}()
	return m.Handle(ctx, n)
}

func (e *Engine) newDeadline(cfg reflex.DeadlineConfig, logger *slog.Logger) *deadline.Manager {
	opts := []deadline.Option{deadline.WithLogger(logger)}
	if cfg.RemainingTime != nil {
		opts = append(opts, deadline.WithRemainingFunc(cfg.RemainingTime))
	}
	if cfg.MaxDuration > 0 {
		opts = append(opts, deadline.WithMaxDuration(cfg.MaxDuration))
	}
	if cfg.SafetyMargin > 0 {
		opts = append(opts, deadline.WithSafetyMargin(cfg.SafetyMargin))
	}
	return deadline.NewManager(opts...)
}
