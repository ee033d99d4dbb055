package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/reflexhq/reflex"
	"github.com/reflexhq/reflex/job"
)

var (
	// ErrAlreadyInitialized is returned by Register after Initialize ran.
	ErrAlreadyInitialized = errors.New("plugin: manager already initialized")

	// ErrDuplicate is returned when a plugin name is already registered.
	ErrDuplicate = errors.New("plugin: duplicate plugin name")

	// ErrNilPlugin is returned when Register is given nil.
	ErrNilPlugin = errors.New("plugin: nil plugin")
)

// Named entry types pair a hook implementation with the plugin name
// captured at registration time. This avoids type-asserting back to
// Plugin inside the emit methods.
type preConfigureEntry struct {
	name string
	hook PreConfigurer
}

type invocationStartEntry struct {
	name string
	hook InvocationStarted
}

type invocationEndEntry struct {
	name string
	hook InvocationEnded
}

type detectionStartEntry struct {
	name string
	hook DetectionStarted
}

type detectionEndEntry struct {
	name string
	hook DetectionEnded
}

type handlerStartEntry struct {
	name string
	hook HandlerStarted
}

type handlerEndEntry struct {
	name string
	hook HandlerEnded
}

type jobStartEntry struct {
	name string
	hook JobStarted
}

type jobEndEntry struct {
	name string
	hook JobEnded
}

type logSinkEntry struct {
	name string
	hook LogSink
}

type errorSinkEntry struct {
	name string
	hook ErrorSink
}

type flushEntry struct {
	name string
	hook Flusher
}

type shutdownEntry struct {
	name string
	hook ShutdownHook
}

// Manager holds registered plugins and dispatches lifecycle events to
// them. It type-caches plugins at registration time so emit calls iterate
// only over plugins that implement the relevant hook.
//
// Registration is append-only until Initialize; after that the manager is
// read-only and every Emit method is safe for concurrent use. Hook errors
// and panics are logged, never propagated, so a broadcast always completes.
type Manager struct {
	logger *slog.Logger

	mu          sync.Mutex
	plugins     []Plugin
	disabled    map[string]bool
	initialized bool
	shutdown    bool

	// Type-cached slices for each lifecycle hook.
	preConfigure    []preConfigureEntry
	invocationStart []invocationStartEntry
	invocationEnd   []invocationEndEntry
	detectionStart  []detectionStartEntry
	detectionEnd    []detectionEndEntry
	handlerStart    []handlerStartEntry
	handlerEnd      []handlerEndEntry
	jobStart        []jobStartEntry
	jobEnd          []jobEndEntry
	logSink         []logSinkEntry
	errorSink       []errorSinkEntry
	flush           []flushEntry
	shutdownHooks   []shutdownEntry
}

// NewManager creates a plugin manager with the given logger. A nil logger
// falls back to slog.Default.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:   logger,
		disabled: make(map[string]bool),
	}
}

// Register adds a plugin and type-asserts it into all applicable hook
// caches. Plugins are notified in registration order. Registering after
// Initialize returns ErrAlreadyInitialized; names must be unique.
func (m *Manager) Register(p Plugin) error {
	if p == nil {
		return ErrNilPlugin
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return ErrAlreadyInitialized
	}
	name := p.Name()
	for _, q := range m.plugins {
		if q.Name() == name {
			return fmt.Errorf("%w: %q", ErrDuplicate, name)
		}
	}
	m.plugins = append(m.plugins, p)

	if h, ok := p.(PreConfigurer); ok {
		m.preConfigure = append(m.preConfigure, preConfigureEntry{name, h})
	}
	if h, ok := p.(InvocationStarted); ok {
		m.invocationStart = append(m.invocationStart, invocationStartEntry{name, h})
	}
	if h, ok := p.(InvocationEnded); ok {
		m.invocationEnd = append(m.invocationEnd, invocationEndEntry{name, h})
	}
	if h, ok := p.(DetectionStarted); ok {
		m.detectionStart = append(m.detectionStart, detectionStartEntry{name, h})
	}
	if h, ok := p.(DetectionEnded); ok {
		m.detectionEnd = append(m.detectionEnd, detectionEndEntry{name, h})
	}
	if h, ok := p.(HandlerStarted); ok {
		m.handlerStart = append(m.handlerStart, handlerStartEntry{name, h})
	}
	if h, ok := p.(HandlerEnded); ok {
		m.handlerEnd = append(m.handlerEnd, handlerEndEntry{name, h})
	}
	if h, ok := p.(JobStarted); ok {
		m.jobStart = append(m.jobStart, jobStartEntry{name, h})
	}
	if h, ok := p.(JobEnded); ok {
		m.jobEnd = append(m.jobEnd, jobEndEntry{name, h})
	}
	if h, ok := p.(LogSink); ok {
		m.logSink = append(m.logSink, logSinkEntry{name, h})
	}
	if h, ok := p.(ErrorSink); ok {
		m.errorSink = append(m.errorSink, errorSinkEntry{name, h})
	}
	if h, ok := p.(Flusher); ok {
		m.flush = append(m.flush, flushEntry{name, h})
	}
	if h, ok := p.(ShutdownHook); ok {
		m.shutdownHooks = append(m.shutdownHooks, shutdownEntry{name, h})
	}
	return nil
}

// Initialize runs every plugin's OnInit in registration order. A plugin
// that reports Enabled() == false is skipped; one whose OnInit errors or
// panics is disabled and logged. Initialize is idempotent.
func (m *Manager) Initialize(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return
	}
	m.initialized = true

	for _, p := range m.plugins {
		name := p.Name()
		if t, ok := p.(Toggler); ok && !t.Enabled() {
			m.disabled[name] = true
			m.logger.Debug("plugin disabled", slog.String("plugin", name))
			continue
		}
		init, ok := p.(Initializer)
		if !ok {
			continue
		}
		if err := safeInit(ctx, init); err != nil {
			m.disabled[name] = true
			m.logger.Warn("plugin init failed, disabling",
				slog.String("plugin", name),
				slog.String("error", err.Error()),
			)
		}
	}
}

func safeInit(ctx context.Context, init Initializer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return init.OnInit(ctx)
}

// Plugins returns all registered plugins.
func (m *Manager) Plugins() []Plugin {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plugins
}

// EnabledPlugins returns the plugins that survive Initialize: enabled and
// not disabled by an init failure.
func (m *Manager) EnabledPlugins() []Plugin {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		if !m.disabled[p.Name()] {
			out = append(out, p)
		}
	}
	return out
}

// ──────────────────────────────────────────────────
// Invocation event emitters
// ──────────────────────────────────────────────────

// EmitPreConfigure threads cfg through every plugin that implements
// PreConfigurer, in registration order. Each plugin sees the config the
// previous one produced; a failing or panicking plugin is skipped and its
// predecessor's config carries forward.
func (m *Manager) EmitPreConfigure(ctx context.Context, n *reflex.Notification, cfg reflex.DispatchConfig) reflex.DispatchConfig {
	for _, e := range m.preConfigure {
		if m.disabled[e.name] {
			continue
		}
		next, err := safePreConfigure(ctx, e.hook, n, cfg)
		if err != nil {
			m.logHookError("OnPreConfigure", e.name, err)
			continue
		}
		cfg = next
	}
	return cfg
}

func safePreConfigure(ctx context.Context, h PreConfigurer, n *reflex.Notification, cfg reflex.DispatchConfig) (out reflex.DispatchConfig, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = cfg, fmt.Errorf("panic: %v", r)
		}
	}()
	return h.OnPreConfigure(ctx, n, cfg)
}

// EmitInvocationStart notifies all plugins that implement InvocationStarted.
func (m *Manager) EmitInvocationStart(ctx context.Context, n *reflex.Notification) {
	var wg sync.WaitGroup
	for _, e := range m.invocationStart {
		if m.disabled[e.name] {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer m.recoverHook("OnInvocationStart", e.name)
			if err := e.hook.OnInvocationStart(ctx, n); err != nil {
				m.logHookError("OnInvocationStart", e.name, err)
			}
		}()
	}
	wg.Wait()
}

// EmitInvocationEnd notifies all plugins that implement InvocationEnded.
func (m *Manager) EmitInvocationEnd(ctx context.Context, n *reflex.Notification, res *reflex.Result) {
	var wg sync.WaitGroup
	for _, e := range m.invocationEnd {
		if m.disabled[e.name] {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer m.recoverHook("OnInvocationEnd", e.name)
			if err := e.hook.OnInvocationEnd(ctx, n, res); err != nil {
				m.logHookError("OnInvocationEnd", e.name, err)
			}
		}()
	}
	wg.Wait()
}

// ──────────────────────────────────────────────────
// Module evaluation emitters
// ──────────────────────────────────────────────────

// EmitDetectionStart notifies all plugins that implement DetectionStarted.
func (m *Manager) EmitDetectionStart(ctx context.Context, module string, n *reflex.Notification) {
	var wg sync.WaitGroup
	for _, e := range m.detectionStart {
		if m.disabled[e.name] {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer m.recoverHook("OnDetectionStart", e.name)
			if err := e.hook.OnDetectionStart(ctx, module, n); err != nil {
				m.logHookError("OnDetectionStart", e.name, err)
			}
		}()
	}
	wg.Wait()
}

// EmitDetectionEnd notifies all plugins that implement DetectionEnded.
func (m *Manager) EmitDetectionEnd(ctx context.Context, module string, n *reflex.Notification, detected bool) {
	var wg sync.WaitGroup
	for _, e := range m.detectionEnd {
		if m.disabled[e.name] {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer m.recoverHook("OnDetectionEnd", e.name)
			if err := e.hook.OnDetectionEnd(ctx, module, n, detected); err != nil {
				m.logHookError("OnDetectionEnd", e.name, err)
			}
		}()
	}
	wg.Wait()
}

// EmitHandlerStart notifies all plugins that implement HandlerStarted.
func (m *Manager) EmitHandlerStart(ctx context.Context, module string, n *reflex.Notification) {
	var wg sync.WaitGroup
	for _, e := range m.handlerStart {
		if m.disabled[e.name] {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer m.recoverHook("OnHandlerStart", e.name)
			if err := e.hook.OnHandlerStart(ctx, module, n); err != nil {
				m.logHookError("OnHandlerStart", e.name, err)
			}
		}()
	}
	wg.Wait()
}

// EmitHandlerEnd notifies all plugins that implement HandlerEnded.
func (m *Manager) EmitHandlerEnd(ctx context.Context, module string, n *reflex.Notification, results []job.Result) {
	var wg sync.WaitGroup
	for _, e := range m.handlerEnd {
		if m.disabled[e.name] {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer m.recoverHook("OnHandlerEnd", e.name)
			if err := e.hook.OnHandlerEnd(ctx, module, n, results); err != nil {
				m.logHookError("OnHandlerEnd", e.name, err)
			}
		}()
	}
	wg.Wait()
}

// ──────────────────────────────────────────────────
// Job event emitters
// ──────────────────────────────────────────────────

// EmitJobStart notifies all plugins that implement JobStarted. Delivery is
// sequential in registration order: the StartInfo is mutable and each
// plugin sees the edits of the previous one.
func (m *Manager) EmitJobStart(ctx context.Context, n *reflex.Notification, info *job.StartInfo) {
	for _, e := range m.jobStart {
		if m.disabled[e.name] {
			continue
		}
		func() {
			defer m.recoverHook("OnJobStart", e.name)
			if err := e.hook.OnJobStart(ctx, n, info); err != nil {
				m.logHookError("OnJobStart", e.name, err)
			}
		}()
	}
}

// EmitJobEnd notifies all plugins that implement JobEnded.
func (m *Manager) EmitJobEnd(ctx context.Context, n *reflex.Notification, res *job.Result) {
	var wg sync.WaitGroup
	for _, e := range m.jobEnd {
		if m.disabled[e.name] {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer m.recoverHook("OnJobEnd", e.name)
			if err := e.hook.OnJobEnd(ctx, n, res); err != nil {
				m.logHookError("OnJobEnd", e.name, err)
			}
		}()
	}
	wg.Wait()
}

// ──────────────────────────────────────────────────
// Diagnostic emitters
// ──────────────────────────────────────────────────

// EmitLog delivers a log record to all plugins that implement LogSink.
// Records produced while delivering (hook error logs included) carry a
// context mark and are not re-broadcast, so a sink logging through the
// core's own logger cannot recurse.
func (m *Manager) EmitLog(ctx context.Context, rec LogRecord) {
	if len(m.logSink) == 0 || fromSink(ctx) {
		return
	}
	ctx = markSink(ctx)
	var wg sync.WaitGroup
	for _, e := range m.logSink {
		if m.disabled[e.name] {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					m.logger.ErrorContext(ctx, "plugin hook panic",
						slog.String("hook", "OnLog"),
						slog.String("plugin", e.name),
						slog.Any("panic", r),
					)
				}
			}()
			if err := e.hook.OnLog(ctx, rec); err != nil {
				m.logger.WarnContext(ctx, "plugin hook error",
					slog.String("hook", "OnLog"),
					slog.String("plugin", e.name),
					slog.String("error", err.Error()),
				)
			}
		}()
	}
	wg.Wait()
}

// EmitError notifies all plugins that implement ErrorSink.
func (m *Manager) EmitError(ctx context.Context, n *reflex.Notification, stage string, hookErr error) {
	var wg sync.WaitGroup
	for _, e := range m.errorSink {
		if m.disabled[e.name] {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer m.recoverHook("OnError", e.name)
			if err := e.hook.OnError(ctx, n, stage, hookErr); err != nil {
				m.logHookError("OnError", e.name, err)
			}
		}()
	}
	wg.Wait()
}

// ──────────────────────────────────────────────────
// Teardown emitters
// ──────────────────────────────────────────────────

// Flush tells all plugins that implement Flusher to persist buffered
// state. Used ahead of an approaching deadline and at the end of a
// dispatch on long-lived hosts.
func (m *Manager) Flush(ctx context.Context) {
	var wg sync.WaitGroup
	for _, e := range m.flush {
		if m.disabled[e.name] {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer m.recoverHook("OnFlush", e.name)
			if err := e.hook.OnFlush(ctx); err != nil {
				m.logHookError("OnFlush", e.name, err)
			}
		}()
	}
	wg.Wait()
}

// Shutdown notifies all plugins that implement ShutdownHook. It is
// idempotent and safe to call on an uninitialized manager.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return
	}
	m.shutdown = true
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, e := range m.shutdownHooks {
		if m.disabled[e.name] {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer m.recoverHook("OnShutdown", e.name)
			if err := e.hook.OnShutdown(ctx); err != nil {
				m.logHookError("OnShutdown", e.name, err)
			}
		}()
	}
	wg.Wait()
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated; they must not block dispatch.
func (m *Manager) logHookError(hook, pluginName string, err error) {
	m.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}

// recoverHook is installed as a deferred call around every hook invocation.
func (m *Manager) recoverHook(hook, pluginName string) {
	if r := recover(); r != nil {
		m.logger.Error("plugin hook panic",
			slog.String("hook", hook),
			slog.String("plugin", pluginName),
			slog.Any("panic", r),
		)
	}
}
