package plugin_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/reflexhq/reflex"
	"github.com/reflexhq/reflex/job"
	"github.com/reflexhq/reflex/plugin"
)

func testNotification() *reflex.Notification {
	return &reflex.Notification{
		ID:      "note-1",
		Trigger: reflex.Trigger{Name: "orders_updated"},
		Event: &reflex.Event{
			Op:   reflex.OpUpdate,
			Data: &reflex.ChangeData{Old: map[string]any{}, New: map[string]any{}},
		},
	}
}

// ──────────────────────────────────────────────────
// Test plugins
// ──────────────────────────────────────────────────

// allHooksPlugin implements every lifecycle hook for testing.
type allHooksPlugin struct {
	name  string
	calls []string
}

func (p *allHooksPlugin) Name() string { return p.name }

func (p *allHooksPlugin) OnInit(_ context.Context) error {
	p.calls = append(p.calls, "OnInit")
	return nil
}

func (p *allHooksPlugin) OnPreConfigure(_ context.Context, _ *reflex.Notification, cfg reflex.DispatchConfig) (reflex.DispatchConfig, error) {
	p.calls = append(p.calls, "OnPreConfigure")
	return cfg, nil
}

func (p *allHooksPlugin) OnInvocationStart(_ context.Context, _ *reflex.Notification) error {
	p.calls = append(p.calls, "OnInvocationStart")
	return nil
}

func (p *allHooksPlugin) OnInvocationEnd(_ context.Context, _ *reflex.Notification, _ *reflex.Result) error {
	p.calls = append(p.calls, "OnInvocationEnd")
	return nil
}

func (p *allHooksPlugin) OnDetectionStart(_ context.Context, _ string, _ *reflex.Notification) error {
	p.calls = append(p.calls, "OnDetectionStart")
	return nil
}

func (p *allHooksPlugin) OnDetectionEnd(_ context.Context, _ string, _ *reflex.Notification, _ bool) error {
	p.calls = append(p.calls, "OnDetectionEnd")
	return nil
}

func (p *allHooksPlugin) OnHandlerStart(_ context.Context, _ string, _ *reflex.Notification) error {
	p.calls = append(p.calls, "OnHandlerStart")
	return nil
}

func (p *allHooksPlugin) OnHandlerEnd(_ context.Context, _ string, _ *reflex.Notification, _ []job.Result) error {
	p.calls = append(p.calls, "OnHandlerEnd")
	return nil
}

func (p *allHooksPlugin) OnJobStart(_ context.Context, _ *reflex.Notification, _ *job.StartInfo) error {
	p.calls = append(p.calls, "OnJobStart")
	return nil
}

func (p *allHooksPlugin) OnJobEnd(_ context.Context, _ *reflex.Notification, _ *job.Result) error {
	p.calls = append(p.calls, "OnJobEnd")
	return nil
}

func (p *allHooksPlugin) OnLog(_ context.Context, _ plugin.LogRecord) error {
	p.calls = append(p.calls, "OnLog")
	return nil
}

func (p *allHooksPlugin) OnError(_ context.Context, _ *reflex.Notification, _ string, _ error) error {
	p.calls = append(p.calls, "OnError")
	return nil
}

func (p *allHooksPlugin) OnFlush(_ context.Context) error {
	p.calls = append(p.calls, "OnFlush")
	return nil
}

func (p *allHooksPlugin) OnShutdown(_ context.Context) error {
	p.calls = append(p.calls, "OnShutdown")
	return nil
}

// jobOnlyPlugin only implements job-related hooks.
type jobOnlyPlugin struct {
	calls []string
}

func (p *jobOnlyPlugin) Name() string { return "job-only" }

func (p *jobOnlyPlugin) OnJobStart(_ context.Context, _ *reflex.Notification, _ *job.StartInfo) error {
	p.calls = append(p.calls, "OnJobStart")
	return nil
}

func (p *jobOnlyPlugin) OnJobEnd(_ context.Context, _ *reflex.Notification, _ *job.Result) error {
	p.calls = append(p.calls, "OnJobEnd")
	return nil
}

// failingPlugin returns errors from hooks.
type failingPlugin struct{}

func (p *failingPlugin) Name() string { return "failing" }

func (p *failingPlugin) OnInvocationStart(_ context.Context, _ *reflex.Notification) error {
	return errors.New("boom")
}

func (p *failingPlugin) OnPreConfigure(_ context.Context, _ *reflex.Notification, cfg reflex.DispatchConfig) (reflex.DispatchConfig, error) {
	cfg.Source = "should-not-apply"
	return cfg, errors.New("boom")
}

// panickyPlugin panics inside hooks.
type panickyPlugin struct{}

func (p *panickyPlugin) Name() string { return "panicky" }

func (p *panickyPlugin) OnInvocationStart(_ context.Context, _ *reflex.Notification) error {
	panic("hook panic")
}

func (p *panickyPlugin) OnPreConfigure(_ context.Context, _ *reflex.Notification, _ reflex.DispatchConfig) (reflex.DispatchConfig, error) {
	panic("pre-configure panic")
}

// initFailPlugin fails (or panics) during initialization.
type initFailPlugin struct {
	name   string
	panics bool
	calls  []string
}

func (p *initFailPlugin) Name() string { return p.name }

func (p *initFailPlugin) OnInit(_ context.Context) error {
	if p.panics {
		panic("init panic")
	}
	return errors.New("init failed")
}

func (p *initFailPlugin) OnInvocationStart(_ context.Context, _ *reflex.Notification) error {
	p.calls = append(p.calls, "OnInvocationStart")
	return nil
}

// offPlugin reports itself disabled.
type offPlugin struct {
	calls []string
}

func (p *offPlugin) Name() string  { return "off" }
func (p *offPlugin) Enabled() bool { return false }

func (p *offPlugin) OnInit(_ context.Context) error {
	p.calls = append(p.calls, "OnInit")
	return nil
}

func (p *offPlugin) OnInvocationStart(_ context.Context, _ *reflex.Notification) error {
	p.calls = append(p.calls, "OnInvocationStart")
	return nil
}

// sourceSetter rewrites the dispatch source during pre-configure.
type sourceSetter struct {
	name   string
	source string
	saw    []string
}

func (p *sourceSetter) Name() string { return p.name }

func (p *sourceSetter) OnPreConfigure(_ context.Context, _ *reflex.Notification, cfg reflex.DispatchConfig) (reflex.DispatchConfig, error) {
	p.saw = append(p.saw, cfg.Source)
	cfg.Source = p.source
	return cfg, nil
}

// renamer rewrites the job name during OnJobStart.
type renamer struct {
	name string
	to   string
	saw  []string
}

func (p *renamer) Name() string { return p.name }

func (p *renamer) OnJobStart(_ context.Context, _ *reflex.Notification, info *job.StartInfo) error {
	p.saw = append(p.saw, info.Name)
	info.Name = p.to
	return nil
}

// ──────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────

func TestManager_RegisterDiscoversInterfaces(t *testing.T) {
	m := plugin.NewManager(slog.Default())
	all := &allHooksPlugin{name: "all-hooks"}
	if err := m.Register(all); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if got := len(m.Plugins()); got != 1 {
		t.Fatalf("expected 1 plugin, got %d", got)
	}
	if got := m.Plugins()[0].Name(); got != "all-hooks" {
		t.Fatalf("expected name 'all-hooks', got %q", got)
	}
}

func TestManager_RegisterRejectsDuplicates(t *testing.T) {
	m := plugin.NewManager(slog.Default())
	if err := m.Register(&allHooksPlugin{name: "twin"}); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	err := m.Register(&allHooksPlugin{name: "twin"})
	if !errors.Is(err, plugin.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestManager_RegisterRejectsNil(t *testing.T) {
	m := plugin.NewManager(slog.Default())
	if err := m.Register(nil); !errors.Is(err, plugin.ErrNilPlugin) {
		t.Fatalf("expected ErrNilPlugin, got %v", err)
	}
}

func TestManager_RegisterAfterInitialize(t *testing.T) {
	m := plugin.NewManager(slog.Default())
	m.Initialize(context.Background())

	err := m.Register(&allHooksPlugin{name: "late"})
	if !errors.Is(err, plugin.ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestManager_InitializeDisablesFailures(t *testing.T) {
	m := plugin.NewManager(slog.Default())
	bad := &initFailPlugin{name: "bad-init"}
	worse := &initFailPlugin{name: "panic-init", panics: true}
	good := &allHooksPlugin{name: "good"}
	for _, p := range []plugin.Plugin{bad, worse, good} {
		if err := m.Register(p); err != nil {
			t.Fatalf("Register(%s): %v", p.Name(), err)
		}
	}

	m.Initialize(context.Background())

	enabled := m.EnabledPlugins()
	if len(enabled) != 1 || enabled[0].Name() != "good" {
		t.Fatalf("expected only 'good' enabled, got %v", enabled)
	}

	m.EmitInvocationStart(context.Background(), testNotification())
	if len(bad.calls) != 0 {
		t.Errorf("disabled plugin received hooks: %v", bad.calls)
	}
	if len(worse.calls) != 0 {
		t.Errorf("disabled plugin received hooks: %v", worse.calls)
	}
	if got := good.calls[len(good.calls)-1]; got != "OnInvocationStart" {
		t.Errorf("good plugin last call = %q, want OnInvocationStart", got)
	}
}

func TestManager_InitializeIdempotent(t *testing.T) {
	m := plugin.NewManager(slog.Default())
	all := &allHooksPlugin{name: "once"}
	if err := m.Register(all); err != nil {
		t.Fatalf("Register: %v", err)
	}

	m.Initialize(context.Background())
	m.Initialize(context.Background())

	if len(all.calls) != 1 || all.calls[0] != "OnInit" {
		t.Fatalf("expected exactly one OnInit, got %v", all.calls)
	}
}

func TestManager_TogglerSkipsDisabled(t *testing.T) {
	m := plugin.NewManager(slog.Default())
	off := &offPlugin{}
	if err := m.Register(off); err != nil {
		t.Fatalf("Register: %v", err)
	}

	m.Initialize(context.Background())
	m.EmitInvocationStart(context.Background(), testNotification())

	if len(off.calls) != 0 {
		t.Fatalf("disabled plugin was called: %v", off.calls)
	}
	if got := len(m.EnabledPlugins()); got != 0 {
		t.Fatalf("expected 0 enabled plugins, got %d", got)
	}
}

func TestManager_EmitFiresOnlyImplementors(t *testing.T) {
	m := plugin.NewManager(slog.Default())
	all := &allHooksPlugin{name: "all-hooks"}
	jo := &jobOnlyPlugin{}
	for _, p := range []plugin.Plugin{all, jo} {
		if err := m.Register(p); err != nil {
			t.Fatalf("Register(%s): %v", p.Name(), err)
		}
	}
	m.Initialize(context.Background())

	ctx := context.Background()
	n := testNotification()

	m.EmitJobStart(ctx, n, &job.StartInfo{Name: "j"})
	if len(jo.calls) != 1 || jo.calls[0] != "OnJobStart" {
		t.Fatalf("jo: expected [OnJobStart], got %v", jo.calls)
	}

	// Only all implements OnInvocationStart → jo not called again.
	m.EmitInvocationStart(ctx, n)
	if len(jo.calls) != 1 {
		t.Fatalf("jo: should still have 1 call, got %v", jo.calls)
	}
	if got := all.calls[len(all.calls)-1]; got != "OnInvocationStart" {
		t.Fatalf("all: last call = %q, want OnInvocationStart", got)
	}
}

func TestManager_AllHooksFire(t *testing.T) {
	m := plugin.NewManager(slog.Default())
	all := &allHooksPlugin{name: "all-hooks"}
	if err := m.Register(all); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ctx := context.Background()
	n := testNotification()

	m.Initialize(ctx)
	m.EmitPreConfigure(ctx, n, reflex.DefaultDispatchConfig())
	m.EmitInvocationStart(ctx, n)
	m.EmitDetectionStart(ctx, "orders", n)
	m.EmitDetectionEnd(ctx, "orders", n, true)
	m.EmitHandlerStart(ctx, "orders", n)
	m.EmitHandlerEnd(ctx, "orders", n, nil)
	m.EmitJobStart(ctx, n, &job.StartInfo{Name: "j"})
	m.EmitJobEnd(ctx, n, &job.Result{Name: "j"})
	m.EmitLog(ctx, plugin.LogRecord{Message: "line"})
	m.EmitError(ctx, n, plugin.StageDetect, errors.New("x"))
	m.EmitInvocationEnd(ctx, n, &reflex.Result{})
	m.Flush(ctx)
	m.Shutdown(ctx)

	expected := []string{
		"OnInit", "OnPreConfigure", "OnInvocationStart",
		"OnDetectionStart", "OnDetectionEnd", "OnHandlerStart", "OnHandlerEnd",
		"OnJobStart", "OnJobEnd", "OnLog", "OnError",
		"OnInvocationEnd", "OnFlush", "OnShutdown",
	}
	if len(all.calls) != len(expected) {
		t.Fatalf("expected %d calls, got %d: %v", len(expected), len(all.calls), all.calls)
	}
	for i, want := range expected {
		if all.calls[i] != want {
			t.Errorf("call[%d] = %q, want %q", i, all.calls[i], want)
		}
	}
}

func TestManager_PreConfigureReducesInOrder(t *testing.T) {
	m := plugin.NewManager(slog.Default())
	first := &sourceSetter{name: "first", source: "alpha"}
	second := &sourceSetter{name: "second", source: "beta"}
	for _, p := range []plugin.Plugin{first, second} {
		if err := m.Register(p); err != nil {
			t.Fatalf("Register(%s): %v", p.Name(), err)
		}
	}
	m.Initialize(context.Background())

	cfg := reflex.DefaultDispatchConfig()
	out := m.EmitPreConfigure(context.Background(), testNotification(), cfg)

	if out.Source != "beta" {
		t.Errorf("Source = %q, want beta", out.Source)
	}
	if len(second.saw) != 1 || second.saw[0] != "alpha" {
		t.Errorf("second plugin saw %v, want [alpha]", second.saw)
	}
}

func TestManager_PreConfigureFailureKeepsPriorConfig(t *testing.T) {
	m := plugin.NewManager(slog.Default())
	first := &sourceSetter{name: "first", source: "alpha"}
	for _, p := range []plugin.Plugin{first, &failingPlugin{}, &panickyPlugin{}} {
		if err := m.Register(p); err != nil {
			t.Fatalf("Register(%s): %v", p.Name(), err)
		}
	}
	m.Initialize(context.Background())

	out := m.EmitPreConfigure(context.Background(), testNotification(), reflex.DefaultDispatchConfig())
	if out.Source != "alpha" {
		t.Errorf("Source = %q, want alpha (failing plugins skipped)", out.Source)
	}
}

func TestManager_JobStartSequentialMutation(t *testing.T) {
	m := plugin.NewManager(slog.Default())
	first := &renamer{name: "first", to: "renamed-once"}
	second := &renamer{name: "second", to: "renamed-twice"}
	for _, p := range []plugin.Plugin{first, second} {
		if err := m.Register(p); err != nil {
			t.Fatalf("Register(%s): %v", p.Name(), err)
		}
	}
	m.Initialize(context.Background())

	info := &job.StartInfo{Name: "original"}
	m.EmitJobStart(context.Background(), testNotification(), info)

	if len(second.saw) != 1 || second.saw[0] != "renamed-once" {
		t.Errorf("second renamer saw %v, want [renamed-once]", second.saw)
	}
	if info.Name != "renamed-twice" {
		t.Errorf("final name = %q, want renamed-twice", info.Name)
	}
}

func TestManager_HookErrorsLoggedNotPropagated(t *testing.T) {
	m := plugin.NewManager(slog.Default())
	all := &allHooksPlugin{name: "all-hooks"}
	for _, p := range []plugin.Plugin{&failingPlugin{}, all} {
		if err := m.Register(p); err != nil {
			t.Fatalf("Register(%s): %v", p.Name(), err)
		}
	}
	m.Initialize(context.Background())

	m.EmitInvocationStart(context.Background(), testNotification())

	if got := all.calls[len(all.calls)-1]; got != "OnInvocationStart" {
		t.Fatalf("all: expected OnInvocationStart despite failing plugin, got %v", all.calls)
	}
}

func TestManager_HookPanicsRecovered(t *testing.T) {
	m := plugin.NewManager(slog.Default())
	all := &allHooksPlugin{name: "all-hooks"}
	for _, p := range []plugin.Plugin{&panickyPlugin{}, all} {
		if err := m.Register(p); err != nil {
			t.Fatalf("Register(%s): %v", p.Name(), err)
		}
	}
	m.Initialize(context.Background())

	// Must not panic.
	m.EmitInvocationStart(context.Background(), testNotification())

	if got := all.calls[len(all.calls)-1]; got != "OnInvocationStart" {
		t.Fatalf("all: expected OnInvocationStart despite panicky plugin, got %v", all.calls)
	}
}

func TestManager_ShutdownIdempotent(t *testing.T) {
	m := plugin.NewManager(slog.Default())
	all := &allHooksPlugin{name: "all-hooks"}
	if err := m.Register(all); err != nil {
		t.Fatalf("Register: %v", err)
	}
	m.Initialize(context.Background())

	m.Shutdown(context.Background())
	m.Shutdown(context.Background())

	var shutdowns int
	for _, c := range all.calls {
		if c == "OnShutdown" {
			shutdowns++
		}
	}
	if shutdowns != 1 {
		t.Fatalf("expected exactly one OnShutdown, got %d (%v)", shutdowns, all.calls)
	}
}

func TestManager_ShutdownSafeUninitialized(_ *testing.T) {
	m := plugin.NewManager(slog.Default())
	m.Shutdown(context.Background())
}

func TestManager_EmptyManagerNoOp(_ *testing.T) {
	m := plugin.NewManager(slog.Default())
	ctx := context.Background()
	n := testNotification()

	// None of these should panic or error.
	m.Initialize(ctx)
	m.EmitPreConfigure(ctx, n, reflex.DefaultDispatchConfig())
	m.EmitInvocationStart(ctx, n)
	m.EmitDetectionStart(ctx, "m", n)
	m.EmitDetectionEnd(ctx, "m", n, false)
	m.EmitHandlerStart(ctx, "m", n)
	m.EmitHandlerEnd(ctx, "m", n, nil)
	m.EmitJobStart(ctx, n, &job.StartInfo{})
	m.EmitJobEnd(ctx, n, &job.Result{})
	m.EmitLog(ctx, plugin.LogRecord{})
	m.EmitError(ctx, n, plugin.StageJob, errors.New("x"))
	m.EmitInvocationEnd(ctx, n, &reflex.Result{})
	m.Flush(ctx)
	m.Shutdown(ctx)
}
