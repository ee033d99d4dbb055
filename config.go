package reflex

import "time"

// DispatchConfig is the per-invocation configuration for one dispatch call.
// The dispatcher reduces it through every enabled plugin's pre-configure
// hook, in registration order, before resolving the tracking token. That
// reduction is how enrichment plugins inject values such as a continued
// correlation id.
type DispatchConfig struct {
	// Source attributes this invocation in tracking tokens. Empty defaults
	// to the notification's trigger name.
	Source string

	// CorrelationID continues an existing chain. It must be UUID-shaped to
	// be honored; anything else is ignored and a fresh id is minted.
	CorrelationID string

	// CallerContext is an opaque value the caller threads through the
	// invocation. The dispatcher never inspects it.
	CallerContext any

	// AutoDiscover scans ModuleDir for module artifacts when no explicit
	// module list is given.
	AutoDiscover bool

	// ModuleDir is the directory scanned for module artifacts.
	ModuleDir string

	// Modules is the explicit candidate list by module name. When set it
	// takes precedence over discovery.
	Modules []string

	// TrackingField names the after-image column the tracking token
	// round-trips through. Empty disables extraction.
	TrackingField string

	// EphemeralHost marks hosts that may be frozen or killed after the
	// invocation returns. On ephemeral hosts the plugin manager is fully
	// shut down after each dispatch; otherwise buffering plugins are only
	// flushed.
	EphemeralHost bool

	// Deadline bounds the invocation inside execution-time-limited hosts.
	Deadline DeadlineConfig
}

// DeadlineConfig configures the invocation time budget.
type DeadlineConfig struct {
	// Enabled turns deadline monitoring on.
	Enabled bool

	// RemainingTime reports how much execution time the host still allows.
	// Hosts that expose a remaining-time API supply it here. Nil falls back
	// to a fixed MaxDuration budget anchored when dispatch starts.
	RemainingTime func() time.Duration

	// SafetyMargin is how much remaining time must be left untouched. At or
	// below the margin the invocation is cancelled so plugins can flush
	// before the host terminates the process.
	SafetyMargin time.Duration

	// MaxDuration is the fallback budget when RemainingTime is nil.
	MaxDuration time.Duration

	// JobTimeout caps each job that does not set its own timeout.
	// Zero applies no per-job cap.
	JobTimeout time.Duration
}

// DefaultDispatchConfig returns a DispatchConfig with sensible defaults.
func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		TrackingField: "updated_by",
		Deadline: DeadlineConfig{
			SafetyMargin: 500 * time.Millisecond,
			MaxDuration:  30 * time.Second,
		},
	}
}
