package job

import "time"

// Options configures per-job behavior. The zero value means no per-job
// timeout, inherited correlation, and no metadata.
type Options struct {
	// Timeout is the maximum duration the job may run before its context is
	// cancelled. Zero means no per-job limit; the shared invocation deadline
	// still applies.
	Timeout time.Duration

	// CorrelationID overrides the correlation identifier recorded for this
	// job. Empty inherits the invocation's identifier.
	CorrelationID string

	// Meta carries free-form key/value pairs through to hooks and results.
	Meta map[string]any
}

// Option is a functional option for configuring a job.
type Option func(*Options)

// WithTimeout sets the maximum execution duration for the job.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithCorrelationID overrides the correlation identifier for the job.
func WithCorrelationID(id string) Option {
	return func(o *Options) {
		o.CorrelationID = id
	}
}

// WithMeta attaches a metadata key/value pair to the job.
func WithMeta(key string, value any) Option {
	return func(o *Options) {
		if o.Meta == nil {
			o.Meta = make(map[string]any)
		}
		o.Meta[key] = value
	}
}
