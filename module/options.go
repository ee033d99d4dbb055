package module

import "log/slog"

// Option configures a DirSource.
type Option func(*DirSource)

// WithExtensions sets the artifact extensions to consider, in precedence
// order. When a logical name exists under several extensions, the first
// extension in this list wins. Defaults to ".so".
func WithExtensions(exts ...string) Option {
	return func(s *DirSource) {
		if len(exts) > 0 {
			s.extensions = exts
		}
	}
}

// WithExclusions replaces the set of logical names skipped during
// discovery. Defaults to "index" and "main".
func WithExclusions(names ...string) Option {
	return func(s *DirSource) {
		s.exclude = make(map[string]bool, len(names))
		for _, n := range names {
			s.exclude[n] = true
		}
	}
}

// WithCache keeps loaded modules in memory and evicts them when their
// artifacts change on disk. Without it every load opens the artifact
// anew.
func WithCache() Option {
	return func(s *DirSource) {
		s.cache = true
	}
}

// WithLogger sets the logger used for discovery and cache diagnostics.
// Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *DirSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}
