package module

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	goplugin "plugin"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/reflexhq/reflex"
	"github.com/reflexhq/reflex/job"
)

var (
	// ErrNotFound is returned when no artifact for the requested module
	// exists in the source directory.
	ErrNotFound = errors.New("module: module not found")

	// ErrNotApplicable is returned when an artifact exists but does not
	// export a usable module. Callers treat the module as absent.
	ErrNotApplicable = errors.New("module: artifact is not a module")
)

// Exported symbol names a module artifact must carry.
const (
	symDetect = "Detect"
	symHandle = "Handle"
)

// DirSource discovers reaction modules compiled as Go plugin shared
// objects in a single directory. It is safe for concurrent use.
type DirSource struct {
	dir        string
	extensions []string
	exclude    map[string]bool
	logger     *slog.Logger
	cache      bool

	mu          sync.Mutex
	loaded      map[string]Module
	watcher     *fsnotify.Watcher
	watcherDead bool
}

// NewDirSource returns a source scanning dir. By default only ".so"
// artifacts are considered, the logical names "index" and "main" are
// excluded, and nothing is cached between loads.
func NewDirSource(dir string, opts ...Option) *DirSource {
	s := &DirSource{
		dir:        dir,
		extensions: []string{".so"},
		exclude:    map[string]bool{"index": true, "main": true},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache {
		s.loaded = make(map[string]Module)
	}
	return s
}

// Names scans the directory and returns the logical module names found,
// in directory order. Entries starting with "." or "_", directories,
// excluded names and unknown extensions are skipped. When the same
// logical name exists under several extensions it appears once. An
// unreadable directory is logged and yields no names.
func (s *DirSource) Names() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("module directory unreadable",
			slog.String("dir", s.dir),
			slog.String("error", err.Error()),
		)
		return nil
	}

	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		base := e.Name()
		if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") {
			continue
		}
		ext := filepath.Ext(base)
		if !slices.Contains(s.extensions, ext) {
			continue
		}
		name := strings.TrimSuffix(base, ext)
		if name == "" || s.exclude[name] || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Load opens the artifact for name and extracts its module. When the name
// exists under several extensions the first match in the configured
// extension order wins. One-sided artifacts (only Detect or only Handle
// exported) are logged and reported as ErrNotApplicable.
func (s *DirSource) Load(name string) (Module, error) {
	if s.cache {
		s.mu.Lock()
		m, ok := s.loaded[name]
		s.mu.Unlock()
		if ok {
			return m, nil
		}
	}

	path, err := s.find(name)
	if err != nil {
		return Module{}, err
	}

	p, err := goplugin.Open(path)
	if err != nil {
		return Module{}, fmt.Errorf("module: open %s: %w", path, err)
	}

	detectSym, detectErr := p.Lookup(symDetect)
	handleSym, handleErr := p.Lookup(symHandle)
	if detectErr != nil && handleErr != nil {
		return Module{}, fmt.Errorf("%w: %s exports neither Detect nor Handle", ErrNotApplicable, name)
	}
	if detectErr != nil || handleErr != nil {
		missing := symDetect
		if detectErr == nil {
			missing = symHandle
		}
		s.logger.Warn("module artifact is one-sided, treating as absent",
			slog.String("module", name),
			slog.String("missing", missing),
		)
		return Module{}, fmt.Errorf("%w: %s does not export %s", ErrNotApplicable, name, missing)
	}

	detect, ok := asDetect(detectSym)
	if !ok {
		return Module{}, fmt.Errorf("%w: %s Detect has the wrong signature", ErrNotApplicable, name)
	}
	handle, ok := asHandle(handleSym)
	if !ok {
		return Module{}, fmt.Errorf("%w: %s Handle has the wrong signature", ErrNotApplicable, name)
	}

	m := Module{Name: name, Detect: detect, Handle: handle}
	if s.cache {
		s.mu.Lock()
		s.loaded[name] = m
		s.ensureWatcher()
		s.mu.Unlock()
	}
	return m, nil
}

// Close stops the cache invalidation watcher, if one is running.
func (s *DirSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	return err
}

// find returns the artifact path for name, trying extensions in
// precedence order.
func (s *DirSource) find(name string) (string, error) {
	for _, ext := range s.extensions {
		path := filepath.Join(s.dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %q in %s", ErrNotFound, name, s.dir)
}

// ensureWatcher starts the fsnotify watcher that evicts cached modules
// when their artifacts change on disk. Called with s.mu held. A watcher
// that cannot be started is noted once; caching then runs uninvalidated.
func (s *DirSource) ensureWatcher() {
	if s.watcher != nil || s.watcherDead {
		return
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("module cache watcher unavailable", slog.String("error", err.Error()))
		s.watcherDead = true
		return
	}
	if err := w.Add(s.dir); err != nil {
		s.logger.Warn("module cache watcher unavailable",
			slog.String("dir", s.dir),
			slog.String("error", err.Error()),
		)
		_ = w.Close()
		s.watcherDead = true
		return
	}
	s.watcher = w
	go s.watch(w)
}

func (s *DirSource) watch(w *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			base := filepath.Base(ev.Name)
			logical := strings.TrimSuffix(base, filepath.Ext(base))
			s.mu.Lock()
			_, had := s.loaded[logical]
			delete(s.loaded, logical)
			s.mu.Unlock()
			if had {
				s.logger.Debug("module cache invalidated", slog.String("module", logical))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("module cache watcher error", slog.String("error", err.Error()))
		}
	}
}

// asDetect extracts a detector from a plugin symbol. Artifacts may export
// the function directly or as a variable, typed or untyped.
func asDetect(sym goplugin.Symbol) (DetectFunc, bool) {
	switch f := sym.(type) {
	case func(context.Context, *reflex.Notification) (bool, error):
		return f, true
	case *func(context.Context, *reflex.Notification) (bool, error):
		return *f, true
	case DetectFunc:
		return f, true
	case *DetectFunc:
		return *f, true
	}
	return nil, false
}

func asHandle(sym goplugin.Symbol) (HandleFunc, bool) {
	switch f := sym.(type) {
	case func(context.Context, *reflex.Notification) ([]*job.Job, error):
		return f, true
	case *func(context.Context, *reflex.Notification) ([]*job.Job, error):
		return *f, true
	case HandleFunc:
		return f, true
	case *HandleFunc:
		return *f, true
	}
	return nil, false
}
