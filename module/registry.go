package module

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrInvalid is returned when a module is missing its name, detector
	// or handler.
	ErrInvalid = errors.New("module: invalid module")

	// ErrDuplicate is returned when a module name is registered twice.
	ErrDuplicate = errors.New("module: duplicate module name")
)

// Registry holds modules registered in process, in registration order.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
	order   []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]Module)}
}

// Register adds a module. The module must carry a non-empty name and both
// a detector and a handler.
func (r *Registry) Register(m Module) error {
	if m.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalid)
	}
	if m.Detect == nil {
		return fmt.Errorf("%w: %s has no detector", ErrInvalid, m.Name)
	}
	if m.Handle == nil {
		return fmt.Errorf("%w: %s has no handler", ErrInvalid, m.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[m.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, m.Name)
	}
	r.modules[m.Name] = m
	r.order = append(r.order, m.Name)
	return nil
}

// Get returns the module registered under name.
func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}

// Names returns the registered module names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
