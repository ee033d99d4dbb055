package module_test

import (
	"context"
	"errors"
	"testing"

	"github.com/reflexhq/reflex"
	"github.com/reflexhq/reflex/job"
	"github.com/reflexhq/reflex/module"
)

func noopModule(name string) module.Module {
	return module.Module{
		Name: name,
		Detect: func(context.Context, *reflex.Notification) (bool, error) {
			return true, nil
		},
		Handle: func(context.Context, *reflex.Notification) ([]*job.Job, error) {
			return nil, nil
		},
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := module.NewRegistry()
	if err := r.Register(noopModule("orderShipped")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	m, ok := r.Get("orderShipped")
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if m.Name != "orderShipped" {
		t.Errorf("Name = %q, want %q", m.Name, "orderShipped")
	}
	if _, ok := r.Get("unknown"); ok {
		t.Error("Get(unknown) ok = true, want false")
	}
}

func TestRegistry_NamesInRegistrationOrder(t *testing.T) {
	r := module.NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(noopModule(name)); err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
	}

	names := r.Names()
	want := []string{"zeta", "alpha", "mid"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
}

func TestRegistry_RejectsDuplicate(t *testing.T) {
	r := module.NewRegistry()
	if err := r.Register(noopModule("orderShipped")); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	err := r.Register(noopModule("orderShipped"))
	if !errors.Is(err, module.ErrDuplicate) {
		t.Errorf("second Register() error = %v, want ErrDuplicate", err)
	}
}

func TestRegistry_RejectsInvalid(t *testing.T) {
	r := module.NewRegistry()

	unnamed := noopModule("")
	if err := r.Register(unnamed); !errors.Is(err, module.ErrInvalid) {
		t.Errorf("Register(unnamed) error = %v, want ErrInvalid", err)
	}

	blind := noopModule("blind")
	blind.Detect = nil
	if err := r.Register(blind); !errors.Is(err, module.ErrInvalid) {
		t.Errorf("Register(no detector) error = %v, want ErrInvalid", err)
	}

	inert := noopModule("inert")
	inert.Handle = nil
	if err := r.Register(inert); !errors.Is(err, module.ErrInvalid) {
		t.Errorf("Register(no handler) error = %v, want ErrInvalid", err)
	}

	if r.Len() != 0 {
		t.Errorf("Len() = %d after rejected registrations, want 0", r.Len())
	}
}
