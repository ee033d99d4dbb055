package job

import (
	"context"
	"reflect"
	"runtime"
	"strings"
)

// Func is one unit of asynchronous work produced by a module handler.
// It runs under the invocation's context; implementations should watch
// ctx.Done(). Cancellation is cooperative: the runner stops waiting for an
// unresponsive job but never forcibly terminates it.
type Func func(ctx context.Context) (any, error)

// Job pairs a work function with its per-job options. Jobs are built by
// handler code and consumed by the worker; they are never persisted.
type Job struct {
	// Name is the explicit job name. Empty falls back to the function's
	// own name, then to AnonymousName; see ResolvedName.
	Name string

	// Fn is the work function.
	Fn Func

	// Options configures timeout, correlation, and free-form metadata.
	Options Options
}

// AnonymousName is reported for jobs with no explicit or recoverable name.
const AnonymousName = "anonymous"

// New creates a job with the given explicit name. Pass an empty name to let
// the function's own name (or AnonymousName) identify it.
func New(name string, fn Func, opts ...Option) *Job {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return &Job{Name: name, Fn: fn, Options: o}
}

// ResolvedName returns the name the job reports in results and hooks.
// Precedence: explicit name, then the function's declared name, then
// AnonymousName. Callers introspect planned (not-yet-run) job lists by
// name, so resolution never depends on execution.
func (j *Job) ResolvedName() string {
	if j == nil {
		return AnonymousName
	}
	if j.Name != "" {
		return j.Name
	}
	if n := funcName(j.Fn); n != "" {
		return n
	}
	return AnonymousName
}

// funcName recovers the declared name of fn via the runtime. Closures and
// other compiler-generated functions report empty.
func funcName(fn Func) string {
	if fn == nil {
		return ""
	}
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return ""
	}

	full := strings.TrimSuffix(f.Name(), "-fm")
	if i := strings.LastIndexByte(full, '/'); i >= 0 {
		full = full[i+1:]
	}
	segs := strings.Split(full, ".")
	if len(segs) > 1 {
		segs = segs[1:] // drop the package qualifier
	}

	name := segs[len(segs)-1]
	if isGenerated(name) {
		return ""
	}
	return name
}

// isGenerated reports whether s is a compiler-generated name segment such as
// "func1", or the bare ordinal of a nested closure.
func isGenerated(s string) bool {
	s = strings.TrimPrefix(s, "func")
	if s == "" {
		return true
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
