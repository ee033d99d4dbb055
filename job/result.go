package job

import "time"

// Result records one finished (or abandoned) job run. Exactly one of Value
// and Error is meaningful: a completed job carries its return value, a
// failed or timed-out one carries the error text.
type Result struct {
	// Name is the job's resolved name.
	Name string `json:"name"`

	// StartedAt and EndedAt bracket the run.
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`

	// Duration is EndedAt minus StartedAt.
	Duration time.Duration `json:"duration"`

	// Completed reports whether the function returned without error before
	// any deadline fired.
	Completed bool `json:"completed"`

	// Value is the job's return value when Completed.
	Value any `json:"result,omitempty"`

	// Error is the failure text when not Completed.
	Error string `json:"error,omitempty"`
}

// StartInfo describes a job about to run. It is handed to observers before
// execution; observers may mutate it (renaming, option tweaks) and the
// runner applies the final state. It is never shared between goroutines
// while mutable.
type StartInfo struct {
	// Name is the job's resolved name. Observers may rewrite it.
	Name string

	// Trigger identifies the dispatch entry point that produced the job.
	Trigger string

	// Token is the serialized tracking token for the invocation.
	Token string

	// RunID uniquely identifies this run.
	RunID string

	// Options is the job's effective option set.
	Options Options
}
