package reflex

import (
	"time"

	"github.com/reflexhq/reflex/job"
)

// ModuleResult is the outcome of evaluating one reaction module against a
// notification. A module whose detector declined (or failed) reports
// Detected false with no jobs; a module whose handler failed reports
// Detected true with no jobs.
type ModuleResult struct {
	Module   string       `json:"module"`
	Detected bool         `json:"detected"`
	Jobs     []job.Result `json:"jobs,omitempty"`
}

// Result is the structured outcome of one dispatch invocation. Callers
// always receive a Result for ordinary failures; Error is set only for the
// invocation-level timeout message.
type Result struct {
	Modules  []ModuleResult `json:"modules"`
	Duration time.Duration  `json:"duration"`
	TimedOut bool           `json:"timed_out,omitempty"`
	Error    string         `json:"error,omitempty"`
}
