package module

import (
	"context"

	"github.com/reflexhq/reflex"
	"github.com/reflexhq/reflex/job"
)

// DetectFunc reports whether a notification is interesting to a module.
// It must not mutate the notification.
type DetectFunc func(ctx context.Context, n *reflex.Notification) (bool, error)

// HandleFunc plans the jobs a module wants to run for a detected
// notification. Returning an empty slice is a valid outcome.
type HandleFunc func(ctx context.Context, n *reflex.Notification) ([]*job.Job, error)

// Module is a named detector/handler pair. Both functions are required.
type Module struct {
	Name   string
	Detect DetectFunc
	Handle HandleFunc
}
