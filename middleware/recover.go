package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/reflexhq/reflex/job"
)

// Recover returns middleware that recovers from panics in the job chain.
// Panics are converted to errors and logged with a stack trace.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) (v any, retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("job panicked",
					slog.String("job", j.ResolvedName()),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				v = nil
				retErr = fmt.Errorf("panic in job %s: %v", j.ResolvedName(), r)
			}
		}()
		return next(ctx)
	}
}
