// Package middleware provides composable middleware for job execution.
//
// A [Middleware] is a function that wraps a job function. Middleware are
// composed into a chain using [Chain] and applied around each job the
// worker runs. They are applied right-to-left: the first middleware in the
// slice is the outermost wrapper.
//
//	// logging → recover → job function
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Recover] — catches panics and converts them to errors
//   - [Logging] — logs job name, correlation, duration, and outcome
//   - [Tracing] — wraps execution in an OpenTelemetry span
//   - [Metrics] — records per-job duration and outcome counters
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, j *job.Job, next middleware.Handler) (any, error) {
//	        // pre-processing
//	        v, err := next(ctx)
//	        // post-processing
//	        return v, err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting (e.g., circuit breaker, rate limiting).
package middleware
