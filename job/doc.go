// Package job defines the unit of work produced by module handlers and
// executed by the worker.
//
// # Job Entity
//
// A [Job] is a function plus options. Handlers return a slice of jobs; the
// worker runs them concurrently and collects one [Result] per job. Jobs are
// transient values: they live for a single invocation and are never
// persisted or retried.
//
// # Naming
//
// A job's reported name resolves in order: the explicit [Job.Name], the
// declared name of the function (recovered via the runtime, so method
// values and top-level functions work), then [AnonymousName]. Closures and
// other compiler-generated functions have no recoverable name:
//
//	job.New("send-receipt", sendReceipt)      // "send-receipt"
//	job.New("", sendReceipt)                  // "sendReceipt"
//	job.New("", func(ctx context.Context) (any, error) { ... }) // "anonymous"
//
// # Options
//
// Per-job options cover an execution timeout, a correlation override, and
// free-form metadata:
//
//	job.New("notify", notify,
//	    job.WithTimeout(10*time.Second),
//	    job.WithMeta("channel", "sms"),
//	)
//
// # Results
//
// Exactly one of [Result.Value] and [Result.Error] is set. Cancellation and
// timeout surface as errors on the result; the worker never loses a job
// silently.
package job
