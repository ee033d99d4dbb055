// Package limit gates job starts with per-trigger and per-job rate
// limiting and concurrency caps.
//
// Gates are keyed by trigger name, optionally narrowed to one resolved job
// name. A job start must pass every matching gate before its function
// runs; waits are cancellable through the job's context, so a gate can
// never outlive the invocation's deadline.
//
// # Configuration
//
// Use [Config] to describe each gate:
//
//	limit.Config{
//	    Trigger:        "orders_updated",
//	    MaxConcurrency: 5,      // max 5 concurrent jobs for this trigger
//	    RateLimit:      10,     // max 10 job starts/s
//	    RateBurst:      20,     // allow bursts up to 20
//	}
//
//	limit.Config{
//	    Trigger: "orders_updated",
//	    Job:     "syncSearchIndex", // only this job
//	    MaxConcurrency: 1,
//	}
//
// Pass configs when building the engine:
//
//	engine.New(
//	    engine.WithLimits(
//	        limit.Config{Trigger: "orders_updated", MaxConcurrency: 20},
//	        limit.Config{Trigger: "invoices_created", RateLimit: 5, RateBurst: 10},
//	    ),
//	)
//
// # Manager
//
// [Manager] enforces the gates at job start. It uses a token-bucket rate
// limiter (golang.org/x/time/rate) and a slot channel for concurrency:
//
//	m := limit.NewManager(configs...)
//	if err := m.Acquire(ctx, trigger, jobName); err == nil {
//	    defer m.Release(trigger, jobName)
//	    // run the job
//	}
//
// Trigger+job pairs without a [Config] are admitted immediately.
package limit
