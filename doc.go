// Package reflex dispatches record-store change notifications to registered
// reaction modules. For each notification it decides concurrently which
// modules apply, runs each applicable module's jobs with cooperative
// cancellation, broadcasts lifecycle hooks to plugins, and returns a
// structured outcome inside a time budget the caller controls.
//
// Reflex is designed as a library, not a service. Import it, register
// modules and plugins on an engine, and feed it notifications from wherever
// they arrive (webhook handler, queue consumer, FaaS entry point).
//
// # Quick Start
//
//	eng, err := engine.New(
//	    engine.WithModules(ordersModule),
//	    engine.WithPlugins(loghook.New()),
//	)
//	if err != nil {
//	    return err
//	}
//	res, err := eng.Dispatch(ctx, n)
//
// # Architecture
//
// The root package holds only wire and result types so every subsystem
// (plugin, module, worker, deadline, engine) can import it without cycles.
// The engine package sits above all subsystems and implements the dispatch
// pipeline end to end.
//
// Invocations chained across the record store are stitched together by a
// dotted tracking token ("source.correlationId[.jobId]") that round-trips
// through a conventional text column; see the token package.
//
// Entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package reflex
