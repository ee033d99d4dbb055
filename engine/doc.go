// Package engine wires all Reflex subsystems together and provides the
// dispatch entry point.
//
// An Engine is built once per process and dispatched once per inbound
// change notification. Each dispatch evaluates every candidate reaction
// module against the notification, executes the jobs the detected modules
// plan, and broadcasts lifecycle hooks to the registered plugins.
//
// # Building an Engine
//
//	eng, err := engine.New(
//	    engine.WithModules(orderShipped, driverAssigned),
//	    engine.WithPlugins(loghook.New()),
//	    engine.WithSource("order-service"),
//	    engine.WithLimits(limit.Config{
//	        Trigger:        "orders_updated",
//	        MaxConcurrency: 8,
//	    }),
//	)
//
// # Dispatching
//
//	n, err := reflex.ParseNotification(payload)
//	if err != nil {
//	    return err
//	}
//	res, err := eng.Dispatch(ctx, n,
//	    engine.WithCallerContext(requestMeta),
//	    engine.WithRemainingTime(host.RemainingTime),
//	)
//
// Dispatch never fails because a module or plugin failed: module errors
// are isolated per module, plugin errors per plugin, and a deadline shows
// up as Result.TimedOut rather than a returned error.
//
// # Options
//
//   - [WithModules] / [WithModuleDir] / [WithAutoDiscovery] — module supply
//   - [WithPlugins] — lifecycle plugins
//   - [WithMiddleware] — extra job middleware
//   - [WithLimits] — per-trigger/per-job rate and concurrency gates
//   - [WithModuleConcurrency] — fan-out width for module evaluation
//   - [WithDeadline] — invocation time budget
//   - [WithSource] / [WithTrackingField] / [WithoutTracking] — chain tracking
//   - [WithTracerProvider] / [WithMeterProvider] — OpenTelemetry wiring
package engine
