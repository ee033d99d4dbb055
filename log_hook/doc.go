// Package loghook is the out-of-the-box visibility plugin. It logs every
// dispatch lifecycle stage through slog: invocation start and end, module
// detection, handler runs, job starts and outcomes, and stage errors.
//
// Register it like any other plugin:
//
//	eng, err := engine.New(
//	    engine.WithPlugins(loghook.New()),
//	)
//
// # Selective filtering
//
// Busy deployments usually only want job outcomes and errors:
//
//	loghook.New(
//	    loghook.WithEvents(
//	        loghook.EventJobEnd,
//	        loghook.EventError,
//	    ),
//	)
package loghook
