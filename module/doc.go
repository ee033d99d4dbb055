// Package module defines reaction modules and the sources that supply
// them.
//
// A reaction module pairs a detector with a handler. The detector decides
// whether a notification is interesting; the handler plans the jobs to run
// when it is. Detection is expected to be pure and fast. Handlers do the
// heavy lifting by returning jobs, which the engine executes:
//
//	module.Module{
//	    Name: "orderShipped",
//	    Detect: func(ctx context.Context, n *reflex.Notification) (bool, error) {
//	        return n.Event.Op == reflex.OpUpdate &&
//	            n.Event.Data.Old["status"] != "shipped" &&
//	            n.Event.Data.New["status"] == "shipped", nil
//	    },
//	    Handle: func(ctx context.Context, n *reflex.Notification) ([]*job.Job, error) {
//	        return []*job.Job{job.New("notifyCustomer", notifyCustomer)}, nil
//	    },
//	}
//
// # Sources
//
// [Registry] holds modules registered in process, the common case.
//
// [DirSource] discovers modules compiled as Go plugin shared objects. An
// artifact exports Detect and Handle symbols with the signatures above:
//
//	// go build -buildmode=plugin -o modules/orderShipped.so ./modules/orderShipped
//	package main
//
//	func Detect(ctx context.Context, n *reflex.Notification) (bool, error) { ... }
//	func Handle(ctx context.Context, n *reflex.Notification) ([]*job.Job, error) { ... }
//
// Artifacts exporting only one of the two symbols are warned about and
// treated as absent. Loading is per invocation unless [WithCache] is set,
// in which case loaded modules are reused until the artifact file changes
// on disk.
package module
