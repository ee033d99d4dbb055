// Package trackhook continues tracking chains across chained invocations.
//
// When a job mutates a record it stamps its tracking token into a
// conventional column of the row (default "updated_by"). The change
// notification for that mutation then carries the token in its
// after-image. This hook reads the configured tracking field during
// pre-configure and, when it holds a parseable token, injects the token's
// correlation id into the dispatch configuration so the new invocation
// joins the existing chain instead of starting a fresh one.
//
// A correlation id supplied by the caller always wins; the hook only
// fills the gap. Values that are not valid tokens are ignored, which is
// what makes sharing the column with ordinary writers safe.
//
// The engine registers this hook automatically unless tracking is
// disabled:
//
//	eng, err := engine.New(
//	    engine.WithTrackingField("updated_by"),
//	)
package trackhook
