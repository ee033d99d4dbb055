package reflex

import (
	"context"

	"github.com/reflexhq/reflex/id"
	"github.com/reflexhq/reflex/token"
)

type ctxKey int

const (
	tokenKey ctxKey = iota
	callerKey
	invocationKey
)

// WithTrackingToken returns a context carrying the invocation's tracking
// token. The job runner installs it so job functions can stamp outbound
// mutations with token.WithJobID(name).String().
func WithTrackingToken(ctx context.Context, t token.Token) context.Context {
	return context.WithValue(ctx, tokenKey, t)
}

// TrackingTokenFrom extracts the tracking token from the context.
// Returns false if none is present.
func TrackingTokenFrom(ctx context.Context) (token.Token, bool) {
	t, ok := ctx.Value(tokenKey).(token.Token)
	return t, ok
}

// WithCallerContext returns a context carrying the caller's opaque value.
func WithCallerContext(ctx context.Context, v any) context.Context {
	return context.WithValue(ctx, callerKey, v)
}

// CallerContextFrom extracts the caller context from the context.
// Returns false if none is present.
func CallerContextFrom(ctx context.Context) (any, bool) {
	v := ctx.Value(callerKey)
	return v, v != nil
}

// WithInvocationID returns a context carrying the invocation identifier.
func WithInvocationID(ctx context.Context, inv id.InvocationID) context.Context {
	return context.WithValue(ctx, invocationKey, inv)
}

// InvocationIDFrom extracts the invocation identifier from the context.
// Returns false if none is present.
func InvocationIDFrom(ctx context.Context) (id.InvocationID, bool) {
	inv, ok := ctx.Value(invocationKey).(id.InvocationID)
	return inv, ok
}
