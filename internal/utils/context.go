// Package utils provides general-purpose helper utilities used across
// different parts of the application: context keys, file hashing and
// trace identifiers.
package utils

import "context"

// contextKey is a private type for context keys. Using a dedicated type
// instead of a plain string prevents key collisions with other packages
// that may use string-based keys in the context.
type contextKey string

func (c contextKey) String() string {
	return string(c)
}

// TraceIDCtxKey is the key used to store the request trace identifier in
// the context. Used together with GetTraceIDFromContext for type-safe
// retrieval.
var TraceIDCtxKey = contextKey("traceID")

// WithTraceID returns a context carrying the given trace identifier.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDCtxKey, traceID)
}

// GetTraceIDFromContext retrieves the trace identifier from the context.
// ok is false when the value is missing or has an unexpected type.
func GetTraceIDFromContext(ctx context.Context) (string, bool) {
	traceID, ok := ctx.Value(TraceIDCtxKey).(string)
	return traceID, ok
}
