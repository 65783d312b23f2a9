package services

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	routeKey     contextKey = "route"
	runIDKey     contextKey = "run_id"
)

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRoute annotates context with the matched site route pattern.
func WithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey, route)
}

// RouteFromContext returns the route pattern if present.
func RouteFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(routeKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunID annotates context with a migration run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the migration run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
