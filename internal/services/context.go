package services

import "context"

type contextKey string

const (
	jobIDKey     contextKey = "job_id"
	frameKey     contextKey = "frame"
	viewKey      contextKey = "view"
	requestIDKey contextKey = "request_id"
)

// WithJobID annotates context with the render job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the render job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithFrame annotates context with the frame currently being rendered.
func WithFrame(ctx context.Context, frame int) context.Context {
	return context.WithValue(ctx, frameKey, frame)
}

// FrameFromContext returns the frame if present.
func FrameFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(frameKey).(int)
	return v, ok
}

// WithView annotates context with the view index currently being rendered.
func WithView(ctx context.Context, view int) context.Context {
	return context.WithValue(ctx, viewKey, view)
}

// ViewFromContext returns the view index if present.
func ViewFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(viewKey).(int)
	return v, ok
}

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
