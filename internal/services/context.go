package services

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	pairKey      contextKey = "pair"
	jobKey       contextKey = "job"
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

// WithPair annotates context with the label of the track pair being merged.
func WithPair(ctx context.Context, label string) context.Context {
	if label == "" {
		return ctx
	}
	return context.WithValue(ctx, pairKey, label)
}

// PairFromContext returns the pair label if present.
func PairFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(pairKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithJob annotates context with a batch job name.
func WithJob(ctx context.Context, job string) context.Context {
	if job == "" {
		return ctx
	}
	return context.WithValue(ctx, jobKey, job)
}

// JobFromContext returns the batch job name if present.
func JobFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(jobKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
