package renewer

import "context"

type contextKey int

const runIDKey contextKey = iota

// WithRunID returns a context carrying the run identifier so that every
// record emitted during the run can be correlated. Run state is scoped
// through context values, never process-wide mutable state.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

func runIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}
