package graph

import "context"

// ProgressFunc receives sub-step progress emitted by a node while it is
// still executing (e.g. one event per item of an internal fan-out).
type ProgressFunc func(nodeName string, data any)

type progressKey struct{}

// WithProgress attaches a progress sink to the context. Nodes report
// sub-step progress through it via EmitProgress.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

// EmitProgress reports sub-step progress from inside a node. It is a no-op
// when the invocation has no progress sink attached.
func EmitProgress(ctx context.Context, nodeName string, data any) {
	if fn, ok := ctx.Value(progressKey{}).(ProgressFunc); ok && fn != nil {
		fn(nodeName, data)
	}
}
