package graph

import "context"

// StepListener is notified after each node has executed and its result has
// been merged into the state.
type StepListener[S any] interface {
	OnGraphStep(ctx context.Context, nodeName string, state S)
}

// StepListenerFunc is a function adapter for StepListener.
type StepListenerFunc[S any] func(ctx context.Context, nodeName string, state S)

// OnGraphStep implements the StepListener interface.
func (f StepListenerFunc[S]) OnGraphStep(ctx context.Context, nodeName string, state S) {
	f(ctx, nodeName, state)
}

// Config controls a single invocation of a compiled graph.
type Config[S any] struct {
	// Configurable carries invocation-scoped values such as "thread_id".
	Configurable map[string]any

	// InterruptBefore stops execution before any of the listed nodes run.
	InterruptBefore []string

	// InterruptAfter stops execution after any of the listed nodes ran and
	// their result was merged.
	InterruptAfter []string

	// ResumeFrom overrides the entry point, continuing a previously
	// interrupted invocation.
	ResumeFrom []string

	// Listeners are notified after every completed step.
	Listeners []StepListener[S]
}

// ThreadID returns the "thread_id" configurable, if set.
func (c *Config[S]) ThreadID() string {
	if c == nil || c.Configurable == nil {
		return ""
	}
	tid, _ := c.Configurable["thread_id"].(string)
	return tid
}

// WithThreadID creates a Config with the given thread_id set in the
// configurable map.
func WithThreadID[S any](threadID string) *Config[S] {
	return &Config[S]{
		Configurable: map[string]any{
			"thread_id": threadID,
		},
	}
}

// WithInterruptAfter creates a Config with interrupt points set after the
// specified nodes.
func WithInterruptAfter[S any](nodes ...string) *Config[S] {
	return &Config[S]{
		InterruptAfter: nodes,
	}
}

// WithResumeFrom creates a Config that resumes execution at the given nodes.
func WithResumeFrom[S any](nodes ...string) *Config[S] {
	return &Config[S]{
		ResumeFrom: nodes,
	}
}
