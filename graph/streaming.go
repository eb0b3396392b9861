package graph

import (
	"context"
	"errors"
	"time"
)

// StreamEventKind classifies streamed events.
type StreamEventKind string

const (
	// StreamEventStep is emitted after a node completed and its result was merged.
	StreamEventStep StreamEventKind = "step"
	// StreamEventProgress is emitted for sub-step progress reported by a node.
	StreamEventProgress StreamEventKind = "progress"
	// StreamEventInterrupt terminates a stream that stopped at an interrupt point.
	StreamEventInterrupt StreamEventKind = "interrupt"
	// StreamEventComplete terminates a stream whose traversal reached END.
	StreamEventComplete StreamEventKind = "complete"
	// StreamEventError terminates a stream whose traversal failed.
	StreamEventError StreamEventKind = "error"
)

// StreamEvent is one observation of a streaming invocation.
type StreamEvent[S any] struct {
	// Timestamp when the event occurred
	Timestamp time.Time

	// Kind is the type of event
	Kind StreamEventKind

	// NodeName is the node the event refers to (empty on terminal events)
	NodeName string

	// State is the merged state at the time of the event
	State S

	// Data carries sub-step payloads for progress events
	Data any

	// Err is set on error events
	Err error
}

// Stream executes the graph like InvokeWithConfig but emits one event per
// completed step (and per sub-step progress report) on the returned channel.
// The channel always ends with exactly one terminal event (complete,
// interrupt or error) and is then closed. State-machine transitions are
// identical to the blocking invocation; only observability differs.
func (r *Runnable[S]) Stream(ctx context.Context, initialState S, config *Config[S]) <-chan StreamEvent[S] {
	events := make(chan StreamEvent[S], 64)

	cfg := &Config[S]{}
	if config != nil {
		clone := *config
		cfg = &clone
	}
	cfg.Listeners = append(cfg.Listeners, StepListenerFunc[S](func(_ context.Context, nodeName string, state S) {
		events <- StreamEvent[S]{
			Timestamp: time.Now(),
			Kind:      StreamEventStep,
			NodeName:  nodeName,
			State:     state,
		}
	}))

	runCtx := WithProgress(ctx, func(nodeName string, data any) {
		events <- StreamEvent[S]{
			Timestamp: time.Now(),
			Kind:      StreamEventProgress,
			NodeName:  nodeName,
			Data:      data,
		}
	})

	go func() {
		defer close(events)

		state, err := r.InvokeWithConfig(runCtx, initialState, cfg)
		switch {
		case err == nil:
			events <- StreamEvent[S]{
				Timestamp: time.Now(),
				Kind:      StreamEventComplete,
				State:     state,
			}
		default:
			var interrupt *GraphInterrupt
			if errors.As(err, &interrupt) {
				events <- StreamEvent[S]{
					Timestamp: time.Now(),
					Kind:      StreamEventInterrupt,
					NodeName:  interrupt.Node,
					State:     state,
				}
				return
			}
			events <- StreamEvent[S]{
				Timestamp: time.Now(),
				Kind:      StreamEventError,
				Err:       err,
			}
		}
	}()

	return events
}
