package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func appendNode(letter string) func(ctx context.Context, state map[string]any) (map[string]any, error) {
	return func(ctx context.Context, state map[string]any) (map[string]any, error) {
		state["value"] = state["value"].(string) + letter
		return state, nil
	}
}

func linearGraph(t *testing.T) *Runnable[map[string]any] {
	t.Helper()

	g := NewStateGraph[map[string]any]()
	g.AddNode("A", "A", appendNode("A"))
	g.AddNode("B", "B", appendNode("B"))
	g.AddNode("C", "C", appendNode("C"))

	g.SetEntryPoint("A")
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("C", END)

	runnable, err := g.Compile()
	assert.NoError(t, err)
	return runnable
}

func TestInvokeLinear(t *testing.T) {
	runnable := linearGraph(t)

	res, err := runnable.Invoke(context.Background(), map[string]any{"value": "Start"})
	assert.NoError(t, err)
	assert.Equal(t, "StartABC", res["value"])
}

func TestCompileRequiresEntryPoint(t *testing.T) {
	g := NewStateGraph[map[string]any]()
	g.AddNode("A", "A", appendNode("A"))

	_, err := g.Compile()
	assert.ErrorIs(t, err, ErrEntryPointNotSet)
}

func TestInvokeUnknownNode(t *testing.T) {
	g := NewStateGraph[map[string]any]()
	g.AddNode("A", "A", appendNode("A"))
	g.SetEntryPoint("A")
	g.AddEdge("A", "missing")

	runnable, err := g.Compile()
	assert.NoError(t, err)

	_, err = runnable.Invoke(context.Background(), map[string]any{"value": ""})
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestInvokeNoOutgoingEdge(t *testing.T) {
	g := NewStateGraph[map[string]any]()
	g.AddNode("A", "A", appendNode("A"))
	g.SetEntryPoint("A")

	runnable, err := g.Compile()
	assert.NoError(t, err)

	_, err = runnable.Invoke(context.Background(), map[string]any{"value": ""})
	assert.ErrorIs(t, err, ErrNoOutgoingEdge)
}

func TestConditionalEdge(t *testing.T) {
	g := NewStateGraph[map[string]any]()
	g.AddNode("start", "route", func(ctx context.Context, state map[string]any) (map[string]any, error) {
		return state, nil
	})
	g.AddNode("left", "left", appendNode("L"))
	g.AddNode("right", "right", appendNode("R"))

	g.SetEntryPoint("start")
	g.AddConditionalEdge("start", func(ctx context.Context, state map[string]any) string {
		if state["go_left"].(bool) {
			return "left"
		}
		return "right"
	})
	g.AddEdge("left", END)
	g.AddEdge("right", END)

	runnable, err := g.Compile()
	assert.NoError(t, err)

	res, err := runnable.Invoke(context.Background(), map[string]any{"value": "", "go_left": true})
	assert.NoError(t, err)
	assert.Equal(t, "L", res["value"])

	res, err = runnable.Invoke(context.Background(), map[string]any{"value": "", "go_left": false})
	assert.NoError(t, err)
	assert.Equal(t, "R", res["value"])
}

func TestNodeErrorPropagates(t *testing.T) {
	boom := errors.New("boom")

	g := NewStateGraph[map[string]any]()
	g.AddNode("A", "A", func(ctx context.Context, state map[string]any) (map[string]any, error) {
		return nil, boom
	})
	g.SetEntryPoint("A")
	g.AddEdge("A", END)

	runnable, err := g.Compile()
	assert.NoError(t, err)

	_, err = runnable.Invoke(context.Background(), map[string]any{})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "node A")
}

func TestNodePanicBecomesError(t *testing.T) {
	g := NewStateGraph[map[string]any]()
	g.AddNode("A", "A", func(ctx context.Context, state map[string]any) (map[string]any, error) {
		panic("kaboom")
	})
	g.SetEntryPoint("A")
	g.AddEdge("A", END)

	runnable, err := g.Compile()
	assert.NoError(t, err)

	_, err = runnable.Invoke(context.Background(), map[string]any{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "panic in node A")
}

type countingSchema struct{}

func (countingSchema) Init() map[string]any {
	return map[string]any{"value": "", "merges": 0}
}

func (countingSchema) Update(current, incoming map[string]any) (map[string]any, error) {
	merged := map[string]any{"merges": current["merges"].(int) + 1}
	for k, v := range incoming {
		if k != "merges" {
			merged[k] = v
		}
	}
	return merged, nil
}

func TestSchemaMergesEveryStep(t *testing.T) {
	g := NewStateGraph[map[string]any]()
	g.AddNode("A", "A", appendNode("A"))
	g.AddNode("B", "B", appendNode("B"))
	g.SetEntryPoint("A")
	g.AddEdge("A", "B")
	g.AddEdge("B", END)
	g.SetSchema(countingSchema{})

	runnable, err := g.Compile()
	assert.NoError(t, err)

	res, err := runnable.Invoke(context.Background(), map[string]any{"value": "Start"})
	assert.NoError(t, err)
	assert.Equal(t, "StartAB", res["value"])
	// One merge folding the initial state into Init(), one per node.
	assert.Equal(t, 3, res["merges"])
}

func TestSchemaUpdateFailureAborts(t *testing.T) {
	g := NewStateGraph[map[string]any]()
	g.AddNode("A", "A", appendNode("A"))
	g.SetEntryPoint("A")
	g.AddEdge("A", END)
	g.SetSchema(failingSchema{})

	runnable, err := g.Compile()
	assert.NoError(t, err)

	_, err = runnable.Invoke(context.Background(), map[string]any{"value": ""})
	assert.Error(t, err)
}

type failingSchema struct{}

func (failingSchema) Init() map[string]any { return map[string]any{} }

func (failingSchema) Update(current, incoming map[string]any) (map[string]any, error) {
	return nil, errors.New("schema rejected update")
}

func TestStepListener(t *testing.T) {
	runnable := linearGraph(t)

	var steps []string
	config := &Config[map[string]any]{
		Listeners: []StepListener[map[string]any]{
			StepListenerFunc[map[string]any](func(ctx context.Context, nodeName string, state map[string]any) {
				steps = append(steps, nodeName)
			}),
		},
	}

	_, err := runnable.InvokeWithConfig(context.Background(), map[string]any{"value": ""}, config)
	assert.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, steps)
}
