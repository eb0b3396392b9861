package graph

import (
	"context"
	"fmt"
	"slices"
)

// StateGraph represents a state-based graph with compile-time type safety.
// The type parameter S is the state type carried between nodes.
//
// Example usage:
//
//	g := graph.NewStateGraph[MyState]()
//	g.AddNode("research", "Research the target", researchNode)
//	g.AddEdge("research", graph.END)
//	g.SetEntryPoint("research")
//	runnable, err := g.Compile()
type StateGraph[S any] struct {
	// nodes is a map of node names to their corresponding Node objects
	nodes map[string]Node[S]

	// edges is a slice of Edge objects representing the connections between nodes
	edges []Edge

	// conditionalEdges contains a map between "From" node, while "To" node is derived based on the condition
	conditionalEdges map[string]func(ctx context.Context, state S) string

	// entryPoint is the name of the entry point node in the graph
	entryPoint string

	// schema defines the state structure and update logic
	schema StateSchema[S]
}

// NewStateGraph creates a new instance of StateGraph.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]Node[S]),
		conditionalEdges: make(map[string]func(ctx context.Context, state S) string),
	}
}

// AddNode adds a new node to the state graph with the given name, description and function.
func (g *StateGraph[S]) AddNode(name string, description string, fn func(ctx context.Context, state S) (S, error)) {
	g.nodes[name] = Node[S]{
		Name:        name,
		Description: description,
		Function:    fn,
	}
}

// AddEdge adds a new edge to the state graph between the "from" and "to" nodes.
func (g *StateGraph[S]) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{
		From: from,
		To:   to,
	})
}

// AddConditionalEdge adds a conditional edge where the target node is determined at runtime.
func (g *StateGraph[S]) AddConditionalEdge(from string, condition func(ctx context.Context, state S) string) {
	g.conditionalEdges[from] = condition
}

// SetEntryPoint sets the entry point node name for the state graph.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetSchema sets the state schema for the graph.
func (g *StateGraph[S]) SetSchema(schema StateSchema[S]) {
	g.schema = schema
}

// Runnable represents a compiled state graph that can be invoked.
type Runnable[S any] struct {
	graph *StateGraph[S]
}

// Compile compiles the state graph and returns a Runnable instance.
func (g *StateGraph[S]) Compile() (*Runnable[S], error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	return &Runnable[S]{graph: g}, nil
}

// Invoke executes the compiled state graph with the given input state.
func (r *Runnable[S]) Invoke(ctx context.Context, initialState S) (S, error) {
	return r.InvokeWithConfig(ctx, initialState, nil)
}

// InvokeWithConfig executes the compiled state graph with the given input
// state and config. Nodes execute strictly sequentially; the traversal stops
// at END, at a configured interrupt point (returning the state so far
// together with a *GraphInterrupt error), or on the first node failure.
func (r *Runnable[S]) InvokeWithConfig(ctx context.Context, initialState S, config *Config[S]) (S, error) {
	state := initialState

	// If a schema is defined, merge initialState into the schema's initial state.
	if r.graph.schema != nil {
		var err error
		state, err = r.graph.schema.Update(r.graph.schema.Init(), initialState)
		if err != nil {
			var zero S
			return zero, fmt.Errorf("failed to initialize state with schema: %w", err)
		}
	}

	current := r.graph.entryPoint
	if config != nil && len(config.ResumeFrom) > 0 {
		current = config.ResumeFrom[0]
	}

	for current != END {
		if config != nil && slices.Contains(config.InterruptBefore, current) {
			return state, &GraphInterrupt{Node: current, State: state, NextNodes: []string{current}}
		}

		node, ok := r.graph.nodes[current]
		if !ok {
			var zero S
			return zero, fmt.Errorf("%w: %s", ErrNodeNotFound, current)
		}

		result, err := runNode(ctx, node, state)
		if err != nil {
			var zero S
			return zero, fmt.Errorf("error in node %s: %w", current, err)
		}

		state, err = r.mergeState(result, state)
		if err != nil {
			var zero S
			return zero, err
		}

		if config != nil {
			for _, l := range config.Listeners {
				l.OnGraphStep(ctx, current, state)
			}
		}

		next, err := r.nextNode(ctx, current, state)
		if err != nil {
			var zero S
			return zero, err
		}

		if config != nil && slices.Contains(config.InterruptAfter, current) {
			return state, &GraphInterrupt{Node: current, State: state, NextNodes: []string{next}}
		}

		current = next
	}

	return state, nil
}

// runNode executes a node function, converting panics into errors.
func runNode[S any](ctx context.Context, node Node[S], state S) (result S, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in node %s: %v", node.Name, p)
		}
	}()
	return node.Function(ctx, state)
}

// mergeState folds a node result into the current state.
func (r *Runnable[S]) mergeState(result, current S) (S, error) {
	if r.graph.schema == nil {
		return result, nil
	}
	merged, err := r.graph.schema.Update(current, result)
	if err != nil {
		var zero S
		return zero, fmt.Errorf("schema update failed: %w", err)
	}
	return merged, nil
}

// nextNode determines the node following current, via its conditional edge
// if one is registered, otherwise via the first matching static edge.
func (r *Runnable[S]) nextNode(ctx context.Context, current string, state S) (string, error) {
	if condition, ok := r.graph.conditionalEdges[current]; ok {
		next := condition(ctx, state)
		if next == "" {
			return "", fmt.Errorf("conditional edge returned empty next node from %s", current)
		}
		return next, nil
	}

	for _, edge := range r.graph.edges {
		if edge.From == current {
			return edge.To, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, current)
}
