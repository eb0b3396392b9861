// Package graph implements a small state-graph engine for resumable,
// sequential pipelines: named nodes connected by static or conditional
// edges, with configurable interrupt points and a resume entry.
package graph

import (
	"context"
	"errors"
	"fmt"
)

// END is a special constant used to represent the end node in the graph.
const END = "END"

var (
	// ErrEntryPointNotSet is returned when the entry point of the graph is not set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when a node is not found in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when no outgoing edge is found for a node.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")
)

// Node represents a node in the graph.
type Node[S any] struct {
	// Name is the unique identifier for the node.
	Name string

	// Description describes the functionality of the node.
	Description string

	// Function transforms the state. It receives the state as merged so
	// far and returns an update to be merged through the schema.
	Function func(ctx context.Context, state S) (S, error)
}

// Edge represents a static edge in the graph.
type Edge struct {
	// From is the name of the node from which the edge originates.
	From string

	// To is the name of the node to which the edge points.
	To string
}

// GraphInterrupt is returned when execution stops at a configured interrupt
// point. It carries the state at the moment of interruption and the nodes
// that would have run next, so a later invocation can resume from there.
type GraphInterrupt struct {
	// Node that caused the interruption
	Node string
	// State at the time of interruption
	State any
	// NextNodes that would have been executed if not interrupted
	NextNodes []string
}

func (e *GraphInterrupt) Error() string {
	return fmt.Sprintf("graph interrupted at node %s", e.Node)
}

// StateSchema defines how node updates are folded into the running state.
type StateSchema[S any] interface {
	// Init returns the initial state.
	Init() S

	// Update merges the update into the current state.
	Update(current, update S) (S, error)
}
