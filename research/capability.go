// Package research defines the generative capability boundary the
// analysis pipeline calls into, plus an OpenAI-backed implementation.
package research

import (
	"context"
	"encoding/json"

	"geoaval/tool"
)

// Message is one turn of a capability conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request describes one capability call.
type Request struct {
	// System is the system prompt for the call.
	System string

	// Conversation is prior context, oldest first.
	Conversation []Message

	// UserMessage is the new user turn, appended after Conversation.
	// May be empty when the conversation already ends with one.
	UserMessage string

	// Search, when non-nil, binds a web search tool to the call. The
	// search runs before generation and its results are injected into
	// the prompt. Result.ToolInvoked reports whether the search
	// actually produced results.
	Search tool.Searcher

	// SearchQuery overrides the query sent to Search. Defaults to
	// UserMessage.
	SearchQuery string

	// JSONResponse forces the model to answer with a single JSON
	// object, returned in Result.Structured as well as Result.Text.
	JSONResponse bool
}

// Result is the outcome of one capability call.
type Result struct {
	// Text is the model's free-text answer.
	Text string

	// Structured holds the raw JSON answer when JSONResponse was set.
	Structured json.RawMessage

	// ToolInvoked reports whether a bound search tool actually ran and
	// returned results. Callers exclude non-invoked results from
	// citation aggregation.
	ToolInvoked bool
}

// Snapshot is one partial view of an incrementally extracted keyword
// list. Keywords grows monotonically across snapshots; the last element
// may still be mid-generation until Complete is true.
type Snapshot struct {
	Keywords []string
	Complete bool
}

// Capability is the generative service the pipeline delegates
// text-generation and web-lookup work to.
type Capability interface {
	// Generate performs one blocking call.
	Generate(ctx context.Context, req Request) (*Result, error)

	// ExtractIncremental performs one streaming call that yields
	// growing keyword-list snapshots. The snapshot channel is closed
	// when the stream ends; the error channel then carries at most one
	// error. The sequence is finite and not restartable.
	ExtractIncremental(ctx context.Context, req Request) (<-chan Snapshot, <-chan error)
}
