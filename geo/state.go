// Package geo implements the brand analysis pipeline: research a
// target, derive search keywords, pause for operator refinement, then
// gather and aggregate which competing entities generative answers
// cite for those keywords.
package geo

import (
	"encoding/json"
	"fmt"

	"geoaval/research"
	"geoaval/store"
)

// Stage is the position of a session inside the fixed pipeline
// topology. It only ever moves forward.
type Stage string

const (
	StageInit               Stage = "INIT"
	StageResearching        Stage = "RESEARCHING"
	StageExtracting         Stage = "EXTRACTING"
	StageAwaitingRefinement Stage = "AWAITING_REFINEMENT"
	StageGathering          Stage = "GATHERING"
	StageDone               Stage = "DONE"

	// StageRefining labels failures of the optional re-ranking pass in
	// error reporting; it is never persisted as a session position.
	StageRefining Stage = "REFINING"
)

// Company is one cited entity in a citation graph. Name keeps the
// display form as first observed; merging is keyed by the normalized
// form.
type Company struct {
	Name         string   `json:"name"`
	RelevantURLs []string `json:"relevant_urls"`
	TimesCited   int      `json:"times_cited"`
}

// CitationGraph aggregates the entities cited across all keyword
// researches. No two companies share a normalized name.
type CitationGraph struct {
	Companies []Company `json:"companies"`
}

// SessionState is the full durable state of one evaluation session. It
// must round-trip through JSON unchanged so a session can be resumed by
// a different process.
type SessionState struct {
	// Target is the brand under evaluation. Immutable after creation.
	Target string `json:"target"`

	// Location optionally biases research and is appended to keywords
	// at gather time.
	Location string `json:"location,omitempty"`

	// LanguageTag selects the prompt pack. Immutable.
	LanguageTag string `json:"language_tag"`

	// Conversation is the append-only transcript passed to capability
	// calls that need prior context.
	Conversation []research.Message `json:"conversation,omitempty"`

	// CandidateKeywords is the keyword extraction output. Empty when
	// the caller supplied keywords directly.
	CandidateKeywords []string `json:"candidate_keywords,omitempty"`

	// ActiveKeywords is the list actually used for citation gathering.
	ActiveKeywords []string `json:"active_keywords,omitempty"`

	// CitationResult is the gather output; replaced, never appended,
	// so re-running the stage cannot double count.
	CitationResult CitationGraph `json:"citation_result"`

	// GatherFailures records keywords whose research call failed in the
	// last gather run. Informational only.
	GatherFailures []string `json:"gather_failures,omitempty"`

	// Stage is the session's position in the pipeline.
	Stage Stage `json:"stage"`
}

// marshalSession packs the state into a store session at the given
// version.
func marshalSession(id string, state SessionState, version int) (*store.Session, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal session state: %w", err)
	}
	return &store.Session{
		ID:      id,
		Stage:   string(state.Stage),
		State:   raw,
		Version: version,
	}, nil
}

// unmarshalSession restores the state from a store session.
func unmarshalSession(sess *store.Session) (SessionState, error) {
	var state SessionState
	if err := json.Unmarshal(sess.State, &state); err != nil {
		return SessionState{}, fmt.Errorf("unmarshal session state: %w", err)
	}
	return state, nil
}
