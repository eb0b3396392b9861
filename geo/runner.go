package geo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"geoaval/graph"
	"geoaval/log"
	"geoaval/prompts"
	"geoaval/research"
	"geoaval/store"
	"geoaval/tool"
)

// StartRequest is a cold-start invocation. When Keywords is non-empty
// the research and extraction stages are skipped entirely.
type StartRequest struct {
	Target      string   `json:"brand_name"`
	Location    string   `json:"city,omitempty"`
	LanguageTag string   `json:"language,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// StartResult is the outcome of a cold-start invocation: either the
// session stopped for refinement (CandidateKeywords set) or it ran
// straight through (CitationGraph set).
type StartResult struct {
	SessionID         string         `json:"session_id"`
	Stage             Stage          `json:"stage"`
	CandidateKeywords []string       `json:"keywords,omitempty"`
	CitationGraph     *CitationGraph `json:"graph,omitempty"`
}

// ResumeRequest continues a session that is awaiting refinement.
type ResumeRequest struct {
	SessionID          string   `json:"session_id"`
	AdditionalKeywords []string `json:"keywords,omitempty"`
}

// ResumeResult is the outcome of a resume invocation.
type ResumeResult struct {
	SessionID     string        `json:"session_id"`
	CitationGraph CitationGraph `json:"graph"`
}

// Event is one line of the streaming protocol. The stream is
// append-only and always terminated by a "completed" or "error" event.
type Event struct {
	Stage     string `json:"stage"`
	SessionID string `json:"session_id"`
	Data      any    `json:"data"`
}

// Streaming protocol stage labels.
const (
	EventInitializing = "initializing"
	EventResearching  = "researching"
	EventGathering    = "gathering"
	EventCompleted    = "completed"
	EventError        = "error"
)

// Runner drives sessions through the pipeline. It is stateless apart
// from per-session serialization; all durable state lives in the
// session store.
type Runner struct {
	stages   *Stages
	runnable *graph.Runnable[SessionState]
	store    store.SessionStore
	logger   log.Logger
	cfg      Config

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type RunnerOption func(*Runner)

// WithConfig sets the pipeline configuration.
func WithConfig(cfg Config) RunnerOption {
	return func(r *Runner) {
		r.cfg = cfg
	}
}

// WithLogger sets the runner's logger.
func WithLogger(logger log.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a pipeline runner. searcher may be nil; sessions
// then run without live web results and gather calls contribute
// nothing.
func NewRunner(capability research.Capability, searcher tool.Searcher, sessions store.SessionStore, opts ...RunnerOption) (*Runner, error) {
	r := &Runner{
		store:  sessions,
		logger: log.GetDefaultLogger(),
		cfg:    DefaultConfig(),
		locks:  make(map[string]*sessionLock),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cfg = r.cfg.withDefaults()
	r.stages = NewStages(capability, searcher, r.logger, r.cfg)

	runnable, err := r.stages.buildGraph()
	if err != nil {
		return nil, fmt.Errorf("build pipeline graph: %w", err)
	}
	r.runnable = runnable
	return r, nil
}

// sessionLock is a refcounted mutex so idle entries can be evicted
// from the lock table.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// lockSession serializes all work on one session id. Distinct ids run
// fully independently. The entry is removed once no invocation holds
// or waits on it, keeping the table bounded on long-lived servers.
func (r *Runner) lockSession(id string) func() {
	r.mu.Lock()
	lock, ok := r.locks[id]
	if !ok {
		lock = &sessionLock{}
		r.locks[id] = lock
	}
	lock.refs++
	r.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		r.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(r.locks, id)
		}
		r.mu.Unlock()
	}
}

func (r *Runner) validateStart(req StartRequest) error {
	if req.Target == "" {
		return &ValidationError{Reason: "brand_name is required"}
	}
	if len(req.Keywords) > r.cfg.MaxKeywords {
		return &ValidationError{
			Reason: fmt.Sprintf("at most %d keywords are allowed, got %d", r.cfg.MaxKeywords, len(req.Keywords)),
			Err:    ErrKeywordLimitExceeded,
		}
	}
	return nil
}

func (r *Runner) newState(req StartRequest) SessionState {
	lang := req.LanguageTag
	if !prompts.Supported(lang) {
		lang = prompts.DefaultLanguage
	}
	return SessionState{
		Target:         req.Target,
		Location:       req.Location,
		LanguageTag:    lang,
		ActiveKeywords: dedupeKeywords(req.Keywords, nil),
		Stage:          StageInit,
	}
}

// persist writes the state at the next version. Failures are surfaced
// after the invocation; the pipeline itself keeps running on its
// in-memory state.
type persister struct {
	runner  *Runner
	id      string
	version int
	err     error
}

func (p *persister) save(ctx context.Context, state SessionState) {
	if p.err != nil {
		return
	}
	p.version++
	sess, err := marshalSession(p.id, state, p.version)
	if err != nil {
		p.err = err
		return
	}
	if err := p.runner.store.Save(ctx, sess); err != nil {
		p.err = fmt.Errorf("persist session %s: %w", p.id, err)
	}
}

func (p *persister) listener() graph.StepListener[SessionState] {
	return graph.StepListenerFunc[SessionState](func(ctx context.Context, _ string, state SessionState) {
		p.save(ctx, state)
	})
}

// Start runs a new session until DONE or the refinement interrupt.
func (r *Runner) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	if err := r.validateStart(req); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	unlock := r.lockSession(id)
	defer unlock()

	state := r.newState(req)
	p := &persister{runner: r, id: id}
	p.save(ctx, state)
	if p.err != nil {
		return nil, p.err
	}

	cfg := &graph.Config[SessionState]{
		Configurable:   map[string]any{"thread_id": id},
		InterruptAfter: []string{r.stages.interruptNode()},
		Listeners:      []graph.StepListener[SessionState]{p.listener()},
	}

	final, err := r.runnable.InvokeWithConfig(ctx, state, cfg)
	if err != nil {
		var interrupt *graph.GraphInterrupt
		if errors.As(err, &interrupt) {
			if p.err != nil {
				return nil, p.err
			}
			r.logger.Info("session %s awaiting keyword refinement", id)
			return &StartResult{
				SessionID:         id,
				Stage:             StageAwaitingRefinement,
				CandidateKeywords: final.CandidateKeywords,
			}, nil
		}
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}

	result := final.CitationResult
	return &StartResult{
		SessionID:     id,
		Stage:         StageDone,
		CitationGraph: &result,
	}, nil
}

// prepareResume loads and validates the session, merges the operator's
// additional keywords, and persists the session at GATHERING. Sessions
// already at GATHERING are accepted as retries of a failed gather.
func (r *Runner) prepareResume(ctx context.Context, req ResumeRequest) (SessionState, *persister, error) {
	if len(req.AdditionalKeywords) > r.cfg.MaxKeywords {
		return SessionState{}, nil, &ValidationError{
			Reason: fmt.Sprintf("at most %d keywords are allowed, got %d", r.cfg.MaxKeywords, len(req.AdditionalKeywords)),
			Err:    ErrKeywordLimitExceeded,
		}
	}

	sess, err := r.store.Load(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return SessionState{}, nil, fmt.Errorf("%w: %s", ErrSessionUnknown, req.SessionID)
		}
		return SessionState{}, nil, err
	}

	state, err := unmarshalSession(sess)
	if err != nil {
		return SessionState{}, nil, err
	}

	var merged []string
	switch state.Stage {
	case StageAwaitingRefinement:
		merged = dedupeKeywords(state.CandidateKeywords, req.AdditionalKeywords)
	case StageGathering:
		// A previous gather run failed after the keyword list was
		// committed; retry it with the keywords already merged.
		merged = dedupeKeywords(state.ActiveKeywords, req.AdditionalKeywords)
	default:
		return SessionState{}, nil, fmt.Errorf("%w: session %s is at %s", ErrInvalidSessionState, req.SessionID, state.Stage)
	}

	if len(merged) > r.cfg.MaxKeywords {
		r.logger.Warn("merged keyword list has %d entries, keeping the first %d", len(merged), r.cfg.MaxKeywords)
		merged = merged[:r.cfg.MaxKeywords]
	}

	state.ActiveKeywords = merged
	state.Stage = StageGathering

	p := &persister{runner: r, id: req.SessionID, version: sess.Version}
	p.save(ctx, state)
	if p.err != nil {
		return SessionState{}, nil, p.err
	}
	return state, p, nil
}

// Resume continues a session awaiting refinement into citation
// gathering, or retries the gather of a session stranded at GATHERING
// by an earlier failure.
func (r *Runner) Resume(ctx context.Context, req ResumeRequest) (*ResumeResult, error) {
	unlock := r.lockSession(req.SessionID)
	defer unlock()

	state, p, err := r.prepareResume(ctx, req)
	if err != nil {
		return nil, err
	}

	cfg := &graph.Config[SessionState]{
		Configurable: map[string]any{"thread_id": req.SessionID},
		ResumeFrom:   []string{NodeGatherResults},
		Listeners:    []graph.StepListener[SessionState]{p.listener()},
	}

	final, err := r.runnable.InvokeWithConfig(ctx, state, cfg)
	if err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}

	return &ResumeResult{
		SessionID:     req.SessionID,
		CitationGraph: final.CitationResult,
	}, nil
}

// eventStage maps a graph node to its streaming protocol label.
func eventStage(nodeName string) string {
	switch nodeName {
	case NodeInitialize:
		return EventInitializing
	case NodeGatherResults:
		return EventGathering
	default:
		return EventResearching
	}
}

// forward translates engine stream events into protocol events until a
// terminal event has been written. A persistence failure turns the
// terminal event into an error: the session id must not be reported as
// resumable when its stored state is stale.
func forward(id string, in <-chan graph.StreamEvent[SessionState], out chan<- Event, persistErr func() error) {
	for ev := range in {
		switch ev.Kind {
		case graph.StreamEventStep:
			data := map[string]any{"node": ev.NodeName}
			if ev.NodeName == NodeGetKeywords || ev.NodeName == NodeRefineKeywords {
				data["keywords"] = ev.State.CandidateKeywords
			}
			out <- Event{Stage: eventStage(ev.NodeName), SessionID: id, Data: data}
		case graph.StreamEventProgress:
			out <- Event{Stage: eventStage(ev.NodeName), SessionID: id, Data: ev.Data}
		case graph.StreamEventInterrupt:
			if err := persistErr(); err != nil {
				out <- Event{Stage: EventError, SessionID: id, Data: err.Error()}
				continue
			}
			out <- Event{Stage: EventCompleted, SessionID: id, Data: map[string]any{
				"keywords": ev.State.CandidateKeywords,
			}}
		case graph.StreamEventComplete:
			if err := persistErr(); err != nil {
				out <- Event{Stage: EventError, SessionID: id, Data: err.Error()}
				continue
			}
			out <- Event{Stage: EventCompleted, SessionID: id, Data: map[string]any{
				"graph": ev.State.CitationResult,
			}}
		case graph.StreamEventError:
			out <- Event{Stage: EventError, SessionID: id, Data: ev.Err.Error()}
		}
	}
}

// StartStream runs a new session like Start but emits protocol events
// as stages and sub-steps complete. The channel is closed after the
// terminal event.
func (r *Runner) StartStream(ctx context.Context, req StartRequest) (<-chan Event, error) {
	if err := r.validateStart(req); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	events := make(chan Event, 64)

	go func() {
		defer close(events)
		unlock := r.lockSession(id)
		defer unlock()

		events <- Event{Stage: EventInitializing, SessionID: id}

		state := r.newState(req)
		p := &persister{runner: r, id: id}
		p.save(ctx, state)
		if p.err != nil {
			events <- Event{Stage: EventError, SessionID: id, Data: p.err.Error()}
			return
		}

		cfg := &graph.Config[SessionState]{
			Configurable:   map[string]any{"thread_id": id},
			InterruptAfter: []string{r.stages.interruptNode()},
			Listeners:      []graph.StepListener[SessionState]{p.listener()},
		}

		forward(id, r.runnable.Stream(ctx, state, cfg), events, func() error { return p.err })
	}()

	return events, nil
}

// ResumeStream continues a session like Resume but emits protocol
// events as the gather fan-out progresses.
func (r *Runner) ResumeStream(ctx context.Context, req ResumeRequest) (<-chan Event, error) {
	if len(req.AdditionalKeywords) > r.cfg.MaxKeywords {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("at most %d keywords are allowed, got %d", r.cfg.MaxKeywords, len(req.AdditionalKeywords)),
			Err:    ErrKeywordLimitExceeded,
		}
	}

	events := make(chan Event, 64)

	go func() {
		defer close(events)
		unlock := r.lockSession(req.SessionID)
		defer unlock()

		events <- Event{Stage: EventInitializing, SessionID: req.SessionID}

		state, p, err := r.prepareResume(ctx, req)
		if err != nil {
			events <- Event{Stage: EventError, SessionID: req.SessionID, Data: err.Error()}
			return
		}

		cfg := &graph.Config[SessionState]{
			Configurable: map[string]any{"thread_id": req.SessionID},
			ResumeFrom:   []string{NodeGatherResults},
			Listeners:    []graph.StepListener[SessionState]{p.listener()},
		}

		forward(req.SessionID, r.runnable.Stream(ctx, state, cfg), events, func() error { return p.err })
	}()

	return events, nil
}

// Session returns the current state of a session.
func (r *Runner) Session(ctx context.Context, id string) (*SessionState, error) {
	sess, err := r.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionUnknown, id)
		}
		return nil, err
	}
	state, err := unmarshalSession(sess)
	if err != nil {
		return nil, err
	}
	return &state, nil
}
