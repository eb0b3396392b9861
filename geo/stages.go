package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"geoaval/graph"
	"geoaval/log"
	"geoaval/prompts"
	"geoaval/research"
	"geoaval/tool"
)

// Graph node names.
const (
	NodeInitialize     = "initialize"
	NodeWebResearch    = "web_research"
	NodeGetKeywords    = "get_keywords"
	NodeRefineKeywords = "refine_keywords"
	NodeGatherResults  = "gather_results"
)

// Config tunes the pipeline stages.
type Config struct {
	// MaxKeywords caps the gather keyword list. Caller-supplied lists
	// over the cap are rejected at the boundary; extraction output over
	// the cap is truncated keeping the front of the list.
	MaxKeywords int

	// RefineTopK is how many keywords the optional capability-backed
	// refinement pass keeps.
	RefineTopK int

	// EnableRefine wires the capability-backed refinement node between
	// extraction and the operator interrupt. Off by default; operator
	// refinement at resume time needs no capability call.
	EnableRefine bool

	// GatherConcurrency bounds the per-keyword research fan-out.
	GatherConcurrency int

	// CallTimeout bounds each individual capability call. Zero means
	// no timeout.
	CallTimeout time.Duration
}

// DefaultConfig returns the stock pipeline configuration.
func DefaultConfig() Config {
	return Config{
		MaxKeywords:       10,
		RefineTopK:        5,
		GatherConcurrency: 4,
		CallTimeout:       2 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxKeywords <= 0 {
		c.MaxKeywords = d.MaxKeywords
	}
	if c.RefineTopK <= 0 {
		c.RefineTopK = d.RefineTopK
	}
	if c.GatherConcurrency <= 0 {
		c.GatherConcurrency = d.GatherConcurrency
	}
	if c.CallTimeout < 0 {
		c.CallTimeout = 0
	}
	return c
}

// Stages holds the pipeline's stage implementations and their shared
// collaborators.
type Stages struct {
	capability research.Capability
	searcher   tool.Searcher
	logger     log.Logger
	cfg        Config
}

// NewStages creates the stage set. searcher may be nil, in which case
// capability calls run unbound and their results are excluded from
// citation aggregation.
func NewStages(capability research.Capability, searcher tool.Searcher, logger log.Logger, cfg Config) *Stages {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Stages{
		capability: capability,
		searcher:   searcher,
		logger:     logger,
		cfg:        cfg.withDefaults(),
	}
}

func (s *Stages) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.CallTimeout)
}

// initialize routes the session: sessions that already carry keywords
// skip straight to gathering.
func (s *Stages) initialize(_ context.Context, state SessionState) (SessionState, error) {
	if len(state.ActiveKeywords) > 0 {
		state.Stage = StageGathering
	} else {
		state.Stage = StageResearching
	}
	return state, nil
}

// route is the single conditional edge, evaluated once after
// initialize.
func (s *Stages) route(_ context.Context, state SessionState) string {
	if state.Stage == StageGathering {
		return NodeGatherResults
	}
	return NodeWebResearch
}

// researchTarget compiles a business profile of the target with one
// web-search-bound capability call.
func (s *Stages) researchTarget(ctx context.Context, state SessionState) (SessionState, error) {
	s.logger.Info("session research started for %q", state.Target)

	ps := prompts.ForLanguage(state.LanguageTag)

	query := state.Target
	if state.Location != "" {
		query += " " + state.Location
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	res, err := s.capability.Generate(callCtx, research.Request{
		System:      ps.Research,
		UserMessage: state.Target,
		Search:      s.searcher,
		SearchQuery: query,
	})
	if err != nil {
		return state, &StageError{Stage: StageResearching, Err: err}
	}

	state.Conversation = append(state.Conversation,
		research.Message{Role: research.RoleUser, Content: state.Target},
		research.Message{Role: research.RoleAssistant, Content: res.Text},
	)
	state.Stage = StageExtracting
	return state, nil
}

const keywordsShapeInstruction = `Answer with a single JSON object of the shape {"keywords": ["first keyword", "second keyword"]}.`

// extractKeywords streams the keyword extraction call, finalizing each
// keyword as soon as the next one starts forming.
func (s *Stages) extractKeywords(ctx context.Context, state SessionState) (SessionState, error) {
	s.logger.Info("extracting keywords for %q", state.Target)

	ps := prompts.ForLanguage(state.LanguageTag)

	companyInfo := ""
	for i := len(state.Conversation) - 1; i >= 0; i-- {
		if state.Conversation[i].Role == research.RoleAssistant {
			companyInfo = state.Conversation[i].Content
			break
		}
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	snapshots, errs := s.capability.ExtractIncremental(callCtx, research.Request{
		System:       ps.FormatKeywordOrganization(companyInfo),
		Conversation: state.Conversation,
		UserMessage:  keywordsShapeInstruction,
	})

	var acc research.KeywordAccumulator
	for snap := range snapshots {
		for _, kw := range acc.Observe(snap) {
			s.logger.Info("keyword found: %s", kw)
			graph.EmitProgress(ctx, NodeGetKeywords, map[string]any{"keyword": kw})
		}
	}
	if err := <-errs; err != nil {
		return state, &StageError{Stage: StageExtracting, Err: err}
	}

	keywords := acc.Keywords()
	if len(keywords) > s.cfg.MaxKeywords {
		s.logger.Warn("extraction produced %d keywords, keeping the first %d", len(keywords), s.cfg.MaxKeywords)
		keywords = keywords[:s.cfg.MaxKeywords]
	}

	state.CandidateKeywords = keywords
	state.Stage = StageAwaitingRefinement
	return state, nil
}

// refineKeywords is the optional capability-backed re-ranking pass: it
// summarizes the target, then asks for the strongest keywords. It
// fails closed rather than returning an empty list.
func (s *Stages) refineKeywords(ctx context.Context, state SessionState) (SessionState, error) {
	s.logger.Info("refining %d candidate keywords", len(state.CandidateKeywords))

	ps := prompts.ForLanguage(state.LanguageTag)

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	summary, err := s.capability.Generate(callCtx, research.Request{
		System:       ps.TargetSummary,
		Conversation: state.Conversation,
	})
	if err != nil {
		return state, &StageError{Stage: StageRefining, Err: fmt.Errorf("%w: %v", ErrRefinementFailed, err)}
	}

	refineCtx, cancelRefine := s.callContext(ctx)
	defer cancelRefine()
	res, err := s.capability.Generate(refineCtx, research.Request{
		System:       ps.FormatRefineKeywords(state.CandidateKeywords, summary.Text),
		UserMessage:  keywordsShapeInstruction,
		JSONResponse: true,
	})
	if err != nil {
		return state, &StageError{Stage: StageRefining, Err: fmt.Errorf("%w: %v", ErrRefinementFailed, err)}
	}

	var parsed struct {
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal(res.Structured, &parsed); err != nil || len(parsed.Keywords) == 0 {
		return state, &StageError{Stage: StageRefining, Err: fmt.Errorf("%w: unusable refinement output", ErrRefinementFailed)}
	}

	// Keep the capability's ranking, capped at the configured top K.
	refined := parsed.Keywords
	if len(refined) > s.cfg.RefineTopK {
		refined = refined[:s.cfg.RefineTopK]
	}

	state.CandidateKeywords = refined
	state.Stage = StageAwaitingRefinement
	return state, nil
}

const citationShapeInstruction = `Answer with a single JSON object of the shape {"companies": [{"name": "Brand", "relevant_urls": ["https://..."], "times_cited": 1}]}. Do not include map service URLs.`

type gatherCall struct {
	keyword   string
	companies []Company
	invoked   bool
	err       error
	done      chan struct{}
}

// gatherCitations fans one research call out per keyword with bounded
// concurrency and folds the structured results into one citation
// graph. Completion order does not matter for the result; progress is
// reported in keyword submission order regardless of which call
// finishes first.
func (s *Stages) gatherCitations(ctx context.Context, state SessionState) (SessionState, error) {
	keywords := state.ActiveKeywords
	if len(keywords) == 0 {
		return state, ErrNoKeywordsProvided
	}
	if len(keywords) > s.cfg.MaxKeywords {
		return state, fmt.Errorf("%w: %d keywords, maximum is %d", ErrKeywordLimitExceeded, len(keywords), s.cfg.MaxKeywords)
	}

	s.logger.Info("gathering citations for %d keywords", len(keywords))

	ps := prompts.ForLanguage(state.LanguageTag)

	calls := make([]*gatherCall, len(keywords))
	for i, kw := range keywords {
		scoped := kw
		if state.Location != "" {
			scoped = kw + " " + state.Location
		}
		calls[i] = &gatherCall{keyword: scoped, done: make(chan struct{})}
	}

	sem := semaphore.NewWeighted(int64(s.cfg.GatherConcurrency))
	for _, call := range calls {
		go func(call *gatherCall) {
			defer close(call.done)
			if err := sem.Acquire(ctx, 1); err != nil {
				call.err = err
				return
			}
			defer sem.Release(1)

			callCtx, cancel := s.callContext(ctx)
			defer cancel()
			res, err := s.capability.Generate(callCtx, research.Request{
				System:       ps.CitationStructuring,
				UserMessage:  call.keyword + "\n\n" + citationShapeInstruction,
				Search:       s.searcher,
				SearchQuery:  call.keyword,
				JSONResponse: true,
			})
			if err != nil {
				call.err = err
				return
			}
			call.invoked = res.ToolInvoked
			if !res.ToolInvoked {
				return
			}

			var parsed struct {
				Companies []Company `json:"companies"`
			}
			if err := json.Unmarshal(res.Structured, &parsed); err != nil {
				call.err = fmt.Errorf("parse citation output: %w", err)
				return
			}
			call.companies = parsed.Companies
		}(call)
	}

	// Flush in submission order so client-observed output is stable
	// even when the underlying calls complete out of order.
	var (
		merged   CitationGraph
		failures []string
	)
	for _, call := range calls {
		<-call.done

		switch {
		case call.err != nil:
			failures = append(failures, call.keyword)
			s.logger.Warn("research for %q failed: %v", call.keyword, call.err)
			graph.EmitProgress(ctx, NodeGatherResults, map[string]any{
				"keyword": call.keyword,
				"failed":  true,
			})
		case !call.invoked:
			s.logger.Debug("research for %q triggered no web search, excluded from aggregation", call.keyword)
			graph.EmitProgress(ctx, NodeGatherResults, map[string]any{
				"keyword":   call.keyword,
				"companies": 0,
			})
		default:
			merged.Merge(call.companies)
			graph.EmitProgress(ctx, NodeGatherResults, map[string]any{
				"keyword":   call.keyword,
				"companies": len(call.companies),
			})
		}
	}

	if len(failures) == len(calls) {
		return state, fmt.Errorf("%w: %s", ErrAllResearchFailed, strings.Join(failures, ", "))
	}
	if len(failures) > 0 {
		s.logger.Warn("%d of %d research calls failed, result is partial", len(failures), len(calls))
	}

	// Replace, never append, so a retry cannot double count.
	state.CitationResult = merged
	state.GatherFailures = failures
	state.Stage = StageDone
	return state, nil
}

// interruptNode names the node after which the pipeline suspends for
// operator refinement.
func (s *Stages) interruptNode() string {
	if s.cfg.EnableRefine {
		return NodeRefineKeywords
	}
	return NodeGetKeywords
}

// buildGraph assembles the fixed pipeline topology. The only branch is
// the entry routing; every other transition is unconditional.
func (s *Stages) buildGraph() (*graph.Runnable[SessionState], error) {
	g := graph.NewStateGraph[SessionState]()
	g.AddNode(NodeInitialize, "Route the session by whether keywords were supplied", s.initialize)
	g.AddNode(NodeWebResearch, "Research the target with web search", s.researchTarget)
	g.AddNode(NodeGetKeywords, "Extract search keywords from the research", s.extractKeywords)
	g.AddNode(NodeGatherResults, "Gather and aggregate cited companies", s.gatherCitations)

	g.SetEntryPoint(NodeInitialize)
	g.AddConditionalEdge(NodeInitialize, s.route)

	if s.cfg.EnableRefine {
		g.AddNode(NodeRefineKeywords, "Re-rank candidate keywords", s.refineKeywords)
		g.AddEdge(NodeWebResearch, NodeGetKeywords)
		g.AddEdge(NodeGetKeywords, NodeRefineKeywords)
		g.AddEdge(NodeRefineKeywords, NodeGatherResults)
	} else {
		g.AddEdge(NodeWebResearch, NodeGetKeywords)
		g.AddEdge(NodeGetKeywords, NodeGatherResults)
	}
	g.AddEdge(NodeGatherResults, graph.END)

	return g.Compile()
}
