package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"geoaval/geo"
	"geoaval/log"
)

type fakeAnalyzer struct {
	startResult  *geo.StartResult
	startErr     error
	resumeResult *geo.ResumeResult
	resumeErr    error
	events       []geo.Event
	streamErr    error
	state        *geo.SessionState
	sessionErr   error

	lastStart  geo.StartRequest
	lastResume geo.ResumeRequest
}

func (f *fakeAnalyzer) Start(ctx context.Context, req geo.StartRequest) (*geo.StartResult, error) {
	f.lastStart = req
	return f.startResult, f.startErr
}

func (f *fakeAnalyzer) Resume(ctx context.Context, req geo.ResumeRequest) (*geo.ResumeResult, error) {
	f.lastResume = req
	return f.resumeResult, f.resumeErr
}

func (f *fakeAnalyzer) StartStream(ctx context.Context, req geo.StartRequest) (<-chan geo.Event, error) {
	f.lastStart = req
	return f.eventChan()
}

func (f *fakeAnalyzer) ResumeStream(ctx context.Context, req geo.ResumeRequest) (<-chan geo.Event, error) {
	f.lastResume = req
	return f.eventChan()
}

func (f *fakeAnalyzer) Session(ctx context.Context, id string) (*geo.SessionState, error) {
	return f.state, f.sessionErr
}

func (f *fakeAnalyzer) eventChan() (<-chan geo.Event, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	ch := make(chan geo.Event, len(f.events))
	for _, ev := range f.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func newTestServer(analyzer Analyzer) *Server {
	return New(analyzer, WithLogger(&log.NoOpLogger{}))
}

func postJSON(t *testing.T, s *Server, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, -1)
	assert.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := s.App().Test(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestStartReturnsCandidateKeywords(t *testing.T) {
	fa := &fakeAnalyzer{
		startResult: &geo.StartResult{
			SessionID:         "sess-1",
			Stage:             geo.StageAwaitingRefinement,
			CandidateKeywords: []string{"best coffee shop", "espresso bar"},
		},
	}
	s := newTestServer(fa)

	resp := postJSON(t, s, "/analyze/start", `{"brand_name":"Acme Coffee","city":"Lisbon"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "sess-1", body["session_id"])
	assert.Equal(t, []any{"best coffee shop", "espresso bar"}, body["keywords"])
	assert.Equal(t, "Acme Coffee", fa.lastStart.Target)
	assert.Equal(t, "Lisbon", fa.lastStart.Location)
}

func TestStartValidationErrorIsBadRequest(t *testing.T) {
	fa := &fakeAnalyzer{
		startErr: &geo.ValidationError{Reason: "too many keywords", Err: geo.ErrKeywordLimitExceeded},
	}
	s := newTestServer(fa)

	resp := postJSON(t, s, "/analyze/start", `{"brand_name":"Acme"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Contains(t, body["error"], "too many keywords")
}

func TestStartMalformedBodyIsBadRequest(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{})

	resp := postJSON(t, s, "/analyze/start", `{"brand_name":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRefineRequiresSessionID(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{})

	resp := postJSON(t, s, "/analyze/refine", `{"keywords":["a"]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRefineUnknownSessionIsNotFound(t *testing.T) {
	fa := &fakeAnalyzer{resumeErr: fmt.Errorf("session %q: %w", "nope", geo.ErrSessionUnknown)}
	s := newTestServer(fa)

	resp := postJSON(t, s, "/analyze/refine", `{"session_id":"nope"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRefineWrongStageIsConflict(t *testing.T) {
	fa := &fakeAnalyzer{resumeErr: fmt.Errorf("session in stage DONE: %w", geo.ErrInvalidSessionState)}
	s := newTestServer(fa)

	resp := postJSON(t, s, "/analyze/refine", `{"session_id":"sess-1"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRefineReturnsGraph(t *testing.T) {
	fa := &fakeAnalyzer{
		resumeResult: &geo.ResumeResult{
			SessionID: "sess-1",
			CitationGraph: geo.CitationGraph{Companies: []geo.Company{
				{Name: "Acme Coffee", TimesCited: 3},
			}},
		},
	}
	s := newTestServer(fa)

	resp := postJSON(t, s, "/analyze/refine", `{"session_id":"sess-1","keywords":["espresso"]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "sess-1", body["session_id"])
	assert.Equal(t, []string{"espresso"}, fa.lastResume.AdditionalKeywords)
	graph := body["graph"].(map[string]any)
	companies := graph["companies"].([]any)
	assert.Len(t, companies, 1)
}

func TestInternalErrorIsOpaque(t *testing.T) {
	fa := &fakeAnalyzer{startErr: errors.New("model exploded")}
	s := newTestServer(fa)

	resp := postJSON(t, s, "/analyze/start", `{"brand_name":"Acme"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.NotContains(t, body["error"], "exploded")
}

func TestStreamStartEmitsNDJSON(t *testing.T) {
	fa := &fakeAnalyzer{
		events: []geo.Event{
			{Stage: geo.EventInitializing, SessionID: "sess-1", Data: map[string]any{}},
			{Stage: geo.EventResearching, SessionID: "sess-1", Data: map[string]any{"node": "web_research"}},
			{Stage: geo.EventCompleted, SessionID: "sess-1", Data: map[string]any{"keywords": []string{"a"}}},
		},
	}
	s := newTestServer(fa)

	resp := postJSON(t, s, "/stream/analyze/start", `{"brand_name":"Acme"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	events := readEvents(t, resp.Body)
	assert.Len(t, events, 3)
	assert.Equal(t, geo.EventInitializing, events[0].Stage)
	assert.Equal(t, geo.EventCompleted, events[len(events)-1].Stage)
	for _, ev := range events {
		assert.Equal(t, "sess-1", ev.SessionID)
	}
}

func TestStreamRefineValidationStaysHTTP(t *testing.T) {
	fa := &fakeAnalyzer{
		streamErr: &geo.ValidationError{Reason: "too many keywords", Err: geo.ErrKeywordLimitExceeded},
	}
	s := newTestServer(fa)

	resp := postJSON(t, s, "/stream/analyze/refine", `{"session_id":"sess-1","keywords":["a"]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStreamRefineTerminalError(t *testing.T) {
	fa := &fakeAnalyzer{
		events: []geo.Event{
			{Stage: geo.EventInitializing, SessionID: "sess-1", Data: map[string]any{}},
			{Stage: geo.EventError, SessionID: "sess-1", Data: map[string]any{"message": "all research calls failed"}},
		},
	}
	s := newTestServer(fa)

	resp := postJSON(t, s, "/stream/analyze/refine", `{"session_id":"sess-1"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	events := readEvents(t, resp.Body)
	assert.Equal(t, geo.EventError, events[len(events)-1].Stage)
}

func TestSessionEndpoint(t *testing.T) {
	fa := &fakeAnalyzer{
		state: &geo.SessionState{
			Stage:             geo.StageAwaitingRefinement,
			CandidateKeywords: []string{"best bakery"},
		},
	}
	s := newTestServer(fa)

	req := httptest.NewRequest(http.MethodGet, "/sessions/sess-1", nil)
	resp, err := s.App().Test(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, string(geo.StageAwaitingRefinement), body["stage"])
}

func TestSessionNotFound(t *testing.T) {
	fa := &fakeAnalyzer{sessionErr: fmt.Errorf("load: %w", geo.ErrSessionUnknown)}
	s := newTestServer(fa)

	req := httptest.NewRequest(http.MethodGet, "/sessions/nope", nil)
	resp, err := s.App().Test(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func readEvents(t *testing.T, body io.ReadCloser) []geo.Event {
	t.Helper()
	defer body.Close()

	var events []geo.Event
	sc := bufio.NewScanner(body)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var ev geo.Event
		assert.NoError(t, json.Unmarshal([]byte(line), &ev))
		events = append(events, ev)
	}
	assert.NoError(t, sc.Err())
	return events
}
