package research

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"

	"geoaval/tool"
)

type fakeSearcher struct {
	results []tool.SearchResult
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]tool.SearchResult, error) {
	f.queries = append(f.queries, query)
	return f.results, nil
}

func newTestCapability(t *testing.T, handler http.HandlerFunc) *OpenAICapability {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return NewOpenAICapability("test-key", WithClient(openai.NewClientWithConfig(cfg)))
}

func completionResponse(content string) []byte {
	resp := openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: "assistant", Content: content}},
		},
	}
	out, _ := json.Marshal(resp)
	return out
}

func TestGenerate(t *testing.T) {
	var gotReq openai.ChatCompletionRequest
	c := newTestCapability(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionResponse("Acme sells anvils."))
	})

	res, err := c.Generate(context.Background(), Request{
		System:      "You research companies.",
		UserMessage: "Acme",
	})
	assert.NoError(t, err)
	assert.Equal(t, "Acme sells anvils.", res.Text)
	assert.False(t, res.ToolInvoked)
	assert.Nil(t, res.Structured)

	assert.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "Acme", gotReq.Messages[1].Content)
}

func TestGenerateWithSearch(t *testing.T) {
	var gotReq openai.ChatCompletionRequest
	c := newTestCapability(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionResponse("answer"))
	})

	search := &fakeSearcher{results: []tool.SearchResult{
		{Title: "Acme", URL: "https://acme.example", Description: "anvils"},
	}}

	res, err := c.Generate(context.Background(), Request{
		UserMessage: "Acme",
		Search:      search,
	})
	assert.NoError(t, err)
	assert.True(t, res.ToolInvoked)
	assert.Equal(t, []string{"Acme"}, search.queries)

	// The search results are stuffed into a trailing system message.
	lastMsg := gotReq.Messages[len(gotReq.Messages)-1]
	assert.Equal(t, "system", lastMsg.Role)
	assert.Contains(t, lastMsg.Content, "https://acme.example")
}

func TestGenerateSearchWithoutResults(t *testing.T) {
	c := newTestCapability(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionResponse("from model knowledge"))
	})

	res, err := c.Generate(context.Background(), Request{
		UserMessage: "obscure keyword",
		Search:      &fakeSearcher{},
	})
	assert.NoError(t, err)
	assert.False(t, res.ToolInvoked)
}

func TestGenerateJSONResponse(t *testing.T) {
	var gotReq openai.ChatCompletionRequest
	c := newTestCapability(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionResponse(`{"companies":[]}`))
	})

	res, err := c.Generate(context.Background(), Request{
		UserMessage:  "structure this",
		JSONResponse: true,
	})
	assert.NoError(t, err)
	assert.NotNil(t, gotReq.ResponseFormat)
	assert.JSONEq(t, `{"companies":[]}`, string(res.Structured))
}
