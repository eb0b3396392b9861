package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"geoaval/log"
	"geoaval/tool"
)

const defaultModel = openai.GPT4oMini

// OpenAICapability implements Capability on top of the OpenAI chat
// completion API. Web search is provided by a caller-bound Searcher
// whose results are injected into the prompt before generation.
type OpenAICapability struct {
	client *openai.Client
	model  string
	logger log.Logger
}

type OpenAIOption func(*OpenAICapability)

// WithModel sets the chat model to use.
func WithModel(model string) OpenAIOption {
	return func(c *OpenAICapability) {
		c.model = model
	}
}

// WithClient sets a preconfigured OpenAI client, mainly for tests and
// compatible gateways.
func WithClient(client *openai.Client) OpenAIOption {
	return func(c *OpenAICapability) {
		c.client = client
	}
}

// WithLogger sets the logger used for capability call diagnostics.
func WithLogger(logger log.Logger) OpenAIOption {
	return func(c *OpenAICapability) {
		c.logger = logger
	}
}

// NewOpenAICapability creates a capability backed by the OpenAI API.
func NewOpenAICapability(apiKey string, opts ...OpenAIOption) *OpenAICapability {
	c := &OpenAICapability{
		client: openai.NewClient(apiKey),
		model:  defaultModel,
		logger: log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *OpenAICapability) buildMessages(ctx context.Context, req Request) ([]openai.ChatCompletionMessage, bool, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Conversation {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	if req.UserMessage != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: req.UserMessage,
		})
	}

	toolInvoked := false
	if req.Search != nil {
		query := req.SearchQuery
		if query == "" {
			query = req.UserMessage
		}
		results, err := req.Search.Search(ctx, query)
		if err != nil {
			return nil, false, fmt.Errorf("web search for %q: %w", query, err)
		}
		if len(results) > 0 {
			toolInvoked = true
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: "Web search results for \"" + query + "\":\n\n" + tool.FormatResults(results),
			})
		} else {
			c.logger.Debug("search returned no results for %q, answering from model knowledge", query)
		}
	}

	return messages, toolInvoked, nil
}

// Generate performs one blocking chat completion.
func (c *OpenAICapability) Generate(ctx context.Context, req Request) (*Result, error) {
	messages, toolInvoked, err := c.buildMessages(ctx, req)
	if err != nil {
		return nil, err
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	}
	if req.JSONResponse {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	result := &Result{
		Text:        resp.Choices[0].Message.Content,
		ToolInvoked: toolInvoked,
	}
	if req.JSONResponse {
		result.Structured = json.RawMessage(result.Text)
	}
	return result, nil
}

// ExtractIncremental streams a chat completion and yields a keyword
// snapshot for every content delta that changes the visible list.
func (c *OpenAICapability) ExtractIncremental(ctx context.Context, req Request) (<-chan Snapshot, <-chan error) {
	snapshots := make(chan Snapshot, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(snapshots)
		defer close(errs)

		messages, _, err := c.buildMessages(ctx, req)
		if err != nil {
			errs <- err
			return
		}

		stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:    c.model,
			Messages: messages,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Stream: true,
		})
		if err != nil {
			errs <- fmt.Errorf("chat completion stream: %w", err)
			return
		}
		defer stream.Close()

		var buf string
		var last Snapshot
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				errs <- fmt.Errorf("chat completion stream: %w", err)
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			buf += resp.Choices[0].Delta.Content

			snap := ParseKeywordStream(buf)
			if len(snap.Keywords) == 0 && !snap.Complete {
				continue
			}
			last = snap
			select {
			case snapshots <- snap:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}

		if !last.Complete {
			// The stream ended, so whatever parsed last is final.
			last.Complete = true
			select {
			case snapshots <- last:
			case <-ctx.Done():
				errs <- ctx.Err()
			}
		}
	}()

	return snapshots, errs
}
