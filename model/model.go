package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/agentfeed/core"
)

// ToolDefinition exposes a callable function to the model. Parameters is a
// JSON schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is the provider-neutral model input built by the executor.
type Request struct {
	System   string           `json:"system,omitempty"`
	Contents []core.Content   `json:"contents"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
	Stream   bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Response is a partial or final chunk emitted by a model.
type Response struct {
	Partial      bool         `json:"partial"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"`
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model drives generation. Generate emits zero or more partial responses
// followed by exactly one final response, or an error. Both channels are
// closed when generation ends.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)
	Info() Info
}

// ErrNoResponse is returned by Collect when a model closes its channels
// without a final response.
var ErrNoResponse = errors.New("model: no final response")

// Collect drains a Generate call and returns its final response.
func Collect(ctx context.Context, m Model, req Request) (Response, error) {
	respCh, errCh := m.Generate(ctx, req)

	var (
		final Response
		got   bool
	)

	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if !r.Partial {
				final, got = r, true
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return Response{}, err
			}
		}
	}

	if !got {
		return Response{}, ErrNoResponse
	}

	return final, nil
}

// MockModel replays scripted responses in order and then echoes the last
// user text. It records every request it receives.
type MockModel struct {
	mu       sync.Mutex
	info     Info
	script   []Response
	requests []Request
	err      error
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{info: Info{Name: name, Provider: provider, SupportsTools: true}}
}

// AddText queues a final text response.
func (m *MockModel) AddText(text string) *MockModel {
	return m.Add(Response{
		Content:      core.NewTextContent(core.RoleAssistant, text),
		FinishReason: "stop",
	})
}

// AddToolCall queues a response requesting one tool call, optionally with
// accompanying reasoning text.
func (m *MockModel) AddToolCall(text, id, name, arguments string) *MockModel {
	parts := make([]core.Part, 0, 2)
	if text != "" {
		parts = append(parts, core.TextPart{Text: text})
	}

	parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: id, Name: name, Arguments: arguments}})

	return m.Add(Response{
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: "tool_use",
	})
}

// Add queues an arbitrary final response.
func (m *MockModel) Add(r Response) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script = append(m.script, r)

	return m
}

// FailWith makes every following Generate call fail with err.
func (m *MockModel) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.err = err
}

// Requests returns the requests received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Request(nil), m.requests...)
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 2)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	failure := m.err

	var next *Response
	if len(m.script) > 0 {
		r := m.script[0]
		m.script = m.script[1:]
		next = &r
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)

		if err := ctx.Err(); err != nil {
			errCh <- err
			return
		}

		if failure != nil {
			errCh <- failure
			return
		}

		if next == nil {
			if len(req.Contents) == 0 {
				errCh <- fmt.Errorf("no contents provided")
				return
			}

			echo := Response{
				Content:      core.NewTextContent(core.RoleAssistant, "Mock response to: "+lastUserText(req.Contents)),
				FinishReason: "stop",
			}
			next = &echo
		}

		if req.Stream && next.Content.Text() != "" {
			respCh <- Response{Partial: true, Content: core.NewTextContent(core.RoleAssistant, next.Content.Text())}
		}

		respCh <- *next
	}()

	return respCh, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

func lastUserText(contents []core.Content) string {
	for i := len(contents) - 1; i >= 0; i-- {
		if contents[i].Role == core.RoleUser {
			return contents[i].Text()
		}
	}

	return ""
}
