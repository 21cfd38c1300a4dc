package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

// mockAdapter is a test double for ProviderAdapter.
type mockAdapter struct {
	name     string
	response *Response
	err      error
	requests []Request
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func newMockAdapter(name, text string) *mockAdapter {
	return &mockAdapter{
		name: name,
		response: &Response{
			ID:           "test_resp",
			Model:        "test-model",
			Provider:     name,
			Message:      AssistantMessage(text),
			FinishReason: FinishReason{Reason: "stop"},
		},
	}
}

func TestClientComplete(t *testing.T) {
	mock := newMockAdapter("test-provider", "Hello!")
	client := NewClient(WithProvider("test-provider", mock))

	resp, err := client.Complete(context.Background(), Request{
		Messages: []Message{UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "Hello!" {
		t.Errorf("expected text %q, got %q", "Hello!", resp.Text())
	}
	if mock.requests[0].Provider != "test-provider" {
		t.Errorf("expected provider to be filled in, got %q", mock.requests[0].Provider)
	}
}

func TestClientProviderRouting(t *testing.T) {
	openai := newMockAdapter("openai", "from openai")
	anthropic := newMockAdapter("anthropic", "from anthropic")
	client := NewClient(
		WithProvider("openai", openai),
		WithProvider("anthropic", anthropic),
		WithDefaultProvider("openai"),
	)

	resp, err := client.Complete(context.Background(), Request{Provider: "anthropic"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "from anthropic" {
		t.Errorf("expected anthropic routing, got %q", resp.Text())
	}

	resp, err = client.Complete(context.Background(), Request{Model: "sonnet"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "from anthropic" {
		t.Errorf("expected catalog routing to anthropic, got %q", resp.Text())
	}

	resp, err = client.Complete(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "from openai" {
		t.Errorf("expected default provider, got %q", resp.Text())
	}
}

func TestClientUnknownProvider(t *testing.T) {
	client := NewClient(WithProvider("openai", newMockAdapter("openai", "x")))

	_, err := client.Complete(context.Background(), Request{Provider: "nope"})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %T: %v", err, err)
	}
}

func TestClientNoProviders(t *testing.T) {
	_, err := NewClient().Complete(context.Background(), Request{})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %T: %v", err, err)
	}
}

func TestClientDefaults(t *testing.T) {
	mock := newMockAdapter("openai", "ok")
	client := NewClient(
		WithProvider("openai", mock),
		WithDefaultModel("gpt-5.2-mini"),
		WithSampling(0.1, 512),
	)

	if _, err := client.Complete(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := mock.requests[0]
	if req.Model != "gpt-5.2-mini" {
		t.Errorf("expected default model, got %q", req.Model)
	}
	if req.Temperature == nil || *req.Temperature != 0.1 {
		t.Errorf("expected temperature 0.1, got %v", req.Temperature)
	}
	if req.MaxTokens == nil || *req.MaxTokens != 512 {
		t.Errorf("expected max tokens 512, got %v", req.MaxTokens)
	}
}

func TestClientMiddlewareOrder(t *testing.T) {
	var order []string
	record := func(name string) Middleware {
		return func(ctx context.Context, req Request, next Handler) (*Response, error) {
			order = append(order, name+":before")
			resp, err := next(ctx, req)
			order = append(order, name+":after")
			return resp, err
		}
	}

	client := NewClient(
		WithProvider("p", newMockAdapter("p", "ok")),
		WithMiddleware(record("outer"), record("inner")),
	)
	if _, err := client.Complete(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{"outer:before", "inner:before", "inner:after", "outer:after"}
	if len(order) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, order)
	}
	for i := range expected {
		if order[i] != expected[i] {
			t.Errorf("position %d: expected %q, got %q", i, expected[i], order[i])
		}
	}
}

func TestGenerateText(t *testing.T) {
	client := NewClient(WithProvider("p", newMockAdapter("p", "  the plan  \n")))

	text, err := client.GenerateText(context.Background(), []Message{UserMessage("plan")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "the plan" {
		t.Errorf("expected trimmed text, got %q", text)
	}
}

func TestGenerateStructured(t *testing.T) {
	mock := &mockAdapter{
		name: "p",
		response: &Response{Message: Message{Role: RoleAssistant, Content: []ContentPart{
			TextPart("reading"),
			ToolCallPart(ToolCall{ID: "c1", Name: "read_file", Arguments: json.RawMessage(`{"path":"main.go"}`)}),
		}}},
	}
	client := NewClient(WithProvider("p", mock))
	tools := []ToolDefinition{{Name: "read_file", Parameters: map[string]interface{}{"type": "object"}}}

	out, err := client.GenerateStructured(context.Background(), []Message{UserMessage("go")}, tools)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "reading" {
		t.Errorf("expected text %q, got %q", "reading", out.Text)
	}
	if len(out.Calls) != 1 || out.Calls[0].Name != "read_file" {
		t.Fatalf("expected one read_file call, got %+v", out.Calls)
	}
	if got := mock.requests[0].ToolChoice; got == nil || got.Mode != "required" {
		t.Errorf("expected required tool choice, got %+v", got)
	}
}

func TestGenerateStructuredEmpty(t *testing.T) {
	mock := &mockAdapter{name: "p", response: &Response{Message: Message{Role: RoleAssistant}}}
	client := NewClient(WithProvider("p", mock))

	_, err := client.GenerateStructured(context.Background(), []Message{UserMessage("go")}, nil)
	var noOut *NoStructuredOutputError
	if !errors.As(err, &noOut) {
		t.Fatalf("expected NoStructuredOutputError, got %T: %v", err, err)
	}
}

type closingAdapter struct {
	*mockAdapter
	closed bool
}

func (c *closingAdapter) Close() error {
	c.closed = true
	return nil
}

func TestClientClose(t *testing.T) {
	adapter := &closingAdapter{mockAdapter: newMockAdapter("p", "x")}
	client := NewClient(WithProvider("p", adapter))
	if err := client.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !adapter.closed {
		t.Error("expected adapter to be closed")
	}
}
