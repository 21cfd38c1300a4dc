package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseTextToolCallsFunctionTags(t *testing.T) {
	text := `Looking around first.
<function_call>{"name": "search_files", "arguments": {"pattern": "**/*.go"}}</function_call>
<function_call>{"name": "read_file", "arguments": "{\"path\":\"go.mod\"}"}</function_call>`

	calls, rest := parseTextToolCalls(text)
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].Name != "search_files" || calls[1].Name != "read_file" {
		t.Errorf("unexpected call names: %q, %q", calls[0].Name, calls[1].Name)
	}

	var args map[string]string
	if err := json.Unmarshal(calls[1].Arguments, &args); err != nil {
		t.Fatalf("string-encoded arguments not decoded: %v", err)
	}
	if args["path"] != "go.mod" {
		t.Errorf("expected path go.mod, got %q", args["path"])
	}
	if rest != "Looking around first." {
		t.Errorf("unexpected remaining text %q", rest)
	}
	if calls[0].ID == "" || calls[0].ID == calls[1].ID {
		t.Errorf("expected distinct call IDs, got %q and %q", calls[0].ID, calls[1].ID)
	}
}

func TestParseTextToolCallsWrapped(t *testing.T) {
	text := `Plan below {"tool_calls": [{"function": {"name": "run_shell_command", "arguments": "{\"command\":\"ls\"}"}}]} trailing`

	calls, rest := parseTextToolCalls(text)
	if len(calls) != 1 || calls[0].Name != "run_shell_command" {
		t.Fatalf("expected one run_shell_command call, got %+v", calls)
	}
	if rest != "Plan below" {
		t.Errorf("unexpected remaining text %q", rest)
	}
}

func TestParseTextToolCallsArray(t *testing.T) {
	calls, _ := parseTextToolCalls(`[{"name": "explain"}]`)
	if len(calls) != 1 || calls[0].Name != "explain" {
		t.Fatalf("expected one explain call, got %+v", calls)
	}
	if string(calls[0].Arguments) != "{}" {
		t.Errorf("expected empty object arguments, got %s", calls[0].Arguments)
	}
}

func TestParseTextToolCallsPlainText(t *testing.T) {
	calls, rest := parseTextToolCalls("  just words  ")
	if len(calls) != 0 {
		t.Errorf("expected no calls, got %d", len(calls))
	}
	if rest != "just words" {
		t.Errorf("unexpected text %q", rest)
	}
}

func TestGollmAdapterBuildResponse(t *testing.T) {
	adapter := &GollmAdapter{provider: "openai", model: "gpt-5.2-mini"}
	resp := adapter.buildResponse(Request{Messages: []Message{UserMessage("hello there")}},
		`<function_call>{"name": "read_file", "arguments": {"path": "a.go"}}</function_call>`)

	if resp.FinishReason.Reason != "tool_calls" {
		t.Errorf("expected tool_calls finish, got %q", resp.FinishReason.Reason)
	}
	if resp.Model != "gpt-5.2-mini" {
		t.Errorf("expected adapter model, got %q", resp.Model)
	}
	if len(resp.ToolCalls()) != 1 {
		t.Errorf("expected one tool call, got %d", len(resp.ToolCalls()))
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		msg   string
		check func(error) bool
	}{
		{"401 Unauthorized", func(err error) bool { var e *AuthenticationError; return errors.As(err, &e) }},
		{"403 Forbidden", func(err error) bool { var e *AccessDeniedError; return errors.As(err, &e) }},
		{"model not found", func(err error) bool { var e *NotFoundError; return errors.As(err, &e) }},
		{"429 rate limit exceeded", func(err error) bool { var e *RateLimitError; return errors.As(err, &e) }},
		{"context length exceeded", func(err error) bool { var e *ContextLengthError; return errors.As(err, &e) }},
		{"500 internal server error", func(err error) bool { var e *ServerError; return errors.As(err, &e) }},
		{"context deadline exceeded", func(err error) bool { var e *RequestTimeoutError; return errors.As(err, &e) }},
		{"blocked by safety settings", func(err error) bool { var e *ContentFilterError; return errors.As(err, &e) }},
		{"something odd", func(err error) bool { var e *ProviderError; return errors.As(err, &e) }},
	}

	for _, tt := range tests {
		err := classifyError("openai", errors.New(tt.msg))
		if !tt.check(err) {
			t.Errorf("for %q: unexpected type %T", tt.msg, err)
		}
	}
	if classifyError("openai", nil) != nil {
		t.Error("expected nil for nil error")
	}
}
