package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmAdapter wraps a gollm.LLM and implements ProviderAdapter. gollm
// returns tool calls inside the response text; the adapter lifts them back
// into ToolCall parts.
type GollmAdapter struct {
	provider string
	llm      gollm.LLM
	model    string
}

// GollmAdapterOption configures a GollmAdapter.
type GollmAdapterOption func(*gollmAdapterConfig)

type gollmAdapterConfig struct {
	model       string
	maxTokens   int
	temperature float64
	extraOpts   []gollm.ConfigOption
}

// WithModel sets the adapter's default model.
func WithModel(model string) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.model = model
	}
}

// WithMaxTokens sets the default output token ceiling.
func WithMaxTokens(n int) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.maxTokens = n
	}
}

// WithTemperature sets the default temperature.
func WithTemperature(t float64) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.temperature = t
	}
}

// WithGollmOptions passes extra gollm configuration through.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.extraOpts = append(c.extraOpts, opts...)
	}
}

// NewGollmAdapter creates an adapter for provider. An empty apiKey lets gollm
// read the provider's usual environment variable.
func NewGollmAdapter(provider, apiKey string, opts ...GollmAdapterOption) (*GollmAdapter, error) {
	cfg := &gollmAdapterConfig{maxTokens: 4096, temperature: 0.2}
	for _, opt := range opts {
		opt(cfg)
	}

	model := cfg.model
	if model == "" {
		model = DefaultModel(provider)
	}
	if model == "" {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("no model configured for provider %q", provider),
		}}
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // RetryMiddleware owns retries.
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(apiKey))
	}
	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gollm client for %s: %w", provider, err)
	}

	return &GollmAdapter{provider: provider, llm: llm, model: model}, nil
}

// NewGollmAdapterFromLLM wraps an existing gollm.LLM.
func NewGollmAdapterFromLLM(provider string, llm gollm.LLM) *GollmAdapter {
	return &GollmAdapter{provider: provider, llm: llm}
}

// Name returns the provider identifier.
func (a *GollmAdapter) Name() string {
	return a.provider
}

// Complete implements ProviderAdapter.
func (a *GollmAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	prompt := a.translateRequest(req)

	if req.Model != "" {
		a.llm.SetOption("model", req.Model)
	}
	if req.Temperature != nil {
		a.llm.SetOption("temperature", *req.Temperature)
	}
	if req.MaxTokens != nil {
		a.llm.SetOption("max_tokens", *req.MaxTokens)
	}

	text, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, classifyError(a.provider, err)
	}
	return a.buildResponse(req, text), nil
}

// translateRequest flattens the conversation into a gollm prompt: system
// messages become the system prompt, everything else the prompt body.
func (a *GollmAdapter) translateRequest(req Request) *gollm.Prompt {
	var system []string
	var body []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Text())
		case RoleUser:
			body = append(body, msg.Text())
		case RoleAssistant:
			if text := msg.Text(); text != "" {
				body = append(body, "[Assistant]: "+text)
			}
		case RoleTool:
			for _, part := range msg.Content {
				if part.Kind != ContentToolResult || part.ToolResult == nil {
					continue
				}
				prefix := "[Tool Result]"
				if part.ToolResult.IsError {
					prefix = "[Tool Error]"
				}
				body = append(body, prefix+": "+part.ToolResult.Content)
			}
		}
	}

	text := strings.Join(body, "\n\n")
	if text == "" {
		text = "Continue."
	}

	var opts []gollm.PromptOption
	if len(system) > 0 {
		opts = append(opts, gollm.WithSystemPrompt(strings.Join(system, "\n\n"), gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		opts = append(opts, gollm.WithMaxLength(*req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		tools := make([]gollm.Tool, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		opts = append(opts, gollm.WithTools(tools))
	}
	if req.ToolChoice != nil {
		opts = append(opts, gollm.WithToolChoice(req.ToolChoice.Mode))
	}

	return gollm.NewPrompt(text, opts...)
}

func (a *GollmAdapter) buildResponse(req Request, text string) *Response {
	model := req.Model
	if model == "" {
		model = a.model
	}

	calls, rest := parseTextToolCalls(text)

	var parts []ContentPart
	if rest != "" {
		parts = append(parts, TextPart(rest))
	}
	for _, call := range calls {
		parts = append(parts, ToolCallPart(call))
	}

	finish := FinishReason{Reason: "stop", Raw: "stop"}
	if len(calls) > 0 {
		finish = FinishReason{Reason: "tool_calls", Raw: "tool_calls"}
	}

	// gollm does not expose usage; estimate at four characters per token.
	in := 0
	for _, msg := range req.Messages {
		in += len(msg.Text()) / 4
	}
	out := len(text) / 4

	return &Response{
		ID:           "resp_" + uuid.NewString()[:8],
		Model:        model,
		Provider:     a.provider,
		Message:      Message{Role: RoleAssistant, Content: parts},
		FinishReason: finish,
		Usage:        Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out},
	}
}

type rawToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	Function  *struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function,omitempty"`
}

// parseTextToolCalls extracts tool calls embedded in response text and
// returns the remaining text. Recognized shapes:
//
//	<function_call>{"name": ..., "arguments": ...}</function_call>
//	{"tool_calls": [{"name": ..., "arguments": ...}]}
//	[{"name": ..., "arguments": ...}]
//
// Arguments may be an object or a JSON-encoded string.
func parseTextToolCalls(text string) ([]ToolCall, string) {
	var calls []ToolCall
	rest := text

	const open, closeTag = "<function_call>", "</function_call>"
	for {
		start := strings.Index(rest, open)
		if start == -1 {
			break
		}
		end := strings.Index(rest[start:], closeTag)
		if end == -1 {
			break
		}
		payload := rest[start+len(open) : start+end]
		var raw rawToolCall
		if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &raw); err == nil {
			if call, ok := raw.toToolCall(); ok {
				calls = append(calls, call)
			}
		}
		rest = rest[:start] + rest[start+end+len(closeTag):]
	}
	if len(calls) > 0 {
		return calls, strings.TrimSpace(rest)
	}

	if idx := strings.Index(text, `{"tool_calls"`); idx != -1 {
		var wrapped struct {
			ToolCalls []rawToolCall `json:"tool_calls"`
		}
		if err := json.NewDecoder(strings.NewReader(text[idx:])).Decode(&wrapped); err == nil {
			for _, raw := range wrapped.ToolCalls {
				if call, ok := raw.toToolCall(); ok {
					calls = append(calls, call)
				}
			}
			if len(calls) > 0 {
				return calls, strings.TrimSpace(text[:idx])
			}
		}
	}

	if idx := strings.Index(text, `[{"name"`); idx != -1 {
		var list []rawToolCall
		if err := json.NewDecoder(strings.NewReader(text[idx:])).Decode(&list); err == nil {
			for _, raw := range list {
				if call, ok := raw.toToolCall(); ok {
					calls = append(calls, call)
				}
			}
			if len(calls) > 0 {
				return calls, strings.TrimSpace(text[:idx])
			}
		}
	}

	return nil, strings.TrimSpace(text)
}

func (r rawToolCall) toToolCall() (ToolCall, bool) {
	name, args := r.Name, r.Arguments
	if r.Function != nil {
		name, args = r.Function.Name, r.Function.Arguments
	}
	if name == "" {
		return ToolCall{}, false
	}

	var encoded string
	if len(args) > 0 && json.Unmarshal(args, &encoded) == nil {
		args = json.RawMessage(encoded)
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	return ToolCall{ID: "call_" + uuid.NewString()[:8], Name: name, Arguments: args}, true
}

// classifyError maps a provider error onto the typed hierarchy by its message;
// neither gollm nor genai surface status codes uniformly.
func classifyError(provider string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	pe := ProviderError{SDKError: SDKError{Message: msg, Cause: err}, Provider: provider}

	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		pe.StatusCode = 401
		return &AuthenticationError{ProviderError: pe}
	case strings.Contains(lower, "403") || strings.Contains(lower, "forbidden"):
		pe.StatusCode = 403
		return &AccessDeniedError{ProviderError: pe}
	case strings.Contains(lower, "404") || strings.Contains(lower, "not found"):
		pe.StatusCode = 404
		return &NotFoundError{ProviderError: pe}
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		pe.StatusCode, pe.Retryable = 429, true
		return &RateLimitError{ProviderError: pe}
	case strings.Contains(lower, "context length") || strings.Contains(lower, "too many tokens"):
		pe.StatusCode = 413
		return &ContextLengthError{ProviderError: pe}
	case strings.Contains(lower, "500") || strings.Contains(lower, "internal server") || strings.Contains(lower, "overloaded"):
		pe.StatusCode, pe.Retryable = 500, true
		return &ServerError{ProviderError: pe}
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return &RequestTimeoutError{SDKError: SDKError{Message: msg, Cause: err}}
	case strings.Contains(lower, "content filter") || strings.Contains(lower, "safety"):
		return &ContentFilterError{ProviderError: pe}
	default:
		pe.Retryable = true
		return &pe
	}
}
