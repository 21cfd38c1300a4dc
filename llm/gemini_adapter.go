package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// geminiModels is the part of *genai.Models the adapter calls.
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiAdapter talks to the Gemini API through the official genai client.
// Unlike GollmAdapter it receives tool calls as native function-call parts.
type GeminiAdapter struct {
	models geminiModels
	model  string
}

// NewGeminiAdapter creates an adapter. An empty apiKey lets genai read
// GEMINI_API_KEY or GOOGLE_API_KEY from the environment.
func NewGeminiAdapter(ctx context.Context, apiKey, model string) (*GeminiAdapter, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModel("gemini")
	}
	return &GeminiAdapter{models: cli.Models, model: model}, nil
}

// Name returns "gemini".
func (a *GeminiAdapter) Name() string { return "gemini" }

// Complete implements ProviderAdapter.
func (a *GeminiAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if info := GetModelInfo(model); model == "" || (info != nil && info.Provider != a.Name()) {
		model = a.model
	}

	contents, cfg := a.translateRequest(req)
	resp, err := a.models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && apiErr.Code != 0 {
			return nil, ErrorFromStatusCode(apiErr.Code, apiErr.Message, a.Name(), nil)
		}
		return nil, classifyError(a.Name(), err)
	}
	return a.buildResponse(model, resp), nil
}

func (a *GeminiAdapter) translateRequest(req Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	cfg := &genai.GenerateContentConfig{}
	var system []*genai.Part
	var contents []*genai.Content

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, &genai.Part{Text: msg.Text()})
		case RoleUser:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: msg.Text()}}})
		case RoleAssistant:
			var parts []*genai.Part
			if text := msg.Text(); text != "" {
				parts = append(parts, &genai.Part{Text: text})
			}
			for _, call := range msg.ToolCalls() {
				args := map[string]any{}
				_ = json.Unmarshal(call.Arguments, &args)
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: call.ID, Name: call.Name, Args: args}})
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: "model", Parts: parts})
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
				contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: prefix + ": " + part.ToolResult.Content}}})
			}
		}
	}

	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: system}
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}
	if req.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*req.MaxTokens)
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:                 t.Name,
				Description:          t.Description,
				ParametersJsonSchema: t.Parameters,
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	if req.ToolChoice != nil {
		mode := genai.FunctionCallingConfigModeAuto
		var allowed []string
		switch req.ToolChoice.Mode {
		case "none":
			mode = genai.FunctionCallingConfigModeNone
		case "required":
			mode = genai.FunctionCallingConfigModeAny
		case "named":
			mode = genai.FunctionCallingConfigModeAny
			allowed = []string{req.ToolChoice.ToolName}
		}
		cfg.ToolConfig = &genai.ToolConfig{FunctionCallingConfig: &genai.FunctionCallingConfig{
			Mode:                 mode,
			AllowedFunctionNames: allowed,
		}}
	}

	return contents, cfg
}

func (a *GeminiAdapter) buildResponse(model string, resp *genai.GenerateContentResponse) *Response {
	out := &Response{
		ID:           "resp_" + uuid.NewString()[:8],
		Model:        model,
		Provider:     a.Name(),
		Message:      Message{Role: RoleAssistant},
		FinishReason: FinishReason{Reason: "stop"},
	}
	if resp == nil {
		return out
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		cand := resp.Candidates[0]
		for _, part := range cand.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				args, _ := json.Marshal(part.FunctionCall.Args)
				id := part.FunctionCall.ID
				if id == "" {
					id = "call_" + uuid.NewString()[:8]
				}
				out.Message.Content = append(out.Message.Content, ToolCallPart(ToolCall{
					ID:        id,
					Name:      part.FunctionCall.Name,
					Arguments: args,
				}))
			case part.Text != "" && !part.Thought:
				out.Message.Content = append(out.Message.Content, TextPart(part.Text))
			}
		}
		out.FinishReason.Raw = string(cand.FinishReason)
	}

	if len(out.ToolCalls()) > 0 {
		out.FinishReason.Reason = "tool_calls"
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
			TotalTokens:  int(u.TotalTokenCount),
		}
	}
	return out
}
