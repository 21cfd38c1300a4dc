package llm

import (
	"context"
	"strings"
)

// Generator is the narrow LLM surface the planner and explainer use.
type Generator interface {
	// GenerateText returns the model's free-text answer.
	GenerateText(ctx context.Context, messages []Message) (string, error)

	// GenerateStructured offers tools to the model and returns any calls it
	// made alongside its text.
	GenerateStructured(ctx context.Context, messages []Message, tools []ToolDefinition) (*Structured, error)
}

// Structured is the result of GenerateStructured. Either field may be empty.
type Structured struct {
	Text  string
	Calls []ToolCall
}

var _ Generator = (*Client)(nil)

// GenerateText implements Generator.
func (c *Client) GenerateText(ctx context.Context, messages []Message) (string, error) {
	resp, err := c.Complete(ctx, Request{Messages: messages})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// GenerateStructured implements Generator. The model is asked to call at
// least one tool; a response with neither text nor calls is an error.
func (c *Client) GenerateStructured(ctx context.Context, messages []Message, tools []ToolDefinition) (*Structured, error) {
	req := Request{Messages: messages, Tools: tools}
	if len(tools) > 0 {
		req.ToolChoice = &ToolChoice{Mode: "required"}
	}

	resp, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	out := &Structured{
		Text:  strings.TrimSpace(resp.Text()),
		Calls: resp.ToolCalls(),
	}
	if out.Text == "" && len(out.Calls) == 0 {
		return nil, &NoStructuredOutputError{SDKError: SDKError{Message: "model returned neither text nor tool calls"}}
	}
	return out, nil
}
