package llm

// ModelInfo describes a known model.
type ModelInfo struct {
	ID            string   `json:"id"`
	Provider      string   `json:"provider"`
	ContextWindow int      `json:"context_window"`
	SupportsTools bool     `json:"supports_tools"`
	Aliases       []string `json:"aliases,omitempty"`
}

// Models is the built-in catalog. The first entry per provider is its default.
var Models = []ModelInfo{
	{ID: "claude-sonnet-4-5", Provider: "anthropic", ContextWindow: 200000, SupportsTools: true, Aliases: []string{"sonnet", "claude-sonnet"}},
	{ID: "claude-opus-4-6", Provider: "anthropic", ContextWindow: 200000, SupportsTools: true, Aliases: []string{"opus", "claude-opus"}},
	{ID: "gpt-5.2-mini", Provider: "openai", ContextWindow: 1047576, SupportsTools: true, Aliases: []string{"gpt5-mini"}},
	{ID: "gpt-5.2", Provider: "openai", ContextWindow: 1047576, SupportsTools: true, Aliases: []string{"gpt5"}},
	{ID: "gemini-2.5-flash", Provider: "gemini", ContextWindow: 1048576, SupportsTools: true, Aliases: []string{"gemini-flash"}},
	{ID: "gemini-2.5-pro", Provider: "gemini", ContextWindow: 1048576, SupportsTools: true, Aliases: []string{"gemini-pro"}},
}

// GetModelInfo returns the catalog entry for an ID or alias, or nil.
func GetModelInfo(model string) *ModelInfo {
	for i := range Models {
		if Models[i].ID == model {
			return &Models[i]
		}
		for _, alias := range Models[i].Aliases {
			if alias == model {
				return &Models[i]
			}
		}
	}
	return nil
}

// DefaultModel returns the default model ID for a provider, or "".
func DefaultModel(provider string) string {
	for _, m := range Models {
		if m.Provider == provider {
			return m.ID
		}
	}
	return ""
}
