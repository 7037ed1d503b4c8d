package llmstream

// RequestParams holds optional request parameters.
// All fields are optional pointers to distinguish "not set" from "set to zero value".
type RequestParams struct {
	// MaxTokens sets the maximum number of tokens to generate.
	// Defaults to the model's max output tokens from the capability registry.
	MaxTokens *int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0-1.0)
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`

	// TopP (nucleus sampling) - cumulative probability cutoff (0.0-1.0)
	TopP *float64 `json:"top_p,omitempty" yaml:"top_p,omitempty"`

	// TopK limits sampling to top K tokens
	TopK *int `json:"top_k,omitempty" yaml:"top_k,omitempty"`

	// Stop sequences - generation stops if any of these are generated
	Stop []string `json:"stop,omitempty" yaml:"stop,omitempty"`

	// System prompt
	System *string `json:"system,omitempty" yaml:"system,omitempty"`

	// ThinkingLevel enables extended thinking: "low", "medium", "high".
	// Converted to a token budget through the capability registry.
	ThinkingLevel *string `json:"thinking_level,omitempty" yaml:"thinking_level,omitempty"`

	// Tools available for the model to call
	Tools []Tool `json:"tools,omitempty" yaml:"tools,omitempty"`
}

// ToolType selects a custom function or one of the provider's built-in tools.
type ToolType string

const (
	// ToolTypeFunction is a custom tool described by a JSON schema. It is
	// the default when Type is empty.
	ToolTypeFunction ToolType = "function"

	// ToolTypeWebSearch is executed by the provider; its results arrive as
	// ToolResult content.
	ToolTypeWebSearch ToolType = "web_search"

	// ToolTypeTextEditor and ToolTypeBash are provider-defined schemas
	// executed by the client.
	ToolTypeTextEditor ToolType = "text_editor"
	ToolTypeBash       ToolType = "bash"
)

// Tool describes a tool the model may call.
type Tool struct {
	Type ToolType `json:"type,omitempty" yaml:"type,omitempty"`

	// Name is required for function tools. Built-in tools use the
	// provider's fixed name.
	Name        string         `json:"name,omitempty" yaml:"name,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty" yaml:"input_schema,omitempty"`

	// Web search options
	MaxUses        *int     `json:"max_uses,omitempty" yaml:"max_uses,omitempty"`
	AllowedDomains []string `json:"allowed_domains,omitempty" yaml:"allowed_domains,omitempty"`
	BlockedDomains []string `json:"blocked_domains,omitempty" yaml:"blocked_domains,omitempty"`
}

// Validate checks parameter ranges.
func (rp *RequestParams) Validate() error {
	if rp == nil {
		return nil
	}

	if rp.Temperature != nil && (*rp.Temperature < 0.0 || *rp.Temperature > 1.0) {
		return &ValidationError{Field: "temperature", Value: *rp.Temperature, Reason: "must be between 0.0 and 1.0"}
	}
	if rp.TopP != nil && (*rp.TopP < 0.0 || *rp.TopP > 1.0) {
		return &ValidationError{Field: "top_p", Value: *rp.TopP, Reason: "must be between 0.0 and 1.0"}
	}
	if rp.TopK != nil && *rp.TopK < 0 {
		return &ValidationError{Field: "top_k", Value: *rp.TopK, Reason: "must be non-negative"}
	}
	if rp.MaxTokens != nil && *rp.MaxTokens < 1 {
		return &ValidationError{Field: "max_tokens", Value: *rp.MaxTokens, Reason: "must be positive"}
	}
	if rp.ThinkingLevel != nil {
		switch *rp.ThinkingLevel {
		case "low", "medium", "high":
		default:
			return &ValidationError{Field: "thinking_level", Value: *rp.ThinkingLevel, Reason: "must be 'low', 'medium', or 'high'"}
		}
	}
	for i, tool := range rp.Tools {
		switch tool.Type {
		case "", ToolTypeFunction:
			if tool.Name == "" {
				return &ValidationError{Field: "tools", Value: i, Reason: "tool name is required"}
			}
		case ToolTypeWebSearch, ToolTypeTextEditor, ToolTypeBash:
			if tool.MaxUses != nil && *tool.MaxUses < 1 {
				return &ValidationError{Field: "tools", Value: i, Reason: "max_uses must be positive"}
			}
		default:
			return &ValidationError{Field: "tools", Value: tool.Type, Reason: "unknown tool type"}
		}
	}
	return nil
}

// GetMaxTokens returns max_tokens with default fallback
func (rp *RequestParams) GetMaxTokens(defaultValue int) int {
	if rp != nil && rp.MaxTokens != nil {
		return *rp.MaxTokens
	}
	return defaultValue
}

// ThinkingEnabled reports whether a thinking level was requested.
func (rp *RequestParams) ThinkingEnabled() bool {
	return rp != nil && rp.ThinkingLevel != nil
}

// GetThinkingBudgetTokens converts thinking_level to a token budget for the
// given model. Returns 0 when thinking is not enabled.
func (rp *RequestParams) GetThinkingBudgetTokens(provider ProviderID, model string) int {
	if !rp.ThinkingEnabled() {
		return 0
	}
	budget, err := GetCapabilityRegistry().ConvertEffortToBudget(provider.String(), model, *rp.ThinkingLevel)
	if err != nil {
		return 0
	}
	return budget
}
