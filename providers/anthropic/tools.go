package anthropic

import (
	"github.com/anthropics/anthropic-sdk-go"

	llmstream "github.com/haowjy/meridian-stream-go"
)

// convertTools converts tool definitions to Anthropic's format. Built-in
// tools map to their versioned provider types; the rest are custom tools.
func convertTools(tools []llmstream.Tool) ([]anthropic.ToolUnionParam, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	result := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		switch tool.Type {
		case "", llmstream.ToolTypeFunction:
			result = append(result, convertTool(tool))

		case llmstream.ToolTypeWebSearch:
			result = append(result, convertSearchTool(tool))

		case llmstream.ToolTypeTextEditor:
			// Anthropic text editor is client-side executed.
			result = append(result, anthropic.ToolUnionParam{
				OfTextEditor20250728: &anthropic.ToolTextEditor20250728Param{},
			})

		case llmstream.ToolTypeBash:
			// Anthropic bash is client-side executed.
			result = append(result, anthropic.ToolUnionParam{
				OfBashTool20250124: &anthropic.ToolBash20250124Param{},
			})

		default:
			return nil, &llmstream.ValidationError{Field: "tools", Value: tool.Type, Reason: "unknown tool type"}
		}
	}
	return result, nil
}

// convertSearchTool converts a search tool to Anthropic's server-side
// web_search tool.
func convertSearchTool(tool llmstream.Tool) anthropic.ToolUnionParam {
	search := &anthropic.WebSearchTool20250305Param{
		AllowedDomains: tool.AllowedDomains,
		BlockedDomains: tool.BlockedDomains,
	}
	if tool.MaxUses != nil {
		search.MaxUses = anthropic.Int(int64(*tool.MaxUses))
	}
	return anthropic.ToolUnionParam{OfWebSearchTool20250305: search}
}

// convertTool converts a JSON-schema tool definition. The schema's
// properties and required list map to their own fields; anything else
// (additionalProperties, $defs, ...) is passed through as extra fields.
func convertTool(tool llmstream.Tool) anthropic.ToolUnionParam {
	schema := anthropic.ToolInputSchemaParam{
		Properties:  tool.InputSchema["properties"],
		ExtraFields: make(map[string]any),
	}

	switch required := tool.InputSchema["required"].(type) {
	case []string:
		schema.Required = required
	case []any:
		for _, v := range required {
			if s, ok := v.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}

	for key, value := range tool.InputSchema {
		if key != "type" && key != "properties" && key != "required" {
			schema.ExtraFields[key] = value
		}
	}

	param := anthropic.ToolUnionParamOfTool(schema, tool.Name)
	if tool.Description != "" {
		param.OfTool.Description = anthropic.String(tool.Description)
	}
	return param
}
