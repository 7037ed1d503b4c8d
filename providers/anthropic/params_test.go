package anthropic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	llmstream "github.com/haowjy/meridian-stream-go"
)

func ptr[T any](v T) *T {
	return &v
}

func TestBuildMessageParams_Defaults(t *testing.T) {
	req := &llmstream.GenerateRequest{
		Model:    "claude-haiku-4-5-20251001",
		Messages: []llmstream.Message{llmstream.NewUserMessage("Hi")},
	}

	params, err := buildMessageParams(req)
	require.NoError(t, err)

	assert.Equal(t, int64(64000), params.MaxTokens, "max tokens default to the model limit")
	assert.False(t, params.Temperature.Valid())
	assert.Nil(t, params.Thinking.OfEnabled)
	assert.Empty(t, params.Tools)

	unknown, err := buildMessageParams(&llmstream.GenerateRequest{Model: "claude-next", Messages: req.Messages})
	require.NoError(t, err)
	assert.Equal(t, int64(defaultMaxTokens), unknown.MaxTokens)
}

func TestBuildMessageParams_Options(t *testing.T) {
	req := &llmstream.GenerateRequest{
		Model: "claude-sonnet-4-5",
		Messages: []llmstream.Message{
			llmstream.NewUserMessage("What's the weather?"),
			{Role: llmstream.RoleAssistant, Text: "Where?"},
			llmstream.NewUserMessage("Paris"),
		},
		Params: &llmstream.RequestParams{
			MaxTokens:     ptr(1024),
			Temperature:   ptr(0.2),
			TopK:          ptr(40),
			Stop:          []string{"###"},
			System:        ptr("Be brief."),
			ThinkingLevel: ptr("medium"),
			Tools: []llmstream.Tool{{
				Name:        "get_weather",
				Description: "Current weather for a city",
				InputSchema: map[string]any{
					"type":                 "object",
					"properties":           map[string]any{"city": map[string]any{"type": "string"}},
					"required":             []any{"city"},
					"additionalProperties": false,
				},
			}},
		},
	}

	params, err := buildMessageParams(req)
	require.NoError(t, err)

	body, err := json.Marshal(params)
	require.NoError(t, err)
	doc := gjson.ParseBytes(body)

	assert.Equal(t, int64(1024), doc.Get("max_tokens").Int())
	assert.InDelta(t, 0.2, doc.Get("temperature").Float(), 1e-9)
	assert.Equal(t, int64(40), doc.Get("top_k").Int())
	assert.False(t, doc.Get("top_p").Exists())
	assert.Equal(t, "###", doc.Get("stop_sequences.0").String())
	assert.Equal(t, "Be brief.", doc.Get("system.0.text").String())
	assert.Equal(t, "enabled", doc.Get("thinking.type").String())
	assert.Equal(t, int64(5000), doc.Get("thinking.budget_tokens").Int())

	assert.Equal(t, int64(3), doc.Get("messages.#").Int())
	assert.Equal(t, "assistant", doc.Get("messages.1.role").String())
	assert.Equal(t, "Where?", doc.Get("messages.1.content.0.text").String())

	tool := doc.Get("tools.0")
	assert.Equal(t, "get_weather", tool.Get("name").String())
	assert.Equal(t, "Current weather for a city", tool.Get("description").String())
	assert.Equal(t, "object", tool.Get("input_schema.type").String())
	assert.Equal(t, "string", tool.Get("input_schema.properties.city.type").String())
	assert.Equal(t, "city", tool.Get("input_schema.required.0").String())
	assert.Equal(t, gjson.False, tool.Get("input_schema.additionalProperties").Type)
}

func TestBuildMessageParams_Invalid(t *testing.T) {
	tests := []struct {
		name string
		req  *llmstream.GenerateRequest
	}{
		{
			name: "no messages",
			req:  &llmstream.GenerateRequest{Model: "claude-haiku-4-5"},
		},
		{
			name: "bad role",
			req: &llmstream.GenerateRequest{
				Model:    "claude-haiku-4-5",
				Messages: []llmstream.Message{{Role: "system", Text: "x"}},
			},
		},
		{
			name: "bad temperature",
			req: &llmstream.GenerateRequest{
				Model:    "claude-haiku-4-5",
				Messages: []llmstream.Message{llmstream.NewUserMessage("x")},
				Params:   &llmstream.RequestParams{Temperature: ptr(1.5)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildMessageParams(tt.req)
			require.Error(t, err)
			assert.True(t, llmstream.IsInvalidRequest(err))
		})
	}
}
