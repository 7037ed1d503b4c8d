package llmstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponse_Accessors(t *testing.T) {
	args, _ := ParseArguments(`{"q":"go"}`)
	resp := &Response{
		Content: []Content{
			NewReasoningContent("thinking", "sig"),
			NewTextContent("Hello "),
			{Kind: KindFunctionCall, FunctionCall: &FunctionCall{CallID: "toolu_1", Name: "search", Arguments: args}},
			{Kind: KindError, Error: &ErrorContent{CallID: "toolu_2", Code: "payload_decode_error"}},
			NewTextContent("world"),
		},
	}

	assert.Equal(t, "Hello world", resp.Text())

	calls := resp.FunctionCalls()
	if assert.Len(t, calls, 1) {
		assert.Equal(t, "search", calls[0].Name)
	}

	errs := resp.Errors()
	if assert.Len(t, errs, 1) {
		assert.Equal(t, "toolu_2", errs[0].CallID)
	}
}

func TestToolResult_IsError(t *testing.T) {
	ok := &ToolResult{Outputs: []ToolOutput{{Kind: ToolOutputText, Text: "fine"}}}
	failed := &ToolResult{Outputs: []ToolOutput{{Kind: ToolOutputText}, {Kind: ToolOutputError, Code: "max_uses_exceeded"}}}

	assert.False(t, ok.IsError())
	assert.True(t, failed.IsError())
}

func TestUpdate_IsEmpty(t *testing.T) {
	id := "msg_1"

	assert.True(t, Update{}.IsEmpty())
	assert.False(t, Update{ResponseID: &id}.IsEmpty())
	assert.False(t, Update{Chunks: []Chunk{{BlockIndex: 0, Content: NewTextContent("x")}}}.IsEmpty())
}

func TestProviderID_IsValid(t *testing.T) {
	assert.True(t, ProviderAnthropic.IsValid())
	assert.True(t, ProviderLorem.IsValid())
	assert.False(t, ProviderID("openrouter").IsValid())
}
