package anthropic

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	llmstream "github.com/haowjy/meridian-stream-go"
)

const (
	defaultMaxTokens  = 4096
	maxBlockingTokens = 16384
)

// buildMessageParams constructs Anthropic API parameters from a GenerateRequest.
// Shared by GenerateResponse and StreamResponse.
func buildMessageParams(req *llmstream.GenerateRequest) (anthropic.MessageNewParams, error) {
	if len(req.Messages) == 0 {
		return anthropic.MessageNewParams{}, &llmstream.ValidationError{Field: "messages", Value: 0, Reason: "at least one message is required"}
	}
	if err := req.Params.Validate(); err != nil {
		return anthropic.MessageNewParams{}, err
	}

	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for i, msg := range req.Messages {
		switch msg.Role {
		case llmstream.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Text)))
		case llmstream.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Text)))
		default:
			return anthropic.MessageNewParams{}, &llmstream.ValidationError{
				Field:  fmt.Sprintf("messages[%d].role", i),
				Value:  msg.Role,
				Reason: "must be 'user' or 'assistant'",
			}
		}
	}

	params := req.Params
	if params == nil {
		params = &llmstream.RequestParams{}
	}

	fallback := llmstream.GetCapabilityRegistry().MaxOutputTokens(llmstream.ProviderAnthropic.String(), req.Model, defaultMaxTokens)
	apiParams := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  messages,
		MaxTokens: int64(params.GetMaxTokens(fallback)),
	}

	if params.Temperature != nil {
		apiParams.Temperature = anthropic.Float(*params.Temperature)
	}
	if params.TopP != nil {
		apiParams.TopP = anthropic.Float(*params.TopP)
	}
	if params.TopK != nil {
		apiParams.TopK = anthropic.Int(int64(*params.TopK))
	}
	if len(params.Stop) > 0 {
		apiParams.StopSequences = params.Stop
	}
	if params.System != nil {
		apiParams.System = []anthropic.TextBlockParam{{Text: *params.System}}
	}

	// Thinking level -> token budget
	if budget := params.GetThinkingBudgetTokens(llmstream.ProviderAnthropic, req.Model); budget > 0 {
		apiParams.Thinking = anthropic.ThinkingConfigParamOfEnabled(int64(budget))
	}

	tools, err := convertTools(params.Tools)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}
	apiParams.Tools = tools

	return apiParams, nil
}
