package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/tidwall/gjson"

	llmstream "github.com/haowjy/meridian-stream-go"
)

// MapMessage maps a complete (non-streamed) message directly to a Response.
// Every block goes through MapBlock, the same table the Aggregator uses at
// each block stop, and usage is taken as a single snapshot.
//
// msg must have been decoded from JSON (as returned by the SDK): optional
// fields, tool results and usage counters are read from its raw JSON.
func MapMessage(msg *anthropic.Message) *llmstream.Response {
	content := make([]llmstream.Content, 0, len(msg.Content))
	for i, block := range msg.Content {
		content = append(content, MapBlock(blockFromContent(i, block)))
	}

	raw := gjson.Parse(msg.RawJSON())
	var stopSeq *string
	if seq := raw.Get("stop_sequence"); seq.Type == gjson.String {
		s := seq.String()
		stopSeq = &s
	}

	var usage llmstream.Usage
	usage.Add(llmstream.CountersFromJSON(raw.Get("usage").Raw))

	return &llmstream.Response{
		ResponseID:    msg.ID,
		Model:         string(msg.Model),
		Role:          string(msg.Role),
		StopReason:    mapStopReason(string(msg.StopReason)),
		RawStopReason: string(msg.StopReason),
		StopSequence:  stopSeq,
		Content:       content,
		Usage:         usage.Report(),
	}
}

// DecodeMessage decodes a Messages API response body and maps it.
func DecodeMessage(data []byte) (*llmstream.Response, error) {
	var msg anthropic.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return MapMessage(&msg), nil
}

// mapStopReason maps the provider stop reason to the neutral enum.
// pause_turn (a server tool loop paused mid-turn) and unknown reasons have
// no neutral equivalent and map to nil.
func mapStopReason(reason string) *llmstream.StopReason {
	var r llmstream.StopReason
	switch anthropic.StopReason(reason) {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence:
		r = llmstream.StopReasonStop
	case anthropic.StopReasonMaxTokens, "model_context_window_exceeded":
		r = llmstream.StopReasonLength
	case anthropic.StopReasonToolUse:
		r = llmstream.StopReasonToolCalls
	case anthropic.StopReasonRefusal:
		r = llmstream.StopReasonContentFilter
	default:
		return nil
	}
	return &r
}
