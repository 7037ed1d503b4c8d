package anthropic

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/tidwall/gjson"

	llmstream "github.com/haowjy/meridian-stream-go"
)

// EventKind names the protocol events the aggregator understands.
type EventKind string

const (
	EventMessageStart      EventKind = "message_start"
	EventContentBlockStart EventKind = "content_block_start"
	EventContentBlockDelta EventKind = "content_block_delta"
	EventContentBlockStop  EventKind = "content_block_stop"
	EventMessageDelta      EventKind = "message_delta"
	EventMessageStop       EventKind = "message_stop"
)

// Delta types carried by content_block_delta.
const (
	deltaText      = "text_delta"
	deltaInputJSON = "input_json_delta"
	deltaThinking  = "thinking_delta"
	deltaSignature = "signature_delta"
	deltaCitations = "citations_delta"
)

// Event is a decoded protocol event. Which fields are set depends on Kind.
type Event struct {
	Kind EventKind

	// Index of the block for content_block_* events.
	Index int

	// message_start
	Message anthropic.Message

	// content_block_start; BlockRaw is the content_block object as received.
	Block    anthropic.ContentBlockStartEventContentBlockUnion
	BlockRaw string

	// content_block_delta; DeltaRaw is the delta object as received.
	Delta    anthropic.RawContentBlockDeltaUnion
	DeltaRaw string

	// message_delta
	StopReason   string
	StopSequence *string

	// Usage for message_start and message_delta.
	Usage llmstream.Counters
}

// DecodeFrame turns a wire frame into an Event. The second return value is
// false for frames that carry no event for the aggregator (ping, unknown
// names). An error frame is returned as a *llmstream.ProviderError; a
// payload that does not decode is a *llmstream.FramingError.
func DecodeFrame(f Frame) (Event, bool, error) {
	name := f.Name
	if name == "" {
		name = gjson.GetBytes(f.Data, "type").String()
	}

	ev := Event{Kind: EventKind(name), Index: llmstream.MessageLevel}
	switch ev.Kind {
	case EventMessageStart:
		var v anthropic.MessageStartEvent
		if err := json.Unmarshal(f.Data, &v); err != nil {
			return ev, false, malformed(name, err)
		}
		ev.Message = v.Message
		ev.Usage = llmstream.CountersFromJSON(gjson.GetBytes(f.Data, "message.usage").Raw)

	case EventContentBlockStart:
		var v anthropic.ContentBlockStartEvent
		if err := json.Unmarshal(f.Data, &v); err != nil {
			return ev, false, malformed(name, err)
		}
		ev.Index = int(v.Index)
		ev.Block = v.ContentBlock
		ev.BlockRaw = gjson.GetBytes(f.Data, "content_block").Raw

	case EventContentBlockDelta:
		var v anthropic.ContentBlockDeltaEvent
		if err := json.Unmarshal(f.Data, &v); err != nil {
			return ev, false, malformed(name, err)
		}
		ev.Index = int(v.Index)
		ev.Delta = v.Delta
		ev.DeltaRaw = gjson.GetBytes(f.Data, "delta").Raw

	case EventContentBlockStop:
		var v anthropic.ContentBlockStopEvent
		if err := json.Unmarshal(f.Data, &v); err != nil {
			return ev, false, malformed(name, err)
		}
		ev.Index = int(v.Index)

	case EventMessageDelta:
		var v anthropic.MessageDeltaEvent
		if err := json.Unmarshal(f.Data, &v); err != nil {
			return ev, false, malformed(name, err)
		}
		ev.StopReason = string(v.Delta.StopReason)
		if seq := gjson.GetBytes(f.Data, "delta.stop_sequence"); seq.Type == gjson.String {
			s := seq.String()
			ev.StopSequence = &s
		}
		ev.Usage = llmstream.CountersFromJSON(gjson.GetBytes(f.Data, "usage").Raw)

	case EventMessageStop:

	case "error":
		return ev, false, streamError(f.Data)

	default:
		// ping and event names added after this version
		return ev, false, nil
	}
	return ev, true, nil
}

func malformed(event string, err error) error {
	return &llmstream.FramingError{
		Event:  event,
		Index:  llmstream.MessageLevel,
		Reason: "payload does not decode",
		Err:    err,
	}
}

// streamError converts an in-stream error frame:
// {"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}
func streamError(data []byte) error {
	typ := gjson.GetBytes(data, "error.type").String()
	msg := gjson.GetBytes(data, "error.message").String()
	if msg == "" {
		msg = string(data)
	}

	pe := &llmstream.ProviderError{
		Provider: llmstream.ProviderAnthropic.String(),
		Type:     typ,
		Message:  msg,
	}
	switch typ {
	case "overloaded_error", "api_error":
		pe.Retryable = true
		pe.Err = llmstream.ErrProviderUnavailable
	case "rate_limit_error":
		pe.Retryable = true
		pe.Err = llmstream.ErrRateLimited
	case "authentication_error", "permission_error":
		pe.Err = llmstream.ErrInvalidAPIKey
	case "invalid_request_error":
		pe.Err = llmstream.ErrInvalidRequest
	}
	return pe
}
