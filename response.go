package llmstream

import "strings"

// StopReason is the provider-neutral reason generation ended.
type StopReason string

const (
	// StopReasonStop means the model finished its turn or hit a stop sequence.
	StopReasonStop StopReason = "stop"

	// StopReasonLength means the output token limit was reached.
	StopReasonLength StopReason = "length"

	// StopReasonToolCalls means the model is waiting on tool results.
	StopReasonToolCalls StopReason = "tool_calls"

	// StopReasonContentFilter means the model declined to continue.
	StopReasonContentFilter StopReason = "content_filter"
)

// Response is a complete aggregated response. Streaming and non-streaming
// calls for the same logical message produce equal Content.
type Response struct {
	ResponseID string `json:"response_id"`
	Model      string `json:"model"`
	Role       string `json:"role"`

	// StopReason is nil when the provider reason has no neutral equivalent
	// (or none was sent). RawStopReason keeps the provider value.
	StopReason    *StopReason `json:"stop_reason"`
	RawStopReason string      `json:"raw_stop_reason,omitempty"`
	StopSequence  *string     `json:"stop_sequence,omitempty"`

	// Content is ordered by block index.
	Content []Content `json:"content"`

	Usage UsageReport `json:"usage"`
}

// Text concatenates every Text item.
func (r *Response) Text() string {
	var sb strings.Builder
	for _, c := range r.Content {
		if c.Kind == KindText && c.Text != nil {
			sb.WriteString(c.Text.Text)
		}
	}
	return sb.String()
}

// FunctionCalls returns the function calls in content order.
func (r *Response) FunctionCalls() []*FunctionCall {
	var calls []*FunctionCall
	for _, c := range r.Content {
		if c.Kind == KindFunctionCall {
			calls = append(calls, c.FunctionCall)
		}
	}
	return calls
}

// Errors returns the content items that failed to decode.
func (r *Response) Errors() []*ErrorContent {
	var errs []*ErrorContent
	for _, c := range r.Content {
		if c.Kind == KindError {
			errs = append(errs, c.Error)
		}
	}
	return errs
}
