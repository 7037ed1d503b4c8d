package llmstream

// ContentKind discriminates the variants of Content.
type ContentKind string

const (
	// KindText is a run of generated text with optional citations.
	KindText ContentKind = "text"

	// KindReasoning is a reasoning trace. Redacted traces have empty text
	// and carry the opaque payload in ProtectedData.
	KindReasoning ContentKind = "reasoning"

	// KindFunctionCall is a request to invoke a named tool.
	KindFunctionCall ContentKind = "function_call"

	// KindToolResult is the output of a server-executed tool.
	KindToolResult ContentKind = "tool_result"

	// KindUsage carries cumulative token counters (streaming only).
	KindUsage ContentKind = "usage"

	// KindError is a block that could not be decoded. It replaces the
	// block it was produced from; the rest of the response is unaffected.
	KindError ContentKind = "error"

	// KindUnsupported marks a block kind this library does not recognize.
	KindUnsupported ContentKind = "unsupported"
)

// Content is the uniform content item produced for every block of a response,
// whether it was streamed or returned in one piece.
// Exactly one payload field matching Kind is set.
type Content struct {
	Kind ContentKind `json:"kind"`

	Text         *Text         `json:"text,omitempty"`
	Reasoning    *Reasoning    `json:"reasoning,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
	ToolResult   *ToolResult   `json:"tool_result,omitempty"`
	Usage        *UsageReport  `json:"usage,omitempty"`
	Error        *ErrorContent `json:"error,omitempty"`
	Unsupported  *Unsupported  `json:"unsupported,omitempty"`
}

// Text is generated text with the citations attached to it, in receipt order.
type Text struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations,omitempty"`
}

// Reasoning is a (possibly redacted) reasoning trace.
type Reasoning struct {
	Text string `json:"text"`

	// ProtectedData is the signature of a visible trace or the opaque
	// payload of a redacted one. It must be sent back unchanged.
	ProtectedData string `json:"protected_data,omitempty"`
}

// FunctionCall is a tool invocation requested by the model.
type FunctionCall struct {
	CallID string `json:"call_id"`
	Name   string `json:"name"`

	// ServerName is set for calls routed to an MCP server.
	ServerName string `json:"server_name,omitempty"`

	// ServerSide is true for tools executed by the provider (server_tool_use,
	// mcp_tool_use). Their results arrive as ToolResult content.
	ServerSide bool `json:"server_side,omitempty"`

	Arguments *Arguments `json:"arguments"`

	// ArgumentsJSON is Arguments re-encoded as compact JSON in key order.
	ArgumentsJSON string `json:"arguments_json"`
}

// ToolOutputKind discriminates ToolOutput.
type ToolOutputKind string

const (
	ToolOutputText  ToolOutputKind = "text"
	ToolOutputError ToolOutputKind = "error"
	ToolOutputFile  ToolOutputKind = "file"
)

// ToolOutput is one item of a tool result.
type ToolOutput struct {
	Kind ToolOutputKind `json:"kind"`

	// Text output
	Text  string `json:"text,omitempty"`
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`

	// File output
	FileID   string `json:"file_id,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Data     string `json:"data,omitempty"`

	// Error output
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ToolResult is the result of a provider-executed tool call.
type ToolResult struct {
	CallID string `json:"call_id"`

	// Type is the provider block type, e.g. "web_search_tool_result".
	Type    string       `json:"type"`
	Outputs []ToolOutput `json:"outputs"`
}

// IsError reports whether any output is an error.
func (r *ToolResult) IsError() bool {
	for _, o := range r.Outputs {
		if o.Kind == ToolOutputError {
			return true
		}
	}
	return false
}

// ErrorContent replaces a block that could not be decoded.
type ErrorContent struct {
	CallID  string `json:"call_id,omitempty"`
	Name    string `json:"name,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`

	// Raw is the undecodable payload as received.
	Raw string `json:"raw,omitempty"`

	Cause error `json:"-"`
}

// Unsupported marks a block that was received but not understood.
type Unsupported struct {
	Type string `json:"type"`
	Raw  string `json:"raw,omitempty"`
}

// NewTextContent creates a Text content item.
func NewTextContent(text string, citations ...Citation) Content {
	return Content{Kind: KindText, Text: &Text{Text: text, Citations: citations}}
}

// NewReasoningContent creates a Reasoning content item.
func NewReasoningContent(text, protectedData string) Content {
	return Content{Kind: KindReasoning, Reasoning: &Reasoning{Text: text, ProtectedData: protectedData}}
}

// NewUsageContent creates a Usage content item from a report snapshot.
func NewUsageContent(report UsageReport) Content {
	return Content{Kind: KindUsage, Usage: &report}
}

// NewUnsupportedContent creates an explicit marker for an unknown variant.
func NewUnsupportedContent(typ, raw string) Content {
	return Content{Kind: KindUnsupported, Unsupported: &Unsupported{Type: typ, Raw: raw}}
}
