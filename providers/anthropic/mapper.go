package anthropic

import (
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/tidwall/gjson"

	llmstream "github.com/haowjy/meridian-stream-go"
)

// Block types as they appear on the wire.
const (
	blockText             = "text"
	blockThinking         = "thinking"
	blockRedactedThinking = "redacted_thinking"
	blockToolUse          = "tool_use"
	blockServerToolUse    = "server_tool_use"
	blockMCPToolUse       = "mcp_tool_use"
)

// MapBlock converts a finalized block into uniform content. It is the only
// place block kinds are interpreted, for streamed and non-streamed
// messages alike. Unknown kinds are returned as Unsupported content.
func MapBlock(b FinalizedBlock) llmstream.Content {
	switch {
	case b.Type == blockText:
		return llmstream.NewTextContent(b.Text, b.Citations...)

	case b.Type == blockThinking:
		return llmstream.NewReasoningContent(b.Text, b.Signature)

	case b.Type == blockRedactedThinking:
		return llmstream.NewReasoningContent("", b.Data)

	case b.Type == blockToolUse, b.Type == blockServerToolUse, b.Type == blockMCPToolUse:
		return mapFunctionCall(b)

	case isToolResult(b.Type):
		return mapToolResult(b)

	default:
		return llmstream.NewUnsupportedContent(b.Type, gjson.Get(b.Raw, "@ugly").Raw)
	}
}

// knownBlock reports whether MapBlock interprets typ rather than passing
// its raw JSON through.
func knownBlock(typ string) bool {
	switch typ {
	case blockText, blockThinking, blockRedactedThinking, blockToolUse, blockServerToolUse, blockMCPToolUse:
		return true
	}
	return isToolResult(typ)
}

func isToolResult(typ string) bool {
	return typ == "tool_result" || strings.HasSuffix(typ, "_tool_result")
}

func mapFunctionCall(b FinalizedBlock) llmstream.Content {
	args, err := llmstream.ParseArguments(b.Input)
	if err != nil {
		decodeErr := &llmstream.PayloadDecodeError{Index: b.Index, CallID: b.CallID, Raw: b.Input, Err: err}
		return llmstream.Content{
			Kind: llmstream.KindError,
			Error: &llmstream.ErrorContent{
				CallID:  b.CallID,
				Name:    b.Name,
				Code:    "payload_decode_error",
				Message: decodeErr.Error(),
				Raw:     b.Input,
				Cause:   decodeErr,
			},
		}
	}

	return llmstream.Content{
		Kind: llmstream.KindFunctionCall,
		FunctionCall: &llmstream.FunctionCall{
			CallID:        b.CallID,
			Name:          b.Name,
			ServerName:    b.ServerName,
			ServerSide:    b.Type != blockToolUse,
			Arguments:     args,
			ArgumentsJSON: args.JSON(),
		},
	}
}

// blockFromContent fills a FinalizedBlock from a block of a complete message.
func blockFromContent(index int, c anthropic.ContentBlockUnion) FinalizedBlock {
	raw := c.RawJSON()
	doc := gjson.Parse(raw)

	b := FinalizedBlock{
		Index:      index,
		Type:       c.Type,
		Signature:  c.Signature,
		Data:       c.Data,
		CallID:     c.ID,
		Name:       c.Name,
		ServerName: doc.Get("server_name").String(),
		Input:      string(c.Input),
		Raw:        raw,
	}

	switch c.Type {
	case blockText:
		b.Text = c.Text
		b.Citations = citationsFromJSON(doc.Get("citations"))
	case blockThinking:
		b.Text = c.Thinking
	}
	return b
}
