package anthropic

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	llmstream "github.com/haowjy/meridian-stream-go"
)

// mapToolResult converts a *_tool_result block. The block arrives whole in
// its start header, so the raw JSON is all there is to map.
//
// Result content comes in three shapes:
//   - a string (mcp_tool_result)
//   - an array of items (web_search_tool_result, mcp_tool_result)
//   - a single result object with stdout/stderr/return_code and nested
//     content (code execution, web fetch), or an error object
func mapToolResult(b FinalizedBlock) llmstream.Content {
	raw := gjson.Parse(b.Raw)
	return llmstream.Content{
		Kind: llmstream.KindToolResult,
		ToolResult: &llmstream.ToolResult{
			CallID:  raw.Get("tool_use_id").String(),
			Type:    b.Type,
			Outputs: toolOutputs(raw),
		},
	}
}

func toolOutputs(raw gjson.Result) []llmstream.ToolOutput {
	content := raw.Get("content")

	if raw.Get("is_error").Bool() {
		return []llmstream.ToolOutput{errorOutput(contentText(content), "tool_error")}
	}

	switch {
	case content.Type == gjson.String:
		return []llmstream.ToolOutput{textOutput(content.String())}
	case content.IsArray():
		return outputItems(content)
	case content.IsObject():
		return resultObject(content)
	}
	return nil
}

func resultObject(obj gjson.Result) []llmstream.ToolOutput {
	typ := obj.Get("type").String()

	if strings.HasSuffix(typ, "_error") {
		code := obj.Get("error_code").String()
		msg := obj.Get("error_message").String()
		if msg == "" {
			msg = code
		}
		return []llmstream.ToolOutput{errorOutput(msg, code)}
	}

	if rc := obj.Get("return_code"); rc.Type == gjson.Number && rc.Int() != 0 {
		msg := obj.Get("stderr").String()
		if msg == "" {
			msg = obj.Get("stdout").String()
		}
		if msg == "" {
			msg = fmt.Sprintf("exited with status %d", rc.Int())
		}
		return []llmstream.ToolOutput{errorOutput(msg, strconv.FormatInt(rc.Int(), 10))}
	}

	var outputs []llmstream.ToolOutput
	if stdout := obj.Get("stdout").String(); stdout != "" {
		outputs = append(outputs, textOutput(stdout))
	}

	inner := obj.Get("content")
	switch {
	case inner.IsArray():
		outputs = append(outputs, outputItems(inner)...)
	case inner.IsObject():
		out := outputItem(inner)
		if out.URL == "" {
			out.URL = obj.Get("url").String()
		}
		outputs = append(outputs, out)
	case inner.Type == gjson.String:
		outputs = append(outputs, textOutput(inner.String()))
	}
	return outputs
}

func outputItems(arr gjson.Result) []llmstream.ToolOutput {
	var outputs []llmstream.ToolOutput
	arr.ForEach(func(_, item gjson.Result) bool {
		outputs = append(outputs, outputItem(item))
		return true
	})
	return outputs
}

func outputItem(item gjson.Result) llmstream.ToolOutput {
	switch item.Get("type").String() {
	case "text":
		return textOutput(item.Get("text").String())

	case "web_search_result":
		title := item.Get("title").String()
		return llmstream.ToolOutput{
			Kind:  llmstream.ToolOutputText,
			Text:  title,
			Title: title,
			URL:   item.Get("url").String(),
		}

	case "image", "document":
		return sourceOutput(item)
	}

	if id := item.Get("file_id").String(); id != "" {
		return llmstream.ToolOutput{Kind: llmstream.ToolOutputFile, FileID: id}
	}
	return textOutput(item.Raw)
}

// sourceOutput maps an image or document item by its source.
func sourceOutput(item gjson.Result) llmstream.ToolOutput {
	src := item.Get("source")
	out := llmstream.ToolOutput{
		Kind:     llmstream.ToolOutputFile,
		Title:    item.Get("title").String(),
		MimeType: src.Get("media_type").String(),
	}

	switch src.Get("type").String() {
	case "text":
		out.Kind = llmstream.ToolOutputText
		out.Text = src.Get("data").String()
	case "base64":
		out.Data = src.Get("data").String()
	case "url":
		out.URL = src.Get("url").String()
	case "file":
		out.FileID = src.Get("file_id").String()
	}
	return out
}

// contentText flattens error content to a message.
func contentText(content gjson.Result) string {
	if content.Type == gjson.String {
		return content.String()
	}
	if !content.IsArray() {
		return content.Raw
	}
	var parts []string
	content.ForEach(func(_, item gjson.Result) bool {
		if t := item.Get("text"); t.Exists() {
			parts = append(parts, t.String())
		}
		return true
	})
	return strings.Join(parts, "\n")
}

func textOutput(text string) llmstream.ToolOutput {
	return llmstream.ToolOutput{Kind: llmstream.ToolOutputText, Text: text}
}

func errorOutput(msg, code string) llmstream.ToolOutput {
	return llmstream.ToolOutput{Kind: llmstream.ToolOutputError, Message: msg, Code: code}
}
