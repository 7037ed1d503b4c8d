package lorem

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strings"
	"time"

	loremgen "github.com/bozaro/golorem"
	"github.com/google/uuid"
	"github.com/tidwall/sjson"

	llmstream "github.com/haowjy/meridian-stream-go"
	"github.com/haowjy/meridian-stream-go/providers/anthropic"
)

// Script describes the synthetic response a Source plays.
type Script struct {
	Model       string
	InputTokens int

	// Words is the number of words in the text block (and in the thinking
	// block when Thinking is set).
	Words    int
	Thinking bool

	// Tools are called once each, with their argument fragments interleaved
	// across blocks.
	Tools []llmstream.Tool

	// FragmentSize is the length of each argument fragment. Defaults to 3.
	FragmentSize int

	// Cutoff ends the response with max_tokens after the text block.
	Cutoff bool
}

// Source is an anthropic.EventSource that plays a generated event script,
// optionally pacing frames by Delay.
type Source struct {
	frames []anthropic.Frame
	pos    int
	delay  time.Duration
}

// NewSource generates the frames for script.
func NewSource(gen *loremgen.Lorem, script Script, delay time.Duration) *Source {
	b := &scriptBuilder{gen: gen}
	b.build(script)
	return &Source{frames: b.frames, delay: delay}
}

// Next returns the next frame, waiting Delay between frames.
func (s *Source) Next(ctx context.Context) (anthropic.Frame, error) {
	if err := ctx.Err(); err != nil {
		return anthropic.Frame{}, err
	}
	if s.pos >= len(s.frames) {
		return anthropic.Frame{}, io.EOF
	}
	if s.delay > 0 && s.pos > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return anthropic.Frame{}, ctx.Err()
		}
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

// Close implements anthropic.EventSource.
func (s *Source) Close() error {
	return nil
}

// Frames returns the whole script.
func (s *Source) Frames() []anthropic.Frame {
	return s.frames
}

// WriteTranscript writes the script as a text/event-stream body.
func (s *Source) WriteTranscript(w io.Writer) error {
	for _, f := range s.frames {
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", f.Name, f.Data); err != nil {
			return err
		}
	}
	return nil
}

type scriptBuilder struct {
	gen      *loremgen.Lorem
	frames   []anthropic.Frame
	index    int
	output   int
	searches int
}

func (b *scriptBuilder) build(script Script) {
	size := script.FragmentSize
	if size <= 0 {
		size = 3
	}

	b.messageStart(script)

	if script.Thinking {
		b.thinkingBlock(script.Words)
	}
	b.textBlock(script.Words)

	stopReason := "end_turn"
	switch {
	case script.Cutoff:
		stopReason = "max_tokens"
	case len(script.Tools) > 0:
		if b.toolBlocks(script.Tools, size) {
			stopReason = "tool_use"
		}
	}

	delta := `{"type":"message_delta","delta":{"stop_sequence":null}}`
	delta = set(delta, "delta.stop_reason", stopReason)
	delta = set(delta, "usage.output_tokens", b.output)
	if b.searches > 0 {
		delta = set(delta, "usage.server_tool_use.web_search_requests", b.searches)
	}
	b.emit("message_delta", delta)
	b.emit("message_stop", `{"type":"message_stop"}`)
}

func (b *scriptBuilder) messageStart(script Script) {
	msg := `{"type":"message_start","message":{"type":"message","role":"assistant","content":[],"stop_reason":null,"stop_sequence":null}}`
	msg = set(msg, "message.id", "msg_lorem_"+strings.ReplaceAll(uuid.NewString(), "-", ""))
	msg = set(msg, "message.model", script.Model)
	msg = set(msg, "message.usage.input_tokens", script.InputTokens)
	msg = set(msg, "message.usage.output_tokens", 0)
	b.emit("message_start", msg)
}

func (b *scriptBuilder) textBlock(words int) {
	idx := b.next()
	b.emit("content_block_start", set(set(`{"type":"content_block_start"}`, "index", idx), "content_block", map[string]any{"type": "text", "text": ""}))
	for i, w := range b.words(words) {
		if i > 0 {
			w = " " + w
		}
		b.delta(idx, "text_delta", "text", w)
	}
	b.stop(idx)
}

func (b *scriptBuilder) thinkingBlock(words int) {
	idx := b.next()
	b.emit("content_block_start", set(set(`{"type":"content_block_start"}`, "index", idx), "content_block", map[string]any{"type": "thinking", "thinking": "", "signature": ""}))
	for i, w := range b.words(words) {
		if i > 0 {
			w = " " + w
		}
		b.delta(idx, "thinking_delta", "thinking", w)
	}
	b.delta(idx, "signature_delta", "signature", "sig_lorem_"+uuid.NewString())
	b.stop(idx)
}

// toolBlocks opens one block per tool, interleaves their argument
// fragments round-robin, then closes them in reverse order. Web searches
// are followed by a result block each. It reports whether any tool is
// executed by the client.
func (b *scriptBuilder) toolBlocks(tools []llmstream.Tool, size int) bool {
	type pending struct {
		index     int
		fragments []string
	}

	var open []*pending
	var searches []string
	clientSide := false
	for _, tool := range tools {
		idx := b.next()
		blockType, name, id := "tool_use", toolName(tool), "toolu_lorem_"+shortID()
		if tool.Type == llmstream.ToolTypeWebSearch {
			blockType, id = "server_tool_use", "srvtoolu_lorem_"+shortID()
			searches = append(searches, id)
		} else {
			clientSide = true
		}

		start := set(`{"type":"content_block_start"}`, "index", idx)
		start = set(start, "content_block.type", blockType)
		start = set(start, "content_block.id", id)
		start = set(start, "content_block.name", name)
		start, _ = sjson.SetRaw(start, "content_block.input", "{}")
		b.emit("content_block_start", start)

		open = append(open, &pending{index: idx, fragments: chunk(b.arguments(tool), size)})
		b.output += 20
	}

	for remaining := true; remaining; {
		remaining = false
		for _, p := range open {
			if len(p.fragments) == 0 {
				continue
			}
			b.delta(p.index, "input_json_delta", "partial_json", p.fragments[0])
			p.fragments = p.fragments[1:]
			remaining = true
		}
	}

	for i := len(open) - 1; i >= 0; i-- {
		b.stop(open[i].index)
	}

	for _, id := range searches {
		b.searchResult(id)
	}
	b.searches += len(searches)
	return clientSide
}

// searchResult emits a complete web_search_tool_result block for call id.
func (b *scriptBuilder) searchResult(id string) {
	idx := b.next()
	word := b.gen.Word(4, 10)
	result := map[string]any{
		"type":              "web_search_result",
		"title":             b.gen.Sentence(2, 5),
		"url":               "https://example.com/" + word,
		"encrypted_content": "enc_lorem_" + shortID(),
		"page_age":          nil,
	}
	start := set(`{"type":"content_block_start"}`, "index", idx)
	start = set(start, "content_block", map[string]any{
		"type":        "web_search_tool_result",
		"tool_use_id": id,
		"content":     []any{result},
	})
	b.emit("content_block_start", start)
	b.stop(idx)
}

// toolName is the name the model calls the tool by.
func toolName(tool llmstream.Tool) string {
	switch tool.Type {
	case llmstream.ToolTypeWebSearch:
		return "web_search"
	case llmstream.ToolTypeTextEditor:
		return "str_replace_based_edit_tool"
	case llmstream.ToolTypeBash:
		return "bash"
	}
	return tool.Name
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// arguments builds a JSON object for the tool's schema properties, in
// sorted property order, with values of the declared types.
func (b *scriptBuilder) arguments(tool llmstream.Tool) string {
	switch tool.Type {
	case llmstream.ToolTypeWebSearch:
		return set("{}", "query", b.gen.Sentence(2, 4))
	case llmstream.ToolTypeTextEditor:
		return set(set("{}", "command", "view"), "path", "/tmp/"+b.gen.Word(3, 8)+".txt")
	case llmstream.ToolTypeBash:
		return set("{}", "command", "echo "+b.gen.Word(3, 8))
	}

	props, _ := tool.InputSchema["properties"].(map[string]any)
	if len(props) == 0 {
		return set(set("{}", "query", b.gen.Sentence(2, 4)), "max_results", 10)
	}

	doc := "{}"
	for _, name := range sortedNames(props) {
		spec, _ := props[name].(map[string]any)
		typ, _ := spec["type"].(string)
		path := escapePath(name)
		switch typ {
		case "integer":
			doc = set(doc, path, rand.Intn(100))
		case "number":
			doc = set(doc, path, float64(rand.Intn(1000))/10)
		case "boolean":
			doc = set(doc, path, rand.Intn(2) == 1)
		case "array":
			doc = set(doc, path, []string{b.gen.Word(3, 8), b.gen.Word(3, 8)})
		default:
			doc = set(doc, path, b.gen.Sentence(2, 5))
		}
	}
	return doc
}

func (b *scriptBuilder) words(n int) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = b.gen.Word(3, 10)
	}
	b.output += n
	return words
}

func (b *scriptBuilder) delta(idx int, typ, field, value string) {
	d := set(`{"type":"content_block_delta"}`, "index", idx)
	d = set(d, "delta.type", typ)
	d = set(d, "delta."+field, value)
	b.emit("content_block_delta", d)
}

func (b *scriptBuilder) stop(idx int) {
	b.emit("content_block_stop", set(`{"type":"content_block_stop"}`, "index", idx))
}

func (b *scriptBuilder) next() int {
	idx := b.index
	b.index++
	return idx
}

func (b *scriptBuilder) emit(name, data string) {
	b.frames = append(b.frames, anthropic.Frame{Name: name, Data: []byte(data)})
}

// set is sjson.Set for paths this package controls; those cannot fail.
func set(doc, path string, value any) string {
	out, err := sjson.Set(doc, path, value)
	if err != nil {
		panic(fmt.Sprintf("lorem: set %s: %v", path, err))
	}
	return out
}

func escapePath(key string) string {
	return strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`).Replace(key)
}

// chunk splits s into fragments of size runes.
func chunk(s string, size int) []string {
	runes := []rune(s)
	var out []string
	for len(runes) > size {
		out = append(out, string(runes[:size]))
		runes = runes[size:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

func sortedNames(m map[string]any) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
