package anthropic

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	llmstream "github.com/haowjy/meridian-stream-go"
)

// FinalizedBlock is a complete block, ready for MapBlock. It is filled either
// from a streamed slot at its stop event or from a block of a non-streaming
// message, so both paths share one mapping.
type FinalizedBlock struct {
	Index int
	Type  string

	// text / thinking
	Text      string
	Citations []llmstream.Citation
	Signature string

	// redacted_thinking
	Data string

	// tool use
	CallID     string
	Name       string
	ServerName string
	Input      string // complete JSON arguments; empty means none

	// Raw is the block JSON, used for tool results and unknown kinds.
	Raw string
}

// blockSlot is the open state of one streamed block.
type blockSlot struct {
	index int
	typ   string

	// raw is the start header. For unknown kinds it also tracks the deltas.
	raw   string
	known bool

	callID     string
	name       string
	serverName string
	data       string
	input      string // input sent with the start header

	text      strings.Builder
	fragments strings.Builder
	signature strings.Builder
	citations []llmstream.Citation
}

// newSlot opens a slot from a content_block_start header, carrying over
// whatever the header already holds.
func newSlot(ev Event) *blockSlot {
	b := ev.Block
	s := &blockSlot{
		index:  ev.Index,
		typ:    b.Type,
		callID: b.ID,
		name:   b.Name,
		data:   b.Data,
		raw:    ev.BlockRaw,
		known:  knownBlock(b.Type),
	}

	raw := gjson.Parse(ev.BlockRaw)
	s.serverName = raw.Get("server_name").String()
	if in := raw.Get("input"); in.Exists() {
		s.input = in.Raw
	}

	switch b.Type {
	case "text":
		s.text.WriteString(b.Text)
		s.citations = citationsFromJSON(raw.Get("citations"))
	case "thinking":
		s.text.WriteString(b.Thinking)
		s.signature.WriteString(b.Signature)
	}
	return s
}

// appendFragment adds a raw argument fragment. Fragments are never parsed
// before the block is finalized.
func (s *blockSlot) appendFragment(partial string) {
	s.fragments.WriteString(partial)
}

// arguments returns the complete argument document: the concatenated
// fragments, or the header input when no fragment arrived.
func (s *blockSlot) arguments() string {
	if s.fragments.Len() > 0 {
		return s.fragments.String()
	}
	return s.input
}

// extend appends value to the string field of an unknown block's raw JSON.
func (s *blockSlot) extend(field, value string) {
	if s.known {
		return
	}
	s.raw, _ = sjson.Set(s.raw, field, gjson.Get(s.raw, field).String()+value)
}

// appendRaw appends a JSON value to the array at field of an unknown
// block's raw JSON.
func (s *blockSlot) appendRaw(field, value string) {
	if s.known || value == "" {
		return
	}
	if gjson.Get(s.raw, field).IsArray() {
		s.raw, _ = sjson.SetRaw(s.raw, field+".-1", value)
		return
	}
	s.raw, _ = sjson.SetRaw(s.raw, field, "["+value+"]")
}

// rawBlock is the block as a complete message would carry it: the header
// with every delta folded back in.
func (s *blockSlot) rawBlock() string {
	if s.known || s.fragments.Len() == 0 {
		return s.raw
	}
	frag := s.fragments.String()
	var raw string
	if gjson.Valid(frag) {
		raw, _ = sjson.SetRaw(s.raw, "input", frag)
	} else {
		raw, _ = sjson.Set(s.raw, "input", frag)
	}
	return raw
}

func (s *blockSlot) finalize() FinalizedBlock {
	return FinalizedBlock{
		Index:      s.index,
		Type:       s.typ,
		Text:       s.text.String(),
		Citations:  s.citations,
		Signature:  s.signature.String(),
		Data:       s.data,
		CallID:     s.callID,
		Name:       s.name,
		ServerName: s.serverName,
		Input:      s.arguments(),
		Raw:        s.rawBlock(),
	}
}
