package anthropic

import (
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	llmstream "github.com/haowjy/meridian-stream-go"
)

// Option configures an Aggregator or Stream.
type Option func(*options)

type options struct {
	log logrus.FieldLogger
}

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

func buildOptions(opts []Option) options {
	o := options{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Aggregator is the state machine that folds the events of one streamed
// response into incremental updates and a final Response.
//
// Apply is a non-reentrant step function: call it once per event, in
// arrival order, from a single goroutine. An Aggregator serves exactly one
// response and is not safe for concurrent use.
type Aggregator struct {
	log logrus.FieldLogger

	slots    map[int]*blockSlot
	finished map[int]llmstream.Content

	started      bool
	id           string
	model        string
	role         string
	stopReason   string
	stopSequence *string
	usage        llmstream.Usage

	sealed   bool
	aborted  bool
	response *llmstream.Response
}

// NewAggregator creates the state machine for one response.
func NewAggregator(opts ...Option) *Aggregator {
	o := buildOptions(opts)
	return &Aggregator{
		log:      o.log,
		slots:    make(map[int]*blockSlot),
		finished: make(map[int]llmstream.Content),
	}
}

// Apply folds one event into the state and returns what it emits.
// A *llmstream.FramingError is fatal: the Aggregator is aborted and every
// later call fails.
func (a *Aggregator) Apply(ev Event) (llmstream.Update, error) {
	if a.aborted {
		return llmstream.Update{}, a.framing(ev, "response was aborted")
	}
	if a.sealed {
		return llmstream.Update{}, a.fail(a.framing(ev, "event after message_stop"))
	}

	switch ev.Kind {
	case EventMessageStart:
		return a.messageStart(ev), nil
	case EventContentBlockStart:
		return a.blockStart(ev)
	case EventContentBlockDelta:
		return a.blockDelta(ev)
	case EventContentBlockStop:
		return a.blockStop(ev)
	case EventMessageDelta:
		return a.messageDelta(ev), nil
	case EventMessageStop:
		return a.messageStop(), nil
	default:
		a.log.WithField("event", ev.Kind).Debug("Ignoring unknown event")
		return llmstream.Update{}, nil
	}
}

func (a *Aggregator) messageStart(ev Event) llmstream.Update {
	a.usage.Add(ev.Usage)

	if a.started {
		a.log.WithFields(logrus.Fields{
			"response_id": a.id,
			"usage":       ev.Usage,
		}).Debug("Repeated message_start, adding usage only")
		return llmstream.Update{}
	}

	a.started = true
	a.id = ev.Message.ID
	a.model = string(ev.Message.Model)
	a.role = string(ev.Message.Role)

	id, model, role := a.id, a.model, a.role
	return llmstream.Update{ResponseID: &id, Model: &model, Role: &role}
}

func (a *Aggregator) blockStart(ev Event) (llmstream.Update, error) {
	if ev.Index < 0 {
		return llmstream.Update{}, a.fail(a.framing(ev, "negative block index"))
	}
	if _, open := a.slots[ev.Index]; open {
		return llmstream.Update{}, a.fail(a.framing(ev, "block index already open"))
	}
	if _, done := a.finished[ev.Index]; done {
		return llmstream.Update{}, a.fail(a.framing(ev, "block index already finished"))
	}

	a.slots[ev.Index] = newSlot(ev)
	return llmstream.Update{}, nil
}

func (a *Aggregator) blockDelta(ev Event) (llmstream.Update, error) {
	if ev.Index < 0 {
		return llmstream.Update{}, a.fail(a.framing(ev, "negative block index"))
	}
	slot, ok := a.slots[ev.Index]
	if !ok {
		return llmstream.Update{}, a.fail(a.framing(ev, "no open block at index"))
	}

	d := ev.Delta
	switch d.Type {
	case deltaText:
		slot.text.WriteString(d.Text)
		slot.extend("text", d.Text)
		return chunkUpdate(ev.Index, false, llmstream.NewTextContent(d.Text)), nil

	case deltaThinking:
		slot.text.WriteString(d.Thinking)
		slot.extend("thinking", d.Thinking)
		return chunkUpdate(ev.Index, false, llmstream.NewReasoningContent(d.Thinking, "")), nil

	case deltaInputJSON:
		slot.appendFragment(d.PartialJSON)

	case deltaSignature:
		slot.signature.WriteString(d.Signature)
		slot.extend("signature", d.Signature)

	case deltaCitations:
		citation := gjson.Get(ev.DeltaRaw, "citation")
		slot.citations = append(slot.citations, citationFromJSON(citation))
		slot.appendRaw("citations", citation.Raw)

	default:
		a.log.WithFields(logrus.Fields{
			"index":      ev.Index,
			"delta_type": d.Type,
		}).Debug("Unsupported delta type")
		return chunkUpdate(ev.Index, false, llmstream.NewUnsupportedContent(d.Type, ev.DeltaRaw)), nil
	}
	return llmstream.Update{}, nil
}

func (a *Aggregator) blockStop(ev Event) (llmstream.Update, error) {
	if ev.Index < 0 {
		return llmstream.Update{}, a.fail(a.framing(ev, "negative block index"))
	}
	slot, ok := a.slots[ev.Index]
	if !ok {
		return llmstream.Update{}, a.fail(a.framing(ev, "no open block at index"))
	}

	content := a.finalize(slot)
	return chunkUpdate(ev.Index, true, content), nil
}

// finalize maps a slot and moves it from open to finished.
func (a *Aggregator) finalize(slot *blockSlot) llmstream.Content {
	content := MapBlock(slot.finalize())
	if content.Kind == llmstream.KindError {
		a.log.WithFields(logrus.Fields{
			"index":   slot.index,
			"call_id": slot.callID,
			"tool":    slot.name,
		}).WithError(content.Error.Cause).Warn("Tool call arguments did not decode")
	}

	delete(a.slots, slot.index)
	a.finished[slot.index] = content
	return content
}

func (a *Aggregator) messageDelta(ev Event) llmstream.Update {
	if ev.StopReason != "" {
		a.stopReason = ev.StopReason
	}
	a.stopSequence = ev.StopSequence
	a.usage.Add(ev.Usage)

	return chunkUpdate(llmstream.MessageLevel, false, llmstream.NewUsageContent(a.usage.Report()))
}

func (a *Aggregator) messageStop() llmstream.Update {
	var upd llmstream.Update
	for _, index := range sortedKeys(a.slots) {
		slot := a.slots[index]
		a.log.WithFields(logrus.Fields{
			"index": index,
			"type":  slot.typ,
		}).Warn("Block still open at message_stop, finalizing")
		upd.Chunks = append(upd.Chunks, llmstream.Chunk{
			BlockIndex: index,
			Complete:   true,
			Content:    a.finalize(slot),
		})
	}

	a.seal()
	return upd
}

func (a *Aggregator) seal() {
	content := make([]llmstream.Content, 0, len(a.finished))
	for _, index := range sortedKeys(a.finished) {
		content = append(content, a.finished[index])
	}

	a.response = &llmstream.Response{
		ResponseID:    a.id,
		Model:         a.model,
		Role:          a.role,
		StopReason:    mapStopReason(a.stopReason),
		RawStopReason: a.stopReason,
		StopSequence:  a.stopSequence,
		Content:       content,
		Usage:         a.usage.Report(),
	}
	a.sealed = true
}

// Finish seals a stream that ended without message_stop, finalizing any
// open blocks as message_stop would. It returns false if no message was
// started, in which case there is nothing to finish.
func (a *Aggregator) Finish() (llmstream.Update, bool) {
	if a.sealed || a.aborted {
		return llmstream.Update{}, a.sealed
	}
	if !a.started {
		return llmstream.Update{}, false
	}
	a.log.WithField("response_id", a.id).Warn("Stream ended without message_stop")
	return a.messageStop(), true
}

// Abort discards all open blocks without emitting them. Used on
// cancellation and fatal errors; Response returns nil afterwards.
func (a *Aggregator) Abort() {
	if a.aborted {
		return
	}
	if len(a.slots) > 0 {
		a.log.WithField("open_blocks", len(a.slots)).Debug("Discarding open blocks")
	}
	a.slots = make(map[int]*blockSlot)
	a.aborted = true
	a.response = nil
}

// Done reports whether message_stop has been applied.
func (a *Aggregator) Done() bool {
	return a.sealed
}

// Usage returns the cumulative usage so far.
func (a *Aggregator) Usage() llmstream.UsageReport {
	return a.usage.Report()
}

// Response returns the aggregated response once Done, otherwise nil.
func (a *Aggregator) Response() *llmstream.Response {
	return a.response
}

func (a *Aggregator) framing(ev Event, reason string) *llmstream.FramingError {
	return &llmstream.FramingError{Event: string(ev.Kind), Index: ev.Index, Reason: reason}
}

func (a *Aggregator) fail(err *llmstream.FramingError) error {
	a.log.WithFields(logrus.Fields{
		"event": err.Event,
		"index": err.Index,
	}).Debug(err.Reason)
	a.Abort()
	return err
}

func chunkUpdate(index int, complete bool, content llmstream.Content) llmstream.Update {
	return llmstream.Update{Chunks: []llmstream.Chunk{{BlockIndex: index, Complete: complete, Content: content}}}
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
