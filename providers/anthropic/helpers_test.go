package anthropic

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	llmstream "github.com/haowjy/meridian-stream-go"
)

// Frame builders for the wire events used across tests.

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func messageStartFrame(id string, usage string) Frame {
	return Frame{Name: "message_start", Data: []byte(fmt.Sprintf(
		`{"type":"message_start","message":{"id":%s,"type":"message","role":"assistant","model":"claude-sonnet-4-5","content":[],"stop_reason":null,"stop_sequence":null,"usage":%s}}`,
		quote(id), usage))}
}

func blockStartFrame(index int, block string) Frame {
	return Frame{Name: "content_block_start", Data: []byte(fmt.Sprintf(
		`{"type":"content_block_start","index":%d,"content_block":%s}`, index, block))}
}

func textBlockStart(index int) Frame {
	return blockStartFrame(index, `{"type":"text","text":""}`)
}

func toolUseStart(index int, id, name string) Frame {
	return blockStartFrame(index, fmt.Sprintf(`{"type":"tool_use","id":%s,"name":%s,"input":{}}`, quote(id), quote(name)))
}

func deltaFrame(index int, delta string) Frame {
	return Frame{Name: "content_block_delta", Data: []byte(fmt.Sprintf(
		`{"type":"content_block_delta","index":%d,"delta":%s}`, index, delta))}
}

func textDelta(index int, text string) Frame {
	return deltaFrame(index, fmt.Sprintf(`{"type":"text_delta","text":%s}`, quote(text)))
}

func jsonDelta(index int, partial string) Frame {
	return deltaFrame(index, fmt.Sprintf(`{"type":"input_json_delta","partial_json":%s}`, quote(partial)))
}

func blockStopFrame(index int) Frame {
	return Frame{Name: "content_block_stop", Data: []byte(fmt.Sprintf(`{"type":"content_block_stop","index":%d}`, index))}
}

func messageDeltaFrame(stopReason string, usage string) Frame {
	return Frame{Name: "message_delta", Data: []byte(fmt.Sprintf(
		`{"type":"message_delta","delta":{"stop_reason":%s,"stop_sequence":null},"usage":%s}`, quote(stopReason), usage))}
}

func messageStopFrame() Frame {
	return Frame{Name: "message_stop", Data: []byte(`{"type":"message_stop"}`)}
}

func decode(t *testing.T, f Frame) Event {
	t.Helper()
	ev, ok, err := DecodeFrame(f)
	require.NoError(t, err)
	require.True(t, ok, "frame %s carries no event", f.Name)
	return ev
}

// applyAll feeds frames to agg and returns the non-empty updates.
func applyAll(t *testing.T, agg *Aggregator, frames ...Frame) []llmstream.Update {
	t.Helper()
	var updates []llmstream.Update
	for _, f := range frames {
		upd, err := agg.Apply(decode(t, f))
		require.NoError(t, err, "applying %s", f.Data)
		if !upd.IsEmpty() {
			updates = append(updates, upd)
		}
	}
	return updates
}

func completeChunks(updates []llmstream.Update) []llmstream.Chunk {
	var out []llmstream.Chunk
	for _, u := range updates {
		for _, c := range u.Chunks {
			if c.Complete {
				out = append(out, c)
			}
		}
	}
	return out
}

func newTestLogger() (*logrus.Logger, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log, hook
}
