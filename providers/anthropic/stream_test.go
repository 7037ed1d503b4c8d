package anthropic

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmstream "github.com/haowjy/meridian-stream-go"
)

func openTranscript(t *testing.T, name string) EventSource {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return NewReaderSource(f)
}

// countingSource records how many frames have been pulled.
type countingSource struct {
	EventSource
	pulled int
	closed bool
}

func (s *countingSource) Next(ctx context.Context) (Frame, error) {
	f, err := s.EventSource.Next(ctx)
	if err == nil {
		s.pulled++
	}
	return f, err
}

func (s *countingSource) Close() error {
	s.closed = true
	return s.EventSource.Close()
}

// blockingSource replays frames and then waits for ctx.
type blockingSource struct {
	frames []Frame
	pos    int
}

func (s *blockingSource) Next(ctx context.Context) (Frame, error) {
	if s.pos < len(s.frames) {
		s.pos++
		return s.frames[s.pos-1], nil
	}
	<-ctx.Done()
	return Frame{}, ctx.Err()
}

func (s *blockingSource) Close() error { return nil }

func TestStream_TextTranscript(t *testing.T) {
	s := NewStream(openTranscript(t, "text_response.sse"))
	defer s.Close()

	var text strings.Builder
	for s.Next(context.Background()) {
		for _, c := range s.Current().Chunks {
			if !c.Complete && c.Content.Kind == llmstream.KindText {
				text.WriteString(c.Content.Text.Text)
			}
		}
	}
	require.NoError(t, s.Err())

	resp := s.Response()
	require.NotNil(t, resp)
	assert.Equal(t, "Hello!", text.String())
	assert.Equal(t, "Hello!", resp.Text())
	assert.Equal(t, "msg_01XFDUDYJgAACzvnptvVoYEL", resp.ResponseID)
	assert.Equal(t, "claude-haiku-4-5-20251001", resp.Model)
	assert.Equal(t, llmstream.UsageReport{Input: 25, Output: 16, Total: 41}, resp.Usage)
}

func TestAggregate_ToolUseTranscript(t *testing.T) {
	resp, err := Aggregate(context.Background(), openTranscript(t, "tool_use.sse"))
	require.NoError(t, err)

	require.Len(t, resp.Content, 2)
	assert.Equal(t, "Okay, let's check the weather for San Francisco, CA:", resp.Content[0].Text.Text)

	calls := resp.FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "toolu_01T1x1fJ34qAmk2tNTrN7Up6", calls[0].CallID)
	assert.Equal(t, "get_weather", calls[0].Name)
	assert.Equal(t, `{"location":"San Francisco, CA","unit":"fahrenheit"}`, calls[0].ArgumentsJSON)
	assert.Equal(t, llmstream.StopReasonToolCalls, *resp.StopReason)
	assert.Equal(t, int64(91), resp.Usage.Output)
}

func TestAggregate_ErrorEvent(t *testing.T) {
	resp, err := Aggregate(context.Background(), openTranscript(t, "overloaded.sse"))
	assert.Nil(t, resp)

	var pe *llmstream.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "overloaded_error", pe.Type)
	assert.True(t, llmstream.IsRetryable(err))
}

func TestStream_ErrorDiscardsPartialBlocks(t *testing.T) {
	s := NewStream(openTranscript(t, "overloaded.sse"))

	var complete int
	for s.Next(context.Background()) {
		complete += len(completeChunks([]llmstream.Update{s.Current()}))
	}
	require.Error(t, s.Err())
	assert.Zero(t, complete, "the open text block is never surfaced as finished")
	assert.Nil(t, s.Response())
}

func TestAggregate_TruncatedTranscript(t *testing.T) {
	resp, err := Aggregate(context.Background(), openTranscript(t, "truncated.sse"))
	require.NoError(t, err)

	assert.Equal(t, "Cut off", resp.Text())
	assert.Nil(t, resp.StopReason)
}

func TestAggregate_EmptyStream(t *testing.T) {
	_, err := Aggregate(context.Background(), NewReaderSource(strings.NewReader("")))
	require.Error(t, err)
	assert.True(t, llmstream.IsFramingError(err))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestStream_FramingErrorEndsUpdates(t *testing.T) {
	src := &countingSource{EventSource: NewFrameSource(
		messageStartFrame("msg_f", `{"input_tokens":1}`),
		textDelta(0, "orphan"),
		messageStopFrame(),
	)}
	s := NewStream(src)

	var updates int
	for s.Next(context.Background()) {
		updates++
	}
	assert.Equal(t, 1, updates)
	assert.True(t, llmstream.IsFramingError(s.Err()))
	assert.Nil(t, s.Response())
	assert.True(t, src.closed)
	assert.Equal(t, 2, src.pulled, "nothing is read after the failure")
	assert.False(t, s.Next(context.Background()))
}

func TestStream_DoesNotReadAhead(t *testing.T) {
	src := &countingSource{EventSource: NewFrameSource(
		messageStartFrame("msg_p", `{"input_tokens":1}`),
		textBlockStart(0),
		textDelta(0, "a"),
		textDelta(0, "b"),
		blockStopFrame(0),
		messageStopFrame(),
	)}
	s := NewStream(src)
	ctx := context.Background()

	require.True(t, s.Next(ctx))
	assert.Equal(t, 1, src.pulled)

	// block start emits nothing, so the stream pulls through it
	require.True(t, s.Next(ctx))
	assert.Equal(t, 3, src.pulled)

	require.True(t, s.Next(ctx))
	assert.Equal(t, 4, src.pulled)
}

func TestStream_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &blockingSource{frames: []Frame{
		messageStartFrame("msg_c", `{"input_tokens":1}`),
		textBlockStart(0),
		textDelta(0, "never finished"),
	}}
	s := NewStream(src)

	require.True(t, s.Next(ctx))
	require.True(t, s.Next(ctx))
	cancel()

	assert.False(t, s.Next(ctx))
	assert.True(t, errors.Is(s.Err(), context.Canceled))
	assert.Nil(t, s.Response())
}

func TestRunStream(t *testing.T) {
	events := RunStream(context.Background(), NewStream(openTranscript(t, "tool_use.sse")))

	var updates []llmstream.Update
	var final *llmstream.Response
	for ev := range events {
		require.Nil(t, final, "nothing follows the response")
		require.NoError(t, ev.Error)
		if ev.Update != nil {
			updates = append(updates, *ev.Update)
		}
		if ev.Response != nil {
			final = ev.Response
		}
	}

	require.NotNil(t, final)
	assert.NotEmpty(t, updates)
	assert.Len(t, completeChunks(updates), 2)
	assert.Len(t, final.FunctionCalls(), 1)
}

func TestRunStream_ErrorIsLast(t *testing.T) {
	events := RunStream(context.Background(), NewStream(openTranscript(t, "overloaded.sse")))

	var last llmstream.StreamEvent
	for ev := range events {
		last = ev
	}
	require.Error(t, last.Error)
	assert.Nil(t, last.Response)
	assert.True(t, llmstream.IsRetryable(last.Error))
}

func TestRunStream_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &blockingSource{frames: []Frame{
		messageStartFrame("msg_rc", `{"input_tokens":1}`),
		textBlockStart(0),
		textDelta(0, "stuck"),
	}}
	events := RunStream(ctx, NewStream(src))

	first := <-events
	require.NotNil(t, first.Update)
	cancel()

	// the channel is closed without a response
	for ev := range events {
		assert.Nil(t, ev.Response)
	}
}

func TestStream_Updates(t *testing.T) {
	s := NewStream(openTranscript(t, "text_response.sse"))
	defer s.Close()
	ctx := context.Background()

	var first []llmstream.Update
	for upd := range s.Updates(ctx) {
		first = append(first, upd)
		if len(first) == 2 {
			break
		}
	}
	require.Len(t, first, 2)
	require.NotNil(t, first[0].ResponseID)
	assert.Nil(t, s.Response(), "stopping the range does not drain the stream")

	var rest []llmstream.Update
	for upd := range s.Updates(ctx) {
		rest = append(rest, upd)
	}
	require.NoError(t, s.Err())
	assert.NotEmpty(t, rest)
	require.NotNil(t, s.Response())
	assert.Equal(t, "Hello!", s.Response().Text())
}
