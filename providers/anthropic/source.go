package anthropic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
)

// Frame is one decoded (event name, payload) pair off the wire.
type Frame struct {
	Name string
	Data []byte
}

// EventSource yields frames in arrival order.
//
// Next blocks until the next frame is available and returns io.EOF once the
// stream has ended cleanly. Implementations must not read ahead: one call to
// Next consumes at most one frame from the underlying transport.
type EventSource interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// decoderSource adapts the SDK's SSE decoder.
type decoderSource struct {
	dec ssestream.Decoder
}

// NewDecoderSource wraps an SSE decoder.
func NewDecoderSource(dec ssestream.Decoder) EventSource {
	return &decoderSource{dec: dec}
}

// NewResponseSource reads frames from an HTTP response carrying an event stream.
func NewResponseSource(res *http.Response) (EventSource, error) {
	dec := ssestream.NewDecoder(res)
	if dec == nil {
		return nil, errors.New("anthropic: response has no body")
	}
	return &decoderSource{dec: dec}, nil
}

// NewReaderSource reads frames from a raw text/event-stream body, such as a
// recorded transcript.
func NewReaderSource(r io.Reader) EventSource {
	rc, ok := r.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(r)
	}
	res := &http.Response{
		Header: http.Header{"Content-Type": []string{"text/event-stream"}},
		Body:   rc,
	}
	return &decoderSource{dec: ssestream.NewDecoder(res)}
}

func (s *decoderSource) Next(ctx context.Context) (Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		if !s.dec.Next() {
			if err := s.dec.Err(); err != nil {
				return Frame{}, fmt.Errorf("read event stream: %w", err)
			}
			return Frame{}, io.EOF
		}
		evt := s.dec.Event()
		// Consecutive blank lines dispatch empty events.
		if evt.Type == "" && len(evt.Data) == 0 {
			continue
		}
		return Frame{Name: evt.Type, Data: evt.Data}, nil
	}
}

func (s *decoderSource) Close() error {
	return s.dec.Close()
}

// sdkStreamSource adapts a stream opened with Messages.NewStreaming.
// The SDK has already dropped ping frames and turned error frames into
// stream errors.
type sdkStreamSource struct {
	stream *ssestream.Stream[anthropic.MessageStreamEventUnion]
}

// NewSDKStreamSource wraps an SDK message stream.
func NewSDKStreamSource(stream *ssestream.Stream[anthropic.MessageStreamEventUnion]) EventSource {
	return &sdkStreamSource{stream: stream}
}

func (s *sdkStreamSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if !s.stream.Next() {
		if err := s.stream.Err(); err != nil {
			return Frame{}, streamErr(err)
		}
		return Frame{}, io.EOF
	}
	ev := s.stream.Current()
	return Frame{Name: ev.Type, Data: []byte(ev.RawJSON())}, nil
}

// sdkErrorPrefix is how the SDK reports an in-stream error frame; the
// payload follows it verbatim.
const sdkErrorPrefix = "received error while streaming: "

func streamErr(err error) error {
	if msg := err.Error(); strings.HasPrefix(msg, sdkErrorPrefix) {
		return streamError([]byte(strings.TrimPrefix(msg, sdkErrorPrefix)))
	}
	return mapError(err)
}

func (s *sdkStreamSource) Close() error {
	return s.stream.Close()
}

// sliceSource replays frames held in memory.
type sliceSource struct {
	frames []Frame
	pos    int
}

// NewFrameSource replays the given frames in order.
func NewFrameSource(frames ...Frame) EventSource {
	return &sliceSource{frames: frames}
}

func (s *sliceSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.pos >= len(s.frames) {
		return Frame{}, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *sliceSource) Close() error {
	return nil
}
