package anthropic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/sirupsen/logrus"

	llmstream "github.com/haowjy/meridian-stream-go"
)

// Stream drives an Aggregator from an EventSource, one frame per step.
// It never reads ahead: a frame is pulled only when Next is called.
//
//	s := anthropic.NewStream(src)
//	defer s.Close()
//	for s.Next(ctx) {
//		render(s.Current())
//	}
//	if err := s.Err(); err != nil {
//		...
//	}
//	resp := s.Response()
type Stream struct {
	src EventSource
	agg *Aggregator
	log logrus.FieldLogger

	cur  llmstream.Update
	err  error
	done bool
}

// NewStream creates a Stream over src with a fresh Aggregator.
func NewStream(src EventSource, opts ...Option) *Stream {
	o := buildOptions(opts)
	return &Stream{
		src: src,
		agg: NewAggregator(opts...),
		log: o.log,
	}
}

// Next advances to the next non-empty update. It returns false when the
// response is complete or on error; check Err to tell them apart.
func (s *Stream) Next(ctx context.Context) bool {
	if s.done || s.err != nil {
		return false
	}

	for {
		if err := ctx.Err(); err != nil {
			return s.fail(err)
		}

		frame, err := s.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return s.endOfStream()
		}
		if err != nil {
			return s.fail(err)
		}

		ev, ok, err := DecodeFrame(frame)
		if err != nil {
			return s.fail(err)
		}
		if !ok {
			s.log.WithField("event", frame.Name).Debug("Skipping frame")
			continue
		}

		upd, err := s.agg.Apply(ev)
		if err != nil {
			return s.fail(err)
		}
		if s.agg.Done() {
			s.done = true
		}
		if upd.IsEmpty() {
			if s.done {
				return false
			}
			continue
		}
		s.cur = upd
		return true
	}
}

// endOfStream handles a source that ran dry. A started response is sealed
// as if message_stop had arrived; an empty stream is an error.
func (s *Stream) endOfStream() bool {
	upd, ok := s.agg.Finish()
	if !ok {
		return s.fail(&llmstream.FramingError{
			Event:  "eof",
			Index:  llmstream.MessageLevel,
			Reason: "stream ended before message_start",
			Err:    io.ErrUnexpectedEOF,
		})
	}
	s.done = true
	if upd.IsEmpty() {
		return false
	}
	s.cur = upd
	return true
}

// fail records err, discards open blocks and releases the source.
func (s *Stream) fail(err error) bool {
	s.err = err
	s.agg.Abort()
	if cerr := s.src.Close(); cerr != nil {
		s.log.WithError(cerr).Debug("Closing event source")
	}
	return false
}

// Current returns the update produced by the last successful Next.
func (s *Stream) Current() llmstream.Update {
	return s.cur
}

// Updates yields the remaining updates in order. Stopping the range early
// leaves the stream where it was; check Err after the loop.
//
//	for upd := range s.Updates(ctx) {
//		render(upd)
//	}
func (s *Stream) Updates(ctx context.Context) iter.Seq[llmstream.Update] {
	return func(yield func(llmstream.Update) bool) {
		for s.Next(ctx) {
			if !yield(s.cur) {
				return
			}
		}
	}
}

// Err returns the error that ended the stream, if any.
func (s *Stream) Err() error {
	return s.err
}

// Response returns the aggregated response once the stream is complete.
func (s *Stream) Response() *llmstream.Response {
	if s.err != nil {
		return nil
	}
	return s.agg.Response()
}

// Close releases the event source.
func (s *Stream) Close() error {
	return s.src.Close()
}

// Aggregate drains src and returns the aggregated response, discarding
// incremental updates.
func Aggregate(ctx context.Context, src EventSource, opts ...Option) (*llmstream.Response, error) {
	s := NewStream(src, opts...)
	defer s.Close()

	for range s.Updates(ctx) {
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	resp := s.Response()
	if resp == nil {
		return nil, fmt.Errorf("anthropic: stream produced no response")
	}
	return resp, nil
}
