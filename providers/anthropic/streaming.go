package anthropic

import (
	"context"

	llmstream "github.com/haowjy/meridian-stream-go"
)

// StreamResponse starts a streaming Messages call. Updates are sent as they
// are produced, followed by the aggregated Response or an Error.
func (p *Provider) StreamResponse(ctx context.Context, req *llmstream.GenerateRequest) (<-chan llmstream.StreamEvent, error) {
	if err := p.checkModel(req.Model); err != nil {
		return nil, err
	}

	apiParams, err := buildMessageParams(req)
	if err != nil {
		return nil, err
	}

	src := NewSDKStreamSource(p.client.Messages.NewStreaming(ctx, apiParams))
	log := p.log.WithField("model", req.Model)
	return RunStream(ctx, NewStream(src, WithLogger(log))), nil
}

// RunStream pumps a Stream into a channel from one goroutine. The channel is
// unbuffered so the stream never runs more than one event ahead of the
// receiver. The stream is closed when the goroutine exits.
func RunStream(ctx context.Context, s *Stream) <-chan llmstream.StreamEvent {
	events := make(chan llmstream.StreamEvent)

	go func() {
		defer close(events)
		defer s.Close()

		send := func(ev llmstream.StreamEvent) bool {
			select {
			case <-ctx.Done():
				return false
			case events <- ev:
				return true
			}
		}

		for s.Next(ctx) {
			upd := s.Current()
			if !send(llmstream.StreamEvent{Update: &upd}) {
				return
			}
		}

		if err := s.Err(); err != nil {
			send(llmstream.StreamEvent{Error: err})
			return
		}
		send(llmstream.StreamEvent{Response: s.Response()})
	}()

	return events
}
