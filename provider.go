package llmstream

import (
	"context"
)

// Provider defines the interface that all providers must implement.
//
// Types used by this interface:
//   - GenerateRequest, Message: defined in request.go
//   - Response: defined in response.go
//   - StreamEvent: defined in streaming.go
type Provider interface {
	// GenerateResponse makes a blocking call and maps the complete message
	// directly to a Response.
	GenerateResponse(ctx context.Context, req *GenerateRequest) (*Response, error)

	// StreamResponse starts a streaming call. The returned channel carries
	// one Update per emission, then either the aggregated Response or an
	// Error, and is then closed. The channel is unbuffered: the stream is
	// read no further ahead than the consumer.
	//
	// Usage:
	//   events, err := provider.StreamResponse(ctx, req)
	//   if err != nil { return err }
	//   for ev := range events {
	//     if ev.Error != nil { handle error }
	//     if ev.Update != nil { render ev.Update.Chunks }
	//     if ev.Response != nil { streaming complete }
	//   }
	StreamResponse(ctx context.Context, req *GenerateRequest) (<-chan StreamEvent, error)

	// Name returns the provider identifier.
	Name() ProviderID

	// SupportsModel returns true if the provider supports the given model.
	SupportsModel(model string) bool
}
