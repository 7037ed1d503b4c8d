package lorem

import (
	"context"
	"strings"
	"sync"
	"time"

	loremgen "github.com/bozaro/golorem"
	"github.com/sirupsen/logrus"

	llmstream "github.com/haowjy/meridian-stream-go"
	"github.com/haowjy/meridian-stream-go/providers/anthropic"
)

// Provider is a mock provider that plays synthetic Anthropic event streams
// through the same aggregation path as the real provider. Used for testing
// and development without requiring API keys.
type Provider struct {
	mu        sync.Mutex
	generator *loremgen.Lorem
	log       logrus.FieldLogger
}

// NewProvider creates a new lorem provider.
func NewProvider() *Provider {
	return &Provider{
		generator: loremgen.New(),
		log:       logrus.WithField("provider", llmstream.ProviderLorem),
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() llmstream.ProviderID {
	return llmstream.ProviderLorem
}

// SupportsModel returns true if the model name starts with "lorem-".
// Example models: "lorem-fast", "lorem-slow", "lorem-cutoff"
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "lorem-")
}

// GenerateResponse plays the whole script without pacing and returns the
// aggregated response.
func (p *Provider) GenerateResponse(ctx context.Context, req *llmstream.GenerateRequest) (*llmstream.Response, error) {
	src, err := p.NewSource(req, 0)
	if err != nil {
		return nil, err
	}
	return anthropic.Aggregate(ctx, src, anthropic.WithLogger(p.log))
}

// StreamResponse plays the script paced by the model's speed.
func (p *Provider) StreamResponse(ctx context.Context, req *llmstream.GenerateRequest) (<-chan llmstream.StreamEvent, error) {
	src, err := p.NewSource(req, getStreamDelay(req.Model))
	if err != nil {
		return nil, err
	}
	p.log.WithFields(logrus.Fields{
		"model":  req.Model,
		"frames": len(src.Frames()),
	}).Debug("Starting lorem stream")

	s := anthropic.NewStream(src, anthropic.WithLogger(p.log))
	return anthropic.RunStream(ctx, s), nil
}

// NewSource builds the event source for a request.
func (p *Provider) NewSource(req *llmstream.GenerateRequest, delay time.Duration) (*Source, error) {
	if !p.SupportsModel(req.Model) {
		return nil, &llmstream.ModelError{
			Model:    req.Model,
			Provider: p.Name().String(),
			Reason:   "model not supported by Lorem provider (must start with 'lorem-')",
			Err:      llmstream.ErrInvalidModel,
		}
	}
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}

	params := req.Params
	if params == nil {
		params = &llmstream.RequestParams{}
	}

	words := min(params.GetMaxTokens(40), 40)
	script := Script{
		Model:       req.Model,
		InputTokens: estimateTokens(req.Messages),
		Words:       words,
		Thinking:    params.ThinkingEnabled(),
		Tools:       params.Tools,
		Cutoff:      isCutoffModel(req.Model),
	}
	if script.Cutoff {
		script.Words = max(words/4, 1)
	}

	// golorem draws from shared state
	p.mu.Lock()
	defer p.mu.Unlock()
	return NewSource(p.generator, script, delay), nil
}

// getStreamDelay returns the delay between frames based on the model name.
// - lorem-slow: 2 frames/second
// - lorem-fast: 30 frames/second
// - default: 10 frames/second
func getStreamDelay(model string) time.Duration {
	if strings.Contains(model, "slow") {
		return 500 * time.Millisecond
	}
	if strings.Contains(model, "fast") {
		return 33 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// isCutoffModel returns true if the model should simulate max_tokens cutoff.
func isCutoffModel(model string) bool {
	return strings.Contains(model, "cutoff") || strings.Contains(model, "small")
}

func estimateTokens(messages []llmstream.Message) int {
	total := 0
	for _, msg := range messages {
		total += len(strings.Fields(msg.Text))
	}
	return total
}
