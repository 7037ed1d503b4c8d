package anthropic

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"

	llmstream "github.com/haowjy/meridian-stream-go"
)

// Provider implements the llmstream.Provider interface for Anthropic (Claude) models.
type Provider struct {
	client *anthropic.Client
	log    logrus.FieldLogger
}

// ProviderOption configures a Provider.
type ProviderOption func(*providerConfig)

type providerConfig struct {
	requestOptions []option.RequestOption
	log            logrus.FieldLogger
}

// WithBaseURL points the client at a different API endpoint (a proxy or a
// recorded-response server).
func WithBaseURL(url string) ProviderOption {
	return func(c *providerConfig) {
		c.requestOptions = append(c.requestOptions, option.WithBaseURL(url))
	}
}

// WithRequestOptions passes SDK request options through to the client.
func WithRequestOptions(opts ...option.RequestOption) ProviderOption {
	return func(c *providerConfig) {
		c.requestOptions = append(c.requestOptions, opts...)
	}
}

// WithProviderLogger sets the logger used by the provider and its streams.
func WithProviderLogger(log logrus.FieldLogger) ProviderOption {
	return func(c *providerConfig) {
		c.log = log
	}
}

// NewProvider creates a new Anthropic provider with the given API key.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		return nil, llmstream.ErrInvalidAPIKey
	}

	cfg := providerConfig{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}

	requestOptions := append([]option.RequestOption{option.WithAPIKey(apiKey)}, cfg.requestOptions...)
	client := anthropic.NewClient(requestOptions...)

	return &Provider{
		client: &client,
		log:    cfg.log.WithField("provider", llmstream.ProviderAnthropic),
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() llmstream.ProviderID {
	return llmstream.ProviderAnthropic
}

// SupportsModel returns true if this provider supports the given model.
// Anthropic models start with "claude-"
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "claude-")
}

func (p *Provider) checkModel(model string) error {
	if p.SupportsModel(model) {
		return nil
	}
	return &llmstream.ModelError{
		Model:    model,
		Provider: p.Name().String(),
		Reason:   "model not supported by Anthropic (must start with 'claude-')",
		Err:      llmstream.ErrInvalidModel,
	}
}

// GenerateResponse makes a blocking Messages call and maps the message
// directly to a Response.
func (p *Provider) GenerateResponse(ctx context.Context, req *llmstream.GenerateRequest) (*llmstream.Response, error) {
	if err := p.checkModel(req.Model); err != nil {
		return nil, err
	}

	apiParams, err := buildMessageParams(req)
	if err != nil {
		return nil, err
	}
	// The SDK rejects blocking calls whose max_tokens implies more than
	// ten minutes of generation; only the default is capped.
	if req.Params.GetMaxTokens(0) == 0 && apiParams.MaxTokens > maxBlockingTokens {
		apiParams.MaxTokens = maxBlockingTokens
	}

	message, err := p.client.Messages.New(ctx, apiParams)
	if err != nil {
		return nil, mapError(err)
	}

	return MapMessage(message), nil
}
