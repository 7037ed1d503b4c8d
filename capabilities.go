package llmstream

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed config/capabilities/anthropic.yaml
var anthropicCapabilitiesYAML []byte

// Capabilities are model metadata used for defaults (max output tokens,
// thinking budgets) and cost estimates. They are informational: the
// provider API remains the source of truth and nothing here rejects a request.
//
// Embedded data can be overridden with LoadCapabilitiesFromFile or
// RegisterProviderCapabilities.

// ProviderCapabilities represents the full capability configuration for a provider
type ProviderCapabilities struct {
	Version     string                     `yaml:"version"`
	LastUpdated string                     `yaml:"last_updated"`
	Provider    string                     `yaml:"provider"`
	Models      map[string]ModelCapability `yaml:"models"`
}

// ModelCapability represents the capabilities of a specific model
type ModelCapability struct {
	ContextWindow   int                `yaml:"context_window"`
	MaxOutputTokens int                `yaml:"max_output_tokens"`
	Thinking        ThinkingCapability `yaml:"thinking"`
	Pricing         PricingInfo        `yaml:"pricing"`
	ServerTools     []ServerToolPrice  `yaml:"server_tools"`
}

// ThinkingCapability defines thinking budget limits
type ThinkingCapability struct {
	Supported      bool           `yaml:"supported"`
	MinBudget      int            `yaml:"min_budget"`
	MaxBudget      int            `yaml:"max_budget"`
	EffortToBudget map[string]int `yaml:"effort_to_budget"` // "low" -> 2000, etc.
}

// PricingInfo contains model pricing in USD per million tokens
type PricingInfo struct {
	InputPer1M      float64 `yaml:"input_per_1m"`
	OutputPer1M     float64 `yaml:"output_per_1m"`
	CacheWritePer1M float64 `yaml:"cache_write_per_1m"`
	CacheReadPer1M  float64 `yaml:"cache_read_per_1m"`
}

// ServerToolPrice prices a provider-executed tool by request count.
// Counter is the usage counter name holding the request count.
type ServerToolPrice struct {
	Name            string  `yaml:"name"`
	Counter         string  `yaml:"counter"`
	PricePer1KCalls float64 `yaml:"price_per_1k_calls"`
}

// CostEstimate is the estimated price of one response in USD.
type CostEstimate struct {
	Input       float64
	Output      float64
	CacheWrite  float64
	CacheRead   float64
	ServerTools float64
}

// Total returns the sum of all parts.
func (c CostEstimate) Total() float64 {
	return c.Input + c.Output + c.CacheWrite + c.CacheRead + c.ServerTools
}

// CapabilityRegistry manages provider capabilities
type CapabilityRegistry struct {
	capabilities map[string]*ProviderCapabilities
	mu           sync.RWMutex
}

var (
	globalRegistry     *CapabilityRegistry
	globalRegistryOnce sync.Once
)

// GetCapabilityRegistry returns the global capability registry (singleton)
func GetCapabilityRegistry() *CapabilityRegistry {
	globalRegistryOnce.Do(func() {
		globalRegistry = NewCapabilityRegistry()
		if err := globalRegistry.LoadCapabilities(anthropicCapabilitiesYAML); err != nil {
			logrus.WithError(err).Warn("Failed to load embedded Anthropic capabilities")
		}
	})
	return globalRegistry
}

// NewCapabilityRegistry creates an empty registry.
func NewCapabilityRegistry() *CapabilityRegistry {
	return &CapabilityRegistry{capabilities: make(map[string]*ProviderCapabilities)}
}

// LoadCapabilities parses YAML capability data and registers it under the
// provider named in the document.
func (r *CapabilityRegistry) LoadCapabilities(data []byte) error {
	var caps ProviderCapabilities
	if err := yaml.Unmarshal(data, &caps); err != nil {
		return fmt.Errorf("failed to unmarshal capabilities: %w", err)
	}
	if caps.Provider == "" {
		return fmt.Errorf("capabilities document has no provider")
	}
	r.RegisterProviderCapabilities(caps.Provider, &caps)
	return nil
}

// LoadCapabilitiesFromFile loads provider capabilities from a YAML file.
func (r *CapabilityRegistry) LoadCapabilitiesFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read capabilities file: %w", err)
	}
	return r.LoadCapabilities(data)
}

// RegisterProviderCapabilities programmatically registers provider capabilities.
func (r *CapabilityRegistry) RegisterProviderCapabilities(provider string, caps *ProviderCapabilities) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capabilities[provider] = caps
}

// GetModelCapability returns capabilities for a model. Dated or suffixed
// model ids ("claude-haiku-4-5-20251001") resolve to the longest registered
// prefix ("claude-haiku-4-5").
func (r *CapabilityRegistry) GetModelCapability(provider, model string) (*ModelCapability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps, ok := r.capabilities[provider]
	if !ok {
		return nil, fmt.Errorf("no capabilities found for provider: %s", provider)
	}
	if mc, ok := caps.Models[model]; ok {
		return &mc, nil
	}

	best := ""
	for name := range caps.Models {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return nil, fmt.Errorf("model %s not found for provider %s", model, provider)
	}
	mc := caps.Models[best]
	return &mc, nil
}

// MaxOutputTokens returns the model's output limit, or fallback when unknown.
func (r *CapabilityRegistry) MaxOutputTokens(provider, model string, fallback int) int {
	mc, err := r.GetModelCapability(provider, model)
	if err != nil || mc.MaxOutputTokens <= 0 {
		return fallback
	}
	return mc.MaxOutputTokens
}

// ConvertEffortToBudget converts an effort level to a thinking token budget.
// Falls back to default budgets if the model is not in the registry.
func (r *CapabilityRegistry) ConvertEffortToBudget(provider, model, effort string) (int, error) {
	defaultBudgets := map[string]int{
		"low":    2000,
		"medium": 5000,
		"high":   12000,
	}

	if mc, err := r.GetModelCapability(provider, model); err == nil {
		if budget, ok := mc.Thinking.EffortToBudget[effort]; ok {
			return budget, nil
		}
	}

	budget, ok := defaultBudgets[effort]
	if !ok {
		return 0, fmt.Errorf("unknown effort level: %s (valid: low, medium, high)", effort)
	}
	logrus.WithFields(logrus.Fields{
		"provider": provider,
		"model":    model,
		"effort":   effort,
		"budget":   budget,
	}).Debug("Using default thinking budget")
	return budget, nil
}

// EstimateCost prices a usage report with the model's pricing.
// Input is charged for uncached input only; cache reads and writes are
// charged at their own rates.
func (r *CapabilityRegistry) EstimateCost(provider, model string, usage UsageReport) (CostEstimate, error) {
	mc, err := r.GetModelCapability(provider, model)
	if err != nil {
		return CostEstimate{}, err
	}

	const perMillion = 1_000_000.0
	p := mc.Pricing
	est := CostEstimate{
		Input:      float64(usage.Input) * p.InputPer1M / perMillion,
		Output:     float64(usage.Output) * p.OutputPer1M / perMillion,
		CacheWrite: float64(usage.CacheCreation) * p.CacheWritePer1M / perMillion,
		CacheRead:  float64(usage.CachedInput) * p.CacheReadPer1M / perMillion,
	}
	for _, tool := range mc.ServerTools {
		calls := usage.Additional[tool.Counter]
		est.ServerTools += float64(calls) * tool.PricePer1KCalls / 1000
	}
	return est, nil
}

// LoadCapabilitiesFromFile is a convenience function that calls the global registry's LoadCapabilitiesFromFile.
func LoadCapabilitiesFromFile(path string) error {
	return GetCapabilityRegistry().LoadCapabilitiesFromFile(path)
}

// RegisterProviderCapabilities is a convenience function that calls the global registry's RegisterProviderCapabilities.
func RegisterProviderCapabilities(provider string, caps *ProviderCapabilities) {
	GetCapabilityRegistry().RegisterProviderCapabilities(provider, caps)
}
