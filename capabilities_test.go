package llmstream

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertEffortToBudget_KnownModel(t *testing.T) {
	registry := GetCapabilityRegistry()

	tests := []struct {
		name     string
		provider string
		model    string
		effort   string
		expected int
	}{
		{
			name:     "Claude Haiku 4.5 - low effort",
			provider: "anthropic",
			model:    "claude-haiku-4-5",
			effort:   "low",
			expected: 2000,
		},
		{
			name:     "Claude Haiku 4.5 - medium effort",
			provider: "anthropic",
			model:    "claude-haiku-4-5",
			effort:   "medium",
			expected: 5000,
		},
		{
			name:     "Claude Haiku 4.5 - high effort",
			provider: "anthropic",
			model:    "claude-haiku-4-5",
			effort:   "high",
			expected: 12000,
		},
		{
			name:     "Claude Sonnet 4.5 - low effort",
			provider: "anthropic",
			model:    "claude-sonnet-4-5",
			effort:   "low",
			expected: 2000,
		},
		{
			name:     "Claude Opus 4.1 - medium effort",
			provider: "anthropic",
			model:    "claude-opus-4-1",
			effort:   "medium",
			expected: 5000,
		},
		{
			name:     "Dated model id resolves by prefix",
			provider: "anthropic",
			model:    "claude-3-7-sonnet-20250219",
			effort:   "high",
			expected: 12000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			budget, err := registry.ConvertEffortToBudget(tt.provider, tt.model, tt.effort)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if budget != tt.expected {
				t.Errorf("expected budget %d, got %d", tt.expected, budget)
			}
		})
	}
}

func TestConvertEffortToBudget_UnknownModel_FallsBackToDefaults(t *testing.T) {
	registry := GetCapabilityRegistry()

	tests := []struct {
		name     string
		provider string
		model    string
		effort   string
		expected int
	}{
		{
			name:     "Unknown model - low effort uses default",
			provider: "anthropic",
			model:    "claude-unknown-model-99",
			effort:   "low",
			expected: 2000,
		},
		{
			name:     "Unknown model - medium effort uses default",
			provider: "anthropic",
			model:    "claude-future-model",
			effort:   "medium",
			expected: 5000,
		},
		{
			name:     "Model without budgets - high effort uses default",
			provider: "anthropic",
			model:    "claude-3-5-haiku",
			effort:   "high",
			expected: 12000,
		},
		{
			name:     "Unknown provider - low effort uses default",
			provider: "lorem",
			model:    "lorem-fast",
			effort:   "low",
			expected: 2000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			budget, err := registry.ConvertEffortToBudget(tt.provider, tt.model, tt.effort)
			if err != nil {
				t.Fatalf("expected fallback to succeed, got error: %v", err)
			}
			if budget != tt.expected {
				t.Errorf("expected default budget %d, got %d", tt.expected, budget)
			}
		})
	}
}

func TestConvertEffortToBudget_InvalidEffortLevel(t *testing.T) {
	registry := GetCapabilityRegistry()

	for _, effort := range []string{"ultra", "super-high", ""} {
		t.Run(effort, func(t *testing.T) {
			_, err := registry.ConvertEffortToBudget("anthropic", "claude-haiku-4-5", effort)
			if err == nil {
				t.Fatal("expected error for invalid effort level, got nil")
			}
		})
	}
}

func TestGetModelCapability_KnownModel(t *testing.T) {
	registry := GetCapabilityRegistry()

	modelCap, err := registry.GetModelCapability("anthropic", "claude-haiku-4-5")
	require.NoError(t, err)

	assert.Equal(t, 200000, modelCap.ContextWindow)
	assert.Equal(t, 64000, modelCap.MaxOutputTokens)
	assert.True(t, modelCap.Thinking.Supported)
	require.Len(t, modelCap.ServerTools, 2)
	assert.Equal(t, "server_tool_use.web_search_requests", modelCap.ServerTools[0].Counter)
}

func TestGetModelCapability_LongestPrefixWins(t *testing.T) {
	registry := GetCapabilityRegistry()

	// claude-sonnet-4 is also a prefix of this id
	modelCap, err := registry.GetModelCapability("anthropic", "claude-sonnet-4-5-20250929")
	require.NoError(t, err)
	assert.Equal(t, 64000, modelCap.MaxOutputTokens)

	opus, err := registry.GetModelCapability("anthropic", "claude-opus-4-1-20250805")
	require.NoError(t, err)
	assert.Equal(t, 32000, opus.MaxOutputTokens)
}

func TestGetModelCapability_UnknownModel(t *testing.T) {
	registry := GetCapabilityRegistry()

	_, err := registry.GetModelCapability("anthropic", "claude-unknown-model")
	assert.Error(t, err)

	_, err = registry.GetModelCapability("openai", "gpt-5")
	assert.Error(t, err)
}

func TestMaxOutputTokens(t *testing.T) {
	registry := GetCapabilityRegistry()

	assert.Equal(t, 8192, registry.MaxOutputTokens("anthropic", "claude-3-5-haiku-latest", 4096))
	assert.Equal(t, 4096, registry.MaxOutputTokens("anthropic", "claude-unknown", 4096))
}

func TestEstimateCost(t *testing.T) {
	registry := GetCapabilityRegistry()

	usage := NewUsageReport(Counters{
		CounterInputTokens:                    1_000_000,
		CounterOutputTokens:                   100_000,
		CounterCacheReadInputTokens:           500_000,
		CounterCacheCreationInputTokens:       200_000,
		"server_tool_use.web_search_requests": 3,
	})

	est, err := registry.EstimateCost("anthropic", "claude-sonnet-4-5", usage)
	require.NoError(t, err)

	assert.InDelta(t, 3.0, est.Input, 1e-9)
	assert.InDelta(t, 1.5, est.Output, 1e-9)
	assert.InDelta(t, 0.15, est.CacheRead, 1e-9)
	assert.InDelta(t, 0.75, est.CacheWrite, 1e-9)
	assert.InDelta(t, 0.03, est.ServerTools, 1e-9)
	assert.InDelta(t, 5.43, est.Total(), 1e-9)

	_, err = registry.EstimateCost("anthropic", "claude-unknown", usage)
	assert.Error(t, err)
}

func TestLoadCapabilities(t *testing.T) {
	registry := NewCapabilityRegistry()

	doc := []byte(`
provider: lorem
models:
  lorem-fast:
    max_output_tokens: 256
    pricing:
      input_per_1m: 0
      output_per_1m: 0
`)
	require.NoError(t, registry.LoadCapabilities(doc))
	assert.Equal(t, 256, registry.MaxOutputTokens("lorem", "lorem-fast", 1))

	assert.Error(t, registry.LoadCapabilities([]byte("models: {}")), "document without provider")
	assert.Error(t, registry.LoadCapabilities([]byte("provider: [")), "invalid YAML")
}

func TestLoadCapabilitiesFromFile(t *testing.T) {
	registry := NewCapabilityRegistry()

	path := filepath.Join(t.TempDir(), "caps.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: anthropic\nmodels:\n  claude-test:\n    max_output_tokens: 100\n"), 0o644))

	require.NoError(t, registry.LoadCapabilitiesFromFile(path))
	assert.Equal(t, 100, registry.MaxOutputTokens("anthropic", "claude-test", 1))

	assert.Error(t, registry.LoadCapabilitiesFromFile(filepath.Join(t.TempDir(), "missing.yaml")))
}
