// Package config loads msgstream settings from a YAML file, the environment
// and an optional .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	llmstream "github.com/haowjy/meridian-stream-go"
)

// Environment variables read by Load. They take precedence over the file.
const (
	EnvAPIKey        = "ANTHROPIC_API_KEY"
	EnvBaseURL       = "ANTHROPIC_BASE_URL"
	EnvModel         = "MSGSTREAM_MODEL"
	EnvMaxTokens     = "MSGSTREAM_MAX_TOKENS"
	EnvThinkingLevel = "MSGSTREAM_THINKING_LEVEL"
	EnvSystem        = "MSGSTREAM_SYSTEM"
	EnvServerAddr    = "MSGSTREAM_ADDR"
	EnvCacheSize     = "MSGSTREAM_CACHE_SIZE"
	EnvLogLevel      = "LOG_LEVEL"
)

const (
	DefaultModel      = "claude-haiku-4-5"
	DefaultServerAddr = ":8080"
	DefaultCacheSize  = 128
	DefaultLogLevel   = "info"
)

// Config holds settings shared by the CLI subcommands and the HTTP server.
type Config struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`

	// MaxTokens of 0 leaves the choice to the provider.
	MaxTokens int `yaml:"max_tokens"`

	// ThinkingLevel is "", "low", "medium" or "high".
	ThinkingLevel string `yaml:"thinking_level"`

	System string `yaml:"system"`

	Server ServerConfig `yaml:"server"`

	LogLevel string `yaml:"log_level"`
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// CacheSize bounds the number of recent responses kept for lookup.
	CacheSize int `yaml:"cache_size"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Model:    DefaultModel,
		LogLevel: DefaultLogLevel,
		Server: ServerConfig{
			Addr:      DefaultServerAddr,
			CacheSize: DefaultCacheSize,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is not empty), then environment variables. A .env file found by
// LoadEnv is applied to the environment first.
func Load(path string) (*Config, error) {
	LoadEnv()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv searches for a .env file starting from the current directory and
// walking up the directory tree, and loads the first one found. Variables
// already set in the environment are not overridden. It returns the path
// loaded, or "" when there was none.
func LoadEnv() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				logrus.WithError(err).WithField("path", envPath).Warn("Failed to load .env")
				return ""
			}
			return envPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		EnvAPIKey:        &c.APIKey,
		EnvBaseURL:       &c.BaseURL,
		EnvModel:         &c.Model,
		EnvThinkingLevel: &c.ThinkingLevel,
		EnvSystem:        &c.System,
		EnvServerAddr:    &c.Server.Addr,
		EnvLogLevel:      &c.LogLevel,
	}
	for name, field := range strs {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*field = v
		}
	}

	ints := map[string]*int{
		EnvMaxTokens: &c.MaxTokens,
		EnvCacheSize: &c.Server.CacheSize,
	}
	for name, field := range ints {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*field = n
	}
	return nil
}

// Validate checks that the values are usable.
func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative, got %d", c.MaxTokens)
	}
	switch c.ThinkingLevel {
	case "", "low", "medium", "high":
	default:
		return fmt.Errorf("thinking_level must be low, medium or high, got %q", c.ThinkingLevel)
	}
	if c.Server.CacheSize < 1 {
		return fmt.Errorf("server.cache_size must be positive, got %d", c.Server.CacheSize)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// RequestParams returns the request parameters the configuration implies,
// or nil when it sets none.
func (c *Config) RequestParams() *llmstream.RequestParams {
	var params llmstream.RequestParams
	set := false
	if c.MaxTokens > 0 {
		maxTokens := c.MaxTokens
		params.MaxTokens = &maxTokens
		set = true
	}
	if c.ThinkingLevel != "" {
		level := c.ThinkingLevel
		params.ThinkingLevel = &level
		set = true
	}
	if c.System != "" {
		system := c.System
		params.System = &system
		set = true
	}
	if !set {
		return nil
	}
	return &params
}
