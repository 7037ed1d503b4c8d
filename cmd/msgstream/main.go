package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	llmstream "github.com/haowjy/meridian-stream-go"
	"github.com/haowjy/meridian-stream-go/internal/config"
	"github.com/haowjy/meridian-stream-go/providers/anthropic"
	"github.com/haowjy/meridian-stream-go/providers/lorem"
)

// Command line flags
var (
	configPath string
	logLevel   string
	verbose    bool
)

// cfg is loaded before any subcommand runs.
var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "msgstream",
		Short: "Aggregate Anthropic Messages event streams",
		Long: `msgstream turns Anthropic Messages API event streams into incremental
updates and a final response. It can replay recorded transcripts, make live
calls, play synthetic lorem streams, and serve the aggregator over HTTP.`,
		PersistentPreRunE: setup,
		SilenceUsage:      true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	flags.StringVarP(&logLevel, "log-level", "l", "", "Set log level (trace, debug, info, warn, error, fatal, panic)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging (debug level)")

	rootCmd.AddCommand(
		newReplayCmd(),
		newGenerateCmd(),
		newStreamCmd(),
		newLoremCmd(),
		newServeCmd(),
	)
	return rootCmd
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg = loaded

	// Handle verbose flag as shortcut for debug level
	if verbose {
		logLevel = "debug"
	}
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level '%s': %w", logLevel, err)
	}
	logrus.SetLevel(level)
	logrus.SetOutput(cmd.ErrOrStderr())
	return nil
}

// newProvider picks the provider serving model.
func newProvider(model string) (llmstream.Provider, error) {
	if lp := lorem.NewProvider(); lp.SupportsModel(model) {
		return lp, nil
	}

	var opts []anthropic.ProviderOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, anthropic.WithProviderLogger(logrus.StandardLogger()))

	p, err := anthropic.NewProvider(cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("anthropic provider (set %s): %w", config.EnvAPIKey, err)
	}
	return p, nil
}

// buildRequest turns the prompt arguments into a request using the
// configured parameters.
func buildRequest(model string, args []string) *llmstream.GenerateRequest {
	return &llmstream.GenerateRequest{
		Model:    model,
		Messages: []llmstream.Message{llmstream.NewUserMessage(strings.Join(args, " "))},
		Params:   cfg.RequestParams(),
	}
}
