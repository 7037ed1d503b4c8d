package main

import (
	"github.com/spf13/cobra"

	llmstream "github.com/haowjy/meridian-stream-go"
	"github.com/haowjy/meridian-stream-go/providers/lorem"
)

var (
	loremModel      string
	loremMaxTokens  int
	loremThinking   string
	loremTools      []string
	loremTranscript bool
	loremJSON       bool
)

func newLoremCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lorem [prompt...]",
		Short: "Play a synthetic event stream without an API key",
		Long: `Lorem plays a synthetic Anthropic event stream through the aggregator.
lorem-slow, lorem-medium and lorem-fast set the pacing; lorem-cutoff stops
early with a length stop reason. With --transcript the raw event stream is
written instead, in the format replay reads.`,
		RunE: runLorem,
	}
	cmd.Flags().StringVarP(&loremModel, "model", "m", "lorem-fast", "Lorem model id")
	cmd.Flags().IntVar(&loremMaxTokens, "max-tokens", 0, "Number of words to generate")
	cmd.Flags().StringVar(&loremThinking, "thinking", "", "Emit a reasoning block (low, medium, high)")
	cmd.Flags().StringSliceVar(&loremTools, "tool", nil, "Emit a call to this tool (repeatable)")
	cmd.Flags().BoolVar(&loremTranscript, "transcript", false, "Write the raw event stream instead of updates")
	cmd.Flags().BoolVar(&loremJSON, "json", false, "Write updates and the response as JSON lines")
	return cmd
}

func loremRequest(args []string) *llmstream.GenerateRequest {
	if len(args) == 0 {
		args = []string{"Hello"}
	}
	req := buildRequest(loremModel, args)

	params := llmstream.RequestParams{}
	if req.Params != nil {
		params = *req.Params
	}
	if loremMaxTokens > 0 {
		params.MaxTokens = &loremMaxTokens
	}
	if loremThinking != "" {
		params.ThinkingLevel = &loremThinking
	}
	for _, name := range loremTools {
		params.Tools = append(params.Tools, llmstream.Tool{Name: name})
	}
	req.Params = &params
	return req
}

func runLorem(cmd *cobra.Command, args []string) error {
	provider := lorem.NewProvider()
	req := loremRequest(args)

	if loremTranscript {
		src, err := provider.NewSource(req, 0)
		if err != nil {
			return err
		}
		return src.WriteTranscript(cmd.OutOrStdout())
	}
	return streamTo(cmd, provider, req, loremJSON)
}
