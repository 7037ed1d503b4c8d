package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	llmstream "github.com/haowjy/meridian-stream-go"
)

var (
	model      string
	outputJSON bool
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <prompt...>",
		Short: "Make a blocking call and print the mapped response",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runGenerate,
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model id (defaults to the configured model)")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Print the response as JSON")
	return cmd
}

func newStreamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream <prompt...>",
		Short: "Make a streaming call and print updates as they arrive",
		Long: `Stream prints every update as it is aggregated. With --json each update
is written as one JSON line, followed by the final response.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runStream,
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model id (defaults to the configured model)")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Write updates and the response as JSON lines")
	return cmd
}

func selectedModel() string {
	if model != "" {
		return model
	}
	return cfg.Model
}

func runGenerate(cmd *cobra.Command, args []string) error {
	provider, err := newProvider(selectedModel())
	if err != nil {
		return err
	}
	req := buildRequest(selectedModel(), args)

	resp, err := provider.GenerateResponse(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return PrintJSON(out, resp)
	}
	display := NewDisplay(out)
	display.PrintResponse(resp)
	display.PrintStop(resp)
	display.PrintUsage(provider.Name(), resp.Model, resp.Usage)
	return nil
}

func runStream(cmd *cobra.Command, args []string) error {
	provider, err := newProvider(selectedModel())
	if err != nil {
		return err
	}
	return streamTo(cmd, provider, buildRequest(selectedModel(), args), outputJSON)
}

// streamTo drains a provider stream into the command output.
func streamTo(cmd *cobra.Command, provider llmstream.Provider, req *llmstream.GenerateRequest, asJSON bool) error {
	events, err := provider.StreamResponse(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("stream: %w", err)
	}

	out := cmd.OutOrStdout()
	display := NewDisplay(out)
	var resp *llmstream.Response

	for ev := range events {
		switch {
		case ev.Error != nil:
			return fmt.Errorf("stream: %w", ev.Error)
		case ev.Update != nil:
			if asJSON {
				if err := writeLine(out, ev.Update); err != nil {
					return err
				}
				continue
			}
			display.PrintUpdate(*ev.Update)
		case ev.Response != nil:
			resp = ev.Response
		}
	}

	if resp == nil {
		// cancelled before the stream completed
		return cmd.Context().Err()
	}
	logrus.WithFields(logrus.Fields{
		"response_id": resp.ResponseID,
		"output":      resp.Usage.Output,
	}).Debug("Stream complete")

	if asJSON {
		return writeLine(out, resp)
	}
	display.PrintStop(resp)
	display.PrintUsage(provider.Name(), resp.Model, resp.Usage)
	return nil
}

func writeLine(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
