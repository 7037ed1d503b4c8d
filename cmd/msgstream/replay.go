package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	llmstream "github.com/haowjy/meridian-stream-go"
	"github.com/haowjy/meridian-stream-go/providers/anthropic"
)

var replayJSON bool

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <file.sse>",
		Short: "Aggregate a recorded event stream transcript",
		Long: `Replay reads a recorded text/event-stream transcript, prints each update
as it is aggregated and finishes with the stop reason and a usage table.
With --json only the final response is printed, as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: runReplay,
	}
	cmd.Flags().BoolVar(&replayJSON, "json", false, "Print the aggregated response as JSON")
	return cmd
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open transcript: %w", err)
	}
	defer f.Close()

	log := logrus.WithField("transcript", args[0])
	s := anthropic.NewStream(anthropic.NewReaderSource(f), anthropic.WithLogger(log))
	defer s.Close()

	out := cmd.OutOrStdout()
	display := NewDisplay(out)

	updates := 0
	for s.Next(cmd.Context()) {
		updates++
		if !replayJSON {
			display.PrintUpdate(s.Current())
		}
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("replay %s: %w", args[0], err)
	}
	log.WithField("updates", updates).Debug("Transcript replayed")

	resp := s.Response()
	if replayJSON {
		return PrintJSON(out, resp)
	}
	display.PrintStop(resp)
	display.PrintUsage(llmstream.ProviderAnthropic, resp.Model, resp.Usage)
	return nil
}
