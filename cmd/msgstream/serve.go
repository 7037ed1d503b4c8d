package main

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/haowjy/meridian-stream-go/internal/server"
)

var serveAddr string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the aggregator over HTTP",
		Long: `Serve exposes the aggregator over HTTP:

  POST /v1/aggregate        aggregate a text/event-stream body
  POST /v1/map              map a complete message body
  GET  /v1/responses/{id}   fetch a recent response
  GET  /v1/lorem/ws         relay a lorem stream over a websocket
  GET  /healthz             health check`,
		RunE: runServe,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to the configured address)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	srv, err := server.New(server.Config{
		CacheSize: cfg.Server.CacheSize,
		Logger:    logrus.StandardLogger(),
	})
	if err != nil {
		return err
	}

	if err := srv.ListenAndServe(cmd.Context(), addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
