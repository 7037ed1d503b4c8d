// Package server exposes stream aggregation over HTTP.
package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	llmstream "github.com/haowjy/meridian-stream-go"
	"github.com/haowjy/meridian-stream-go/providers/lorem"
)

type ctxKey string

// RequestIDKey is the context key holding the request id.
const RequestIDKey ctxKey = "request_id"

type Server struct {
	Router    *chi.Mux
	responses *lru.Cache[string, *llmstream.Response]
	lorem     *lorem.Provider
	log       logrus.FieldLogger
}

type Config struct {
	// CacheSize bounds the number of responses kept for GET /v1/responses/{id}.
	CacheSize int

	// Lorem serves /v1/lorem/ws. A new provider is created when nil.
	Lorem *lorem.Provider

	Logger logrus.FieldLogger
}

func New(cfg Config) (*Server, error) {
	cache, err := lru.New[string, *llmstream.Response](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("response cache: %w", err)
	}

	s := &Server{
		Router:    chi.NewRouter(),
		responses: cache,
		lorem:     cfg.Lorem,
		log:       cfg.Logger,
	}
	if s.lorem == nil {
		s.lorem = lorem.NewProvider()
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.Router.Use(chiMiddleware.RealIP)
	s.Router.Use(requestID)
	s.Router.Use(s.logRequests)
	s.Router.Use(chiMiddleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.Router.Get("/healthz", s.health)

	s.Router.Route("/v1", func(r chi.Router) {
		r.Post("/aggregate", s.aggregate)
		r.Post("/map", s.mapMessage)
		r.Get("/responses/{id}", s.getResponse)
		r.Get("/lorem/ws", s.loremStream)
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		ctx := context.WithValue(r.Context(), RequestIDKey, id)
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     wrapped.statusCode,
			"duration":   time.Since(start),
			"request_id": r.Context().Value(RequestIDKey),
		}).Debug("HTTP request")
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker, required for WebSocket upgrades.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not implement http.Hijacker")
}

// remember caches resp under its response id, assigning one when it has none.
func (s *Server) remember(resp *llmstream.Response) string {
	id := resp.ResponseID
	if id == "" {
		id = "resp_" + uuid.New().String()
	}
	s.responses.Add(id, resp)
	return id
}
