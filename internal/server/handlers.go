package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	llmstream "github.com/haowjy/meridian-stream-go"
	"github.com/haowjy/meridian-stream-go/providers/anthropic"
)

const maxBodyBytes = 8 << 20

// aggregateResponse is returned by the aggregate and map endpoints.
type aggregateResponse struct {
	ID       string              `json:"id"`
	Response *llmstream.Response `json:"response"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logrus.WithError(err).Debug("Failed to write response body")
		}
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// aggregate reads a recorded text/event-stream body and returns the
// aggregated response.
func (s *Server) aggregate(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	log := s.log.WithField("request_id", r.Context().Value(RequestIDKey))
	resp, err := anthropic.Aggregate(r.Context(), anthropic.NewReaderSource(body), anthropic.WithLogger(log))
	if err != nil {
		log.WithError(err).Warn("Aggregation failed")
		writeError(w, aggregateStatus(err), err.Error())
		return
	}

	id := s.remember(resp)
	writeJSON(w, http.StatusOK, aggregateResponse{ID: id, Response: resp})
}

// aggregateStatus picks the status for a failed aggregation.
func aggregateStatus(err error) int {
	var tooLarge *http.MaxBytesError
	var pe *llmstream.ProviderError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &pe):
		// the transcript ended in an error event
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

// mapMessage maps a complete (non-streaming) message body.
func (s *Server) mapMessage(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, aggregateStatus(err), "invalid request body")
		return
	}

	resp, err := anthropic.DecodeMessage(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := s.remember(resp)
	writeJSON(w, http.StatusOK, aggregateResponse{ID: id, Response: resp})
}

func (s *Server) getResponse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	resp, ok := s.responses.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "response not found")
		return
	}
	writeJSON(w, http.StatusOK, aggregateResponse{ID: id, Response: resp})
}
