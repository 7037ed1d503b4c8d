package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	llmstream "github.com/haowjy/meridian-stream-go"
)

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsMessage is one relayed stream event. Type is "update", "response" or
// "error"; the matching field is set.
type wsMessage struct {
	Type     string              `json:"type"`
	ID       string              `json:"id,omitempty"`
	Update   *llmstream.Update   `json:"update,omitempty"`
	Response *llmstream.Response `json:"response,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// loremStream relays a lorem stream over a websocket. Query parameters:
// model (default lorem-fast), prompt, max_tokens, thinking, tool (repeated).
func (s *Server) loremStream(w http.ResponseWriter, r *http.Request) {
	req, err := loremRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, err := s.lorem.StreamResponse(ctx, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	log := s.log.WithFields(logrus.Fields{
		"request_id": r.Context().Value(RequestIDKey),
		"model":      req.Model,
	})

	// The client sends nothing; reading detects when it goes away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.WithError(err).Debug("WebSocket read error")
				}
				return
			}
		}
	}()

	for ev := range events {
		msg := wsMessage{Type: "update", Update: ev.Update}
		switch {
		case ev.Error != nil:
			msg = wsMessage{Type: "error", Error: ev.Error.Error()}
		case ev.Response != nil:
			msg = wsMessage{Type: "response", ID: s.remember(ev.Response), Response: ev.Response}
		}

		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
			log.WithError(err).Debug("WebSocket set write deadline failed")
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.WithError(err).Debug("WebSocket write failed")
			cancel()
			for range events {
			}
			return
		}
	}

	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		log.WithError(err).Debug("WebSocket set write deadline failed")
	}
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
		log.WithError(err).Debug("WebSocket close failed")
	}
}

func loremRequest(r *http.Request) (*llmstream.GenerateRequest, error) {
	q := r.URL.Query()

	model := q.Get("model")
	if model == "" {
		model = "lorem-fast"
	}
	prompt := q.Get("prompt")
	if prompt == "" {
		prompt = "Hello"
	}

	var params llmstream.RequestParams
	if v := q.Get("max_tokens"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, &llmstream.ValidationError{Field: "max_tokens", Value: v, Reason: "must be an integer"}
		}
		params.MaxTokens = &n
	}
	if v := q.Get("thinking"); v != "" {
		params.ThinkingLevel = &v
	}
	for _, name := range q["tool"] {
		params.Tools = append(params.Tools, llmstream.Tool{Name: name})
	}

	return &llmstream.GenerateRequest{
		Model:    model,
		Messages: []llmstream.Message{llmstream.NewUserMessage(prompt)},
		Params:   &params,
	}, nil
}
