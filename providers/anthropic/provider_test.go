package anthropic

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	llmstream "github.com/haowjy/meridian-stream-go"
)

// newTestProvider points a Provider at handler.
func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log, _ := newTestLogger()
	p, err := NewProvider("test-key",
		WithBaseURL(srv.URL),
		WithRequestOptions(option.WithMaxRetries(0)),
		WithProviderLogger(log),
	)
	require.NoError(t, err)
	return p
}

func testRequest() *llmstream.GenerateRequest {
	return &llmstream.GenerateRequest{
		Model:    "claude-haiku-4-5",
		Messages: []llmstream.Message{llmstream.NewUserMessage("Hi")},
	}
}

func TestNewProvider_RequiresKey(t *testing.T) {
	_, err := NewProvider("")
	assert.ErrorIs(t, err, llmstream.ErrInvalidAPIKey)
}

func TestProvider_SupportsModel(t *testing.T) {
	p, err := NewProvider("k")
	require.NoError(t, err)

	assert.Equal(t, llmstream.ProviderAnthropic, p.Name())
	assert.True(t, p.SupportsModel("claude-sonnet-4-5"))
	assert.False(t, p.SupportsModel("gpt-5"))

	_, err = p.GenerateResponse(context.Background(), &llmstream.GenerateRequest{Model: "gpt-5"})
	assert.ErrorIs(t, err, llmstream.ErrInvalidModel)
}

func TestProvider_GenerateResponse(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		body, _ := io.ReadAll(r.Body)
		assert.False(t, gjson.GetBytes(body, "stream").Bool())

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, equivalenceMessage)
	})

	resp, err := p.GenerateResponse(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "msg_eq", resp.ResponseID)
	assert.Len(t, resp.Content, 6)
	assert.Equal(t, llmstream.StopReasonToolCalls, *resp.StopReason)
}

func TestProvider_StreamResponse(t *testing.T) {
	transcript, err := os.ReadFile(filepath.Join("testdata", "tool_use.sse"))
	require.NoError(t, err)

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.True(t, gjson.GetBytes(body, "stream").Bool())

		w.Header().Set("Content-Type", "text/event-stream")
		w.Write(transcript)
	})

	events, err := p.StreamResponse(context.Background(), testRequest())
	require.NoError(t, err)

	var final *llmstream.Response
	for ev := range events {
		require.NoError(t, ev.Error)
		if ev.Response != nil {
			final = ev.Response
		}
	}
	require.NotNil(t, final)
	assert.Equal(t, `{"location":"San Francisco, CA","unit":"fahrenheit"}`, final.FunctionCalls()[0].ArgumentsJSON)
}

func TestProvider_APIErrors(t *testing.T) {
	tests := []struct {
		status    int
		errType   string
		sentinel  error
		retryable bool
	}{
		{http.StatusTooManyRequests, "rate_limit_error", llmstream.ErrRateLimited, true},
		{http.StatusUnauthorized, "authentication_error", llmstream.ErrInvalidAPIKey, false},
		{http.StatusBadRequest, "invalid_request_error", llmstream.ErrInvalidRequest, false},
		{529, "overloaded_error", llmstream.ErrProviderUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.errType, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprintf(w, `{"type":"error","error":{"type":%q,"message":"nope"}}`, tt.errType)
			})

			_, err := p.GenerateResponse(context.Background(), testRequest())
			require.Error(t, err)

			var pe *llmstream.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, tt.errType, pe.Type)
			assert.Equal(t, "nope", pe.Message)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.retryable, llmstream.IsRetryable(err))
		})
	}
}

func TestProvider_StreamAPIError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"type":"error","error":{"type":"api_error","message":"down"}}`)
	})

	events, err := p.StreamResponse(context.Background(), testRequest())
	require.NoError(t, err)

	var last llmstream.StreamEvent
	for ev := range events {
		last = ev
	}
	require.Error(t, last.Error)
	assert.ErrorIs(t, last.Error, llmstream.ErrProviderUnavailable)
}

func TestProvider_StreamErrorEvent(t *testing.T) {
	transcript, err := os.ReadFile(filepath.Join("testdata", "overloaded.sse"))
	require.NoError(t, err)

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write(transcript)
	})

	events, err := p.StreamResponse(context.Background(), testRequest())
	require.NoError(t, err)

	var last llmstream.StreamEvent
	for ev := range events {
		last = ev
	}

	var pe *llmstream.ProviderError
	require.ErrorAs(t, last.Error, &pe)
	assert.Equal(t, "overloaded_error", pe.Type)
	assert.Equal(t, "Overloaded", pe.Message)
	assert.True(t, llmstream.IsRetryable(last.Error))
}
