package anthropic

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/tidwall/gjson"

	llmstream "github.com/haowjy/meridian-stream-go"
)

// mapError converts SDK API errors into *llmstream.ProviderError so callers
// can use llmstream.IsRetryable and friends. Other errors are wrapped.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("anthropic: %w", err)
	}

	pe := &llmstream.ProviderError{
		Provider:   llmstream.ProviderAnthropic.String(),
		StatusCode: apiErr.StatusCode,
		Type:       gjson.Get(apiErr.RawJSON(), "error.type").String(),
		Message:    gjson.Get(apiErr.RawJSON(), "error.message").String(),
	}
	if pe.Message == "" {
		pe.Message = http.StatusText(apiErr.StatusCode)
	}

	switch code := apiErr.StatusCode; {
	case code == http.StatusTooManyRequests:
		pe.Retryable = true
		pe.Err = llmstream.ErrRateLimited
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		pe.Err = llmstream.ErrInvalidAPIKey
	case code == http.StatusBadRequest, code == http.StatusNotFound, code == http.StatusRequestEntityTooLarge:
		pe.Err = llmstream.ErrInvalidRequest
	case code >= 500:
		// 529 is Anthropic's "overloaded"
		pe.Retryable = true
		pe.Err = llmstream.ErrProviderUnavailable
	default:
		pe.Err = err
	}
	return pe
}
