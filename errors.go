package llmstream

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
// These can be checked with errors.Is().
var (
	// ErrInvalidModel indicates the requested model is not supported by the provider.
	ErrInvalidModel = errors.New("llmstream: invalid or unsupported model")

	// ErrInvalidAPIKey indicates the API key is missing, malformed, or unauthorized.
	ErrInvalidAPIKey = errors.New("llmstream: invalid API key")

	// ErrRateLimited indicates the provider's rate limit has been exceeded.
	ErrRateLimited = errors.New("llmstream: rate limit exceeded")

	// ErrInvalidRequest indicates the request parameters are invalid.
	ErrInvalidRequest = errors.New("llmstream: invalid request")

	// ErrProviderUnavailable indicates the provider service is down or unreachable.
	ErrProviderUnavailable = errors.New("llmstream: provider unavailable")

	// ErrFraming indicates a malformed event sequence. It is fatal for the response.
	ErrFraming = errors.New("llmstream: malformed event sequence")

	// ErrPayloadDecode indicates a finalized block payload could not be decoded.
	ErrPayloadDecode = errors.New("llmstream: payload decode failed")
)

// FramingError reports an event that does not fit the stream seen so far,
// e.g. a delta for an index with no open block. The response is aborted.
type FramingError struct {
	Event  string // Event name
	Index  int    // Block index, or MessageLevel for message events
	Reason string
	Err    error // Underlying decode error, if any
}

func (e *FramingError) Error() string {
	msg := fmt.Sprintf("framing error at %s", e.Event)
	if e.Index != MessageLevel {
		msg = fmt.Sprintf("%s (index %d)", msg, e.Index)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FramingError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrFraming, e.Err}
	}
	return []error{ErrFraming}
}

// PayloadDecodeError reports a tool call whose accumulated arguments are not
// a valid JSON object. It is scoped to the one call.
type PayloadDecodeError struct {
	Index  int
	CallID string
	Raw    string
	Err    error
}

func (e *PayloadDecodeError) Error() string {
	return fmt.Sprintf("decode arguments of call '%s' (index %d): %v", e.CallID, e.Index, e.Err)
}

func (e *PayloadDecodeError) Unwrap() []error {
	return []error{ErrPayloadDecode, e.Err}
}

// ModelError represents an error related to model validation or availability.
type ModelError struct {
	Model    string // The model that was requested
	Provider string // The provider name
	Reason   string // Human-readable explanation
	Err      error  // Wrapped error (usually ErrInvalidModel)
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model '%s' for provider '%s': %s (%v)", e.Model, e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("model '%s' for provider '%s': %s", e.Model, e.Provider, e.Reason)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// ValidationError represents an error in request parameter validation.
type ValidationError struct {
	Field  string // The parameter field that failed validation
	Value  any    // The invalid value
	Reason string // Human-readable explanation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for '%s' (value: %v): %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// ProviderError represents an error from the underlying provider API,
// either returned by a request or received as an in-stream error event.
type ProviderError struct {
	Provider   string // The provider name
	StatusCode int    // HTTP status code (0 for in-stream errors)
	Type       string // Provider error type, e.g. "overloaded_error"
	Message    string // Error message from provider
	Retryable  bool   // Whether this error is potentially retryable
	Err        error  // Wrapped sentinel or transport error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider '%s' error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	if e.Type != "" {
		return fmt.Sprintf("provider '%s' error (%s): %s", e.Provider, e.Type, e.Message)
	}
	return fmt.Sprintf("provider '%s' error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error is potentially retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}

	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrProviderUnavailable)
}

// IsInvalidRequest checks if an error indicates invalid request parameters.
// These errors are not retryable and require request changes.
func IsInvalidRequest(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrInvalidModel)
}

// IsAuthError checks if an error is related to authentication.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrInvalidAPIKey) {
		return true
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		// HTTP 401/403 indicate auth issues
		return providerErr.StatusCode == 401 || providerErr.StatusCode == 403
	}

	return false
}

// IsFramingError reports whether err aborted a stream because of a
// malformed event sequence.
func IsFramingError(err error) bool {
	return errors.Is(err, ErrFraming)
}
