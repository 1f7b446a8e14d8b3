package keshavai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrSendInFlight is returned when a send is attempted against a
// conversation that already has one in flight.
var ErrSendInFlight = errors.New("a message is already being sent for this conversation")

// ConfigurationError reports missing settings. It is raised before any
// network call and never mutates conversation state.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration incomplete: %s not set, check your settings", strings.Join(e.Missing, ", "))
}

// TransportError wraps a network-level failure reaching the endpoint
// (DNS, connection refused, timeout). Distinct from an HTTP error
// status carried in a completed response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to reach AI service: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError reports a non-2xx response from the completion endpoint.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("AI service returned HTTP %d: %s", e.Status, e.Message)
}

// ModelUnavailableError is the HTTPError variant recognized when the
// backend reports the selected model has no available routing.
type ModelUnavailableError struct {
	HTTPError
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model is currently unavailable (HTTP %d: %s), please select another model", e.Status, e.Message)
}

// StreamInterruptedError reports a stream that ended abnormally after
// partial content was already applied. The partial assistant message
// is retained, not rolled back.
type StreamInterruptedError struct {
	Err     error
	Partial string
}

func (e *StreamInterruptedError) Error() string {
	return fmt.Sprintf("response stream interrupted, partial answer kept: %v", e.Err)
}

func (e *StreamInterruptedError) Unwrap() error { return e.Err }

// errorBody is the error envelope OpenAI-compatible backends return.
type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// classifyHTTPError turns a non-2xx status and response body into the
// matching typed error. The body's error message is used when present,
// otherwise a status-coded default.
func classifyHTTPError(status int, body []byte) error {
	var envelope errorBody
	message := ""
	if err := json.Unmarshal(body, &envelope); err == nil {
		message = envelope.Error.Message
	}

	lower := strings.ToLower(message)
	if strings.Contains(lower, "no available routing") || strings.Contains(lower, "model_not_found") {
		return &ModelUnavailableError{HTTPError{Status: status, Message: message}}
	}

	if message == "" {
		switch status {
		case 400:
			message = "too many requests received, try again later"
		case 401:
			message = "invalid API credential"
		case 403:
			message = "permission denied"
		default:
			message = "failed to get response from AI service"
		}
	}

	return &HTTPError{Status: status, Message: message}
}
