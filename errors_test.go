package keshavai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{
			name:        "message from error body",
			status:      401,
			body:        `{"error":{"message":"Incorrect API key provided"}}`,
			wantMessage: "Incorrect API key provided",
		},
		{
			name:        "400 default",
			status:      400,
			body:        `{}`,
			wantMessage: "too many requests received, try again later",
		},
		{
			name:        "401 default",
			status:      401,
			body:        ``,
			wantMessage: "invalid API credential",
		},
		{
			name:        "403 default",
			status:      403,
			body:        `{}`,
			wantMessage: "permission denied",
		},
		{
			name:        "other status default",
			status:      500,
			body:        `not even json`,
			wantMessage: "failed to get response from AI service",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyHTTPError(tt.status, []byte(tt.body))

			var httpErr *HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.status, httpErr.Status)
			assert.Equal(t, tt.wantMessage, httpErr.Message)
		})
	}
}

func TestClassifyHTTPError_ModelUnavailable(t *testing.T) {
	err := classifyHTTPError(404, []byte(`{"error":{"message":"No available routing for model gpt-9"}}`))

	var unavailable *ModelUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Contains(t, unavailable.Error(), "select another model")
}

func TestTransportError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := &TransportError{Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestConfigurationError_ListsMissingSettings(t *testing.T) {
	err := &ConfigurationError{Missing: []string{"API key", "model"}}
	assert.Contains(t, err.Error(), "API key, model")
}
