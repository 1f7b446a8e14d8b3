package keshavai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"
)

// completionTemperature is the fixed sampling temperature sent with
// every request.
const completionTemperature = 0.7

// defaultRequestTimeout bounds a whole completion attempt, including
// a streamed response body.
const defaultRequestTimeout = 2 * time.Minute

// FileAttachment is an opaque file payload sent alongside a user turn.
type FileAttachment struct {
	Name     string
	MimeType string
	Data     []byte
}

// CompletionRequest carries everything one chat-completion call needs.
// Messages hold role and content only; client-side metadata never
// crosses the wire.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	Stream      bool
	File        *FileAttachment
}

// CompletionClient issues one request per user turn against the
// configured chat-completions endpoint. It does not interpret the
// response body; callers branch on the raw response. Transport
// failures are returned as *TransportError, distinct from HTTP error
// statuses carried in a completed response.
type CompletionClient interface {
	Complete(ctx context.Context, request CompletionRequest) (*http.Response, error)
}

// HTTPCompletionClient is the production CompletionClient over
// net/http. The endpoint URL and credential are read from the settings
// provider at call time, so settings changes apply to the next send.
type HTTPCompletionClient struct {
	settings   SettingsProvider
	httpClient *http.Client
}

// HTTPCompletionClientOption configures an HTTPCompletionClient.
type HTTPCompletionClientOption func(*HTTPCompletionClient)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(client *http.Client) HTTPCompletionClientOption {
	return func(c *HTTPCompletionClient) {
		c.httpClient = client
	}
}

// WithRequestTimeout sets the overall request timeout.
func WithRequestTimeout(timeout time.Duration) HTTPCompletionClientOption {
	return func(c *HTTPCompletionClient) {
		c.httpClient.Timeout = timeout
	}
}

// NewHTTPCompletionClient creates a completion client bound to the
// given settings provider.
func NewHTTPCompletionClient(settings SettingsProvider, opts ...HTTPCompletionClientOption) *HTTPCompletionClient {
	client := &HTTPCompletionClient{
		settings:   settings,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// completionBody is the JSON request body for text-only turns.
type completionBody struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

// Complete sends one POST to the configured endpoint. JSON encoding is
// used for text-only turns, multipart/form-data when a file attachment
// is present, carrying the same fields as form parts.
func (c *HTTPCompletionClient) Complete(ctx context.Context, request CompletionRequest) (*http.Response, error) {
	settings := c.settings.Settings(ctx)

	var body bytes.Buffer
	contentType := "application/json"

	if request.File != nil {
		writer := multipart.NewWriter(&body)
		if err := writeMultipartRequest(writer, request); err != nil {
			return nil, fmt.Errorf("failed to encode multipart request: %w", err)
		}
		contentType = writer.FormDataContentType()
	} else {
		payload := completionBody{
			Model:       request.Model,
			Messages:    request.Messages,
			Temperature: request.Temperature,
			Stream:      request.Stream,
		}
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, settings.APIURL, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build completion request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+settings.APIKey)
	httpReq.Header.Set("Content-Type", contentType)
	if request.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	return resp, nil
}

func writeMultipartRequest(writer *multipart.Writer, request CompletionRequest) error {
	if err := writer.WriteField("model", request.Model); err != nil {
		return err
	}

	messages, err := json.Marshal(request.Messages)
	if err != nil {
		return err
	}
	if err := writer.WriteField("messages", string(messages)); err != nil {
		return err
	}

	if err := writer.WriteField("temperature", strconv.FormatFloat(request.Temperature, 'f', -1, 64)); err != nil {
		return err
	}
	if err := writer.WriteField("stream", strconv.FormatBool(request.Stream)); err != nil {
		return err
	}

	name := request.File.Name
	if name == "" {
		name = "file"
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	if request.File.MimeType != "" {
		header.Set("Content-Type", request.File.MimeType)
	}

	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := part.Write(request.File.Data); err != nil {
		return err
	}

	return writer.Close()
}
