// Package search provides an optional web-search helper that produces
// context text for a prompt before it is sent to the model.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/keshav-ai/keshavai/observability"
)

const (
	defaultBaseURL    = "https://api.duckduckgo.com/"
	defaultMaxResults = 5
)

// Result is one web-search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Client queries the DuckDuckGo instant-answer API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxResults int
	logger     observability.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the search endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithLimiter replaces the client-side rate limiter.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) { c.limiter = limiter }
}

// WithMaxResults caps the number of results returned per query.
func WithMaxResults(n int) Option {
	return func(c *Client) { c.maxResults = n }
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a search client. Defaults: DuckDuckGo endpoint,
// 10s request timeout, one request per second with a small burst.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 3),
		maxResults: defaultMaxResults,
		logger:     observability.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// instantAnswer is the subset of the instant-answer payload consumed
// here.
type instantAnswer struct {
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Search returns up to maxResults hits for the query.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s?q=%s&format=json&no_html=1", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned HTTP %d", resp.StatusCode)
	}

	var answer instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := make([]Result, 0, c.maxResults)
	for _, topic := range answer.RelatedTopics {
		if topic.Text == "" || topic.FirstURL == "" {
			continue
		}
		results = append(results, Result{
			Title:   strings.SplitN(topic.Text, " - ", 2)[0],
			URL:     topic.FirstURL,
			Snippet: topic.Text,
		})
		if len(results) == c.maxResults {
			break
		}
	}

	c.logger.WithFields(map[string]interface{}{"query": query, "results": len(results)}).Debug("web search completed")
	return results, nil
}

// ComposeQuery prepends search results to a prompt so the model can
// ground its answer. With no results the prompt is returned unchanged.
func ComposeQuery(prompt string, results []Result) string {
	if len(results) == 0 {
		return prompt
	}

	var b strings.Builder
	b.WriteString("Web search results:\n")
	for i, result := range results {
		fmt.Fprintf(&b, "%d. %s: %s (%s)\n", i+1, result.Title, result.Snippet, result.URL)
	}
	b.WriteString("\nUsing the results above when relevant, answer:\n")
	b.WriteString(prompt)
	return b.String()
}
