package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "go language", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Write([]byte(`{"RelatedTopics":[
			{"Text":"Go - A compiled programming language","FirstURL":"https://go.dev"},
			{"Text":"Gopher - The Go mascot","FirstURL":"https://go.dev/blog/gopher"},
			{"Text":"","FirstURL":"https://ignored.example.com"},
			{"Text":"No URL here","FirstURL":""}
		]}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL + "/"))

	results, err := client.Search(context.Background(), "go language")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Go", results[0].Title)
	assert.Equal(t, "https://go.dev", results[0].URL)
	assert.Equal(t, "Go - A compiled programming language", results[0].Snippet)
}

func TestClient_Search_CapsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"RelatedTopics":[
			{"Text":"a - 1","FirstURL":"https://a.example.com"},
			{"Text":"b - 2","FirstURL":"https://b.example.com"},
			{"Text":"c - 3","FirstURL":"https://c.example.com"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL+"/"), WithMaxResults(2))

	results, err := client.Search(context.Background(), "query")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestClient_Search_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL + "/"))

	_, err := client.Search(context.Background(), "query")
	assert.Error(t, err)
}

func TestComposeQuery(t *testing.T) {
	prompt := "what is go?"

	assert.Equal(t, prompt, ComposeQuery(prompt, nil))

	composed := ComposeQuery(prompt, []Result{
		{Title: "Go", URL: "https://go.dev", Snippet: "Go - A compiled language"},
	})
	assert.Contains(t, composed, "Web search results:")
	assert.Contains(t, composed, "https://go.dev")
	assert.Contains(t, composed, prompt)
}
