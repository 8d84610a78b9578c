package tavily

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
)

func TestSearchSendsOptions(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = io.WriteString(w, `{
			"query": "q",
			"answer": "The function header is missing a colon.",
			"results": [
				{"title": "SyntaxError", "url": "https://docs.python.org/3/tutorial/errors.html", "content": "...", "score": 0.9}
			],
			"response_time": 1.2
		}`)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{APIKey: "tvly-key", URL: srv.URL}, nil)
	resp, err := c.Search(context.Background(), "explain this")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Answer == "" || len(resp.Results) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
	if got.APIKey != "tvly-key" || got.Query != "explain this" {
		t.Fatalf("request = %+v", got)
	}
	if got.SearchDepth != "basic" || !got.IncludeAnswer || got.IncludeRawContent || got.MaxResults != 5 {
		t.Fatalf("options = %+v", got)
	}
	if !slices.Contains(got.IncludeDomains, "stackoverflow.com") || len(got.IncludeDomains) != 5 {
		t.Fatalf("domains = %v", got.IncludeDomains)
	}
}

func TestSearchNullAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"answer": null, "results": []}`)
	}))
	t.Cleanup(srv.Close)

	resp, err := NewClient(Config{APIKey: "k", URL: srv.URL}, nil).Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Answer != "" {
		t.Fatalf("answer = %q", resp.Answer)
	}
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"detail":"invalid key"}`},
		{"bad results", http.StatusOK, `{"answer":"x","results":"nope"}`},
		{"not json", http.StatusOK, `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			t.Cleanup(srv.Close)

			if _, err := NewClient(Config{APIKey: "k", URL: srv.URL}, nil).Search(context.Background(), "q"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSearchNotConfigured(t *testing.T) {
	c := NewClient(Config{APIKey: "your_tavily_api_key_here"}, nil)
	if c.Configured() {
		t.Fatal("placeholder key reported configured")
	}
	if _, err := c.Search(context.Background(), "q"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v", err)
	}
}
