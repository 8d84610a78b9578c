package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joseph-ayodele/codesnap/internal/extract"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

func TestAttemptSendsVisionRequest(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"def greet(name):\n    print(name)\n"}}]}`)
	})

	res, err := c.Attempt(context.Background(), extract.NewMemoryImage("shot.png", pngHeader))
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if res.Text != "def greet(name):\n    print(name)" {
		t.Fatalf("text = %q", res.Text)
	}
	if res.Confidence != 0.95 {
		t.Fatalf("confidence = %v, want 0.95", res.Confidence)
	}
	if got.Model != "gpt-4o" || got.MaxTokens != 1000 || got.Temperature != 0.1 {
		t.Fatalf("request options = %+v", got)
	}
	parts := got.Messages[0].Content
	if len(parts) != 2 || parts[1].ImageURL == nil {
		t.Fatalf("content parts = %+v", parts)
	}
	if !strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,") {
		t.Fatalf("image url = %.40s", parts[1].ImageURL.URL)
	}
	if parts[1].ImageURL.Detail != "high" {
		t.Fatalf("detail = %q", parts[1].ImageURL.Detail)
	}
}

func TestAttemptStripsCodeFences(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"`+"```python\\nprint('hi there')\\n```"+`"}}]}`)
	})
	res, err := c.Attempt(context.Background(), extract.NewMemoryImage("a.jpg", []byte("jpeg")))
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if res.Text != "print('hi there')" {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestAttemptErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   extract.ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, extract.KindStatus},
		{"no choices", http.StatusOK, `{"choices":[]}`, extract.KindMalformed},
		{"not json", http.StatusOK, `<html>`, extract.KindMalformed},
		{"null content", http.StatusOK, `{"choices":[{"message":{"content":null}}]}`, extract.KindMalformed},
		{"blank content", http.StatusOK, `{"choices":[{"message":{"content":"   "}}]}`, extract.KindEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.Attempt(context.Background(), extract.NewMemoryImage("a.png", pngHeader))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := extract.KindOf(err); got != tt.kind {
				t.Fatalf("kind = %q, want %q (%v)", got, tt.kind, err)
			}
		})
	}
}

func TestConfigured(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"", false},
		{"your_openai_api_key_here", false},
		{"sk-live-123", true},
	}
	for _, tt := range tests {
		c := NewClient(Config{APIKey: tt.key}, nil)
		if got := c.Configured(); got != tt.want {
			t.Errorf("Configured(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestAttemptEmptyImage(t *testing.T) {
	c := NewClient(Config{APIKey: "sk-test", BaseURL: "http://127.0.0.1:1"}, nil)
	_, err := c.Attempt(context.Background(), extract.NewMemoryImage("a.png", nil))
	if extract.KindOf(err) != extract.KindImage {
		t.Fatalf("kind = %q, want image", extract.KindOf(err))
	}
}
