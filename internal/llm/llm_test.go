package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := ChatCompletionSchema()
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"valid", `{"choices":[{"message":{"content":"x"}}]}`, false},
		{"extra fields", `{"id":"c1","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"x"}}]}`, false},
		{"null finish reason", `{"choices":[{"finish_reason":null,"message":{"content":"x"}}]}`, false},
		{"missing choices", `{}`, true},
		{"empty choices", `{"choices":[]}`, true},
		{"content not string", `{"choices":[{"message":{"content":42}}]}`, true},
		{"invalid json", `{`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSONAgainstSchema(schema, []byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSendJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		if r.Header.Get("X-Key") != "k" {
			t.Errorf("missing custom header")
		}
		b, _ := io.ReadAll(r.Body)
		if string(b) != `{"q":"hello"}` {
			t.Errorf("body = %s", b)
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	t.Cleanup(srv.Close)

	raw, status, err := SendJSON(context.Background(), srv.Client(), srv.URL, map[string]string{"q": "hello"}, map[string]string{"X-Key": "k"}, nil)
	if err != nil {
		t.Fatalf("SendJSON: %v", err)
	}
	if status != http.StatusOK || string(raw) != `{"ok":true}` {
		t.Fatalf("status=%d raw=%s", status, raw)
	}
}

func TestSendJSONNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	raw, status, err := SendJSON(context.Background(), nil, srv.URL, struct{}{}, nil, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if status != http.StatusTooManyRequests || se.StatusCode != status {
		t.Fatalf("status = %d / %d", status, se.StatusCode)
	}
	if !strings.Contains(string(raw), "quota exceeded") {
		t.Fatalf("raw = %q", raw)
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"```python\nprint(1)\n```", "print(1)\n"},
		{"```\nx = 1\n```", "x = 1\n"},
		{"print(1)", "print(1)"},
		{"```inline```", "```inline```"},
	}
	for _, tt := range tests {
		if got := StripCodeFences(tt.in); got != tt.want {
			t.Errorf("StripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDataURL(t *testing.T) {
	if got := DataURL("image/png", []byte("abc")); got != "data:image/png;base64,YWJj" {
		t.Fatalf("DataURL = %q", got)
	}
}
