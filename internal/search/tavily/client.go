// Package tavily is a small client for the Tavily search/answer API.
package tavily

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/codesnap/internal/common"
	"github.com/joseph-ayodele/codesnap/internal/llm"
)

// ErrNotConfigured is returned by Search when no usable API key is set.
var ErrNotConfigured = errors.New("tavily: api key not configured")

type Config struct {
	APIKey      string
	URL         string // default https://api.tavily.com/search
	SearchDepth string // basic | advanced
	MaxResults  int
	Domains     []string // include_domains allow-list
	Timeout     time.Duration
}

func FromCommon(c common.AnswerConfig) Config {
	return Config{
		APIKey:      c.APIKey,
		URL:         c.URL,
		SearchDepth: c.SearchDepth,
		MaxResults:  c.MaxResults,
		Domains:     c.Domains,
		Timeout:     c.Timeout,
	}
}

type request struct {
	APIKey            string   `json:"api_key"`
	Query             string   `json:"query"`
	SearchDepth       string   `json:"search_depth"`
	IncludeAnswer     bool     `json:"include_answer"`
	IncludeRawContent bool     `json:"include_raw_content"`
	MaxResults        int      `json:"max_results"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
}

// Result is one search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Response is the subset of the search response we use.
type Response struct {
	Query        string   `json:"query"`
	Answer       string   `json:"answer"`
	Results      []Result `json:"results"`
	ResponseTime float64  `json:"response_time"`
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
	schema *jsonschema.Schema
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = "https://api.tavily.com/search"
	}
	if cfg.SearchDepth == "" {
		cfg.SearchDepth = "basic"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.Domains == nil {
		cfg.Domains = common.DefaultAnswerDomains
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := llm.CompileSchema(responseSchema())
	if err != nil {
		panic(err)
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, logger: logger, schema: schema}
}

func (c *Client) Configured() bool { return !common.IsPlaceholder(c.cfg.APIKey) }

// Search runs one query with answer generation enabled.
func (c *Client) Search(ctx context.Context, query string) (*Response, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()

	body := request{
		APIKey:            c.cfg.APIKey,
		Query:             query,
		SearchDepth:       c.cfg.SearchDepth,
		IncludeAnswer:     true,
		IncludeRawContent: false,
		MaxResults:        c.cfg.MaxResults,
		IncludeDomains:    c.cfg.Domains,
	}
	raw, status, err := llm.SendJSON(ctx, c.http, c.cfg.URL, body, nil, c.logger)
	if err != nil {
		c.logger.Warn("search.tavily.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("tavily search: %w", err)
	}
	if err := llm.Validate(c.schema, raw); err != nil {
		return nil, fmt.Errorf("tavily response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode tavily response: %w", err)
	}

	c.logger.Info("search.tavily.ok",
		"req_id", rid,
		"has_answer", resp.Answer != "",
		"results", len(resp.Results),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &resp, nil
}

func responseSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer": map[string]any{"type": []string{"string", "null"}},
			"results": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"url"},
					"properties": map[string]any{
						"title":   map[string]any{"type": []string{"string", "null"}},
						"url":     map[string]any{"type": "string"},
						"content": map[string]any{"type": []string{"string", "null"}},
						"score":   map[string]any{"type": "number"},
					},
				},
			},
		},
	}
}
