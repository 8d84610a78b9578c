package openai

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/joseph-ayodele/codesnap/internal/common"
	"github.com/joseph-ayodele/codesnap/internal/llm"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Config for the OpenAI vision client.
type Config struct {
	APIKey      string
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // default gpt-4o
	MaxTokens   int           // default 1000
	Temperature float32       // 0..2, default 0.1 when zero
	Detail      string        // image detail level, default "high"
	Timeout     time.Duration // http client timeout
}

// FromCommon maps the shared configuration onto a client Config.
func FromCommon(c common.VisionConfig) Config {
	return Config{
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Timeout:     c.Timeout,
	}
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
	schema *jsonschema.Schema
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}
	if cfg.Detail == "" {
		cfg.Detail = "high"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := llm.CompileSchema(llm.ChatCompletionSchema())
	if err != nil {
		// static schema; a failure here is a programming error
		panic(err)
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		schema: schema,
	}
}
