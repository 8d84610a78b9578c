// Package azure reads code from images with the Azure Computer Vision OCR endpoint.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/codesnap/constants"
	"github.com/joseph-ayodele/codesnap/internal/common"
	"github.com/joseph-ayodele/codesnap/internal/extract"
	"github.com/joseph-ayodele/codesnap/internal/llm"
)

const ocrPath = "/vision/v3.2/ocr"

type Config struct {
	APIKey   string
	Endpoint string // e.g. https://<resource>.cognitiveservices.azure.com
	Timeout  time.Duration
}

func FromCommon(c common.AzureConfig) Config {
	return Config{APIKey: c.APIKey, Endpoint: c.Endpoint, Timeout: c.Timeout}
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, logger: logger}
}

type ocrResponse struct {
	Language string `json:"language"`
	Regions  []struct {
		Lines []struct {
			Words []struct {
				Text string `json:"text"`
			} `json:"words"`
		} `json:"lines"`
	} `json:"regions"`
}

func (c *Client) Name() string { return constants.ProviderAzureVision }

func (c *Client) Configured() bool {
	return !common.IsPlaceholder(c.cfg.APIKey) && strings.TrimSpace(c.cfg.Endpoint) != ""
}

// Attempt posts the raw image and joins recognized words by spaces and lines by LF.
func (c *Client) Attempt(ctx context.Context, img extract.Image) (extract.Result, error) {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()

	b, err := extract.ReadImage(c.Name(), img)
	if err != nil {
		return extract.Result{}, err
	}

	url := strings.TrimRight(c.cfg.Endpoint, "/") + ocrPath
	raw, _, err := llm.SendRaw(ctx, c.http, url, bytes.NewReader(b), map[string]string{
		"Ocp-Apim-Subscription-Key": c.cfg.APIKey,
		"Content-Type":              "application/octet-stream",
	}, c.logger)
	if err != nil {
		var se *llm.StatusError
		if errors.As(err, &se) {
			return extract.Result{}, extract.StatusError(c.Name(), se.StatusCode, se.Body)
		}
		return extract.Result{}, extract.NewProviderError(c.Name(), extract.KindNetwork, err)
	}

	var resp ocrResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return extract.Result{}, extract.NewProviderError(c.Name(), extract.KindMalformed, fmt.Errorf("decode azure response: %w", err))
	}
	text := joinRegions(resp)
	if strings.TrimSpace(text) == "" {
		return extract.Result{}, extract.NewProviderError(c.Name(), extract.KindEmpty, errors.New("no text detected"))
	}

	c.logger.Info("ocr.azure.ok",
		"req_id", rid,
		"language", resp.Language,
		"regions", len(resp.Regions),
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return extract.Result{
		Text:       text,
		Confidence: constants.ProviderConfidence[constants.ProviderAzureVision],
	}, nil
}

func joinRegions(resp ocrResponse) string {
	var sb strings.Builder
	for _, region := range resp.Regions {
		for _, line := range region.Lines {
			words := make([]string, 0, len(line.Words))
			for _, w := range line.Words {
				words = append(words, w.Text)
			}
			sb.WriteString(strings.Join(words, " "))
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
