// Package ocrspace reads code from images with the OCR.space parse API.
package ocrspace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/codesnap/constants"
	"github.com/joseph-ayodele/codesnap/internal/common"
	"github.com/joseph-ayodele/codesnap/internal/extract"
	"github.com/joseph-ayodele/codesnap/internal/llm"
)

type Config struct {
	APIKey   string
	URL      string // default https://api.ocr.space/parse/image
	Language string // default eng
	Timeout  time.Duration
}

func FromCommon(c common.OCRSpaceConfig) Config {
	return Config{APIKey: c.APIKey, URL: c.URL, Language: c.Language, Timeout: c.Timeout}
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = "https://api.ocr.space/parse/image"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, logger: logger}
}

type parseResponse struct {
	ParsedResults []struct {
		ParsedText        string `json:"ParsedText"`
		FileParseExitCode int    `json:"FileParseExitCode"`
		ErrorMessage      string `json:"ErrorMessage"`
	} `json:"ParsedResults"`
	OCRExitCode           int             `json:"OCRExitCode"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"` // string or []string
}

func (c *Client) Name() string { return constants.ProviderOCRSpace }

func (c *Client) Configured() bool { return !common.IsPlaceholder(c.cfg.APIKey) }

func (c *Client) Attempt(ctx context.Context, img extract.Image) (extract.Result, error) {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()

	b, err := extract.ReadImage(c.Name(), img)
	if err != nil {
		return extract.Result{}, err
	}
	body, contentType, err := c.buildForm(img.Name(), b)
	if err != nil {
		return extract.Result{}, extract.NewProviderError(c.Name(), extract.KindImage, err)
	}

	raw, _, err := llm.SendRaw(ctx, c.http, c.cfg.URL, body, map[string]string{
		"Content-Type": contentType,
	}, c.logger)
	if err != nil {
		var se *llm.StatusError
		if errors.As(err, &se) {
			return extract.Result{}, extract.StatusError(c.Name(), se.StatusCode, se.Body)
		}
		return extract.Result{}, extract.NewProviderError(c.Name(), extract.KindNetwork, err)
	}

	var resp parseResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return extract.Result{}, extract.NewProviderError(c.Name(), extract.KindMalformed, fmt.Errorf("decode ocr.space response: %w", err))
	}
	if resp.IsErroredOnProcessing {
		return extract.Result{}, extract.NewProviderError(c.Name(), extract.KindStatus,
			fmt.Errorf("processing failed (exit %d): %s", resp.OCRExitCode, errorMessage(resp.ErrorMessage)))
	}
	if len(resp.ParsedResults) == 0 || strings.TrimSpace(resp.ParsedResults[0].ParsedText) == "" {
		return extract.Result{}, extract.NewProviderError(c.Name(), extract.KindEmpty, errors.New("no text detected"))
	}
	text := resp.ParsedResults[0].ParsedText

	c.logger.Info("ocr.ocrspace.ok",
		"req_id", rid,
		"exit_code", resp.OCRExitCode,
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return extract.Result{
		Text:       text,
		Confidence: constants.ProviderConfidence[constants.ProviderOCRSpace],
	}, nil
}

func (c *Client) buildForm(name string, b []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if filepath.Ext(name) == "" {
		name += ".jpg"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(name)))
	h.Set("Content-Type", extract.ContentType(name, b))
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(b); err != nil {
		return nil, "", err
	}

	fields := [][2]string{
		{"apikey", c.cfg.APIKey},
		{"language", c.cfg.Language},
		{"isOverlayRequired", "false"},
		{"detectOrientation", "true"},
		{"scale", "true"},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "unknown error"
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return strings.Join(list, "; ")
	}
	return string(raw)
}
