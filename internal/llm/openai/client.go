package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/codesnap/constants"
	"github.com/joseph-ayodele/codesnap/internal/common"
	"github.com/joseph-ayodele/codesnap/internal/extract"
	"github.com/joseph-ayodele/codesnap/internal/llm"
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float32       `json:"temperature"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Name implements extract.Provider.
func (c *Client) Name() string { return constants.ProviderOpenAIVision }

// Configured implements extract.Provider.
func (c *Client) Configured() bool { return !common.IsPlaceholder(c.cfg.APIKey) }

// Attempt sends the image to chat/completions as a data URL and returns the
// transcribed code.
func (c *Client) Attempt(ctx context.Context, img extract.Image) (extract.Result, error) {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()

	b, err := extract.ReadImage(c.Name(), img)
	if err != nil {
		return extract.Result{}, err
	}

	body := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: llm.VisionExtractionPrompt},
				{Type: "image_url", ImageURL: &imageURL{
					URL:    llm.DataURL(extract.ContentType(img.Name(), b), b),
					Detail: c.cfg.Detail,
				}},
			},
		}},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	c.logger.Info("llm.vision.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"image", img.Name(),
		"image_bytes", len(b),
	)

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	}, c.logger)
	if err != nil {
		c.logger.Error("llm.vision.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		var se *llm.StatusError
		if errors.As(err, &se) {
			return extract.Result{}, extract.StatusError(c.Name(), se.StatusCode, se.Body)
		}
		return extract.Result{}, extract.NewProviderError(c.Name(), extract.KindNetwork, err)
	}

	if err := llm.Validate(c.schema, raw); err != nil {
		c.logger.Error("llm.vision.schema_validation_failed",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return extract.Result{}, extract.NewProviderError(c.Name(), extract.KindMalformed, err)
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return extract.Result{}, extract.NewProviderError(c.Name(), extract.KindMalformed, fmt.Errorf("decode openai response: %w", err))
	}
	content := strings.TrimSpace(llm.StripCodeFences(cc.Choices[0].Message.Content))
	if content == "" {
		return extract.Result{}, extract.NewProviderError(c.Name(), extract.KindEmpty, errors.New("no code text in response"))
	}

	c.logger.Info("llm.vision.ok",
		"req_id", rid,
		"text_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return extract.Result{
		Text:       content,
		Confidence: constants.ProviderConfidence[constants.ProviderOpenAIVision],
	}, nil
}
