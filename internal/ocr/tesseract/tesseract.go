// Package tesseract is the local, offline OCR provider. It shells out to the
// tesseract binary by default; building with -tags gosseract links libtesseract
// through gosseract instead.
package tesseract

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/codesnap/constants"
	"github.com/joseph-ayodele/codesnap/internal/common"
	"github.com/joseph-ayodele/codesnap/internal/extract"
	"github.com/joseph-ayodele/codesnap/internal/ocr"
)

const (
	EngineExec    = "exec"
	EngineLibrary = "library"
)

// fallbackConfidence is used when the engine produced text but no word confidences.
const fallbackConfidence float32 = 0.5

var errLibraryUnavailable = errors.New("gosseract engine not compiled in (build with -tags gosseract)")

type Config struct {
	Enabled     bool
	Engine      string // exec | library
	Binary      string // default tesseract
	Lang        string // default eng
	TessdataDir string
	PSM         int // page segmentation mode; 6 = single uniform block
}

func FromCommon(c common.TesseractConfig) Config {
	return Config{
		Enabled:     c.Enabled,
		Engine:      c.Engine,
		Binary:      c.Binary,
		Lang:        c.Lang,
		TessdataDir: c.TessdataDir,
		PSM:         c.PSM,
	}
}

// engine recognizes one image and reports mean word confidence in 0..1 (0 = unknown).
type engine interface {
	available() error
	recognize(ctx context.Context, img extract.Image) (text string, conf float32, err error)
}

type Client struct {
	cfg    Config
	engine engine
	avail  error
	logger *slog.Logger
}

// New builds the provider. runner is used by the exec engine; nil means os/exec.
func New(cfg Config, runner ocr.Runner, logger *slog.Logger) *Client {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.Engine == "" {
		cfg.Engine = EngineExec
	}
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ocr.ExecRunner{Logger: logger}
	}

	var eng engine
	switch cfg.Engine {
	case EngineLibrary:
		eng = newLibraryEngine(cfg)
	default:
		eng = newExecEngine(cfg, runner)
	}
	c := &Client{cfg: cfg, engine: eng, logger: logger}
	if cfg.Enabled {
		c.avail = eng.available()
		if c.avail != nil {
			logger.Warn("ocr.tesseract.unavailable", "engine", cfg.Engine, "error", c.avail)
		}
	}
	return c
}

func (c *Client) Name() string { return constants.ProviderTesseract }

// Configured is true when enabled and the binary or library can be used.
func (c *Client) Configured() bool { return c.cfg.Enabled && c.avail == nil }

func (c *Client) Attempt(ctx context.Context, img extract.Image) (extract.Result, error) {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()

	text, conf, err := c.engine.recognize(ctx, img)
	if err != nil {
		var pe *extract.ProviderError
		if errors.As(err, &pe) {
			return extract.Result{}, err
		}
		if ctx.Err() != nil {
			return extract.Result{}, extract.NewProviderError(c.Name(), extract.KindTimeout, err)
		}
		return extract.Result{}, extract.NewProviderError(c.Name(), extract.KindMalformed, err)
	}
	if strings.TrimSpace(text) == "" {
		return extract.Result{}, extract.NewProviderError(c.Name(), extract.KindEmpty, errors.New("no text recognized"))
	}

	c.logger.Info("ocr.tesseract.ok",
		"req_id", rid,
		"engine", c.cfg.Engine,
		"mean_conf", conf,
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return extract.Result{Text: text, Confidence: capConfidence(conf)}, nil
}

func capConfidence(conf float32) float32 {
	ceiling := constants.ProviderConfidence[constants.ProviderTesseract]
	switch {
	case conf <= 0:
		return fallbackConfidence
	case conf > ceiling:
		return ceiling
	default:
		return conf
	}
}
