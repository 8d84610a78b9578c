// Package app wires configuration into the extraction chain, explainer,
// history store and processor shared by the CLI and the daemon.
package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/joseph-ayodele/codesnap/constants"
	"github.com/joseph-ayodele/codesnap/internal/common"
	"github.com/joseph-ayodele/codesnap/internal/explain"
	"github.com/joseph-ayodele/codesnap/internal/extract"
	"github.com/joseph-ayodele/codesnap/internal/llm/openai"
	"github.com/joseph-ayodele/codesnap/internal/ocr"
	"github.com/joseph-ayodele/codesnap/internal/ocr/azure"
	"github.com/joseph-ayodele/codesnap/internal/ocr/ocrspace"
	"github.com/joseph-ayodele/codesnap/internal/ocr/tesseract"
	"github.com/joseph-ayodele/codesnap/internal/pipeline"
	"github.com/joseph-ayodele/codesnap/internal/repository"
	"github.com/joseph-ayodele/codesnap/internal/search/tavily"
)

// App holds the long-lived components built from a Config.
type App struct {
	Config    *common.Config
	Pipeline  *extract.Pipeline
	Explainer *explain.Explainer
	Store     repository.Store // nil when DB_URL is empty
	Processor *pipeline.Processor
	logger    *slog.Logger
}

// Build validates cfg and constructs every component. Close releases the store.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := OpenRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	var scans repository.ScanRepository
	if store != nil {
		scans = store
	}

	pipe := NewPipeline(cfg, logger, BuildProviders(cfg, logger)...)
	exp := NewExplainer(cfg, logger)
	proc := pipeline.NewProcessor(logger, pipe, exp, scans)
	if conv := ocr.NewHEICConverter(cfg.Pipeline.HEICConverter, cfg.Pipeline.HEICCacheDir, ocr.ExecRunner{Logger: logger}, logger); conv != nil {
		proc.HEIC = conv
	}
	return &App{
		Config:    cfg,
		Pipeline:  pipe,
		Explainer: exp,
		Store:     store,
		Processor: proc,
		logger:    logger,
	}, nil
}

// Close closes the history store, if any.
func (a *App) Close() {
	if a.Store != nil {
		repository.Close(a.Store, a.logger)
	}
}

// BuildProviders returns every provider in fallback order, configured or not.
func BuildProviders(cfg *common.Config, logger *slog.Logger) []extract.Provider {
	return []extract.Provider{
		openai.NewClient(openai.FromCommon(cfg.Vision), logger),
		azure.NewClient(azure.FromCommon(cfg.Azure), logger),
		ocrspace.NewClient(ocrspace.FromCommon(cfg.OCRSpace), logger),
		tesseract.New(tesseract.FromCommon(cfg.Tesseract), ocr.ExecRunner{Logger: logger}, logger),
	}
}

// NewPipeline builds the extraction chain; unconfigured providers are dropped.
func NewPipeline(cfg *common.Config, logger *slog.Logger, providers ...extract.Provider) *extract.Pipeline {
	synthetic := extract.NewSynthetic(extract.SyntheticConfig{
		DelayMin:        cfg.Synthetic.DelayMin,
		DelayJitter:     cfg.Synthetic.DelayJitter,
		LastResortDelay: cfg.Synthetic.LastResortDelay,
	})
	return extract.NewPipeline(extract.Config{
		AttemptTimeout: cfg.Pipeline.AttemptTimeout,
		MinTextLength:  cfg.Pipeline.MinTextLength,
		Parallel:       cfg.Pipeline.Parallel,
	}, synthetic, logger, providers...)
}

// NewExplainer builds the answer-service explainer; without a Tavily key it
// answers from the heuristics alone.
func NewExplainer(cfg *common.Config, logger *slog.Logger) *explain.Explainer {
	client := tavily.NewClient(tavily.FromCommon(cfg.Answer), logger)
	return explain.NewExplainer(client, cfg.Answer.Timeout, logger)
}

// OpenRepository opens the history store named by DB_URL and pings it.
// It returns a nil store and no error when history is disabled.
func OpenRepository(ctx context.Context, cfg *common.Config, logger *slog.Logger) (repository.Store, error) {
	store, err := repository.Open(ctx, cfg.Database, logger)
	if errors.Is(err, common.ErrDisabled) {
		logger.Info("scan history disabled", "reason", "DB_URL not set")
		return nil, nil
	}
	if err != nil {
		return nil, common.WrapError(err, "open scan history")
	}
	if err := repository.HealthCheck(ctx, store, cfg.Database.DialTimeout, logger); err != nil {
		repository.Close(store, logger)
		return nil, err
	}
	return store, nil
}

// ProviderInfo is one row of the provider status listing.
type ProviderInfo struct {
	Name        string
	Configured  bool
	Confidence  float32
	Description string
}

var providerDescriptions = map[string]string{
	constants.ProviderOpenAIVision: "Primary OCR service - Most accurate for code extraction",
	constants.ProviderAzureVision:  "Fallback OCR service - Microsoft Computer Vision",
	constants.ProviderOCRSpace:     "Fallback OCR service - Free tier available",
	constants.ProviderTesseract:    "Local OCR - tesseract binary or libtesseract",
	constants.ProviderSynthetic:    "Intelligent fallback - Varies results based on image properties",
}

// ProviderStatus lists every provider in fallback order, ending with the
// always-available synthetic fallback.
func ProviderStatus(cfg *common.Config, logger *slog.Logger) []ProviderInfo {
	providers := BuildProviders(cfg, logger)
	out := make([]ProviderInfo, 0, len(providers)+1)
	for _, p := range providers {
		out = append(out, ProviderInfo{
			Name:        p.Name(),
			Configured:  p.Configured(),
			Confidence:  constants.ProviderConfidence[p.Name()],
			Description: providerDescriptions[p.Name()],
		})
	}
	return append(out, ProviderInfo{
		Name:        constants.ProviderSynthetic,
		Configured:  true,
		Description: providerDescriptions[constants.ProviderSynthetic],
	})
}
