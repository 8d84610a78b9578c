// Package pipeline runs a photo through extraction, explanation and scoring,
// and records the outcome in scan history.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/codesnap/constants"
	"github.com/joseph-ayodele/codesnap/internal/analysis"
	"github.com/joseph-ayodele/codesnap/internal/common"
	"github.com/joseph-ayodele/codesnap/internal/entity"
	"github.com/joseph-ayodele/codesnap/internal/explain"
	"github.com/joseph-ayodele/codesnap/internal/extract"
	"github.com/joseph-ayodele/codesnap/internal/repository"
)

// Extractor is satisfied by *extract.Pipeline.
type Extractor interface {
	Extract(ctx context.Context, img extract.Image) extract.Result
}

// Explainer is satisfied by *explain.Explainer.
type Explainer interface {
	Explain(ctx context.Context, code string) explain.Result
}

// ImageConverter is satisfied by *ocr.HEICConverter.
type ImageConverter interface {
	ToPNG(ctx context.Context, path string) (out string, cleanup func(), err error)
}

// Processor coordinates extraction, then explanation and scoring of the text.
type Processor struct {
	Logger  *slog.Logger
	Extract Extractor
	Explain Explainer
	Scans   repository.ScanRepository // nil disables history
	HEIC    ImageConverter            // nil rejects HEIC photos
}

func NewProcessor(logger *slog.Logger, ex Extractor, exp Explainer, scans repository.ScanRepository) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Extract: ex, Explain: exp, Scans: scans}
}

// Process always returns a populated scan. The error reports only a failure
// to save it.
func (p *Processor) Process(ctx context.Context, img extract.Image) (entity.Scan, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	start := time.Now()

	res := p.Extract.Extract(ctx, img)
	scan := entity.Scan{
		ID:          uuid.New(),
		Text:        res.Text,
		Confidence:  res.Confidence,
		Provider:    res.Provider,
		Synthetic:   res.Synthetic,
		Attempts:    toAttempts(res.Attempts),
		Language:    constants.LangUnknown,
		Suggestions: []string{},
	}
	if img != nil {
		scan.SourceName = img.Name()
		if n, err := img.Size(); err == nil {
			scan.ImageBytes = n
		}
	}

	cx := analysis.Score(res.Text)
	scan.Lines, scan.Functions, scan.Loops, scan.Conditions = cx.Lines, cx.Functions, cx.Loops, cx.Conditions
	scan.Complexity = string(cx.Level)

	if strings.TrimSpace(res.Text) != "" {
		exp := p.Explain.Explain(ctx, res.Text)
		scan.Explanation = exp.Text
		scan.ExplanationSource = exp.Source
		scan.Language = analysis.DetectLanguage(res.Text)
		scan.Suggestions = analysis.Suggestions(res.Text)
	}
	scan.Duration = time.Since(start)
	scan.CreatedAt = time.Now().UTC()

	p.Logger.Info("processor.scan.ok",
		"req_id", rid,
		"scan_id", scan.ID,
		"provider", scan.Provider,
		"synthetic", scan.Synthetic,
		"language", scan.Language,
		"complexity", scan.Complexity,
		"explanation_source", scan.ExplanationSource,
		"elapsed_ms", scan.Duration.Milliseconds(),
	)

	if p.Scans == nil {
		return scan, nil
	}
	if err := p.Scans.Save(ctx, &scan); err != nil {
		p.Logger.Error("processor.save.failed", "req_id", rid, "scan_id", scan.ID, "error", err)
		return scan, fmt.Errorf("save scan: %w", err)
	}
	p.Logger.Debug("processor.save.ok", "req_id", rid, "scan_id", scan.ID)
	return scan, nil
}

// ProcessFile processes the image at path. Files with an unsupported
// extension are rejected before any provider is called; HEIC photos are
// converted to PNG first.
func (p *Processor) ProcessFile(ctx context.Context, path string) (entity.Scan, error) {
	ext := filepath.Ext(path)
	if !constants.IsImageExt(ext) {
		return entity.Scan{}, fmt.Errorf("%w: unsupported image type %q", common.ErrInvalidInput, ext)
	}
	if !constants.IsHEICExt(ext) {
		return p.Process(ctx, extract.NewFileImage(path))
	}
	if p.HEIC == nil {
		return entity.Scan{}, fmt.Errorf("%w: HEIC conversion is disabled", common.ErrInvalidInput)
	}
	png, cleanup, err := p.HEIC.ToPNG(ctx, path)
	if err != nil {
		return entity.Scan{}, fmt.Errorf("convert %s: %w", filepath.Base(path), err)
	}
	if cleanup != nil {
		defer cleanup()
	}
	p.Logger.Debug("processor.heic.converted", "path", path, "png", png)
	return p.Process(ctx, extract.NewFileImage(png).WithSource(path))
}

func toAttempts(in []extract.Attempt) []entity.Attempt {
	if len(in) == 0 {
		return nil
	}
	out := make([]entity.Attempt, len(in))
	for i, a := range in {
		out[i] = entity.Attempt{
			Provider:  a.Provider,
			Error:     a.Err,
			Kind:      string(a.Kind),
			ElapsedMS: a.Elapsed.Milliseconds(),
		}
	}
	return out
}
