package tesseract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/codesnap/constants"
	"github.com/joseph-ayodele/codesnap/internal/extract"
	"github.com/joseph-ayodele/codesnap/internal/ocr"
)

// formfeed and box-drawing noise tesseract emits at page ends
var reBoxNoise = regexp.MustCompile(`[\f\x{2500}-\x{257F}]`)

type execEngine struct {
	cfg      Config
	runner   ocr.Runner
	lookPath func(string) (string, error)
}

func newExecEngine(cfg Config, runner ocr.Runner) *execEngine {
	return &execEngine{cfg: cfg, runner: runner, lookPath: exec.LookPath}
}

func (e *execEngine) available() error {
	if _, err := e.lookPath(e.cfg.Binary); err != nil {
		return fmt.Errorf("tesseract binary %q: %w", e.cfg.Binary, err)
	}
	return nil
}

func (e *execEngine) recognize(ctx context.Context, img extract.Image) (string, float32, error) {
	path, cleanup, err := localPath(img)
	if err != nil {
		return "", 0, err
	}
	defer cleanup()

	// tesseract <file> stdout -l <lang> [--psm N] [--tessdata-dir D]
	out, errb, err := e.runner.Run(ctx, e.cfg.Binary, e.args(path)...)
	if err != nil {
		return "", 0, fmt.Errorf("tesseract: %w: %s", err, ocr.Truncate(string(errb), 512))
	}
	text := reBoxNoise.ReplaceAllString(string(out), "")

	conf, err := e.tsvConfidence(ctx, path)
	if err != nil {
		// text is still usable without confidences
		conf = 0
	}
	return text, conf, nil
}

func (e *execEngine) args(path string, extra ...string) []string {
	args := []string{path, "stdout", "-l", e.cfg.Lang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return append(args, extra...)
}

// tsvConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (e *execEngine) tsvConfidence(ctx context.Context, path string) (float32, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Binary, e.args(path, "tsv")...)
	if err != nil {
		return 0, fmt.Errorf("tesseract TSV: %w: %s", err, ocr.Truncate(string(errb), 512))
	}
	return MeanTSVConfidence(string(out)), nil
}

// MeanTSVConfidence averages the conf column of tesseract TSV output, skipping
// the header and non-word rows (conf -1). Result is in 0..1, 0 when no words.
func MeanTSVConfidence(tsv string) float32 {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || strings.TrimSpace(ln) == "" {
			continue
		}
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := strings.TrimSpace(cols[10])
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil && v >= 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float32(sum / n / 100.0)
}

// localPath returns a path on disk for img, writing a temporary copy when the
// image only lives in memory.
func localPath(img extract.Image) (string, func(), error) {
	if p, ok := img.(extract.Pather); ok && p.Path() != "" {
		return p.Path(), func() {}, nil
	}
	b, err := extract.ReadImage(constants.ProviderTesseract, img)
	if err != nil {
		return "", func() {}, err
	}
	ext := filepath.Ext(img.Name())
	if !constants.IsImageExt(ext) || constants.IsHEICExt(ext) {
		ext = ".png"
	}
	f, err := os.CreateTemp("", "codesnap-*"+ext)
	if err != nil {
		return "", func() {}, fmt.Errorf("create temp image: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		cleanup()
		return "", func() {}, fmt.Errorf("write temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("close temp image: %w", err)
	}
	return f.Name(), cleanup, nil
}
