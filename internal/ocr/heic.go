package ocr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

type ctxKey string

const ctxKeyContentHash ctxKey = "ocr.content_hash_hex"

// WithContentHash stores the hex-encoded SHA256 of the image for downstream reuse.
func WithContentHash(ctx context.Context, hex string) context.Context {
	return context.WithValue(ctx, ctxKeyContentHash, hex)
}

func contentHashFromCtx(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyContentHash).(string)
	return v, ok && v != ""
}

// HEIC converter tools.
const (
	ConverterMagick      = "magick"
	ConverterHeifConvert = "heif-convert"
	ConverterSips        = "sips"
)

// HEICConverter turns HEIC/HEIF phone photos into PNG files the providers accept.
type HEICConverter struct {
	Runner   Runner
	Tool     string // magick | heif-convert | sips
	CacheDir string // optional; PNGs are kept as {CacheDir}/{sha256}.png
	Logger   *slog.Logger
}

// NewHEICConverter returns nil when tool is empty or "none".
func NewHEICConverter(tool, cacheDir string, r Runner, logger *slog.Logger) *HEICConverter {
	if tool == "" || tool == "none" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HEICConverter{Runner: r, Tool: tool, CacheDir: cacheDir, Logger: logger}
}

// ToPNG converts in to PNG. When the content hash is on ctx and CacheDir is
// set, the result is cached and cleanup is nil; otherwise the PNG lives in a
// temp directory that cleanup removes.
func (c *HEICConverter) ToPNG(ctx context.Context, in string) (string, func(), error) {
	hashHex, _ := contentHashFromCtx(ctx)
	useCache := c.CacheDir != "" && hashHex != ""

	if useCache {
		cached := filepath.Join(c.CacheDir, hashHex+".png")
		if st, err := os.Stat(cached); err == nil && !st.IsDir() {
			c.Logger.Debug("ocr.heic.cache_hit", "cache", cached)
			return cached, nil, nil
		}
		if err := os.MkdirAll(c.CacheDir, 0o755); err != nil {
			return "", nil, err
		}
	}

	tmpDir, err := os.MkdirTemp("", "codesnap-heic-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }
	out := filepath.Join(tmpDir, "page.png")

	var args []string
	switch c.Tool {
	case ConverterHeifConvert, ConverterMagick:
		args = []string{in, out}
	case ConverterSips:
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		cleanup()
		return "", nil, fmt.Errorf("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips")
	}
	if _, errb, err := c.Runner.Run(ctx, c.Tool, args...); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("%s convert failed: %w (%s)", c.Tool, err, Truncate(string(errb), 512))
	}
	if _, err := os.Stat(out); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("HEIC conversion produced no output: %v", err)
	}

	if !useCache {
		return out, cleanup, nil
	}

	cached := filepath.Join(c.CacheDir, hashHex+".png")
	defer cleanup()
	// rename fails across devices (EXDEV); copy instead
	if err := os.Rename(out, cached); err != nil {
		if st, statErr := os.Stat(cached); statErr == nil && !st.IsDir() {
			return cached, nil, nil
		}
		if err := copyFile(out, cached); err != nil {
			return "", nil, err
		}
	}
	c.Logger.Debug("ocr.heic.cached", "cache", cached)
	return cached, nil, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
