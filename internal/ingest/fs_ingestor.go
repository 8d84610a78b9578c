package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/codesnap/internal/common"
	"github.com/joseph-ayodele/codesnap/internal/entity"
	"github.com/joseph-ayodele/codesnap/internal/ocr"
)

// maxSeen bounds the duplicate set; it is cleared once exceeded.
const maxSeen = 10000

// FSIngestor feeds images from the local filesystem to a processor, skipping
// files whose content was already processed by this ingestor.
type FSIngestor struct {
	Proc        FileProcessor
	AllowedExts map[string]struct{} // lowercased sans '.'; nil -> default set
	Logger      *slog.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewFSIngestor(proc FileProcessor, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{Proc: proc, Logger: logger, seen: map[string]struct{}{}}
}

// ProcessFile dedups by content hash, then hands path to the processor.
// Duplicates return common.ErrDuplicate.
func (i *FSIngestor) ProcessFile(ctx context.Context, path string) (entity.Scan, error) {
	res, scan, err := i.ingest(ctx, path)
	if err != nil {
		return scan, err
	}
	if res.Deduplicated {
		return scan, fmt.Errorf("%s: %w", path, common.ErrDuplicate)
	}
	return scan, nil
}

// IngestPath processes a single path.
func (i *FSIngestor) IngestPath(ctx context.Context, path string) (FileResult, error) {
	res, _, err := i.ingest(ctx, path)
	return res, err
}

func (i *FSIngestor) ingest(ctx context.Context, path string) (FileResult, entity.Scan, error) {
	out := FileResult{Path: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, entity.Scan{}, fmt.Errorf("abs path: %w", err)
	}
	out.Path = abs
	if !AllowedExt(filepath.Ext(abs), i.AllowedExts) {
		return out, entity.Scan{}, fmt.Errorf("%w: unsupported or missing extension %q", common.ErrInvalidInput, filepath.Ext(abs))
	}

	sum, err := HashFile(abs)
	if err != nil {
		return out, entity.Scan{}, err
	}
	out.HashHex = sum
	if i.markSeen(sum) {
		out.Deduplicated = true
		i.Logger.Info("ingest.duplicate", "path", abs, "sha256", sum)
		return out, entity.Scan{}, nil
	}

	scan, err := i.Proc.ProcessFile(ocr.WithContentHash(ctx, sum), abs)
	if err != nil {
		i.forget(sum)
		return out, scan, err
	}
	out.ScanID = scan.ID.String()
	out.Provider = scan.Provider
	out.Synthetic = scan.Synthetic
	return out, scan, nil
}

// markSeen records sum and reports whether it was already present.
func (i *FSIngestor) markSeen(sum string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.seen == nil || len(i.seen) >= maxSeen {
		i.seen = map[string]struct{}{}
	}
	if _, ok := i.seen[sum]; ok {
		return true
	}
	i.seen[sum] = struct{}{}
	return false
}

func (i *FSIngestor) forget(sum string) {
	i.mu.Lock()
	delete(i.seen, sum)
	i.mu.Unlock()
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path), i.AllowedExts) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			i.Logger.Error("ingest.file.failed", "path", path, "error", err)
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
