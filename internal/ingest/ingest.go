package ingest

import (
	"context"

	"github.com/joseph-ayodele/codesnap/internal/entity"
)

// FileProcessor is satisfied by *pipeline.Processor.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string) (entity.Scan, error)
}

// FileResult is the per-file ingest outcome.
type FileResult struct {
	Path         string
	ScanID       string
	Provider     string
	Synthetic    bool
	Deduplicated bool
	HashHex      string
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}
