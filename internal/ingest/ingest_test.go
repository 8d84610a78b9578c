package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/codesnap/internal/common"
	"github.com/joseph-ayodele/codesnap/internal/entity"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type countingProc struct{ calls atomic.Int32 }

func (c *countingProc) ProcessFile(_ context.Context, path string) (entity.Scan, error) {
	c.calls.Add(1)
	if filepath.Base(path) == "fail.png" {
		return entity.Scan{}, errors.New("boom")
	}
	return entity.Scan{ID: uuid.New(), Provider: "synthetic", Synthetic: true, SourceName: filepath.Base(path)}, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParseExtsAndAllowed(t *testing.T) {
	exts := ParseExts([]string{"png, .JPG", ""})
	if !AllowedExt(".jpg", exts) || !AllowedExt("PNG", exts) || AllowedExt("gif", exts) {
		t.Fatalf("exts = %v", exts)
	}
	if ParseExts(nil) != nil {
		t.Fatal("empty list should yield nil")
	}
	if !AllowedExt(".webp", nil) || AllowedExt(".pdf", nil) {
		t.Fatal("default image set mismatch")
	}
}

func TestIngestDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.png"), "one")
	writeFile(t, filepath.Join(root, "nested", "b.jpg"), "two")
	writeFile(t, filepath.Join(root, "nested", "copy.png"), "one")
	writeFile(t, filepath.Join(root, "fail.png"), "three")
	writeFile(t, filepath.Join(root, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(root, ".hidden", "c.png"), "four")

	proc := &countingProc{}
	ing := NewFSIngestor(proc, quietLogger())
	results, stats, err := ing.IngestDirectory(context.Background(), root, true)
	if err != nil {
		t.Fatalf("IngestDirectory: %v", err)
	}
	if stats.Matched != 4 || stats.Succeeded != 3 || stats.Failed != 1 || stats.Deduplicated != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if got := proc.calls.Load(); got != 3 {
		t.Fatalf("processor calls = %d", got)
	}
	if len(results) != 4 {
		t.Fatalf("results = %+v", results)
	}
	for _, r := range results {
		if r.HashHex == "" {
			t.Fatalf("hash missing for %s", r.Path)
		}
	}
}

func TestProcessFileDuplicate(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png")
	writeFile(t, a, "same")
	writeFile(t, b, "same")

	ing := NewFSIngestor(&countingProc{}, quietLogger())
	if _, err := ing.ProcessFile(context.Background(), a); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := ing.ProcessFile(context.Background(), b); !errors.Is(err, common.ErrDuplicate) {
		t.Fatalf("second: %v", err)
	}
	if _, err := ing.ProcessFile(context.Background(), filepath.Join(dir, "x.txt")); !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("txt: %v", err)
	}
}

func TestProcessFileRetriesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "fail.png")
	writeFile(t, p, "data")
	proc := &countingProc{}
	ing := NewFSIngestor(proc, quietLogger())
	for i := 0; i < 2; i++ {
		if _, err := ing.ProcessFile(context.Background(), p); err == nil || errors.Is(err, common.ErrDuplicate) {
			t.Fatalf("attempt %d: err = %v", i, err)
		}
	}
	if proc.calls.Load() != 2 {
		t.Fatalf("failed files should be retried, calls = %d", proc.calls.Load())
	}
}

func receive(t *testing.T, ch <-chan string, timeout time.Duration) (string, bool) {
	t.Helper()
	select {
	case p, ok := <-ch:
		return p, ok
	case <-time.After(timeout):
		return "", false
	}
}

func TestWatcherInitialScanAndCreate(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "existing.png")
	writeFile(t, existing, "x")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("StartWatcher: %v", err)
	}

	if p, ok := receive(t, events, 2*time.Second); !ok || p != existing {
		t.Fatalf("initial = %q, %v", p, ok)
	}

	writeFile(t, filepath.Join(root, "ignored.txt"), "x")
	created := filepath.Join(root, "new.jpg")
	writeFile(t, created, "y")

	if p, ok := receive(t, events, 2*time.Second); !ok || p != created {
		t.Fatalf("created = %q, %v", p, ok)
	}

	cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("events channel not closed after cancel")
		}
	}
}

func TestWatcherDebounceCoalesces(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, Debounce: 150 * time.Millisecond, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("StartWatcher: %v", err)
	}

	p := filepath.Join(root, "burst.png")
	for i := 0; i < 5; i++ {
		writeFile(t, p, "chunk")
		time.Sleep(10 * time.Millisecond)
	}

	if got, ok := receive(t, events, 2*time.Second); !ok || got != p {
		t.Fatalf("got %q, %v", got, ok)
	}
	if got, ok := receive(t, events, 400*time.Millisecond); ok {
		t.Fatalf("burst emitted twice: %q", got)
	}
}

func TestWatcherNoRoots(t *testing.T) {
	if _, _, err := StartWatcher(context.Background(), WatchConfig{Logger: quietLogger()}); err == nil {
		t.Fatal("expected error")
	}
}
