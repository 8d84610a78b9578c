package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/codesnap/internal/entity"
	"github.com/joseph-ayodele/codesnap/internal/repository"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 13, 30, 0, 0, time.UTC)
	from := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	f, tt := Window(&from, nil, now)
	if !f.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("from = %v", f)
	}
	if tt == nil || tt.Day() != 15 || tt.Hour() != 23 {
		t.Fatalf("lone from should run to end of today, got %v", tt)
	}

	f, tt = Window(nil, &to, now)
	if f != nil || tt.Day() != 10 || tt.Hour() != 23 {
		t.Fatalf("to-only window = %v..%v", f, tt)
	}

	if f, tt = Window(nil, nil, now); f != nil || tt != nil {
		t.Fatalf("open window = %v..%v", f, tt)
	}
}

func TestExportScansXLSX(t *testing.T) {
	ctx := context.Background()
	store, err := repository.OpenSQLite(ctx, ":memory:", quietLogger())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	day := time.Date(2025, 5, 4, 0, 0, 0, 0, time.UTC)
	scans := []*entity.Scan{
		{SourceName: "old.png", Provider: "ocr-space", Confidence: 0.85, Language: "Python", Complexity: "Low", Text: "print(1)", CreatedAt: day.Add(-48 * time.Hour)},
		{SourceName: "a.png", Provider: "azure-vision", Confidence: 0.88, Language: "Python", Complexity: "Low", Text: "print(2)", CreatedAt: day.Add(9 * time.Hour)},
		{SourceName: "b.png", Provider: "synthetic", Synthetic: true, Confidence: 0.9, Language: "JavaScript", Complexity: "Medium", Text: strings.Repeat("x", 2000), CreatedAt: day.Add(20 * time.Hour)},
	}
	for _, s := range scans {
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	svc := NewService(store, quietLogger())
	out, err := svc.ExportScansXLSX(ctx, &day, &day)
	if err != nil {
		t.Fatalf("ExportScansXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Scans")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("want header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Scanned At" || rows[0][7] != "Code" {
		t.Fatalf("header = %v", rows[0])
	}
	if rows[1][1] != "a.png" || rows[1][3] != "0.88" {
		t.Fatalf("first row = %v", rows[1])
	}
	if rows[2][2] != "synthetic" {
		t.Fatalf("provider cell = %q", rows[2][2])
	}
	if n := len([]rune(rows[2][7])); n != 1000 {
		t.Fatalf("code cell not truncated: %d runes", n)
	}
}
