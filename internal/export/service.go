package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/codesnap/internal/repository"
)

const (
	sheetName = "Scans"
	// exportLimit bounds a single workbook; history beyond it needs a narrower window.
	exportLimit = 50000
)

// Service is a tiny façade over the scan history that produces XLSX bytes for exports.
type Service struct {
	scans  repository.ScanRepository
	logger *slog.Logger
}

func NewService(scans repository.ScanRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{scans: scans, logger: logger}
}

// ExportScansXLSX returns an XLSX workbook (as bytes) for the given date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all scans.
func (s *Service) ExportScansXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()
	fromDate, toDate := Window(from, to, time.Now())

	scans, err := s.scans.List(ctx, repository.ListFilter{From: fromDate, To: toDate, Limit: exportLimit})
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	headers := []string{
		"Scanned At",
		"Source",
		"Provider",
		"Confidence",
		"Language",
		"Complexity",
		"Explanation",
		"Code",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(sheetName, 1, 1, style)
	}

	// List is newest first; rows go oldest first.
	row := 2
	for i := len(scans) - 1; i >= 0; i-- {
		sc := scans[i]
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}

		write(1, sc.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
		write(2, sc.SourceName)
		write(3, sc.Provider)
		write(4, fmt.Sprintf("%.2f", sc.Confidence))
		write(5, sc.Language)
		write(6, sc.Complexity)
		write(7, truncate(sc.Explanation, 500))
		write(8, truncate(sc.Text, 1000))
		row++
	}

	_ = f.SetColWidth(sheetName, "A", "A", 20) // timestamp
	_ = f.SetColWidth(sheetName, "B", "B", 28) // source
	_ = f.SetColWidth(sheetName, "C", "C", 24) // provider
	_ = f.SetColWidth(sheetName, "D", "F", 12)
	_ = f.SetColWidth(sheetName, "G", "H", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(scans),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// Window normalizes an export date range to whole UTC days. The upper bound
// is the last instant of its day; a lone from extends to the end of today.
func Window(from, to *time.Time, now time.Time) (*time.Time, *time.Time) {
	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := endOfDay(*to)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		t := endOfDay(now.UTC())
		toDate = &t
	}
	return fromDate, toDate
}

func endOfDay(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC).Add(24*time.Hour - time.Nanosecond)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
