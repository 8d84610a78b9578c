package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/codesnap/internal/analysis"
	"github.com/joseph-ayodele/codesnap/internal/app"
	"github.com/joseph-ayodele/codesnap/internal/entity"
	"github.com/joseph-ayodele/codesnap/internal/export"
	"github.com/joseph-ayodele/codesnap/internal/ingest"
	"github.com/joseph-ayodele/codesnap/internal/repository"
)

func (c *cli) scanCmd() *cobra.Command {
	var (
		dir        string
		exts       string
		skipHidden bool
	)
	cmd := &cobra.Command{
		Use:   "scan [image]",
		Short: "Extract code from a photo, then explain and score it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" && len(args) == 0 {
				return fmt.Errorf("an image path or --dir is required")
			}
			a, err := app.Build(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if dir != "" {
				return c.scanDir(cmd, a, dir, exts, skipHidden)
			}
			scan, err := a.Processor.ProcessFile(cmd.Context(), args[0])
			if err != nil && scan.ID == uuid.Nil {
				return err
			}
			if err != nil {
				// the scan is complete; only saving it failed
				c.logger.Warn("scan not saved", "error", err)
			}
			if c.asJSON {
				return c.printJSON(scan)
			}
			printScan(c.out, scan)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "scan every image under this directory")
	cmd.Flags().StringVar(&exts, "ext", "", "comma-separated extensions for --dir (default: all image types)")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip hidden files and directories with --dir")
	return cmd
}

func (c *cli) scanDir(cmd *cobra.Command, a *app.App, dir, exts string, skipHidden bool) error {
	ingestor := ingest.NewFSIngestor(a.Processor, c.logger)
	if exts != "" {
		ingestor.AllowedExts = ingest.ParseExts(strings.Split(exts, ","))
	}
	results, stats, err := ingestor.IngestDirectory(cmd.Context(), dir, skipHidden)
	if err != nil {
		return err
	}
	if c.asJSON {
		return c.printJSON(map[string]any{"results": results, "stats": stats})
	}
	for _, r := range results {
		switch {
		case r.Err != "":
			fmt.Fprintf(c.out, "FAIL  %s: %s\n", r.Path, r.Err)
		case r.Deduplicated:
			fmt.Fprintf(c.out, "DUP   %s\n", r.Path)
		default:
			fmt.Fprintf(c.out, "OK    %s (%s, scan %s)\n", r.Path, r.Provider, r.ScanID)
		}
	}
	fmt.Fprintf(c.out, "\nScanned: %d  Matched: %d  Succeeded: %d  Deduplicated: %d  Failed: %d\n",
		stats.Scanned, stats.Matched, stats.Succeeded, stats.Deduplicated, stats.Failed)
	return nil
}

func (c *cli) explainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain [file]",
		Short: "Explain code from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := c.readCode(args)
			if err != nil {
				return err
			}
			if strings.TrimSpace(code) == "" {
				return fmt.Errorf("no code to explain")
			}
			res := app.NewExplainer(c.cfg, c.logger).Explain(cmd.Context(), code)
			if c.asJSON {
				return c.printJSON(map[string]string{"explanation": res.Text, "source": res.Source})
			}
			fmt.Fprintln(c.out, res.Text)
			return nil
		},
	}
}

func (c *cli) scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score [file]",
		Short: "Print complexity metrics for code from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := c.readCode(args)
			if err != nil {
				return err
			}
			cx := analysis.Score(code)
			if c.asJSON {
				return c.printJSON(map[string]any{
					"lines":      cx.Lines,
					"functions":  cx.Functions,
					"loops":      cx.Loops,
					"conditions": cx.Conditions,
					"complexity": cx.Level,
				})
			}
			fmt.Fprintln(c.out, cx.String())
			return nil
		},
	}
}

func (c *cli) providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List extraction providers in fallback order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := app.ProviderStatus(c.cfg, c.logger)
			if c.asJSON {
				return c.printJSON(rows)
			}
			for i, p := range rows {
				state := "not configured"
				if p.Configured {
					state = "configured"
				}
				conf := "varies"
				if p.Confidence > 0 {
					conf = fmt.Sprintf("%.2f", p.Confidence)
				}
				fmt.Fprintf(c.out, "%d. %-14s %-15s confidence %-6s %s\n", i+1, p.Name, state, conf, p.Description)
			}
			return nil
		},
	}
}

func (c *cli) historyCmd() *cobra.Command {
	var (
		limit          int
		fromStr, toStr string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past scans, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseDate("from", fromStr)
			if err != nil {
				return err
			}
			to, err := parseDate("to", toStr)
			if err != nil {
				return err
			}
			from, to = export.Window(from, to, time.Now())

			a, err := c.history(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			scans, err := a.Store.List(cmd.Context(), repository.ListFilter{From: from, To: to, Limit: limit})
			if err != nil {
				return err
			}
			if c.asJSON {
				return c.printJSON(scans)
			}
			if len(scans) == 0 {
				fmt.Fprintln(c.out, "No scans recorded.")
				return nil
			}
			for _, s := range scans {
				fmt.Fprintf(c.out, "%s  %s  %-12s %-10s %-6s %s\n",
					s.CreatedAt.Local().Format("2006-01-02 15:04"), s.ID, s.Provider, s.Language, s.Complexity, s.SourceName)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of scans")
	cmd.Flags().StringVar(&fromStr, "from", "", "from date YYYY-MM-DD")
	cmd.Flags().StringVar(&toStr, "to", "", "to date YYYY-MM-DD (inclusive)")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var out, fromStr, toStr string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write scan history to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseDate("from", fromStr)
			if err != nil {
				return err
			}
			to, err := parseDate("to", toStr)
			if err != nil {
				return err
			}
			a, err := c.history(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			xlsxBytes, err := export.NewService(a.Store, c.logger).ExportScansXLSX(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			if dir := filepath.Dir(out); dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			if err := os.WriteFile(out, xlsxBytes, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(c.out, "Exported to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "codesnap-scans.xlsx", "output XLSX file path")
	cmd.Flags().StringVar(&fromStr, "from", "", "from date YYYY-MM-DD")
	cmd.Flags().StringVar(&toStr, "to", "", "to date YYYY-MM-DD (inclusive)")
	return cmd
}

func printScan(w io.Writer, s entity.Scan) {
	source := s.Provider
	if s.Synthetic {
		source += " (simulated)"
	}
	fmt.Fprintf(w, "Source:      %s\n", s.SourceName)
	fmt.Fprintf(w, "Provider:    %s\n", source)
	fmt.Fprintf(w, "Confidence:  %.2f\n", s.Confidence)
	fmt.Fprintf(w, "Language:    %s\n", s.Language)
	fmt.Fprintf(w, "Scan ID:     %s\n\n", s.ID)
	fmt.Fprintf(w, "--- Extracted code ---\n%s\n\n", s.Text)
	if s.Explanation != "" {
		fmt.Fprintf(w, "--- Explanation (%s) ---\n%s\n\n", s.ExplanationSource, s.Explanation)
	}
	fmt.Fprintf(w, "--- Metrics ---\nLines of code: %d\nFunctions: %d\nLoops: %d\nConditions: %d\nEstimated complexity: %s\n",
		s.Lines, s.Functions, s.Loops, s.Conditions, s.Complexity)
	if len(s.Suggestions) > 0 {
		fmt.Fprintln(w, "\n--- Suggestions ---")
		for _, tip := range s.Suggestions {
			fmt.Fprintf(w, "• %s\n", tip)
		}
	}
}
