package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/codesnap/internal/app"
	"github.com/joseph-ayodele/codesnap/internal/common"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

type cli struct {
	cfg     *common.Config
	logger  *slog.Logger
	out     io.Writer
	in      io.Reader
	asJSON  bool
	verbose bool
}

func main() {
	// a missing .env is fine; the environment may already carry everything
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{out: os.Stdout, in: os.Stdin}
	if err := c.rootCmd().ExecuteContext(ctx); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
}

func (c *cli) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "codesnap",
		Short:         "Extract, explain and score code from photos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.cfg = common.LoadConfig()
			logCfg := c.cfg.Log
			switch {
			case c.verbose:
				logCfg.Level = "debug"
			case strings.TrimSpace(os.Getenv("LOG_LEVEL")) == "":
				// results go to stdout; keep stderr quiet unless asked
				logCfg.Level = "warn"
			}
			c.logger = common.NewLogger(os.Stderr, logCfg)
			slog.SetDefault(c.logger)
			return nil
		},
	}
	rootCmd.PersistentFlags().BoolVar(&c.asJSON, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging on stderr")

	rootCmd.AddCommand(
		c.scanCmd(),
		c.explainCmd(),
		c.scoreCmd(),
		c.providersCmd(),
		c.historyCmd(),
		c.exportCmd(),
	)
	return rootCmd
}

// history builds the application and insists on a history store. Callers must Close it.
func (c *cli) history(ctx context.Context) (*app.App, error) {
	a, err := app.Build(ctx, c.cfg, c.logger)
	if err != nil {
		return nil, err
	}
	if a.Store == nil {
		a.Close()
		return nil, errors.New("scan history is disabled: set DB_URL (e.g. sqlite:codesnap.db)")
	}
	return a, nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseDate parses an optional YYYY-MM-DD flag value.
func parseDate(flagName, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s date format, use YYYY-MM-DD: %w", flagName, err)
	}
	return &parsed, nil
}

// readCode reads the file named by args[0], or stdin when there is none or it is "-".
func (c *cli) readCode(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(c.in)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(b), nil
}
