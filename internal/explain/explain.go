// Package explain turns extracted code into a bug explanation, asking the
// answer service first and falling back to the offline heuristics.
package explain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/codesnap/constants"
	"github.com/joseph-ayodele/codesnap/internal/analysis"
	"github.com/joseph-ayodele/codesnap/internal/common"
	"github.com/joseph-ayodele/codesnap/internal/search/tavily"
)

const (
	queryPrefix   = "Analyze this code for bugs, syntax errors, and provide detailed explanations: "
	answerHeader  = "AI Code Analysis:"
	maxReferences = 3
)

// AnswerService is the remote side of the chain; *tavily.Client implements it.
type AnswerService interface {
	Configured() bool
	Search(ctx context.Context, query string) (*tavily.Response, error)
}

// Result is an explanation and where it came from. Text is never empty.
type Result struct {
	Text   string
	Source string // constants.ExplanationSource*
}

type Explainer struct {
	answers AnswerService
	timeout time.Duration
	logger  *slog.Logger
}

// NewExplainer accepts a nil or unconfigured service; every call then uses the heuristics.
func NewExplainer(answers AnswerService, timeout time.Duration, logger *slog.Logger) *Explainer {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	if answers != nil && !answers.Configured() {
		logger.Info("explain.answer_service.skipped", "reason", "unconfigured")
		answers = nil
	}
	return &Explainer{answers: answers, timeout: timeout, logger: logger}
}

// Explain never fails.
func (e *Explainer) Explain(ctx context.Context, code string) Result {
	ctx, rid := common.EnsureRequestID(ctx)
	if e.answers != nil {
		text, err := e.ask(ctx, code)
		if err == nil {
			return Result{Text: text, Source: constants.ExplanationSourceAnswer}
		}
		e.logger.Warn("explain.answer_service.failed", "req_id", rid, "error", err)
	}
	return Result{Text: analysis.HeuristicExplain(code), Source: constants.ExplanationSourceHeuristic}
}

func (e *Explainer) ask(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.answers.Search(ctx, queryPrefix+code)
	if err != nil {
		return "", err
	}
	if resp == nil || strings.TrimSpace(resp.Answer) == "" {
		return "", errors.New("no answer in response")
	}
	return FormatAnswer(resp), nil
}

// FormatAnswer renders the answer under a fixed header followed by up to three references.
func FormatAnswer(resp *tavily.Response) string {
	var b strings.Builder
	b.WriteString(answerHeader)
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(resp.Answer))

	n := 0
	for _, r := range resp.Results {
		if n == maxReferences {
			break
		}
		if strings.TrimSpace(r.URL) == "" {
			continue
		}
		if n == 0 {
			b.WriteString("\n\nAdditional Resources:\n")
		}
		n++
		title := strings.TrimSpace(r.Title)
		if title == "" {
			fmt.Fprintf(&b, "%d. %s\n", n, r.URL)
			continue
		}
		fmt.Fprintf(&b, "%d. %s\n   %s\n", n, title, r.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}
