package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/codesnap/internal/common"
	"github.com/joseph-ayodele/codesnap/internal/ocr"
)

// refusalPhrases mark a provider answer that declines to transcribe the image.
var refusalPhrases = []string{
	"cannot see",
	"can't see",
	"no code",
	"unable to extract",
}

// Config tunes the provider chain.
type Config struct {
	AttemptTimeout time.Duration // per provider call; default 30s
	MinTextLength  int           // trimmed text must be longer than this; default 10
	Parallel       bool          // attempt all providers at once, keep priority order
}

// Pipeline tries each configured provider in priority order and falls back to
// a synthetic result when all of them fail. Extract never returns an error.
type Pipeline struct {
	providers []Provider
	synthetic *Synthetic
	cfg       Config
	logger    *slog.Logger
}

// NewPipeline keeps the order of providers and drops the unconfigured ones.
func NewPipeline(cfg Config, synthetic *Synthetic, logger *slog.Logger, providers ...Provider) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 30 * time.Second
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = 10
	}
	if synthetic == nil {
		synthetic = NewSynthetic(DefaultSyntheticConfig())
	}
	chain := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		if !p.Configured() {
			logger.Info("extract.provider.skipped", "provider", p.Name(), "reason", KindUnconfigured)
			continue
		}
		chain = append(chain, p)
	}
	logger.Info("extract.chain.ready", "providers", names(chain), "parallel", cfg.Parallel)
	return &Pipeline{providers: chain, synthetic: synthetic, cfg: cfg, logger: logger}
}

// Providers returns the names of the providers in the chain, in order.
func (p *Pipeline) Providers() []string { return names(p.providers) }

// Extract returns the first valid provider result, normalized, or a synthetic
// result when every provider failed.
func (p *Pipeline) Extract(ctx context.Context, img Image) Result {
	ctx, rid := common.EnsureRequestID(ctx)
	start := time.Now()
	name := "<nil>"
	if img != nil {
		name = img.Name()
	}
	p.logger.Info("extract.start", "req_id", rid, "image", name, "providers", len(p.providers))

	var (
		res      Result
		attempts []Attempt
		ok       bool
	)
	if p.cfg.Parallel && len(p.providers) > 1 {
		res, attempts, ok = p.runParallel(ctx, rid, img)
	} else {
		res, attempts, ok = p.runSequential(ctx, rid, img)
	}

	if !ok {
		p.logger.Warn("extract.providers.exhausted", "req_id", rid, "attempts", len(attempts))
		res = p.synthetic.Extract(ctx, img)
	}
	res.Text = ocr.Normalize(res.Text)
	res.Attempts = attempts
	res.Duration = time.Since(start)

	p.logger.Info("extract.done",
		"req_id", rid,
		"provider", res.Provider,
		"synthetic", res.Synthetic,
		"confidence", res.Confidence,
		"text_len", len(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res
}

func (p *Pipeline) runSequential(ctx context.Context, rid string, img Image) (Result, []Attempt, bool) {
	attempts := make([]Attempt, 0, len(p.providers))
	for _, prov := range p.providers {
		if ctx.Err() != nil {
			break
		}
		res, att := p.attempt(ctx, rid, prov, img)
		attempts = append(attempts, att)
		if att.Err == "" {
			return res, attempts, true
		}
	}
	return Result{}, attempts, false
}

type outcome struct {
	idx int
	res Result
	att Attempt
}

// runParallel starts every attempt at once. Provider i wins as soon as it is
// valid and all providers before it have failed.
func (p *Pipeline) runParallel(ctx context.Context, rid string, img Image) (Result, []Attempt, bool) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	n := len(p.providers)
	out := make(chan outcome, n)
	var g errgroup.Group
	for i, prov := range p.providers {
		g.Go(func() error {
			res, att := p.attempt(ctx, rid, prov, img)
			out <- outcome{idx: i, res: res, att: att}
			return nil
		})
	}

	done := make([]*outcome, n)
	winner := -1
	for received := 0; received < n && winner < 0; received++ {
		o := <-out
		done[o.idx] = &o
		for j := 0; j < n; j++ {
			if done[j] == nil {
				break
			}
			if done[j].att.Err == "" {
				winner = j
				break
			}
		}
	}
	cancel()
	_ = g.Wait()
	close(out)
	for o := range out {
		done[o.idx] = &o
	}

	attempts := make([]Attempt, 0, n)
	for _, o := range done {
		if o != nil {
			attempts = append(attempts, o.att)
		}
	}
	if winner < 0 {
		return Result{}, attempts, false
	}
	return done[winner].res, attempts, true
}

func (p *Pipeline) attempt(ctx context.Context, rid string, prov Provider, img Image) (Result, Attempt) {
	actx, cancel := context.WithTimeout(ctx, p.cfg.AttemptTimeout)
	defer cancel()

	start := time.Now()
	var (
		res Result
		err error
	)
	if img == nil {
		err = NewProviderError(prov.Name(), KindImage, errors.New("no image"))
	} else {
		res, err = safeAttempt(actx, prov, img)
	}
	if err == nil {
		err = p.validate(prov.Name(), res.Text)
	}
	if err != nil && actx.Err() != nil && ctx.Err() == nil {
		err = NewProviderError(prov.Name(), KindTimeout, fmt.Errorf("attempt exceeded %s: %w", p.cfg.AttemptTimeout, err))
	}
	att := Attempt{Provider: prov.Name(), Elapsed: time.Since(start)}
	if err != nil {
		att.Err = err.Error()
		att.Kind = KindOf(err)
		p.logger.Warn("extract.attempt.failed",
			"req_id", rid,
			"provider", prov.Name(),
			"kind", att.Kind,
			"error", err,
			"elapsed_ms", att.Elapsed.Milliseconds(),
		)
		return Result{}, att
	}
	res.Provider = prov.Name()
	res.Synthetic = false
	p.logger.Info("extract.attempt.ok",
		"req_id", rid,
		"provider", prov.Name(),
		"confidence", res.Confidence,
		"elapsed_ms", att.Elapsed.Milliseconds(),
	)
	return res, att
}

// validate is the minimal acceptance predicate shared by every provider.
func (p *Pipeline) validate(provider, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || len(trimmed) <= p.cfg.MinTextLength {
		return NewProviderError(provider, KindEmpty, fmt.Errorf("text too short (%d chars)", len(trimmed)))
	}
	if phrase, refused := IsRefusal(trimmed); refused {
		return NewProviderError(provider, KindRefusal, fmt.Errorf("refusal phrase %q", phrase))
	}
	return nil
}

// IsRefusal reports whether text contains one of the refusal phrases.
func IsRefusal(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return phrase, true
		}
	}
	return "", false
}

// safeAttempt turns a provider panic into a ProviderError.
func safeAttempt(ctx context.Context, prov Provider, img Image) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewProviderError(prov.Name(), KindMalformed, fmt.Errorf("provider panic: %v", r))
		}
	}()
	res, err = prov.Attempt(ctx, img)
	if err != nil && !errors.As(err, new(*ProviderError)) && errors.Is(err, context.DeadlineExceeded) {
		err = NewProviderError(prov.Name(), KindTimeout, err)
	}
	return res, err
}

func names(ps []Provider) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name())
	}
	return out
}
