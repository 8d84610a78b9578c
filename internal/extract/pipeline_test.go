package extract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joseph-ayodele/codesnap/constants"
)

type stubProvider struct {
	name       string
	configured bool
	text       string
	conf       float32
	err        error
	delay      time.Duration
	panics     bool
	calls      atomic.Int32
}

func (s *stubProvider) Name() string     { return s.name }
func (s *stubProvider) Configured() bool { return s.configured }

func (s *stubProvider) Attempt(ctx context.Context, _ Image) (Result, error) {
	s.calls.Add(1)
	if s.panics {
		panic("boom")
	}
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if s.err != nil {
		return Result{}, s.err
	}
	return Result{Text: s.text, Confidence: s.conf}, nil
}

func okProvider(name, text string, conf float32) *stubProvider {
	return &stubProvider{name: name, configured: true, text: text, conf: conf}
}

func failing(name string) *stubProvider {
	return &stubProvider{name: name, configured: true, err: NewProviderError(name, KindNetwork, errors.New("dial tcp: refused"))}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedSynthetic(nowMillis int64) *Synthetic {
	return NewSynthetic(SyntheticConfig{
		NoDelay: true,
		Now:     func() time.Time { return time.UnixMilli(nowMillis) },
	})
}

func newTestPipeline(cfg Config, providers ...Provider) *Pipeline {
	return NewPipeline(cfg, fixedSynthetic(0), discardLogger(), providers...)
}

const sampleCode = "def add(a, b):\n    return a + b\n"

func TestPipelineFirstValidProviderWins(t *testing.T) {
	a := okProvider("a", sampleCode, 0.95)
	b := okProvider("b", "print('never used')", 0.88)
	p := newTestPipeline(Config{}, a, b)

	res := p.Extract(context.Background(), NewMemoryImage("x.png", []byte("img")))
	if res.Provider != "a" || res.Synthetic {
		t.Fatalf("provider = %q synthetic = %v, want a/false", res.Provider, res.Synthetic)
	}
	if res.Confidence != 0.95 {
		t.Fatalf("confidence = %v, want 0.95", res.Confidence)
	}
	if res.Text != "def add(a, b):\n    return a + b" {
		t.Fatalf("text not normalized: %q", res.Text)
	}
	if b.calls.Load() != 0 {
		t.Fatalf("second provider called %d times, want 0", b.calls.Load())
	}
	if len(res.Attempts) != 1 || res.Attempts[0].Err != "" {
		t.Fatalf("attempts = %+v", res.Attempts)
	}
}

func TestPipelineFallsThroughInOrder(t *testing.T) {
	// network error, empty text, refusal, too short, then a valid answer
	a := failing("a")
	b := okProvider("b", "", 0.9)
	c := okProvider("c", "I cannot see any code here", 0.9)
	d := okProvider("d", "short", 0.9)
	e := okProvider("e", sampleCode, 0.80)
	p := newTestPipeline(Config{}, a, b, c, d, e)

	res := p.Extract(context.Background(), NewMemoryImage("x.png", []byte("img")))
	if res.Provider != "e" {
		t.Fatalf("provider = %q, want e", res.Provider)
	}
	wantKinds := []ErrorKind{KindNetwork, KindEmpty, KindRefusal, KindEmpty, ""}
	if len(res.Attempts) != len(wantKinds) {
		t.Fatalf("attempts = %d, want %d", len(res.Attempts), len(wantKinds))
	}
	for i, want := range wantKinds {
		if res.Attempts[i].Kind != want {
			t.Errorf("attempt %d kind = %q, want %q", i, res.Attempts[i].Kind, want)
		}
	}
}

func TestPipelineSkipsUnconfigured(t *testing.T) {
	off := &stubProvider{name: "off", configured: false, text: sampleCode}
	on := okProvider("on", sampleCode, 0.85)
	p := newTestPipeline(Config{}, off, nil, on)

	if got := p.Providers(); len(got) != 1 || got[0] != "on" {
		t.Fatalf("providers = %v, want [on]", got)
	}
	res := p.Extract(context.Background(), NewMemoryImage("x.png", []byte("img")))
	if res.Provider != "on" {
		t.Fatalf("provider = %q, want on", res.Provider)
	}
	if off.calls.Load() != 0 {
		t.Fatal("unconfigured provider was attempted")
	}
}

func TestPipelineAllFailUsesSynthetic(t *testing.T) {
	data := make([]byte, 1234)
	p := newTestPipeline(Config{}, failing("a"), failing("b"))

	res := p.Extract(context.Background(), NewMemoryImage("x.png", data))
	if !res.Synthetic || res.Provider != constants.ProviderSynthetic {
		t.Fatalf("want synthetic result, got %+v", res)
	}
	// size 1234, now 0 -> slot 4
	want := fixedSynthetic(0).Generate(1234, 0)
	if res.Text != want.Text || res.Confidence != want.Confidence {
		t.Fatalf("synthetic text mismatch:\n%s\nwant\n%s", res.Text, want.Text)
	}
	if len(res.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(res.Attempts))
	}
}

func TestPipelineNoProvidersUsesSynthetic(t *testing.T) {
	p := newTestPipeline(Config{})
	res := p.Extract(context.Background(), NewMemoryImage("x.png", []byte("abc")))
	if !res.Synthetic {
		t.Fatal("expected synthetic result")
	}
	if len(res.Attempts) != 0 {
		t.Fatalf("attempts = %d, want 0", len(res.Attempts))
	}
}

func TestPipelineAttemptTimeout(t *testing.T) {
	slow := &stubProvider{name: "slow", configured: true, text: sampleCode, delay: time.Second}
	fast := okProvider("fast", sampleCode, 0.85)
	p := newTestPipeline(Config{AttemptTimeout: 20 * time.Millisecond}, slow, fast)

	res := p.Extract(context.Background(), NewMemoryImage("x.png", []byte("img")))
	if res.Provider != "fast" {
		t.Fatalf("provider = %q, want fast", res.Provider)
	}
	if res.Attempts[0].Kind != KindTimeout {
		t.Fatalf("first attempt kind = %q, want timeout", res.Attempts[0].Kind)
	}
}

func TestPipelineRecoversProviderPanic(t *testing.T) {
	bad := &stubProvider{name: "bad", configured: true, panics: true}
	good := okProvider("good", sampleCode, 0.88)
	p := newTestPipeline(Config{}, bad, good)

	res := p.Extract(context.Background(), NewMemoryImage("x.png", []byte("img")))
	if res.Provider != "good" {
		t.Fatalf("provider = %q, want good", res.Provider)
	}
}

func TestPipelineNilImage(t *testing.T) {
	a := okProvider("a", sampleCode, 0.95)
	p := newTestPipeline(Config{}, a)

	res := p.Extract(context.Background(), nil)
	if !res.Synthetic || res.Confidence != 0.75 {
		t.Fatalf("want last-resort result, got %+v", res)
	}
	if a.calls.Load() != 0 {
		t.Fatal("provider should not see a nil image")
	}
}

func TestPipelineParallelKeepsPriority(t *testing.T) {
	// the higher priority provider answers last but must still win
	first := &stubProvider{name: "first", configured: true, text: sampleCode, conf: 0.95, delay: 50 * time.Millisecond}
	second := okProvider("second", "print('second provider')", 0.88)
	p := newTestPipeline(Config{Parallel: true}, first, second)

	res := p.Extract(context.Background(), NewMemoryImage("x.png", []byte("img")))
	if res.Provider != "first" {
		t.Fatalf("provider = %q, want first", res.Provider)
	}
	if len(res.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(res.Attempts))
	}
}

func TestPipelineParallelFallsBack(t *testing.T) {
	first := failing("first")
	second := okProvider("second", sampleCode, 0.88)
	p := newTestPipeline(Config{Parallel: true}, first, second)

	res := p.Extract(context.Background(), NewMemoryImage("x.png", []byte("img")))
	if res.Provider != "second" {
		t.Fatalf("provider = %q, want second", res.Provider)
	}
}

func TestIsRefusal(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"I can't see any text in this image.", true},
		{"There is NO CODE visible.", true},
		{"Unable to extract text", true},
		{"print('hello world')", false},
	}
	for _, tt := range tests {
		if _, got := IsRefusal(tt.in); got != tt.want {
			t.Errorf("IsRefusal(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(StatusError("x", 500, []byte("oops"))); got != KindStatus {
		t.Errorf("KindOf(status) = %q", got)
	}
	if got := KindOf(context.DeadlineExceeded); got != KindTimeout {
		t.Errorf("KindOf(deadline) = %q", got)
	}
	if got := KindOf(errors.New("reset")); got != KindNetwork {
		t.Errorf("KindOf(plain) = %q", got)
	}
	if got := KindOf(nil); got != "" {
		t.Errorf("KindOf(nil) = %q", got)
	}
}
