package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/joseph-ayodele/codesnap/constants"
	"github.com/joseph-ayodele/codesnap/internal/common"
	"github.com/joseph-ayodele/codesnap/internal/extract"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func offlineConfig() *common.Config {
	cfg := common.LoadConfig()
	cfg.Vision.APIKey = ""
	cfg.Azure.APIKey = ""
	cfg.OCRSpace.APIKey = ""
	cfg.Tesseract.Enabled = false
	cfg.Answer.APIKey = ""
	cfg.Database.URL = ""
	cfg.Synthetic.DelayMin, cfg.Synthetic.DelayJitter, cfg.Synthetic.LastResortDelay = 0, 0, 0
	return cfg
}

func TestProviderStatus(t *testing.T) {
	cfg := offlineConfig()
	cfg.Vision.APIKey = "sk-test-0123456789"

	status := ProviderStatus(cfg, quietLogger())
	want := append(append([]string{}, constants.DefaultProviderOrder...), constants.ProviderSynthetic)
	if len(status) != len(want) {
		t.Fatalf("status = %+v", status)
	}
	for i, s := range status {
		if s.Name != want[i] {
			t.Fatalf("status[%d] = %s, want %s", i, s.Name, want[i])
		}
		if s.Description == "" {
			t.Fatalf("%s has no description", s.Name)
		}
	}
	if !status[0].Configured || status[1].Configured || status[2].Configured || status[3].Configured {
		t.Fatalf("configured flags = %+v", status)
	}
	if !status[4].Configured {
		t.Fatal("synthetic fallback is always available")
	}
}

func TestBuildOffline(t *testing.T) {
	cfg := offlineConfig()
	cfg.Database.URL = "sqlite::memory:"

	a, err := Build(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()

	if got := a.Pipeline.Providers(); len(got) != 0 {
		t.Fatalf("offline chain should be empty, got %v", got)
	}
	scan, err := a.Processor.Process(context.Background(), extract.NewMemoryImage("x.png", []byte("0123456789")))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !scan.Synthetic || scan.ExplanationSource != constants.ExplanationSourceHeuristic {
		t.Fatalf("scan = %+v", scan)
	}
	if _, err := a.Store.Get(context.Background(), scan.ID); err != nil {
		t.Fatalf("scan not stored: %v", err)
	}
}

func TestBuildWithoutHistory(t *testing.T) {
	a, err := Build(context.Background(), offlineConfig(), quietLogger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()
	if a.Store != nil || a.Processor.Scans != nil {
		t.Fatal("history should be disabled without DB_URL")
	}
}

func TestBuildHEICConverter(t *testing.T) {
	cfg := offlineConfig()
	cfg.Pipeline.HEICConverter = "sips"
	a, err := Build(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()
	if a.Processor.HEIC == nil {
		t.Fatal("HEIC converter not wired")
	}

	cfg.Pipeline.HEICConverter = "none"
	b, err := Build(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer b.Close()
	if b.Processor.HEIC != nil {
		t.Fatal("HEIC conversion should be disabled")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := offlineConfig()
	cfg.Worker.Workers = 0
	if _, err := Build(context.Background(), cfg, quietLogger()); err == nil {
		t.Fatal("expected config error")
	}
}
