package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/codesnap/constants"
	"github.com/joseph-ayodele/codesnap/internal/explain"
	"github.com/joseph-ayodele/codesnap/internal/extract"
	"github.com/joseph-ayodele/codesnap/internal/pipeline"
	"github.com/joseph-ayodele/codesnap/internal/repository"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type staticProvider struct{ text string }

func (p staticProvider) Name() string     { return "static" }
func (p staticProvider) Configured() bool { return true }
func (p staticProvider) Attempt(context.Context, extract.Image) (extract.Result, error) {
	return extract.Result{Text: p.text, Confidence: 0.9, Provider: "static"}, nil
}

func startServer(t *testing.T, scans repository.ScanRepository) *grpc.ClientConn {
	t.Helper()
	logger := quietLogger()
	pipe := extract.NewPipeline(extract.Config{}, extract.NewSynthetic(extract.SyntheticConfig{NoDelay: true}), logger,
		staticProvider{text: "def greet(name)\n    print(name)"})
	proc := pipeline.NewProcessor(logger, pipe, explain.NewExplainer(nil, time.Second, logger), scans)

	gs, _ := NewGRPCServer(NewCodeSnapService(proc, scans, logger))
	lis := bufconn.Listen(1 << 20)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHealth(t *testing.T) {
	conn := startServer(t, nil)
	resp, err := grpc_health_v1.NewHealthClient(conn).Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v", resp.GetStatus())
	}
}

func TestExtractAndAnalyze(t *testing.T) {
	ctx := context.Background()
	store, err := repository.OpenSQLite(ctx, ":memory:", quietLogger())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	c := NewClient(startServer(t, store))

	out, err := c.Extract(ctx, wrapperspb.Bytes([]byte("png-bytes")))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out.Fields["provider"].GetStringValue() != "static" || !strings.HasPrefix(out.Fields["text"].GetStringValue(), "def greet") {
		t.Fatalf("extract = %v", out)
	}

	mdCtx := metadata.AppendToOutgoingContext(ctx, MetadataFilename, "snippet.png")
	scan, err := c.Analyze(mdCtx, wrapperspb.Bytes([]byte("png-bytes")))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	f := scan.GetFields()
	if f["language"].GetStringValue() != constants.LangPython || f["source_name"].GetStringValue() != "snippet.png" {
		t.Fatalf("scan = %v", scan)
	}
	if !strings.Contains(f["explanation"].GetStringValue(), "Missing colon") {
		t.Fatalf("explanation = %q", f["explanation"].GetStringValue())
	}

	list, err := c.ListScans(ctx, &structpb.Struct{Fields: map[string]*structpb.Value{"limit": structpb.NewNumberValue(10)}})
	if err != nil {
		t.Fatalf("ListScans: %v", err)
	}
	if n := len(list.Fields["scans"].GetListValue().GetValues()); n != 1 {
		t.Fatalf("history has %d scans", n)
	}

	got, err := c.GetScan(ctx, wrapperspb.String(f["id"].GetStringValue()))
	if err != nil {
		t.Fatalf("GetScan: %v", err)
	}
	if got.Fields["source_name"].GetStringValue() != "snippet.png" {
		t.Fatalf("get = %v", got)
	}
	_, err = c.GetScan(ctx, wrapperspb.String("6f1c1e0e-0000-4000-8000-000000000000"))
	if status.Code(err) != codes.NotFound {
		t.Fatalf("missing scan: %v", err)
	}
}

func TestExplainAndScore(t *testing.T) {
	c := NewClient(startServer(t, nil))
	ctx := context.Background()

	exp, err := c.Explain(ctx, wrapperspb.String("def f(x)\n    return x"))
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if !strings.HasPrefix(exp.GetValue(), "Static Code Analysis:") {
		t.Fatalf("explain = %q", exp.GetValue())
	}

	sc, err := c.Score(ctx, wrapperspb.String("for i in range(10):\n  if i: pass"))
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	f := sc.GetFields()
	if f["loops"].GetNumberValue() != 1 || f["conditions"].GetNumberValue() != 1 || f["complexity"].GetStringValue() != "Low" {
		t.Fatalf("score = %v", sc)
	}
}

func TestErrorsMapToStatus(t *testing.T) {
	c := NewClient(startServer(t, nil))
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		code codes.Code
	}{
		{"empty image", func() error { _, err := c.Extract(ctx, wrapperspb.Bytes(nil)); return err }, codes.InvalidArgument},
		{"blank explain", func() error { _, err := c.Explain(ctx, wrapperspb.String("  ")); return err }, codes.InvalidArgument},
		{"oversize image", func() error {
			_, err := c.Extract(ctx, wrapperspb.Bytes(make([]byte, constants.MaxImageBytes+1)))
			return err
		}, codes.InvalidArgument},
		{"oversize score", func() error {
			_, err := c.Score(ctx, wrapperspb.String(strings.Repeat("x", maxCodeRunes+1)))
			return err
		}, codes.InvalidArgument},
		{"history disabled", func() error { _, err := c.ListScans(ctx, &structpb.Struct{}); return err }, codes.FailedPrecondition},
		{"get disabled", func() error { _, err := c.GetScan(ctx, wrapperspb.String("x")); return err }, codes.FailedPrecondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := status.Code(tt.call()); got != tt.code {
				t.Fatalf("code = %v, want %v", got, tt.code)
			}
		})
	}
}

func TestListFilter(t *testing.T) {
	req, _ := structpb.NewStruct(map[string]any{"limit": 5, "from": "2025-01-01", "to": "2025-01-31"})
	f, err := listFilter(req)
	if err != nil {
		t.Fatalf("listFilter: %v", err)
	}
	if f.Limit != 5 || f.From == nil || f.To == nil || f.To.Day() != 31 || f.To.Hour() != 23 {
		t.Fatalf("filter = %+v", f)
	}

	bad, _ := structpb.NewStruct(map[string]any{"from": "yesterday"})
	if _, err := listFilter(bad); err == nil {
		t.Fatal("expected error for bad date")
	}
}
