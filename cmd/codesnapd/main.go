package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/codesnap/internal/app"
	"github.com/joseph-ayodele/codesnap/internal/async"
	"github.com/joseph-ayodele/codesnap/internal/common"
	"github.com/joseph-ayodele/codesnap/internal/ingest"
	"github.com/joseph-ayodele/codesnap/internal/repository"
	"github.com/joseph-ayodele/codesnap/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg := common.LoadConfig()
	logger := common.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()
	logger.Info("extraction chain ready", "providers", a.Pipeline.Providers())

	// gRPC server
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}

	var scans repository.ScanRepository
	if a.Store != nil {
		scans = a.Store
	}
	grpcServer, healthServer := server.NewGRPCServer(server.NewCodeSnapService(a.Processor, scans, logger))

	var queue *async.ProcessorQueue
	if cfg.Server.InboxDir != "" {
		queue, err = startInbox(ctx, a, cfg, logger)
		if err != nil {
			logger.Error("failed to start inbox watcher", "dir", cfg.Server.InboxDir, "error", err)
			os.Exit(1)
		}
	}

	logger.Info("codesnapd listening", "addr", addr, "history", a.Store != nil, "inbox", cfg.Server.InboxDir)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()
	if queue != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Worker.ProcessTimeout+5*time.Second)
		queue.Shutdown(shutdownCtx)
		cancel()
	}
	grpcServer.GracefulStop()
}

// startInbox watches the inbox directory and feeds new images to a worker
// queue. Repeated images are dropped by the ingestor's content hash.
func startInbox(ctx context.Context, a *app.App, cfg *common.Config, logger *slog.Logger) (*async.ProcessorQueue, error) {
	if err := os.MkdirAll(cfg.Server.InboxDir, 0o755); err != nil {
		return nil, err
	}
	ingestor := ingest.NewFSIngestor(a.Processor, logger)

	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{cfg.Server.InboxDir},
		InitialScan: true,
		Debounce:    cfg.Worker.Debounce,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	queue := async.NewProcessorQueue(ingestor, logger,
		async.WithWorkers(cfg.Worker.Workers),
		async.WithQueueSize(cfg.Worker.QueueSize),
		async.WithProcessTimeout(cfg.Worker.ProcessTimeout),
	)

	go func() {
		for {
			select {
			case p, ok := <-paths:
				if !ok {
					return
				}
				job := async.Job{ImagePath: p, SubmittedAt: time.Now(), TraceID: uuid.New().String()}
				if err := queue.Enqueue(ctx, job); err != nil {
					logger.Warn("inbox image not queued", "path", p, "error", err)
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				logger.Error("inbox watcher error", "error", err)
			}
		}
	}()
	return queue, nil
}
