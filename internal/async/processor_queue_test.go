package async

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joseph-ayodele/codesnap/internal/common"
	"github.com/joseph-ayodele/codesnap/internal/entity"
)

type stubProcessor struct {
	calls   atomic.Int32
	delay   time.Duration
	mu      sync.Mutex
	reqIDs  []string
	failFor string
}

func (s *stubProcessor) ProcessFile(ctx context.Context, path string) (entity.Scan, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.reqIDs = append(s.reqIDs, common.RequestIDFromContext(ctx))
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return entity.Scan{}, ctx.Err()
		}
	}
	if path == s.failFor {
		return entity.Scan{}, errors.New("boom")
	}
	return entity.Scan{SourceName: path}, nil
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestQueueProcessesAndDrains(t *testing.T) {
	proc := &stubProcessor{failFor: "bad.png"}
	var (
		mu     sync.Mutex
		failed int
	)
	q := NewProcessorQueue(proc, quietLogger(),
		WithWorkers(3),
		WithQueueSize(2),
		WithResultHandler(func(_ Job, _ entity.Scan, err error) {
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}),
	)

	paths := []string{"a.png", "b.png", "bad.png", "c.png", "d.png", "e.png"}
	for _, p := range paths {
		if err := q.Enqueue(context.Background(), Job{ImagePath: p, TraceID: "trace-" + p}); err != nil {
			t.Fatalf("Enqueue(%s): %v", p, err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	if got := proc.calls.Load(); got != int32(len(paths)) {
		t.Fatalf("processed %d, want %d", got, len(paths))
	}
	if failed != 1 {
		t.Fatalf("failed = %d", failed)
	}
	for _, rid := range proc.reqIDs {
		if rid == "" {
			t.Fatal("trace id not propagated as request id")
		}
	}
}

func TestEnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&stubProcessor{}, quietLogger())
	q.Shutdown(context.Background())
	if err := q.Enqueue(context.Background(), Job{ImagePath: "late.png"}); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("err = %v", err)
	}
	// second shutdown is a no-op
	q.Shutdown(context.Background())
}

func TestEnqueueHonoursContextWhenFull(t *testing.T) {
	proc := &stubProcessor{delay: time.Second}
	q := NewProcessorQueue(proc, quietLogger(), WithWorkers(1), WithQueueSize(1))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		q.Shutdown(ctx)
	})

	// one job in the worker, one in the buffer
	_ = q.Enqueue(context.Background(), Job{ImagePath: "1.png"})
	time.Sleep(50 * time.Millisecond)
	_ = q.Enqueue(context.Background(), Job{ImagePath: "2.png"})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(ctx, Job{ImagePath: "3.png"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestProcessTimeout(t *testing.T) {
	proc := &stubProcessor{delay: time.Second}
	errs := make(chan error, 1)
	q := NewProcessorQueue(proc, quietLogger(),
		WithProcessTimeout(20*time.Millisecond),
		WithResultHandler(func(_ Job, _ entity.Scan, err error) { errs <- err }),
	)
	_ = q.Enqueue(context.Background(), Job{ImagePath: "slow.png"})
	select {
	case err := <-errs:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job did not time out")
	}
	q.Shutdown(context.Background())
}
