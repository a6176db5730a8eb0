package review

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sparklepop/Code-Project-Review/internal/models"
	"github.com/sparklepop/Code-Project-Review/internal/source"
)

var (
	ErrQueueFull     = errors.New("review queue is full")
	ErrRunnerStopped = errors.New("review runner is stopped")
)

// Executor runs one review to completion.
type Executor interface {
	Run(ctx context.Context, id string) (*models.CodeReview, error)
}

// Runner analyzes queued reviews on a fixed pool of workers. A review
// already waiting in the queue is not queued twice.
type Runner struct {
	exec    Executor
	jobs    chan string
	workers int
	logger  *slog.Logger

	// Clone directories older than cleanupAge are swept every cleanupEvery.
	cleanupRoot  string
	cleanupAge   time.Duration
	cleanupEvery time.Duration

	mu      sync.Mutex
	queued  map[string]bool
	stopped bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates a runner with the given worker count and queue capacity.
func NewRunner(exec Executor, workers, queueSize int, logger *slog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		exec:    exec,
		jobs:    make(chan string, queueSize),
		workers: workers,
		logger:  logger,
		queued:  make(map[string]bool),
	}
}

// WithCleanup makes the runner sweep stale clone directories under root.
func (r *Runner) WithCleanup(root string, maxAge, every time.Duration) *Runner {
	r.cleanupRoot = root
	r.cleanupAge = maxAge
	r.cleanupEvery = every
	return r
}

// Start launches the workers. They run until Stop is called or ctx ends.
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.work(ctx)
	}
	if r.cleanupEvery > 0 {
		r.wg.Add(1)
		go r.sweep(ctx)
	}
}

// Enqueue schedules the review for analysis.
func (r *Runner) Enqueue(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return ErrRunnerStopped
	}
	if r.queued[id] {
		return nil
	}
	select {
	case r.jobs <- id:
		r.queued[id] = true
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of reviews waiting for a worker.
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queued)
}

// Stop rejects new work, cancels running reviews and waits for the workers.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Runner) work(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-r.jobs:
			r.mu.Lock()
			delete(r.queued, id)
			r.mu.Unlock()

			if _, err := r.exec.Run(ctx, id); err != nil {
				r.logger.Warn("queued review failed", "id", id, "error", err)
			}
		}
	}
}

func (r *Runner) sweep(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := source.Cleanup(r.cleanupRoot, r.cleanupAge, now, r.logger); err != nil {
				r.logger.Warn("clone cleanup failed", "root", r.cleanupRoot, "error", err)
			}
		}
	}
}
