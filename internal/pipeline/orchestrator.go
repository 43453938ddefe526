package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docread/internal/config"
	"github.com/dgallion1/docread/internal/docstore"
	"github.com/dgallion1/docread/internal/parser"
)

var (
	ErrQueueFull = errors.New("job queue is full")
	ErrStopped   = errors.New("orchestrator stopped")
)

const janitorInterval = 5 * time.Minute

// Orchestrator queues ingestion jobs and runs them on a fixed worker pool.
// Documents are processed in parallel; pages within a document are not.
type Orchestrator struct {
	cfg   config.Config
	jobs  *JobStore
	repo  docstore.Repository
	opts  parser.Options
	stats *Stats
	log   *slog.Logger

	mu      sync.Mutex // guards queue sends against close
	queue   chan *Job
	stopped bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewOrchestrator creates the pipeline; call Start to launch workers.
func NewOrchestrator(cfg config.Config, repo docstore.Repository, opts parser.Options, log *slog.Logger) *Orchestrator {
	if opts.MaxConcurrentImages == 0 {
		opts.MaxConcurrentImages = cfg.MaxConcurrentImages
	}
	return &Orchestrator{
		cfg:   cfg,
		jobs:  NewJobStore(cfg.JobTTL),
		repo:  repo,
		opts:  opts,
		stats: NewStats(time.Hour),
		log:   log,
		queue: make(chan *Job, cfg.MaxQueueSize),
	}
}

// Start launches cfg.WorkerCount workers and the job janitor.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)

	for i := range o.cfg.WorkerCount {
		w := NewWorker(o.repo, o.opts, o.stats, o.cfg.IndexRetries, o.log.With("worker", i))
		o.wg.Go(func() { o.work(ctx, w) })
	}
	o.wg.Go(func() { o.janitor(ctx) })

	o.log.Info("pipeline started", "workers", o.cfg.WorkerCount, "queue_size", o.cfg.MaxQueueSize)
}

func (o *Orchestrator) work(ctx context.Context, w *Worker) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-o.queue:
			if !ok {
				return
			}
			w.Process(ctx, job)
		}
	}
}

func (o *Orchestrator) janitor(ctx context.Context) {
	t := time.NewTicker(janitorInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := o.jobs.Cleanup(); n > 0 {
				o.log.Debug("evicted expired jobs", "count", n, "remaining", o.jobs.Len())
			}
		}
	}
}

// Stop cancels in-flight work and waits for workers to exit. Jobs that were
// still queued are marked failed with phase "stopped". Safe to call more
// than once.
func (o *Orchestrator) Stop() {
	o.once.Do(func() {
		o.mu.Lock()
		o.stopped = true
		close(o.queue)
		o.mu.Unlock()

		if o.cancel != nil {
			o.cancel()
		}
		o.wg.Wait()

		// Jobs still buffered were never picked up.
		for job := range o.queue {
			job.AddError("orchestrator stopped before the job started")
			job.SetStatus(StatusFailed, "stopped")
			job.Release()
		}
	})
}

// Submit registers job and queues it without blocking. A full queue marks
// the job failed with phase "queue_full".
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return ErrStopped
	}

	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
	}
}

// GetJob returns nil for unknown or expired ids.
func (o *Orchestrator) GetJob(id string) *Job { return o.jobs.Get(id) }

func (o *Orchestrator) QueueDepth() int { return len(o.queue) }

// Repository returns the document repository for direct use by API handlers.
func (o *Orchestrator) Repository() docstore.Repository { return o.repo }

// Stats returns parse latency statistics.
func (o *Orchestrator) Stats() *Stats { return o.stats }
