package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docread/internal/docstore"
	"github.com/dgallion1/docread/internal/parser"
)

// Worker processes a single document job.
type Worker struct {
	repo    docstore.Repository
	opts    parser.Options
	log     *slog.Logger
	stats   *Stats
	retries int
	backoff func(attempt int) time.Duration
}

func NewWorker(repo docstore.Repository, opts parser.Options, stats *Stats, retries int, log *slog.Logger) *Worker {
	return &Worker{
		repo:    repo,
		opts:    opts,
		log:     log,
		stats:   stats,
		retries: retries,
		backoff: Backoff,
	}
}

// Process parses the job's file and stores the resulting document.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "file", job.Filename)
	defer job.Release()

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	opts := w.opts
	opts.Log = log
	p := parser.ForFile(job.Filename, opts)

	start := time.Now()
	doc, err := p.Parse(ctx, bytes.NewReader(job.FileData()), job.Filename)
	if w.stats != nil {
		sample := ParseSample{Duration: time.Since(start), Failed: err != nil}
		if doc != nil {
			sample.Pages, sample.Issues = doc.Metadata.SourcePageCount, len(doc.Issues)
		}
		w.stats.Record(sample)
	}
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.SetParsed(doc)
	log.Info("parsed document", "pages", doc.Metadata.SourcePageCount, "issues", len(doc.Issues))

	// Phase 2: Hand off to the indexing store.
	job.SetStatus(StatusIndexing, "indexing")
	err = withRetry(ctx, w.retries, w.backoff, func() error {
		job.IncrIndexAttempts()
		err := w.repo.Save(ctx, job.DocID, doc)
		if err != nil && IsRetryable(err) {
			log.Warn("retryable store error", "error", err)
		}
		return err
	})
	if err != nil {
		log.Error("store failed", "error", err)
		job.AddError(fmt.Sprintf("store: %s", err))
		job.SetStatus(StatusFailed, "indexing")
		return
	}

	if len(doc.Issues) > 0 {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
}
