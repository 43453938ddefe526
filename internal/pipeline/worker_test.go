package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/docread/internal/docstore"
	"github.com/dgallion1/docread/internal/document"
	"github.com/dgallion1/docread/internal/parser"
	"github.com/dgallion1/docread/internal/pathstore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// flakyRepo fails the first n saves with err.
type flakyRepo struct {
	*docstore.MemoryRepo
	mu    sync.Mutex
	n     int
	err   error
	saves int
}

func (r *flakyRepo) Save(ctx context.Context, id string, doc *document.Document) error {
	r.mu.Lock()
	r.saves++
	fail := r.saves <= r.n
	r.mu.Unlock()
	if fail {
		return r.err
	}
	return r.MemoryRepo.Save(ctx, id, doc)
}

func newTestWorker(repo docstore.Repository, retries int) *Worker {
	w := NewWorker(repo, parser.Options{}, NewStats(time.Hour), retries, discardLogger())
	w.backoff = func(int) time.Duration { return 0 }
	return w
}

func TestWorker_ProcessTextCompletes(t *testing.T) {
	repo := docstore.NewMemoryRepo()
	w := newTestWorker(repo, 3)
	job := NewJob("notes.txt", "doc-1", []byte("Hello world"))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", snap.Status, snap.Progress.Errors)
	}
	doc, err := repo.Get(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("expected stored document: %v", err)
	}
	if doc.Content != "Hello world" {
		t.Errorf("unexpected content %q", doc.Content)
	}
	if job.FileData() != nil {
		t.Error("expected file data released after processing")
	}
	if w.stats.Snapshot().Count != 1 {
		t.Error("expected parse latency recorded")
	}
}

func TestWorker_UnknownBinaryFails(t *testing.T) {
	w := newTestWorker(docstore.NewMemoryRepo(), 0)
	job := NewJob("archive.zip", "", []byte("PK\x03\x04\x14\x00\x00\x00"))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "parsing" {
		t.Errorf("expected failed in parsing, got %s/%s", snap.Status, snap.Phase)
	}
}

func TestWorker_UnknownTextExtensionCompletes(t *testing.T) {
	repo := docstore.NewMemoryRepo()
	w := newTestWorker(repo, 0)
	job := NewJob("server.log", "", []byte("started\n"))
	w.Process(context.Background(), job)

	if snap := job.Snapshot(); snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s/%s %v", snap.Status, snap.Phase, snap.Progress.Errors)
	}
}

func TestWorker_InvalidPDFFails(t *testing.T) {
	w := newTestWorker(docstore.NewMemoryRepo(), 0)
	job := NewJob("broken.pdf", "", []byte("not a pdf"))
	w.Process(context.Background(), job)

	if snap := job.Snapshot(); snap.Status != StatusFailed {
		t.Errorf("expected failed, got %s", snap.Status)
	}
}

func TestWorker_RetriesTransientStoreErrors(t *testing.T) {
	repo := &flakyRepo{
		MemoryRepo: docstore.NewMemoryRepo(),
		n:          2,
		err:        &pathstore.RetryableError{StatusCode: 503, Message: "busy"},
	}
	w := newTestWorker(repo, 3)
	job := NewJob("a.txt", "doc-r", []byte("text"))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed after retries, got %s", snap.Status)
	}
	if snap.Progress.IndexAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", snap.Progress.IndexAttempts)
	}
}

func TestWorker_RetriesExhausted(t *testing.T) {
	repo := &flakyRepo{
		MemoryRepo: docstore.NewMemoryRepo(),
		n:          10,
		err:        &pathstore.RetryableError{StatusCode: 429},
	}
	w := newTestWorker(repo, 1)
	job := NewJob("a.txt", "", []byte("text"))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "indexing" {
		t.Errorf("expected failed in indexing, got %s/%s", snap.Status, snap.Phase)
	}
	if snap.Progress.IndexAttempts != 2 {
		t.Errorf("expected 2 attempts, got %d", snap.Progress.IndexAttempts)
	}
}

func TestWorker_PermanentStoreErrorNotRetried(t *testing.T) {
	repo := &flakyRepo{MemoryRepo: docstore.NewMemoryRepo(), n: 10, err: errors.New("bad request")}
	w := newTestWorker(repo, 3)
	job := NewJob("a.txt", "", []byte("text"))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Progress.IndexAttempts != 1 {
		t.Errorf("expected single failed attempt, got %s after %d", snap.Status, snap.Progress.IndexAttempts)
	}
}

func TestIsRetryable(t *testing.T) {
	wrapped := errors.Join(errors.New("put node"), &pathstore.RetryableError{StatusCode: 500})
	if !IsRetryable(wrapped) {
		t.Error("expected wrapped RetryableError to be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain error should not be retryable")
	}
}

func TestBackoff_Bounds(t *testing.T) {
	for attempt := 0; attempt < 8; attempt++ {
		d := Backoff(attempt)
		base := time.Duration(1<<uint(attempt)) * time.Second
		if base > 30*time.Second {
			base = 30 * time.Second
		}
		if d < base || d >= base+base/2 {
			t.Errorf("attempt %d: backoff %v outside [%v, %v)", attempt, d, base, base+base/2)
		}
	}
}

func TestWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := withRetry(ctx, 5, func(int) time.Duration { return time.Hour }, func() error {
		calls++
		return &pathstore.RetryableError{StatusCode: 503}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}
