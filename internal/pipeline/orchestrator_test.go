package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgallion1/docread/internal/config"
	"github.com/dgallion1/docread/internal/docstore"
	"github.com/dgallion1/docread/internal/parser"
)

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.WorkerCount = 2
	cfg.MaxQueueSize = 4
	return cfg
}

func TestOrchestrator_ProcessesSubmittedJobs(t *testing.T) {
	repo := docstore.NewMemoryRepo()
	o := NewOrchestrator(testConfig(), repo, parser.Options{}, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("a.md", "doc-a", []byte("# Title\n\nBody"))
	if err := o.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		snap := o.GetJob(job.ID).Snapshot()
		if snap.Status == StatusCompleted {
			break
		}
		if snap.Status == StatusFailed || time.Now().After(deadline) {
			t.Fatalf("job did not complete: %+v", snap)
		}
		time.Sleep(10 * time.Millisecond)
	}

	doc, err := o.Repository().Get(context.Background(), "doc-a")
	if err != nil {
		t.Fatalf("expected stored document: %v", err)
	}
	if doc.Content != "Title\n\nBody" {
		t.Errorf("unexpected content %q", doc.Content)
	}
	if o.Stats().Snapshot().Count != 1 {
		t.Error("expected one parse sample")
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 1
	o := NewOrchestrator(cfg, docstore.NewMemoryRepo(), parser.Options{}, discardLogger())
	defer o.Stop()

	if err := o.Submit(NewJob("a.txt", "", []byte("a"))); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second := NewJob("b.txt", "", []byte("b"))
	if err := o.Submit(second); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if snap := second.Snapshot(); snap.Status != StatusFailed || snap.Phase != "queue_full" {
		t.Errorf("expected failed/queue_full, got %s/%s", snap.Status, snap.Phase)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}

func TestOrchestrator_SubmitAfterStop(t *testing.T) {
	o := NewOrchestrator(testConfig(), docstore.NewMemoryRepo(), parser.Options{}, discardLogger())
	o.Start(context.Background())
	o.Stop()
	o.Stop()

	if err := o.Submit(NewJob("a.txt", "", []byte("a"))); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestOrchestrator_StopFailsQueuedJobs(t *testing.T) {
	o := NewOrchestrator(testConfig(), docstore.NewMemoryRepo(), parser.Options{}, discardLogger())

	jobs := []*Job{
		NewJob("a.txt", "", []byte("a")),
		NewJob("b.txt", "", []byte("b")),
	}
	for _, job := range jobs {
		if err := o.Submit(job); err != nil {
			t.Fatalf("submit %s: %v", job.Filename, err)
		}
	}
	o.Stop()

	for _, job := range jobs {
		snap := job.Snapshot()
		if snap.Status != StatusFailed || snap.Phase != "stopped" {
			t.Errorf("%s: expected failed/stopped, got %s/%s", job.Filename, snap.Status, snap.Phase)
		}
		if len(snap.Progress.Errors) != 1 {
			t.Errorf("%s: expected one error, got %v", job.Filename, snap.Progress.Errors)
		}
		if job.FileData() != nil {
			t.Errorf("%s: expected file data released", job.Filename)
		}
	}
	if o.QueueDepth() != 0 {
		t.Errorf("expected empty queue, got %d", o.QueueDepth())
	}
}
