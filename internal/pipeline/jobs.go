package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docread/internal/document"
)

// JobStatus is the lifecycle state of an ingestion job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusParsing   JobStatus = "parsing"
	StatusIndexing  JobStatus = "indexing"
	StatusCompleted JobStatus = "completed"
	StatusPartial   JobStatus = "partial" // stored, with recovered page or image issues
	StatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transitions happen.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusPartial || s == StatusFailed
}

// Progress reports what the parse produced.
type Progress struct {
	Pages         int      `json:"pages"`
	Issues        int      `json:"issues"`
	Chars         int      `json:"chars"`
	IndexAttempts int      `json:"index_attempts"`
	Errors        []string `json:"errors"`
}

// Job is one uploaded file moving through parse and store. The identity
// fields never change after NewJob; everything else is read via Snapshot.
type Job struct {
	ID          string
	DocID       string
	Filename    string
	ContentHash string
	CreatedAt   time.Time

	mu    sync.Mutex
	state jobState
	data  []byte
}

type jobState struct {
	status    JobStatus
	phase     string
	progress  Progress
	updatedAt time.Time
}

// NewJob creates a queued job for data. An empty docID defaults to the first
// 16 hex chars of the content hash, so re-uploads overwrite one document.
func NewJob(filename, docID string, data []byte) *Job {
	hash := ContentHashHex(data)
	if docID == "" {
		docID = hash[:16]
	}
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		DocID:       docID,
		Filename:    filename,
		ContentHash: hash,
		CreatedAt:   now,
		state:       jobState{status: StatusQueued, phase: "queued", updatedAt: now},
		data:        data,
	}
}

func (j *Job) update(fn func(s *jobState)) {
	j.mu.Lock()
	fn(&j.state)
	j.state.updatedAt = time.Now()
	j.mu.Unlock()
}

func (j *Job) SetStatus(status JobStatus, phase string) {
	j.update(func(s *jobState) {
		s.status = status
		s.phase = phase
	})
}

func (j *Job) AddError(msg string) {
	j.update(func(s *jobState) {
		s.progress.Errors = append(s.progress.Errors, msg)
	})
}

// SetParsed records the shape of doc and copies its issues into the error
// list as "page N: kind: message".
func (j *Job) SetParsed(doc *document.Document) {
	j.update(func(s *jobState) {
		s.progress.Pages = doc.Metadata.SourcePageCount
		s.progress.Issues = len(doc.Issues)
		s.progress.Chars = len(doc.Content)
		for _, is := range doc.Issues {
			s.progress.Errors = append(s.progress.Errors, fmt.Sprintf("page %d: %s: %s", is.Page, is.Kind, is.Message))
		}
	})
}

func (j *Job) IncrIndexAttempts() {
	j.update(func(s *jobState) { s.progress.IndexAttempts++ })
}

// FileData returns the uploaded bytes, or nil once released.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.data
}

// Release drops the uploaded bytes so a finished job holds no file memory.
func (j *Job) Release() {
	j.mu.Lock()
	j.data = nil
	j.mu.Unlock()
}

func (j *Job) lastUpdate() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state.updatedAt
}

// JobSnapshot is a point-in-time, JSON-safe copy of a job.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	DocID       string    `json:"doc_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	st := j.state
	st.progress.Errors = append(make([]string, 0, len(j.state.progress.Errors)), j.state.progress.Errors...)
	j.mu.Unlock()

	return JobSnapshot{
		ID:          j.ID,
		DocID:       j.DocID,
		Status:      st.status,
		Phase:       st.phase,
		Filename:    j.Filename,
		ContentHash: j.ContentHash,
		Progress:    st.progress,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   st.updatedAt,
	}
}

// ContentHashHex returns the hex SHA-256 of data.
func ContentHashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// JobStore keeps jobs in memory until they go untouched for longer than ttl.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{jobs: make(map[string]*Job), ttl: ttl}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
}

// Get returns nil for unknown or evicted ids.
func (s *JobStore) Get(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}

func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Cleanup evicts expired jobs and reports how many were removed.
func (s *JobStore) Cleanup() int {
	cutoff := time.Now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, job := range s.jobs {
		if job.lastUpdate().Before(cutoff) {
			delete(s.jobs, id)
			n++
		}
	}
	return n
}
