package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docread/internal/parser"
	"github.com/dgallion1/docread/internal/pipeline"
)

const formOverhead = 1 << 20

// uploadError carries the HTTP status an upload problem maps to.
type uploadError struct {
	status int
	msg    string
}

func (e *uploadError) Error() string { return e.msg }

type acceptedJob struct {
	JobID    string             `json:"job_id,omitempty"`
	DocID    string             `json:"doc_id,omitempty"`
	Filename string             `json:"filename,omitempty"`
	Status   pipeline.JobStatus `json:"status,omitempty"`
	PollURL  string             `json:"poll_url,omitempty"`
	Error    string             `json:"error,omitempty"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+formOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}

	res, err := s.accept(files[0], r.FormValue("doc_id"))
	if err != nil {
		var ue *uploadError
		if errors.As(err, &ue) {
			jsonError(w, ue.msg, ue.status)
			return
		}
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (s *Server) handleBatchIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*formOverhead)
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	// Each file succeeds or fails on its own; doc ids come from content.
	results := make([]acceptedJob, 0, len(files))
	for _, fh := range files {
		res, err := s.accept(fh, "")
		if err != nil {
			res = acceptedJob{Filename: sanitizeFilename(fh.Filename), Error: err.Error()}
		}
		results = append(results, res)
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": results})
}

// accept validates and reads one uploaded file, then submits it.
func (s *Server) accept(fh *multipart.FileHeader, docID string) (acceptedJob, error) {
	filename := sanitizeFilename(fh.Filename)
	if fh.Size > s.cfg.MaxUploadBytes {
		return acceptedJob{}, tooLarge(s.cfg.MaxUploadBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return acceptedJob{}, &uploadError{http.StatusBadRequest, "failed to open file"}
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return acceptedJob{}, &uploadError{http.StatusInternalServerError, "failed to read file"}
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return acceptedJob{}, tooLarge(s.cfg.MaxUploadBytes)
	}
	if !parser.Accepts(filename, data) {
		return acceptedJob{}, &uploadError{http.StatusBadRequest, fmt.Sprintf("unsupported file type: %q", filepath.Ext(filename))}
	}

	job := pipeline.NewJob(filename, docID, data)
	if err := s.orchestrator.Submit(job); err != nil {
		return acceptedJob{}, err
	}
	s.log.Info("job queued", "job_id", job.ID, "doc_id", job.DocID, "file", filename, "bytes", len(data))

	return acceptedJob{
		JobID:    job.ID,
		DocID:    job.DocID,
		Filename: filename,
		Status:   pipeline.StatusQueued,
		PollURL:  "/api/ingest/" + job.ID + "/status",
	}, nil
}

func tooLarge(limit int64) error {
	return &uploadError{http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds max size (%d bytes)", limit)}
}

func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// sanitizeFilename keeps only the base name of a client-supplied path.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.NewReplacer("/", "_", "..", "_").Replace(name)
	if name == "" || name == "." {
		return "unnamed"
	}
	return name
}
