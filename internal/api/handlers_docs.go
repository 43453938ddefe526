package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docread/internal/docstore"
	"github.com/dgallion1/docread/internal/imagestore"
)

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	doc, err := s.orchestrator.Repository().Get(r.Context(), docID)
	if errors.Is(err, docstore.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("get document", "doc_id", docID, "error", err)
		jsonError(w, "failed to load document", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": docID, "document": doc})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	err := s.orchestrator.Repository().Delete(r.Context(), docID)
	if errors.Is(err, docstore.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("delete document", "doc_id", docID, "error", err)
		jsonError(w, "failed to delete document", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": docID, "deleted": true})
}

// handleImage serves a stored image by file name.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := s.images.Get(r.Context(), name)
	switch {
	case errors.Is(err, imagestore.ErrBadName), errors.Is(err, imagestore.ErrNotFound):
		jsonError(w, "image not found", http.StatusNotFound)
		return
	case err != nil:
		s.log.Error("get image", "name", name, "error", err)
		jsonError(w, "failed to load image", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", imagestore.ContentType(name))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Write(data)
}
