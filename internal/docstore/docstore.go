// Package docstore keeps linearized documents for the indexing stage to pick up.
package docstore

import (
	"context"
	"errors"
	"sync"

	"github.com/dgallion1/docread/internal/document"
)

var ErrNotFound = errors.New("document not found")

// Repository stores documents by id.
type Repository interface {
	Save(ctx context.Context, id string, doc *document.Document) error
	Get(ctx context.Context, id string) (*document.Document, error)
	Delete(ctx context.Context, id string) error
}

// MemoryRepo is an in-process Repository.
type MemoryRepo struct {
	mu   sync.RWMutex
	docs map[string]*document.Document
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{docs: make(map[string]*document.Document)}
}

func (r *MemoryRepo) Save(_ context.Context, id string, doc *document.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[id] = doc
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, id string) (*document.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (r *MemoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return ErrNotFound
	}
	delete(r.docs, id)
	return nil
}
