package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/dgallion1/docread/internal/document"
	"github.com/dgallion1/docread/internal/pathstore"
)

func sampleDoc() *document.Document {
	return &document.Document{
		Content:  "Hello\n\nImagen 1:\nimg/0123456789abcdef0123456789abcdef.png",
		Metadata: document.Metadata{Filename: "report.pdf", Extension: "pdf", SourcePageCount: 1},
		Issues:   []document.Issue{{Page: 1, Kind: document.KindImageDecode, Message: "bad image"}},
	}
}

func exerciseRepo(t *testing.T, repo Repository, id string) {
	t.Helper()
	ctx := context.Background()

	if _, err := repo.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before save, got %v", err)
	}
	want := sampleDoc()
	if err := repo.Save(ctx, id, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Content != want.Content || got.Metadata != want.Metadata {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if len(got.Issues) != 1 || got.Issues[0] != want.Issues[0] {
		t.Errorf("expected issues %+v, got %+v", want.Issues, got.Issues)
	}

	updated := sampleDoc()
	updated.Content = "replaced"
	if err := repo.Save(ctx, id, updated); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	if got, _ := repo.Get(ctx, id); got == nil || got.Content != "replaced" {
		t.Errorf("expected overwritten content, got %+v", got)
	}

	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMemoryRepo_Contract(t *testing.T) {
	exerciseRepo(t, NewMemoryRepo(), "doc-1")
}

// kvStub is a minimal pathstore server.
type kvStub struct {
	mu    sync.Mutex
	nodes map[string]json.RawMessage
}

func (s *kvStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimPrefix(r.URL.Path, "/kv/")
	switch r.Method {
	case http.MethodPut:
		var req struct {
			Value json.RawMessage `json:"value"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		s.nodes[key] = req.Value
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		v, ok := s.nodes[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"key_path": key, "value": v})
	case http.MethodDelete:
		delete(s.nodes, key)
		w.WriteHeader(http.StatusNoContent)
	}
}

func TestPathstoreRepo_Contract(t *testing.T) {
	srv := httptest.NewServer(&kvStub{nodes: map[string]json.RawMessage{}})
	defer srv.Close()
	client := pathstore.NewClient(srv.URL, "key")
	exerciseRepo(t, NewPathstoreRepo(client, ""), "doc-2")
}

func TestPostgresRepo_Contract(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRepo(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	id := "docread-test-" + t.Name()
	db.ExecContext(ctx, `delete from documents where id = $1`, id)
	exerciseRepo(t, repo, id)
}
