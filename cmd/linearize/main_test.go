package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgallion1/docread/internal/document"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRun_PrintsContent(t *testing.T) {
	path := writeFile(t, "notes.md", "# Title\n\nBody")
	var out bytes.Buffer
	if err := run(context.Background(), &out, path, t.TempDir(), 2, false, quiet()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.String() != "Title\n\nBody\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestRun_JSON(t *testing.T) {
	path := writeFile(t, "a.txt", "hello")
	var out bytes.Buffer
	if err := run(context.Background(), &out, path, t.TempDir(), 2, true, quiet()); err != nil {
		t.Fatalf("run: %v", err)
	}
	var doc document.Document
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Content != "hello" || doc.Metadata.Extension != "txt" {
		t.Errorf("unexpected document %+v", doc)
	}
}

func TestRun_UnknownBinary(t *testing.T) {
	path := writeFile(t, "a.zip", "PK\x03\x04\x14\x00\x00\x00")
	err := run(context.Background(), io.Discard, path, t.TempDir(), 2, false, quiet())
	var ue *document.UnsupportedInputError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnsupportedInputError, got %v", err)
	}
}
