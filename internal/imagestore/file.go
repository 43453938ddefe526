package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore writes images as files in Dir. References are the slash-separated
// file path, e.g. "img/3f2a....png".
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = Namespace
	}
	return &FileStore{Dir: dir}
}

func (s *FileStore) EnsureNamespace(_ context.Context) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}
	return nil
}

func (s *FileStore) Put(ctx context.Context, id, format string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name, err := FileName(id, format)
	if err != nil {
		return "", err
	}
	p := filepath.Join(s.Dir, name)

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrExists, name)
		}
		return "", fmt.Errorf("create image file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(p)
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(p)
		return "", fmt.Errorf("close image file: %w", err)
	}
	return filepath.ToSlash(p), nil
}

func (s *FileStore) Get(_ context.Context, ref string) ([]byte, error) {
	name, err := NameOf(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read image file: %w", err)
	}
	return data, nil
}
