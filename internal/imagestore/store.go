// Package imagestore persists extracted page images and hands back the
// reference that appears in document content.
package imagestore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Namespace is the reference prefix shared by all backends.
const Namespace = "img"

var (
	ErrNotFound = errors.New("image not found")
	ErrExists   = errors.New("image already exists")
	ErrBadName  = errors.New("invalid image name")
)

// Store persists image bytes under a caller-chosen id.
type Store interface {
	// EnsureNamespace prepares the backend. Safe to call more than once.
	EnsureNamespace(ctx context.Context) error
	// Put stores data and returns its reference. Ids are never reused; an
	// existing id is reported as ErrExists.
	Put(ctx context.Context, id, format string, data []byte) (string, error)
}

// Getter is implemented by stores that can serve images back.
type Getter interface {
	// Get accepts a full reference or its bare file name.
	Get(ctx context.Context, ref string) ([]byte, error)
}

var namePattern = regexp.MustCompile(`^[0-9a-f]{32}\.[a-z0-9]{1,8}$`)

// FileName builds "<id>.<ext>" from an id and a decoder format name.
func FileName(id, format string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(format, "."))
	if ext == "" {
		ext = "bin"
	}
	name := id + "." + ext
	if !namePattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return name, nil
}

// NameOf strips any directory part from ref and validates what is left.
func NameOf(ref string) (string, error) {
	name := path.Base(strings.ReplaceAll(ref, "\\", "/"))
	if !namePattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrBadName, ref)
	}
	return name, nil
}

// ContentType maps a stored file name to its MIME type.
func ContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
