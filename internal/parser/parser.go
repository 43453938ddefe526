package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docread/internal/document"
)

// Parser converts raw file bytes into a linear Document.
type Parser interface {
	Parse(ctx context.Context, r io.Reader, filename string) (*document.Document, error)
}

// Options carries the collaborators some parsers need.
type Options struct {
	Materializer        Materializer
	Log                 *slog.Logger
	MaxConcurrentImages int
}

// SupportedExtensions lists extensions with a known parser. Other extensions
// are tried as plain text.
var SupportedExtensions = map[string]bool{
	".pdf":      true,
	".docx":     true,
	".md":       true,
	".mdx":      true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".csv":      true,
	".json":     true,
}

// textExtensions are read as plain text.
var textExtensions = []string{
	".txt", ".py", ".js", ".css", ".ts", ".tsx", ".vue", ".svelte", ".astro",
	".php", ".rb", ".go", ".rs", ".swift", ".kt", ".java", ".c", ".cpp", ".h", ".hpp",
}

func init() {
	for _, ext := range textExtensions {
		SupportedExtensions[ext] = true
	}
}

// ForFile returns the appropriate parser for a filename. Unknown extensions
// get a TextParser that refuses binary content.
func ForFile(filename string, opts Options) Parser {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return &PDFParser{
			Materializer:        opts.Materializer,
			Log:                 opts.Log,
			MaxConcurrentImages: opts.MaxConcurrentImages,
		}
	case ".docx":
		return &DOCXParser{}
	case ".md", ".markdown", ".mdx":
		return &MarkdownParser{}
	case ".html", ".htm":
		return &HTMLParser{}
	case ".csv":
		return &CSVParser{}
	case ".json":
		return &JSONParser{}
	}
	return &TextParser{RejectBinary: !SupportedExtensions[ext]}
}

// IsSupportedExtension checks if a file extension has a known parser.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Accepts reports whether a file can be handed to ForFile, given the start
// of its content. Known extensions always pass; anything else must look
// like text.
func Accepts(filename string, head []byte) bool {
	return IsSupportedExtension(filename) || LooksLikeText(head)
}

const sniffLen = 8000

// LooksLikeText reports whether the first 8000 bytes of data are free of NUL
// bytes.
func LooksLikeText(data []byte) bool {
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	return bytes.IndexByte(data, 0) < 0
}

// linear wraps the text of an unpaged format into a Document.
func linear(filename, content string) *document.Document {
	asm := document.NewAssembler(document.MetadataFor(filename, 0))
	asm.AddPage(strings.TrimSpace(content))
	return asm.Document()
}

// readAll reads r, giving up early when ctx is cancelled.
func readAll(ctx context.Context, r io.Reader) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}
