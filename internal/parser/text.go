package parser

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/dgallion1/docread/internal/document"
)

// TextParser handles plain text and source code files. Input that is not
// valid UTF-8 is decoded as Latin-1.
type TextParser struct {
	// RejectBinary fails input that LooksLikeText refuses. Set for files
	// whose extension has no known parser.
	RejectBinary bool
}

func (p *TextParser) Parse(ctx context.Context, r io.Reader, filename string) (*document.Document, error) {
	data, err := readAll(ctx, r)
	if err != nil {
		return nil, err
	}
	if p.RejectBinary && !LooksLikeText(data) {
		return nil, &document.UnsupportedInputError{
			Filename: filename,
			Err:      fmt.Errorf("unsupported file extension %q: content is binary", filepath.Ext(filename)),
		}
	}
	text, err := decodeText(data)
	if err != nil {
		return nil, &document.UnsupportedInputError{Filename: filename, Err: err}
	}
	return linear(filename, text), nil
}

func decodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode latin-1: %w", err)
	}
	return string(out), nil
}
