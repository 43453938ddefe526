package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dgallion1/docread/internal/document"
)

// JSONParser re-indents a JSON document so nested values read line by line.
type JSONParser struct{}

func (p *JSONParser) Parse(ctx context.Context, r io.Reader, filename string) (*document.Document, error) {
	data, err := readAll(ctx, r)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(data), "", "  "); err != nil {
		return nil, &document.UnsupportedInputError{Filename: filename, Err: fmt.Errorf("invalid json: %w", err)}
	}
	return linear(filename, buf.String()), nil
}
