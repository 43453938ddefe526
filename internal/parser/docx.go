package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/docread/internal/document"
)

// DOCXParser joins the text of every body paragraph with newlines.
type DOCXParser struct{}

func (p *DOCXParser) Parse(ctx context.Context, r io.Reader, filename string) (*document.Document, error) {
	data, err := readAll(ctx, r)
	if err != nil {
		return nil, err
	}

	doc, err := parseDOCX(data)
	if err != nil {
		return nil, &document.UnsupportedInputError{Filename: filename, Err: err}
	}

	var paras []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		paras = append(paras, docxParagraphText(para))
	}
	return linear(filename, strings.Join(paras, "\n")), nil
}

func parseDOCX(data []byte) (doc *docx.Docx, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("parse docx: %v", r)
		}
	}()
	doc, err = docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}
	return doc, nil
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
