package parser

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/docread/internal/document"
)

// MarkdownParser flattens Markdown to plain text using goldmark. Each
// top-level block (headings included) becomes one paragraph.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(ctx context.Context, r io.Reader, filename string) (*document.Document, error) {
	src, err := readAll(ctx, r)
	if err != nil {
		return nil, err
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var blocks []string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if t := extractText(n, src); t != "" {
			blocks = append(blocks, t)
		}
	}
	return linear(filename, document.Join(blocks)), nil
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	writeText(&buf, n, src)
	return strings.TrimSpace(buf.String())
}

func writeText(buf *bytes.Buffer, n ast.Node, src []byte) {
	switch n := n.(type) {
	case *ast.Text:
		buf.Write(n.Segment.Value(src))
		if n.SoftLineBreak() || n.HardLineBreak() {
			buf.WriteByte('\n')
		}
		return
	case *ast.String:
		buf.Write(n.Value)
		return
	}
	// Leaf blocks such as code blocks keep their raw lines.
	if n.Type() == ast.TypeBlock && !n.HasChildren() {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		writeText(buf, c, src)
		if c.Type() == ast.TypeBlock && c.NextSibling() != nil {
			buf.WriteByte('\n')
		}
	}
}
