package parser

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgallion1/docread/internal/document"
)

// Page chrome and non-visible content.
var htmlSkip = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true, atom.Noscript: true,
	atom.Template: true, atom.Nav: true, atom.Header: true, atom.Footer: true,
}

// Elements whose text becomes one block.
var htmlBlocks = map[atom.Atom]bool{
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.P: true, atom.Li: true, atom.Td: true, atom.Th: true, atom.Blockquote: true,
	atom.Pre: true, atom.Figcaption: true, atom.Dt: true, atom.Dd: true,
}

// HTMLParser emits headings and paragraph-like elements of the body, in
// document order, one block each.
type HTMLParser struct{}

func (p *HTMLParser) Parse(ctx context.Context, r io.Reader, filename string) (*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root, err := html.Parse(r)
	if err != nil {
		return nil, &document.UnsupportedInputError{Filename: filename, Err: fmt.Errorf("parse html: %w", err)}
	}

	start := root
	for n := range root.Descendants() {
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			start = n
			break
		}
	}

	var blocks []string
	collectBlocks(start, &blocks)
	return linear(filename, document.Join(blocks)), nil
}

func collectBlocks(n *html.Node, out *[]string) {
	if n.Type == html.ElementNode {
		if htmlSkip[n.DataAtom] {
			return
		}
		if htmlBlocks[n.DataAtom] {
			if t := nodeText(n, n.DataAtom == atom.Pre); t != "" {
				*out = append(*out, t)
			}
			return
		}
	}
	for c := range n.ChildNodes() {
		collectBlocks(c, out)
	}
}

// nodeText concatenates descendant text. Whitespace runs collapse to one
// space unless keepSpace is set.
func nodeText(n *html.Node, keepSpace bool) string {
	var sb strings.Builder
	for d := range n.Descendants() {
		if d.Type == html.TextNode {
			sb.WriteString(d.Data)
		}
	}
	if keepSpace {
		return strings.Trim(sb.String(), "\n")
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
