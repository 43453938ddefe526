package extract

import (
	"fmt"
	"math"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/docread/internal/geometry"
)

// LayoutConfig tunes how glyphs are grouped into text blocks.
type LayoutConfig struct {
	RowTolerance float64 // fraction of font size two baselines may differ by and stay on one line
	WordGap      float64 // fraction of font size that counts as a word break
	LineSpacing  float64 // max baseline distance, in font sizes, between lines of one block
}

// DefaultLayoutConfig mirrors typical body-text spacing.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		RowTolerance: 0.5,
		WordGap:      0.25,
		LineSpacing:  1.5,
	}
}

type line struct {
	minX, maxX float64
	baseline   float64
	fontSize   float64
	text       strings.Builder
	lastEnd    float64
	lastSpace  bool
}

type block struct {
	minX, maxX   float64
	top, bottom  float64 // PDF space: top > bottom
	lastBaseline float64
	lastSize     float64
	lines        []string
}

// groupGlyphs builds text blocks from glyphs in content-stream order. Glyph
// coordinates are PDF user space (origin bottom-left); the returned boxes are
// flipped to a top-left origin using pageHeight.
func groupGlyphs(glyphs []pdflib.Text, pageHeight float64, cfg LayoutConfig) []RawTextBlock {
	var (
		blocks []*block
		cur    *line
	)

	flushLine := func() {
		if cur == nil {
			return
		}
		text := strings.TrimSpace(cur.text.String())
		if text != "" {
			attachLine(&blocks, cur, text, cfg)
		}
		cur = nil
	}

	for _, g := range glyphs {
		if g.S == "" || g.S == "\n" || g.S == "\r" {
			continue
		}
		fs := glyphSize(g)
		isSpace := strings.TrimSpace(g.S) == ""

		if cur != nil && !sameLine(cur, g, fs, cfg) {
			flushLine()
		}
		if cur == nil {
			if isSpace {
				continue
			}
			cur = &line{minX: g.X, maxX: g.X, baseline: g.Y, fontSize: fs, lastEnd: g.X}
		}

		if !isSpace && !cur.lastSpace && cur.text.Len() > 0 && g.X-cur.lastEnd > fs*cfg.WordGap {
			cur.text.WriteByte(' ')
		}
		cur.text.WriteString(g.S)
		cur.lastSpace = isSpace

		end := g.X + glyphWidth(g, fs)
		cur.minX = min(cur.minX, g.X)
		cur.maxX = max(cur.maxX, end)
		cur.fontSize = max(cur.fontSize, fs)
		cur.lastEnd = end
	}
	flushLine()

	out := make([]RawTextBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, RawTextBlock{
			Box:  geometry.Box(b.minX, pageHeight-b.top, b.maxX, pageHeight-b.bottom),
			Text: strings.Join(b.lines, "\n"),
		})
	}
	return out
}

func sameLine(l *line, g pdflib.Text, fs float64, cfg LayoutConfig) bool {
	tol := math.Max(l.fontSize, fs) * cfg.RowTolerance
	if math.Abs(g.Y-l.baseline) > tol {
		return false
	}
	// A jump back to the left on the same baseline is a new line (or column).
	return g.X >= l.lastEnd-l.fontSize
}

// attachLine appends the line to the last block when it continues it
// directly below, otherwise opens a new block.
func attachLine(blocks *[]*block, l *line, text string, cfg LayoutConfig) {
	top := l.baseline + l.fontSize
	bottom := l.baseline - 0.2*l.fontSize

	if n := len(*blocks); n > 0 {
		b := (*blocks)[n-1]
		gap := b.lastBaseline - l.baseline
		maxGap := math.Max(b.lastSize, l.fontSize) * cfg.LineSpacing
		overlaps := l.minX <= b.maxX && l.maxX >= b.minX
		if gap > 0 && gap <= maxGap && overlaps {
			b.lines = append(b.lines, text)
			b.minX = min(b.minX, l.minX)
			b.maxX = max(b.maxX, l.maxX)
			b.top = max(b.top, top)
			b.bottom = min(b.bottom, bottom)
			b.lastBaseline = l.baseline
			b.lastSize = l.fontSize
			return
		}
	}

	*blocks = append(*blocks, &block{
		minX:         l.minX,
		maxX:         l.maxX,
		top:          top,
		bottom:       bottom,
		lastBaseline: l.baseline,
		lastSize:     l.fontSize,
		lines:        []string{text},
	})
}

func glyphSize(g pdflib.Text) float64 {
	if fs := math.Abs(g.FontSize); fs > 0 {
		return fs
	}
	return 1
}

func glyphWidth(g pdflib.Text, fs float64) float64 {
	if g.W > 0 {
		return g.W
	}
	return 0.5 * fs * float64(len([]rune(g.S)))
}

// matrix is a PDF transformation matrix [a b c d e f] in row-vector form.
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m × n (apply m first, then n).
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// unitSquareBox maps the image unit square through ctm and flips it to a
// top-left origin.
func unitSquareBox(ctm matrix, pageHeight float64) geometry.BoundingBox {
	x0, y0 := ctm.apply(0, 0)
	b := geometry.Box(x0, pageHeight-y0, x0, pageHeight-y0)
	for _, c := range [][2]float64{{1, 0}, {0, 1}, {1, 1}} {
		x, y := ctm.apply(c[0], c[1])
		b = b.Union(geometry.Box(x, pageHeight-y, x, pageHeight-y))
	}
	return b
}

// placements walks the page content stream and returns the box of every
// image XObject drawn with Do, keyed by resource name. The first placement
// of a name wins.
func placements(p pdflib.Page, pageHeight float64) (boxes map[string]geometry.BoundingBox, err error) {
	defer func() {
		if r := recover(); r != nil {
			boxes = nil
			err = fmt.Errorf("walk content stream: %v", r)
		}
	}()

	boxes = make(map[string]geometry.BoundingBox)
	contents := p.V.Key("Contents")
	if contents.Kind() == pdflib.Null {
		return boxes, nil
	}
	xobjects := p.Resources().Key("XObject")

	ctm := identity
	var stack []matrix
	walk := func(stk *pdflib.Stack, op string) {
		n := stk.Len()
		args := make([]pdflib.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}

		switch op {
		case "q":
			stack = append(stack, ctm)
		case "Q":
			if len(stack) == 0 {
				return
			}
			ctm = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
		case "cm":
			if len(args) != 6 {
				panic("bad cm")
			}
			var m matrix
			for i := range m {
				m[i] = args[i].Float64()
			}
			ctm = m.mul(ctm)
		case "Do":
			if len(args) != 1 {
				return
			}
			name := args[0].Name()
			if xobjects.Key(name).Key("Subtype").Name() != "Image" {
				return
			}
			if _, seen := boxes[name]; !seen {
				boxes[name] = unitSquareBox(ctm, pageHeight)
			}
		}
	}

	if contents.Kind() == pdflib.Array {
		for i := 0; i < contents.Len(); i++ {
			pdflib.Interpret(contents.Index(i), walk)
		}
	} else {
		pdflib.Interpret(contents, walk)
	}
	return boxes, nil
}

// pageHeight returns the MediaBox height, or 0 when it is missing. A zero
// height still yields a consistent top-to-bottom order since only relative
// positions matter.
func pageHeight(p pdflib.Page) float64 {
	// MediaBox is inheritable from the page tree.
	v := p.V
	for range 32 {
		if v.Kind() == pdflib.Null {
			break
		}
		if mb := v.Key("MediaBox"); mb.Kind() == pdflib.Array && mb.Len() >= 4 {
			return mb.Index(3).Float64() - mb.Index(1).Float64()
		}
		v = v.Key("Parent")
	}
	return 0
}
