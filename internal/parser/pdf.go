package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docread/internal/compose"
	"github.com/dgallion1/docread/internal/document"
	"github.com/dgallion1/docread/internal/extract"
	"github.com/dgallion1/docread/internal/materialize"
)

// Materializer persists one image and returns its reference.
type Materializer interface {
	Materialize(ctx context.Context, data []byte, format string) (string, error)
}

type preparer interface {
	Prepare(ctx context.Context) error
}

const defaultMaxConcurrentImages = 4

var errNoImageStore = errors.New("no image store configured")

// PDFParser linearizes a PDF page by page, interleaving text blocks and
// images in reading order.
type PDFParser struct {
	Materializer        Materializer
	Log                 *slog.Logger
	MaxConcurrentImages int

	// Open opens the container; defaults to extract.OpenPDF.
	Open func(data []byte) (extract.PageDecoder, error)
}

func openPDF(data []byte) (extract.PageDecoder, error) {
	return extract.OpenPDF(data)
}

// Parse returns an error only when the input is not a PDF or ctx is
// cancelled. Page and image failures are recorded on the document.
func (p *PDFParser) Parse(ctx context.Context, r io.Reader, filename string) (*document.Document, error) {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("file", filename)

	data, err := readAll(ctx, r)
	if err != nil {
		return nil, err
	}

	open := p.Open
	if open == nil {
		open = openPDF
	}
	dec, err := open(data)
	if err != nil {
		return nil, &document.UnsupportedInputError{Filename: filename, Err: err}
	}
	defer dec.Close()

	if pr, ok := p.Materializer.(preparer); ok {
		if err := pr.Prepare(ctx); err != nil {
			log.Warn("prepare image store", "error", err)
		}
	}

	pages := dec.PageCount()
	asm := document.NewAssembler(document.MetadataFor(filename, pages))

	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		num := i + 1
		raw, err := dec.DecodePage(i)
		if err != nil {
			p.record(asm, log, &document.PageDecodeError{Page: num, Err: err})
			asm.AddPage("")
			continue
		}
		for _, perr := range raw.Problems {
			p.record(asm, log, perr)
		}
		asm.AddPage(p.renderPage(ctx, raw, asm, log))
	}

	doc := asm.Document()
	log.Info("pdf linearized", "pages", pages, "issues", len(doc.Issues), "chars", len(doc.Content))
	return doc, nil
}

type imageSlot struct {
	prim   extract.ImagePrimitive
	placed bool
	ref    string
	err    error
}

// renderPage materializes the page's images concurrently, then composes.
func (p *PDFParser) renderPage(ctx context.Context, raw *extract.RawPage, asm *document.Assembler, log *slog.Logger) string {
	res := extract.Primitives(raw)
	for _, err := range res.Errors {
		p.record(asm, log, err)
	}

	slots := make([]imageSlot, 0, len(res.Placed)+len(res.Unplaced))
	for _, img := range res.Placed {
		slots = append(slots, imageSlot{prim: img, placed: true})
	}
	for _, img := range res.Unplaced {
		slots = append(slots, imageSlot{prim: img})
	}

	limit := p.MaxConcurrentImages
	if limit <= 0 {
		limit = defaultMaxConcurrentImages
	}

	page := compose.Page{Number: res.Page, Layout: res.Layout}

	var g errgroup.Group
	g.SetLimit(limit + 1)
	g.Go(func() error {
		page.Texts = make([]compose.TextElement, 0, len(res.Texts))
		for _, t := range res.Texts {
			page.Texts = append(page.Texts, compose.TextElement{Box: t.Box, Text: t.Text})
		}
		return nil
	})
	for i := range slots {
		g.Go(func() error {
			s := &slots[i]
			if p.Materializer == nil {
				s.err = errNoImageStore
				return nil
			}
			s.ref, s.err = p.Materializer.Materialize(ctx, s.prim.Data, s.prim.Format)
			return nil
		})
	}
	_ = g.Wait()

	for _, s := range slots {
		if s.err != nil {
			p.record(asm, log, imageError(res.Page, s.prim, s.err))
			continue
		}
		ref := compose.ImageRef{Reference: s.ref, Page: res.Page, Index: s.prim.SourceIndex}
		if s.placed {
			page.Placed = append(page.Placed, compose.PlacedImage{Box: s.prim.Box, Ref: ref})
		} else {
			page.Trailing = append(page.Trailing, ref)
		}
	}

	return compose.Render(page)
}

func imageError(page int, img extract.ImagePrimitive, err error) error {
	if errors.Is(err, materialize.ErrUndecodable) {
		return &document.ImageDecodeError{Page: page, Index: img.SourceIndex, Format: img.Format, Err: err}
	}
	return &document.ImageStoreError{Page: page, Index: img.SourceIndex, Err: fmt.Errorf("materialize: %w", err)}
}

func (p *PDFParser) record(asm *document.Assembler, log *slog.Logger, err error) {
	asm.Record(err)
	log.Warn("recovered page error", "error", err)
}
