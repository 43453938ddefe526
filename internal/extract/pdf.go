package extract

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"sync"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/dgallion1/docread/internal/document"
)

// PDFDecoder decodes PDF pages. Text geometry and image placement come from
// ledongthuc/pdf; raw image streams come from pdfcpu, which handles the
// image filters (DCT, JPX, CCITT) ledongthuc cannot.
type PDFDecoder struct {
	data   []byte
	reader *pdflib.Reader
	layout LayoutConfig

	imgOnce sync.Once
	imgCtx  *model.Context
	imgErr  error
}

// OpenPDF opens data as a PDF container. An error means the input is not a
// usable PDF at all.
func OpenPDF(data []byte) (dec *PDFDecoder, err error) {
	defer func() {
		if r := recover(); r != nil {
			dec = nil
			err = fmt.Errorf("open pdf: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &PDFDecoder{
		data:   data,
		reader: reader,
		layout: DefaultLayoutConfig(),
	}, nil
}

func (d *PDFDecoder) PageCount() int {
	return d.reader.NumPage()
}

// DecodePage decodes page index (0-based). A failure of the layout walk alone
// does not fail the page: the page is returned with Layout=false and its
// plain text, so it can still be rendered page-sequentially.
func (d *PDFDecoder) DecodePage(index int) (page *RawPage, err error) {
	num := index + 1
	defer func() {
		if r := recover(); r != nil {
			page = nil
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()

	p := d.reader.Page(num)
	if p.V.IsNull() {
		return nil, fmt.Errorf("page %d not found", num)
	}

	height := pageHeight(p)
	raw := &RawPage{Number: num, Layout: true}

	boxes, layoutErr := placements(p, height)
	if layoutErr == nil {
		raw.TextBlocks, layoutErr = d.textBlocks(p, height)
	}
	if layoutErr != nil {
		raw.Layout = false
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("plain text: %w", err)
		}
		raw.TextBlocks = []RawTextBlock{{Text: text}}
	}

	images, err := d.pageImages(num)
	if err != nil {
		// The page still has usable text; report its images as undecodable.
		raw.Problems = append(raw.Problems, &document.ImageDecodeError{Page: num, Index: -1, Err: err})
		return raw, nil
	}
	for i, img := range images {
		ri := RawImage{Data: img.data, Format: img.format, SourceIndex: i}
		switch {
		case layoutErr != nil:
			ri.BoxErr = fmt.Errorf("layout unavailable: %w", layoutErr)
		default:
			if b, ok := boxes[img.name]; ok {
				box := b
				ri.Box = &box
			} else {
				ri.BoxErr = fmt.Errorf("image %q has no placement in the content stream", img.name)
			}
		}
		raw.Images = append(raw.Images, ri)
	}
	return raw, nil
}

func (d *PDFDecoder) textBlocks(p pdflib.Page, height float64) (blocks []RawTextBlock, err error) {
	defer func() {
		if r := recover(); r != nil {
			blocks = nil
			err = fmt.Errorf("read page content: %v", r)
		}
	}()
	return groupGlyphs(p.Content().Text, height, d.layout), nil
}

type pageImage struct {
	name   string
	objNr  int
	format string
	data   []byte
}

// pageImages returns the page's images ordered by object number.
func (d *PDFDecoder) pageImages(num int) ([]pageImage, error) {
	d.imgOnce.Do(func() {
		conf := model.NewDefaultConfiguration()
		conf.ValidationMode = model.ValidationRelaxed
		d.imgCtx, d.imgErr = api.ReadValidateAndOptimize(bytes.NewReader(d.data), conf)
		if d.imgErr != nil {
			d.imgErr = fmt.Errorf("pdfcpu read: %w", d.imgErr)
		}
	})
	if d.imgErr != nil {
		return nil, d.imgErr
	}

	extracted, err := pdfcpu.ExtractPageImages(d.imgCtx, num, false)
	if err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}

	out := make([]pageImage, 0, len(extracted))
	for objNr, img := range extracted {
		data, err := io.ReadAll(img)
		if err != nil {
			return nil, fmt.Errorf("read image %d: %w", objNr, err)
		}
		out = append(out, pageImage{name: img.Name, objNr: objNr, format: img.FileType, data: data})
	}
	slices.SortFunc(out, func(a, b pageImage) int { return a.objNr - b.objNr })
	return out, nil
}

func (d *PDFDecoder) Close() error {
	d.imgCtx = nil
	return nil
}
