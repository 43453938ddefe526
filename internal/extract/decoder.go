// Package extract turns decoded PDF pages into typed, positioned primitives.
package extract

import "github.com/dgallion1/docread/internal/geometry"

// PageDecoder yields raw page content with geometry. Page indexes are 0-based.
type PageDecoder interface {
	PageCount() int
	DecodePage(index int) (*RawPage, error)
	Close() error
}

// RawPage is one decoded page as reported by a PageDecoder.
type RawPage struct {
	Number int // 1-based page number

	// Layout is false when the decoder could not expose block or image
	// placement for this page. Text block boxes are then meaningless and the
	// page is rendered page-sequentially.
	Layout bool

	TextBlocks []RawTextBlock
	Images     []RawImage

	// Problems are non-fatal decoder errors (e.g. the page's image streams
	// could not be read). The page itself is still usable.
	Problems []error
}

// RawTextBlock is a text block before blank filtering.
type RawTextBlock struct {
	Box  geometry.BoundingBox
	Text string
}

// RawImage is an embedded image. Box is nil when the placement query failed;
// BoxErr then carries the reason.
type RawImage struct {
	Box         *geometry.BoundingBox
	BoxErr      error
	Data        []byte
	Format      string
	SourceIndex int
}
