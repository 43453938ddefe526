// Package compose merges a page's text blocks and images into one linear
// fragment in approximate reading order.
//
// Order is top-to-bottom, then left-to-right, by the top-left corner of each
// element. There is no column detection: on multi-column pages lines of
// adjacent columns interleave when their tops coincide.
package compose

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dgallion1/docread/internal/document"
	"github.com/dgallion1/docread/internal/geometry"
)

// Element is either a TextElement or an ImageElement.
type Element interface {
	Bounds() geometry.BoundingBox
	element()
}

type TextElement struct {
	Box  geometry.BoundingBox
	Text string
}

// ImageRef points at a persisted image. Index is the image's position in the
// decoder's listing for the page.
type ImageRef struct {
	Reference string
	Page      int
	Index     int
}

type ImageElement struct {
	Box geometry.BoundingBox
	Ref ImageRef
}

func (e TextElement) Bounds() geometry.BoundingBox  { return e.Box }
func (e ImageElement) Bounds() geometry.BoundingBox { return e.Box }

func (TextElement) element()  {}
func (ImageElement) element() {}

// PlacedImage is a stored image with known geometry.
type PlacedImage struct {
	Box geometry.BoundingBox
	Ref ImageRef
}

// Page is everything the composer needs for one page.
type Page struct {
	Number int
	// Layout is false when the page geometry could not be recovered; the page
	// is then rendered text first, images after.
	Layout   bool
	Texts    []TextElement
	Placed   []PlacedImage
	Trailing []ImageRef
}

// Marker renders the inline placeholder for an image.
func Marker(ref ImageRef) string {
	return fmt.Sprintf("Imagen %d:\n%s", ref.Page, ref.Reference)
}

// Order returns the page's positioned elements in reading order. Texts are
// inserted before images so that on an exact tie text comes first.
func Order(p Page) []Element {
	elems := make([]Element, 0, len(p.Texts)+len(p.Placed))
	for _, t := range p.Texts {
		elems = append(elems, t)
	}
	for _, img := range p.Placed {
		elems = append(elems, ImageElement{Box: img.Box, Ref: img.Ref})
	}
	slices.SortStableFunc(elems, func(a, b Element) int {
		return geometry.Compare(a.Bounds(), b.Bounds())
	})
	return elems
}

// Render produces the page fragment.
func Render(p Page) string {
	if !p.Layout {
		return renderSequential(p)
	}

	var parts []string
	for _, e := range Order(p) {
		if s := renderElement(e); s != "" {
			parts = append(parts, s)
		}
	}
	for _, ref := range p.Trailing {
		parts = append(parts, Marker(ref))
	}
	return strings.Join(parts, document.PageSeparator)
}

func renderElement(e Element) string {
	switch e := e.(type) {
	case TextElement:
		return strings.TrimSpace(e.Text)
	case ImageElement:
		return Marker(e.Ref)
	default:
		panic(fmt.Sprintf("compose: unknown element %T", e))
	}
}

// renderSequential is the page-sequential fallback: all text, then every
// image in decoder order.
func renderSequential(p Page) string {
	var lines []string
	for _, t := range p.Texts {
		if s := strings.TrimSpace(t.Text); s != "" {
			lines = append(lines, s)
		}
	}

	refs := make([]ImageRef, 0, len(p.Placed)+len(p.Trailing))
	for _, img := range p.Placed {
		refs = append(refs, img.Ref)
	}
	refs = append(refs, p.Trailing...)
	slices.SortStableFunc(refs, func(a, b ImageRef) int { return a.Index - b.Index })

	var parts []string
	if len(lines) > 0 {
		parts = append(parts, strings.Join(lines, "\n"))
	}
	for _, ref := range refs {
		parts = append(parts, Marker(ref))
	}
	return strings.Join(parts, document.PageSeparator)
}

// Join concatenates page fragments, skipping empty ones.
func Join(fragments []string) string {
	return document.Join(fragments)
}
