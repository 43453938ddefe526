package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/docread/internal/document"
	"github.com/dgallion1/docread/internal/geometry"
)

var errNoPlacement = errors.New("no placement reported")

// TextPrimitive is one non-blank text block.
type TextPrimitive struct {
	Box  geometry.BoundingBox
	Text string
}

// ImagePrimitive is one embedded image with the bytes needed to materialize it.
// Box is the zero value for images without geometry.
type ImagePrimitive struct {
	Box         geometry.BoundingBox
	Data        []byte
	Format      string
	SourceIndex int
}

// Result is the typed view of one page.
type Result struct {
	Page   int
	Layout bool
	Texts  []TextPrimitive

	// Placed images take part in the positional merge. Unplaced images are
	// only ever rendered in the trailing position of their page.
	Placed   []ImagePrimitive
	Unplaced []ImagePrimitive

	// Errors holds one *document.ImageGeometryError per unplaced image.
	Errors []error
}

// Primitives splits a raw page into text and image primitives. Blank text
// blocks are dropped. Images whose geometry is missing or invalid are demoted
// to Unplaced and reported, never dropped.
func Primitives(raw *RawPage) Result {
	res := Result{Page: raw.Number, Layout: raw.Layout}

	for _, tb := range raw.TextBlocks {
		text := strings.TrimSpace(tb.Text)
		if text == "" {
			continue
		}
		res.Texts = append(res.Texts, TextPrimitive{Box: tb.Box.Normalize(), Text: text})
	}

	for _, img := range raw.Images {
		prim := ImagePrimitive{
			Data:        img.Data,
			Format:      strings.ToLower(img.Format),
			SourceIndex: img.SourceIndex,
		}
		if err := placementErr(img); err != nil {
			res.Unplaced = append(res.Unplaced, prim)
			res.Errors = append(res.Errors, &document.ImageGeometryError{
				Page:  raw.Number,
				Index: img.SourceIndex,
				Err:   err,
			})
			continue
		}
		prim.Box = img.Box.Normalize()
		if !raw.Layout {
			// Geometry without page layout cannot be interleaved either.
			res.Unplaced = append(res.Unplaced, prim)
			continue
		}
		res.Placed = append(res.Placed, prim)
	}

	return res
}

func placementErr(img RawImage) error {
	switch {
	case img.BoxErr != nil:
		return img.BoxErr
	case img.Box == nil:
		return errNoPlacement
	case !img.Box.Normalize().IsValid():
		return fmt.Errorf("invalid bounding box %v", *img.Box)
	}
	return nil
}
