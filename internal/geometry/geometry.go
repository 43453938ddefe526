// Package geometry holds the page coordinate model used to order extracted content.
//
// Coordinates are page-local with the origin at the top-left corner and y growing
// downward, so a smaller Y0 means "higher on the page".
package geometry

import (
	"cmp"
	"fmt"
)

// BoundingBox is an axis-aligned rectangle in page space.
type BoundingBox struct {
	X0 float64 `json:"x0"` // left edge
	Y0 float64 `json:"y0"` // top edge
	X1 float64 `json:"x1"` // right edge
	Y1 float64 `json:"y1"` // bottom edge
}

// Box builds a normalized bounding box from two opposite corners.
func Box(x0, y0, x1, y1 float64) BoundingBox {
	return BoundingBox{X0: x0, Y0: y0, X1: x1, Y1: y1}.Normalize()
}

// Normalize swaps edges so that X0 <= X1 and Y0 <= Y1.
func (b BoundingBox) Normalize() BoundingBox {
	if b.X0 > b.X1 {
		b.X0, b.X1 = b.X1, b.X0
	}
	if b.Y0 > b.Y1 {
		b.Y0, b.Y1 = b.Y1, b.Y0
	}
	return b
}

// IsValid reports whether the box satisfies X0 <= X1 and Y0 <= Y1.
// NaN edges are never valid.
func (b BoundingBox) IsValid() bool {
	return b.X0 <= b.X1 && b.Y0 <= b.Y1
}

func (b BoundingBox) Width() float64  { return b.X1 - b.X0 }
func (b BoundingBox) Height() float64 { return b.Y1 - b.Y0 }

// Area returns zero for degenerate boxes.
func (b BoundingBox) Area() float64 {
	return b.Width() * b.Height()
}

// Union returns the smallest box containing both b and other.
func (b BoundingBox) Union(other BoundingBox) BoundingBox {
	return BoundingBox{
		X0: min(b.X0, other.X0),
		Y0: min(b.Y0, other.Y0),
		X1: max(b.X1, other.X1),
		Y1: max(b.Y1, other.Y1),
	}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%g,%g,%g,%g)", b.X0, b.Y0, b.X1, b.Y1)
}

// Compare orders boxes top-to-bottom, then left-to-right: the primary key is
// the top edge, the secondary key the left edge. It returns -1, 0 or +1.
//
// There is no column awareness. Two boxes starting on the same vertical band
// are ordered by their left edge even when they belong to different columns.
func Compare(a, b BoundingBox) int {
	if c := cmp.Compare(a.Y0, b.Y0); c != 0 {
		return c
	}
	return cmp.Compare(a.X0, b.X0)
}

// Less reports whether a is read before b.
func Less(a, b BoundingBox) bool {
	return Compare(a, b) < 0
}

// Above reports whether a lies entirely above b (a.Y1 <= b.Y0).
func Above(a, b BoundingBox) bool {
	return a.Y1 <= b.Y0
}
