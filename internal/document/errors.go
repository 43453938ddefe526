package document

import "fmt"

// Error kinds reported in Issue.Kind.
const (
	KindPageDecode       = "page_decode"
	KindImageGeometry    = "image_geometry"
	KindImageDecode      = "image_decode"
	KindImageStore       = "image_store"
	KindUnsupportedInput = "unsupported_input"
)

type pageError interface {
	error
	PageNumber() int
	Kind() string
}

// PageDecodeError means a page could not be decoded. The page is skipped and
// processing continues with the next one.
type PageDecodeError struct {
	Page int
	Err  error
}

func (e *PageDecodeError) Error() string {
	return fmt.Sprintf("page %d: decode: %v", e.Page, e.Err)
}
func (e *PageDecodeError) Unwrap() error   { return e.Err }
func (e *PageDecodeError) PageNumber() int { return e.Page }
func (e *PageDecodeError) Kind() string    { return KindPageDecode }

// ImageGeometryError means an image's placement could not be determined. The
// image is demoted to the trailing position of its page.
type ImageGeometryError struct {
	Page  int
	Index int
	Err   error
}

func (e *ImageGeometryError) Error() string {
	return fmt.Sprintf("page %d: image %d: geometry: %v", e.Page, e.Index, e.Err)
}
func (e *ImageGeometryError) Unwrap() error   { return e.Err }
func (e *ImageGeometryError) PageNumber() int { return e.Page }
func (e *ImageGeometryError) Kind() string    { return KindImageGeometry }

// ImageDecodeError means the image bytes are not a decodable pixel stream.
// The image is dropped from the output.
type ImageDecodeError struct {
	Page   int
	Index  int
	Format string
	Err    error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("page %d: image %d (%s): decode: %v", e.Page, e.Index, e.Format, e.Err)
}
func (e *ImageDecodeError) Unwrap() error   { return e.Err }
func (e *ImageDecodeError) PageNumber() int { return e.Page }
func (e *ImageDecodeError) Kind() string    { return KindImageDecode }

// ImageStoreError means a decoded image could not be persisted. The image is
// dropped from the output.
type ImageStoreError struct {
	Page  int
	Index int
	Err   error
}

func (e *ImageStoreError) Error() string {
	return fmt.Sprintf("page %d: image %d: store: %v", e.Page, e.Index, e.Err)
}
func (e *ImageStoreError) Unwrap() error   { return e.Err }
func (e *ImageStoreError) PageNumber() int { return e.Page }
func (e *ImageStoreError) Kind() string    { return KindImageStore }

// UnsupportedInputError is fatal for the whole document: the input could not
// be opened as the expected container format.
type UnsupportedInputError struct {
	Filename string
	Err      error
}

func (e *UnsupportedInputError) Error() string {
	return fmt.Sprintf("unsupported input %q: %v", e.Filename, e.Err)
}
func (e *UnsupportedInputError) Unwrap() error { return e.Err }
