// Package materialize turns raw embedded image bytes into stored images.
package materialize

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	_ "image/jpeg"
	"image/png"
	"regexp"
	"strings"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/dgallion1/docread/internal/imagestore"
)

// ErrUndecodable is wrapped by Materialize when the bytes are not a
// supported raster format.
var ErrUndecodable = errors.New("undecodable image")

var extPattern = regexp.MustCompile(`^[a-z0-9]{1,8}$`)

type Materializer struct {
	store imagestore.Store
	newID func() string
}

type Option func(*Materializer)

// WithIDFunc replaces the random id source.
func WithIDFunc(fn func() string) Option {
	return func(m *Materializer) { m.newID = fn }
}

func New(store imagestore.Store, opts ...Option) *Materializer {
	m := &Materializer{store: store, newID: NewID}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewID returns 128 random bits as 32 lowercase hex characters.
func NewID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// Prepare makes sure the store namespace exists.
func (m *Materializer) Prepare(ctx context.Context) error {
	return m.store.EnsureNamespace(ctx)
}

// Materialize decodes data and persists it under a fresh id. Images with an
// alpha channel are flattened and re-encoded (GIF stays GIF, everything else
// becomes PNG); all others keep their bytes and the decoder-reported format
// as extension.
func (m *Materializer) Materialize(ctx context.Context, data []byte, format string) (string, error) {
	img, decoded, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w (%s): %v", ErrUndecodable, format, err)
	}

	out, ext := data, originalExt(format, decoded)
	if hasAlphaChannel(data, decoded, img) {
		out, ext, err = encodeOpaque(flatten(img), decoded)
		if err != nil {
			return "", fmt.Errorf("re-encode %s: %w", decoded, err)
		}
	}

	ref, err := m.store.Put(ctx, m.newID(), ext, out)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return ref, nil
}

// originalExt prefers the extension the page decoder reported ("jpg",
// "tif") over Go's decoder name.
func originalExt(format, decoded string) string {
	ext := strings.ToLower(strings.TrimPrefix(format, "."))
	if extPattern.MatchString(ext) {
		return ext
	}
	return decoded
}

// hasAlphaChannel reports whether the encoded image carries alpha. PNG is
// judged by its header (color types 4 and 6, or a tRNS chunk), since Go
// decodes plain RGB PNGs to *image.RGBA as well. Other formats are judged
// by the decoded color model.
func hasAlphaChannel(data []byte, decoded string, img image.Image) bool {
	if decoded == "png" {
		if ct, trns, ok := pngAlphaInfo(data); ok {
			return ct == 4 || ct == 6 || trns
		}
	}
	switch cm := img.ColorModel(); cm {
	case color.NRGBAModel, color.NRGBA64Model, color.AlphaModel, color.Alpha16Model, color.NYCbCrAModel:
		return true
	case color.RGBAModel, color.RGBA64Model:
		// RGB and associated-alpha RGBA decode to the same model.
		return !isOpaque(img)
	default:
		if pal, ok := cm.(color.Palette); ok {
			return translucent(pal)
		}
	}
	return false
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// pngAlphaInfo returns the IHDR color type and whether a tRNS chunk precedes
// the image data.
func pngAlphaInfo(data []byte) (colorType byte, trns, ok bool) {
	if len(data) < 33 || !bytes.HasPrefix(data, pngSignature) || string(data[12:16]) != "IHDR" {
		return 0, false, false
	}
	colorType = data[25]
	for pos := 8; pos+8 <= len(data); {
		n := int(binary.BigEndian.Uint32(data[pos:]))
		switch string(data[pos+4 : pos+8]) {
		case "tRNS":
			return colorType, true, true
		case "IDAT", "IEND":
			return colorType, false, true
		}
		if n < 0 || pos+12+n > len(data) {
			break
		}
		pos += 12 + n
	}
	return colorType, false, true
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

func translucent(pal color.Palette) bool {
	for _, c := range pal {
		if _, _, _, a := c.RGBA(); a != 0xffff {
			return true
		}
	}
	return false
}

// flatten forces every pixel opaque while keeping its color channels.
func flatten(img image.Image) image.Image {
	if p, ok := img.(*image.Paletted); ok {
		pal := make(color.Palette, len(p.Palette))
		for i, c := range p.Palette {
			n := color.NRGBAModel.Convert(c).(color.NRGBA)
			n.A = 0xff
			pal[i] = n
		}
		return &image.Paletted{Pix: p.Pix, Stride: p.Stride, Rect: p.Rect, Palette: pal}
	}

	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			n := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			n.A = 0xff
			out.SetNRGBA(x, y, n)
		}
	}
	return out
}

// encodeOpaque writes a flattened image in a format whose encoder drops the
// alpha channel for opaque input: GIF for paletted GIFs, PNG otherwise.
func encodeOpaque(img image.Image, decoded string) ([]byte, string, error) {
	var buf bytes.Buffer
	if _, paletted := img.(*image.Paletted); paletted && decoded == "gif" {
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "gif", nil
	}
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "png", nil
}
