package extract

import (
	"math"
	"strings"
	"testing"

	"github.com/dgallion1/docread/internal/pdftest"
)

func TestOpenPDF_RejectsNonPDF(t *testing.T) {
	if _, err := OpenPDF([]byte("definitely not a pdf document")); err == nil {
		t.Fatal("expected error opening non-PDF input")
	}
}

func TestOpenPDF_RejectsEmpty(t *testing.T) {
	if _, err := OpenPDF(nil); err == nil {
		t.Fatal("expected error opening empty input")
	}
}

func TestPDFDecoder_DecodePageGeometry(t *testing.T) {
	data := pdftest.OnePage(
		pdftest.Text("Hello", 72, 720) +
			pdftest.DrawImage(72, 600, 100, 50) +
			pdftest.Text("World", 72, 500))

	dec, err := OpenPDF(data)
	if err != nil {
		t.Fatalf("OpenPDF: %v", err)
	}
	defer dec.Close()

	if n := dec.PageCount(); n != 1 {
		t.Fatalf("expected 1 page, got %d", n)
	}
	raw, err := dec.DecodePage(0)
	if err != nil {
		t.Fatalf("DecodePage: %v", err)
	}
	if !raw.Layout {
		t.Fatal("expected layout to be recovered")
	}
	if len(raw.Problems) != 0 {
		t.Fatalf("unexpected problems: %v", raw.Problems)
	}

	if len(raw.TextBlocks) != 2 {
		t.Fatalf("expected 2 text blocks, got %+v", raw.TextBlocks)
	}
	hello, world := raw.TextBlocks[0], raw.TextBlocks[1]
	if strings.TrimSpace(hello.Text) != "Hello" || strings.TrimSpace(world.Text) != "World" {
		t.Errorf("unexpected text %q / %q", hello.Text, world.Text)
	}
	if !(hello.Box.Y0 < world.Box.Y0) {
		t.Errorf("expected Hello above World: %v vs %v", hello.Box, world.Box)
	}

	if len(raw.Images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(raw.Images))
	}
	img := raw.Images[0]
	if img.BoxErr != nil || img.Box == nil {
		t.Fatalf("expected image placement, got err %v", img.BoxErr)
	}
	want := [4]float64{72, pdftest.PageHeight - 650, 172, pdftest.PageHeight - 600}
	got := [4]float64{img.Box.X0, img.Box.Y0, img.Box.X1, img.Box.Y1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-6 {
			t.Fatalf("image box = %v, want %v", got, want)
		}
	}
	if len(img.Data) == 0 || img.Format == "" {
		t.Errorf("expected image bytes and format, got %d bytes %q", len(img.Data), img.Format)
	}
	if !(hello.Box.Y0 < img.Box.Y0 && img.Box.Y0 < world.Box.Y0) {
		t.Errorf("expected image between the text blocks: %v %v %v", hello.Box, *img.Box, world.Box)
	}
}

func TestPDFDecoder_NestedTransforms(t *testing.T) {
	// Outer translate, inner scale: the image lands at (100,300)-(200,340).
	content := "q 1 0 0 1 100 300 cm q 100 0 0 40 0 0 cm /Im0 Do Q Q\n"
	dec, err := OpenPDF(pdftest.OnePage(content))
	if err != nil {
		t.Fatalf("OpenPDF: %v", err)
	}
	raw, err := dec.DecodePage(0)
	if err != nil {
		t.Fatalf("DecodePage: %v", err)
	}
	if len(raw.Images) != 1 || raw.Images[0].Box == nil {
		t.Fatalf("expected one placed image, got %+v", raw.Images)
	}
	b := *raw.Images[0].Box
	if b.X0 != 100 || b.X1 != 200 || b.Y0 != pdftest.PageHeight-340 || b.Y1 != pdftest.PageHeight-300 {
		t.Errorf("unexpected box %v", b)
	}
}
