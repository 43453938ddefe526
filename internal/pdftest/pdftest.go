// Package pdftest builds small single-page PDFs for decoder tests.
package pdftest

import (
	"bytes"
	"fmt"
)

// PageHeight is the MediaBox height of every page built here.
const PageHeight = 792

// Image is a 2x2 DeviceRGB image available as resource /Im0.
var Image = []byte{
	0xff, 0x00, 0x00, 0x00, 0xff, 0x00,
	0x00, 0x00, 0xff, 0xff, 0xff, 0xff,
}

// OnePage returns a PDF with one US-letter page whose content stream is
// content. Helvetica is available as /F1 and a 2x2 RGB image as /Im0.
func OnePage(content string) []byte {
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 %d] "+
			"/Resources << /Font << /F1 4 0 R >> /XObject << /Im0 5 0 R >> >> /Contents 6 0 R >>", PageHeight),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Type /XObject /Subtype /Image /Width 2 /Height 2 /ColorSpace /DeviceRGB "+
			"/BitsPerComponent 8 /Length %d >>\nstream\n%s\nendstream", len(Image), Image),
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

// Text returns a content-stream fragment drawing s at baseline y.
func Text(s string, x, y float64) string {
	return fmt.Sprintf("BT /F1 12 Tf %g %g Td (%s) Tj ET\n", x, y, s)
}

// DrawImage returns a fragment painting /Im0 into the w x h rectangle whose
// lower-left corner is (x, y).
func DrawImage(x, y, w, h float64) string {
	return fmt.Sprintf("q %g 0 0 %g %g %g cm /Im0 Do Q\n", w, h, x, y)
}
