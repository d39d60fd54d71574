package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeTextPDF builds a minimal PDF with one Helvetica text line per page.
func writeTextPDF(t *testing.T, dir string, lines ...string) string {
	t.Helper()

	var buf bytes.Buffer
	offsets := []int{}
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	n := len(lines)
	fontObj := 3 + 2*n
	kids := ""
	for i := 0; i < n; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+2*i)
	}

	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n))
	for i, line := range lines {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 %d 0 R >> >> >>", 4+2*i, fontObj))
		content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", line)
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	path := filepath.Join(dir, "text.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

// solid returns a w×h image filled with c.
func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// testImage is a DCT-encoded image XObject.
type testImage struct {
	data []byte
	w, h int
}

func jpegImage(t *testing.T, w, h int) testImage {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h)), nil))
	return testImage{data: buf.Bytes(), w: w, h: h}
}

// brokenImage claims to be a JPEG but is not one.
func brokenImage(w, h int) testImage {
	return testImage{data: []byte("definitely not a jpeg"), w: w, h: h}
}

// imagePage lists what one page draws; thumb, if set, becomes the page's
// /Thumb entry.
type imagePage struct {
	images []testImage
	thumb  *testImage
}

// writeImagePDF builds a PDF whose pages draw the given images.
func writeImagePDF(t *testing.T, dir string, pages ...imagePage) string {
	t.Helper()

	var buf bytes.Buffer
	offsets := []int{}
	obj := func(body string, stream []byte) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\n", len(offsets), body)
		if stream != nil {
			buf.WriteString("stream\n")
			buf.Write(stream)
			buf.WriteString("\nendstream\n")
		}
		buf.WriteString("endobj\n")
	}
	imageDict := func(img testImage) string {
		return fmt.Sprintf("<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceGray /BitsPerComponent 8 /Filter /DCTDecode /Length %d >>", img.w, img.h, len(img.data))
	}

	buf.WriteString("%PDF-1.4\n")

	// object numbers: page, content, images..., thumb
	next := 3
	pageNrs := make([]int, len(pages))
	kids := ""
	for i, p := range pages {
		pageNrs[i] = next
		kids += fmt.Sprintf("%d 0 R ", next)
		next += 2 + len(p.images)
		if p.thumb != nil {
			next++
		}
	}

	obj("<< /Type /Catalog /Pages 2 0 R >>", nil)
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(pages)), nil)
	for i, p := range pages {
		nr := pageNrs[i]
		var xobjects, content strings.Builder
		for j, img := range p.images {
			fmt.Fprintf(&xobjects, "/Im%d %d 0 R ", j+1, nr+2+j)
			fmt.Fprintf(&content, "q %d 0 0 %d 0 0 cm /Im%d Do Q\n", img.w, img.h, j+1)
		}
		thumb := ""
		if p.thumb != nil {
			thumb = fmt.Sprintf(" /Thumb %d 0 R", nr+2+len(p.images))
		}
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /XObject << %s>> >>%s >>", nr+1, xobjects.String(), thumb), nil)
		obj(fmt.Sprintf("<< /Length %d >>", content.Len()), []byte(content.String()))
		for _, img := range p.images {
			obj(imageDict(img), img.data)
		}
		if p.thumb != nil {
			obj(imageDict(*p.thumb), p.thumb.data)
		}
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	path := filepath.Join(dir, "images.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}
