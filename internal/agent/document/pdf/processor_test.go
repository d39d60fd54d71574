package pdf

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/feichai0017/idrouter/pkg/logger"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessorExtractText(t *testing.T) {
	path := writeTextPDF(t, t.TempDir(), "Patient 123456789", "ID 123456782")

	text, pages, err := NewProcessor(nil).ExtractText(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)

	first := strings.Index(text, "123456789")
	second := strings.Index(text, "123456782")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second, "pages must be joined in order")
}

func TestProcessorExtractTextMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0644))

	text, pages, err := NewProcessor(nil).ExtractText(context.Background(), path)
	assert.Error(t, err)
	assert.Empty(t, text)
	assert.Equal(t, 0, pages)
}

func TestProcessorClose(t *testing.T) {
	assert.NoError(t, NewProcessor(nil).Close())
}

// embeddedOnly returns a renderer whose rasterizer is unavailable.
func embeddedOnly(log logger.Logger) *ImageRenderer {
	r := NewImageRenderer(0, log)
	r.rasterize = func(ctx context.Context, path string, dpi float64) ([]image.Image, error) {
		return nil, errors.New("no rasterizer")
	}
	return r
}

func TestWriterRendererRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.pdf")
	pages := []image.Image{
		solid(40, 20, color.White),
		solid(30, 60, color.Black),
	}

	require.NoError(t, NewPageWriter(nil).WritePages(context.Background(), pages, path))

	assert.Equal(t, 2, NewProcessor(nil).PageCount(path))

	rendered := embeddedOnly(nil).RenderPages(context.Background(), path)
	require.Len(t, rendered, 2)
	assert.Equal(t, image.Rect(0, 0, 40, 20), rendered[0].Bounds())
	assert.Equal(t, image.Rect(0, 0, 30, 60), rendered[1].Bounds())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestWriterReplacesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := writeTextPDF(t, dir, "original")

	require.NoError(t, NewPageWriter(nil).WritePages(context.Background(), []image.Image{solid(10, 10, color.White)}, path))
	assert.Equal(t, 1, NewProcessor(nil).PageCount(path))
	assert.Len(t, embeddedOnly(nil).RenderPages(context.Background(), path), 1)
}

func TestWriterRejectsEmpty(t *testing.T) {
	err := NewPageWriter(nil).WritePages(context.Background(), nil, filepath.Join(t.TempDir(), "x.pdf"))
	assert.Error(t, err)
}

func readContext(t *testing.T, path string) *model.Context {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	pdfCtx, err := api.ReadValidateAndOptimize(f, relaxedConfig())
	require.NoError(t, err)
	return pdfCtx
}

func TestRotatePagesKeepsContent(t *testing.T) {
	path := writeTextPDF(t, t.TempDir(), "Patient 123456789", "ID 123456782")

	require.NoError(t, NewPageWriter(nil).RotatePages(context.Background(), path, 180))

	pdfCtx := readContext(t, path)
	require.Equal(t, 2, pdfCtx.PageCount)
	for nr := 1; nr <= 2; nr++ {
		_, _, attrs, err := pdfCtx.PageDict(nr, false)
		require.NoError(t, err)
		assert.Equal(t, 180, attrs.Rotate, "page %d", nr)
	}

	text, pages, err := NewProcessor(nil).ExtractText(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
	assert.Contains(t, text, "123456789")
	assert.Contains(t, text, "123456782")

	// a second half turn restores the original orientation
	require.NoError(t, NewPageWriter(nil).RotatePages(context.Background(), path, 180))
	pdfCtx = readContext(t, path)
	_, _, attrs, err := pdfCtx.PageDict(1, false)
	require.NoError(t, err)
	assert.Equal(t, 0, attrs.Rotate)
}

func TestRotatePagesFailure(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(broken, []byte("not a pdf"), 0644))

	w := NewPageWriter(nil)
	assert.Error(t, w.RotatePages(context.Background(), broken, 180))
	data, err := os.ReadFile(broken)
	require.NoError(t, err)
	assert.Equal(t, "not a pdf", string(data), "a failed rotation leaves the file alone")

	assert.Error(t, w.RotatePages(context.Background(), filepath.Join(dir, "missing.pdf"), 180))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.RotatePages(ctx, broken, 180), context.Canceled)
}

func TestRendererPrefersLargestImage(t *testing.T) {
	stamp := jpegImage(t, 16, 16)
	thumb := jpegImage(t, 600, 600)
	path := writeImagePDF(t, t.TempDir(), imagePage{
		images: []testImage{stamp, jpegImage(t, 400, 300), stamp},
		thumb:  &thumb,
	})

	r := embeddedOnly(nil)
	for i := 0; i < 20; i++ {
		pages := r.RenderPages(context.Background(), path)
		require.Len(t, pages, 1)
		require.Equal(t, image.Rect(0, 0, 400, 300), pages[0].Bounds(), "render %d", i)
	}
}

func TestRendererSkipsUndecodablePage(t *testing.T) {
	log := logger.NewTestLogger()
	path := writeImagePDF(t, t.TempDir(),
		imagePage{images: []testImage{brokenImage(50, 50)}},
		imagePage{images: []testImage{jpegImage(t, 30, 20)}},
	)

	pages := embeddedOnly(log).RenderPages(context.Background(), path)
	require.Len(t, pages, 1)
	assert.Equal(t, image.Rect(0, 0, 30, 20), pages[0].Bounds())
	assert.Zero(t, log.Count("WARN", "Failed to render pages"))
}

func TestRendererFillsRasterGaps(t *testing.T) {
	path := writeImagePDF(t, t.TempDir(),
		imagePage{images: []testImage{jpegImage(t, 40, 40)}},
		imagePage{images: []testImage{jpegImage(t, 30, 20)}},
	)

	r := NewImageRenderer(150, nil)
	var gotDPI float64
	r.rasterize = func(ctx context.Context, path string, dpi float64) ([]image.Image, error) {
		gotDPI = dpi
		return []image.Image{solid(50, 50, color.White), nil}, nil
	}

	pages := r.RenderPages(context.Background(), path)
	require.Len(t, pages, 2)
	assert.Equal(t, 150.0, gotDPI)
	assert.Equal(t, image.Rect(0, 0, 50, 50), pages[0].Bounds())
	assert.Equal(t, image.Rect(0, 0, 30, 20), pages[1].Bounds())
}

func TestRendererRasterizesVectorPage(t *testing.T) {
	path := writeTextPDF(t, t.TempDir(), "ID 123456782")

	pages := NewImageRenderer(0, nil).RenderPages(context.Background(), path)
	require.Len(t, pages, 1)
	// US Letter at 300 DPI
	assert.InDelta(t, 2550, pages[0].Bounds().Dx(), 2)
	assert.InDelta(t, 3300, pages[0].Bounds().Dy(), 2)
}

func TestRendererSoftFailure(t *testing.T) {
	log := logger.NewTestLogger()
	r := NewImageRenderer(0, log)

	assert.Empty(t, r.RenderPages(context.Background(), filepath.Join(t.TempDir(), "missing.pdf")))
	assert.Equal(t, 1, log.Count("WARN", "Failed to render pages"))

	// without a rasterizer a text-only PDF has no page images
	path := writeTextPDF(t, t.TempDir(), "text only")
	assert.Empty(t, embeddedOnly(nil).RenderPages(context.Background(), path))
}
