package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"

	"github.com/feichai0017/idrouter/pkg/logger"
)

// JPEGQuality is used when embedding page images.
const JPEGQuality = 90

// PageWriter assembles page images into a PDF with one page per image, and
// rotates existing PDFs in place.
type PageWriter struct {
	logger logger.Logger
}

func NewPageWriter(log logger.Logger) *PageWriter {
	if log == nil {
		log = logger.NewNop()
	}
	return &PageWriter{
		logger: log.Named("writer"),
	}
}

// WritePages writes pages to path. The file is assembled next to path and
// renamed over it, so a failure leaves any existing file untouched.
func (w *PageWriter) WritePages(ctx context.Context, pages []image.Image, path string) (err error) {
	if len(pages) == 0 {
		return fmt.Errorf("no pages to write to %s", path)
	}

	readers := make([]io.Reader, 0, len(pages))
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, page, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
			return fmt.Errorf("failed to encode page %d: %w", i+1, err)
		}
		readers = append(readers, &buf)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".pages-*.pdf")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if err = importImages(tmp, readers); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to assemble %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	w.logger.Debug("Wrote page images",
		logger.String("path", path),
		logger.Int("pages", len(pages)),
	)
	return nil
}

func importImages(out io.Writer, readers []io.Reader) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf engine panic: %v", r)
		}
	}()
	return api.ImportImages(nil, out, readers, pdfcpu.DefaultImportConfig(), relaxedConfig())
}

// RotatePages turns every page of the PDF at path clockwise by degrees, a
// multiple of 90. Only the page rotation entries change; page content, the
// text layer and image quality are kept as they are.
func (w *PageWriter) RotatePages(ctx context.Context, path string, degrees int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rotateFile(path, degrees); err != nil {
		return fmt.Errorf("failed to rotate %s: %w", path, err)
	}

	w.logger.Debug("Rotated pages",
		logger.String("path", path),
		logger.Int("degrees", degrees),
	)
	return nil
}

func rotateFile(path string, degrees int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf engine panic: %v", r)
		}
	}()
	return api.RotateFile(path, "", degrees, nil, relaxedConfig())
}
