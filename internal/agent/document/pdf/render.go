package pdf

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/feichai0017/idrouter/pkg/logger"
)

// DefaultDPI is the resolution pages are rasterized at for OCR.
const DefaultDPI = 300

// rasterizeFunc renders every page of path. A page that cannot be rendered is
// left nil; an error means the document could not be opened at all.
type rasterizeFunc func(ctx context.Context, path string, dpi float64) ([]image.Image, error)

// ImageRenderer produces one image per page. Pages are rasterized with MuPDF;
// a page the rasterizer cannot handle falls back to the largest embedded image
// on that page. Pages with neither are skipped.
type ImageRenderer struct {
	dpi       float64
	rasterize rasterizeFunc
	logger    logger.Logger
}

func NewImageRenderer(dpi int, log logger.Logger) *ImageRenderer {
	if log == nil {
		log = logger.NewNop()
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &ImageRenderer{
		dpi:       float64(dpi),
		rasterize: rasterizeFitz,
		logger:    log.Named("render"),
	}
}

// RenderPages never fails; an unreadable document yields no pages.
func (r *ImageRenderer) RenderPages(ctx context.Context, path string) []image.Image {
	pages, err := r.rasterize(ctx, path, r.dpi)
	if err != nil {
		r.logger.Debug("Rasterizer failed, using embedded images",
			logger.String("path", path),
			logger.Error(err),
		)
		pages = nil
	}

	if len(pages) == 0 || hasGaps(pages) {
		count, embedded, err := r.embeddedImages(ctx, path)
		if err != nil && len(pages) == 0 {
			r.logger.Warn("Failed to render pages",
				logger.String("path", path),
				logger.Error(err),
			)
			return nil
		}
		if len(pages) == 0 {
			pages = make([]image.Image, count)
		}
		for i := range pages {
			if pages[i] == nil {
				pages[i] = embedded[i+1]
			}
		}
	}

	out := pages[:0]
	for _, p := range pages {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func hasGaps(pages []image.Image) bool {
	for _, p := range pages {
		if p == nil {
			return true
		}
	}
	return false
}

func rasterizeFitz(ctx context.Context, path string, dpi float64) (pages []image.Image, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("rasterizer panic: %v", rec)
		}
	}()

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer doc.Close()

	pages = make([]image.Image, doc.NumPage())
	for i := range pages {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		img, err := doc.ImageDPI(i, dpi)
		if err != nil {
			continue
		}
		pages[i] = img
	}
	return pages, nil
}

// embeddedImages returns the page count and, per page number, the largest
// decodable image on that page. Thumbnails are ignored. A page whose images
// cannot be extracted or decoded is left out without affecting other pages.
func (r *ImageRenderer) embeddedImages(ctx context.Context, path string) (count int, best map[int]image.Image, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf engine panic: %v", rec)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	conf := relaxedConfig()
	conf.Cmd = model.EXTRACTIMAGES
	pdfCtx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	best = make(map[int]image.Image)
	for nr := 1; nr <= pdfCtx.PageCount; nr++ {
		if err := ctx.Err(); err != nil {
			return pdfCtx.PageCount, best, err
		}
		if img := r.largestImage(pdfCtx, path, nr); img != nil {
			best[nr] = img
		}
	}
	return pdfCtx.PageCount, best, nil
}

func (r *ImageRenderer) largestImage(pdfCtx *model.Context, path string, nr int) (best image.Image) {
	defer func() {
		if rec := recover(); rec != nil {
			best = nil
		}
	}()

	images, err := pdfcpu.ExtractPageImages(pdfCtx, nr, false)
	if err != nil {
		r.logger.Debug("Skipping page with unreadable images",
			logger.String("path", path),
			logger.Int("page", nr),
			logger.Error(err),
		)
		return nil
	}

	area := 0
	for _, raw := range images {
		if raw.Thumb {
			continue
		}
		img, err := imaging.Decode(raw, imaging.AutoOrientation(true))
		if err != nil {
			r.logger.Debug("Skipping undecodable page image",
				logger.String("path", path),
				logger.Int("page", nr),
				logger.String("format", raw.FileType),
				logger.Error(err),
			)
			continue
		}
		if b := img.Bounds(); b.Dx()*b.Dy() > area {
			area = b.Dx() * b.Dy()
			best = img
		}
	}
	return best
}

func relaxedConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}
