package document

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/feichai0017/idrouter/internal/models"
	"github.com/feichai0017/idrouter/pkg/logger"
)

// DefaultMinTextLength is the trimmed length below which a text layer is
// treated as missing.
const DefaultMinTextLength = 5

// AcquireOptions 文本获取选项
type AcquireOptions struct {
	MinTextLength int
	Languages     []string
}

// Acquirer obtains the text of a document, falling back to OCR of rendered
// pages when the text layer is insufficient. It never returns an error for a
// document it cannot read; the failure is logged and the text is empty.
type Acquirer struct {
	extractor     TextExtractor
	renderer      PageRenderer
	recognizer    Recognizer
	preprocessors []Preprocessor
	opts          AcquireOptions
	logger        logger.Logger
}

// NewAcquirer wires the collaborators. renderer and recognizer may be nil, in
// which case OCR fallback is unavailable.
func NewAcquirer(extractor TextExtractor, renderer PageRenderer, recognizer Recognizer, preprocessors []Preprocessor, opts AcquireOptions, log logger.Logger) *Acquirer {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.MinTextLength <= 0 {
		opts.MinTextLength = DefaultMinTextLength
	}
	return &Acquirer{
		extractor:     extractor,
		renderer:      renderer,
		recognizer:    recognizer,
		preprocessors: preprocessors,
		opts:          opts,
		logger:        log.Named("acquirer"),
	}
}

// Sufficient reports whether text is long enough to skip OCR.
func (a *Acquirer) Sufficient(text string) bool {
	return len([]rune(strings.TrimSpace(text))) >= a.opts.MinTextLength
}

// OCRAvailable reports whether rendering and recognition are both wired.
func (a *Acquirer) OCRAvailable() bool {
	return a.renderer != nil && a.recognizer != nil
}

// DirectText reads the text layer only.
func (a *Acquirer) DirectText(ctx context.Context, doc *models.Document) string {
	text, pages, err := a.extractor.ExtractText(ctx, doc.Path)
	if err != nil {
		a.logger.Warn("Failed to extract text layer",
			logger.String("document", doc.Name),
			logger.Error(err),
		)
		text = ""
	}
	doc.PageCount = pages
	doc.SetText(text)
	return text
}

// Acquire fills doc.Text and, when OCR ran, doc.Pages. OCR text is appended
// to whatever the text layer produced.
func (a *Acquirer) Acquire(ctx context.Context, doc *models.Document, enableOCR bool) string {
	text := a.DirectText(ctx, doc)
	if !enableOCR || a.Sufficient(text) {
		return text
	}
	if !a.OCRAvailable() {
		a.logger.Warn("Text layer insufficient and OCR is not configured",
			logger.String("document", doc.Name),
		)
		return text
	}

	pages := a.renderer.RenderPages(ctx, doc.Path)
	if len(pages) == 0 {
		a.logger.Warn("No page images available for OCR",
			logger.String("document", doc.Name),
		)
		return text
	}
	doc.Pages = pages
	if doc.PageCount == 0 {
		doc.PageCount = len(pages)
	}

	a.logger.Info("Running OCR",
		logger.String("document", doc.Name),
		logger.Int("pages", len(pages)),
	)
	text += "\n" + a.RecognizePages(ctx, doc.Name, pages)
	doc.SetText(text)
	return text
}

// RecognizePages runs OCR on every page and joins the results with newlines.
// A page that fails is logged and contributes no text.
func (a *Acquirer) RecognizePages(ctx context.Context, name string, pages []image.Image) string {
	if a.recognizer == nil {
		return ""
	}

	parts := make([]string, 0, len(pages))
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			a.logger.Warn("OCR interrupted",
				logger.String("document", name),
				logger.Error(err),
			)
			break
		}

		text, err := a.recognizePage(ctx, page)
		if err != nil {
			a.logger.Warn("OCR failed for page",
				logger.String("document", name),
				logger.Int("page", i+1),
				logger.Error(err),
			)
			continue
		}
		parts = append(parts, text)
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func (a *Acquirer) recognizePage(ctx context.Context, page image.Image) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recognizer panic: %v", r)
		}
	}()

	img := page
	for _, p := range a.preprocessors {
		if img, err = p.Process(img); err != nil {
			return "", fmt.Errorf("preprocessing failed: %w", err)
		}
	}
	return a.recognizer.Recognize(ctx, img, a.opts.Languages)
}
