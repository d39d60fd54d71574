package agent

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	cfg "github.com/feichai0017/idrouter/config"
	"github.com/feichai0017/idrouter/internal/agent/candidate"
	"github.com/feichai0017/idrouter/internal/agent/document"
	"github.com/feichai0017/idrouter/internal/agent/document/image"
	"github.com/feichai0017/idrouter/internal/agent/document/image/tesseract"
	"github.com/feichai0017/idrouter/internal/agent/document/pdf"
	"github.com/feichai0017/idrouter/pkg/logger"
)

// Components is the set of collaborators one identification pipeline needs.
type Components struct {
	Extractor  *pdf.Processor
	Renderer   *pdf.ImageRenderer
	Writer     *pdf.PageWriter
	Recognizer document.Recognizer
	Acquirer   *document.Acquirer
	Matcher    *candidate.Matcher
}

// Close releases the recognizer and the extractor.
func (c *Components) Close() error {
	var first error
	if c.Recognizer != nil {
		first = c.Recognizer.Close()
	}
	if c.Extractor != nil {
		if err := c.Extractor.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type ProcessorFactory struct {
	config *cfg.Config
	logger logger.Logger
}

func NewProcessorFactory(config *cfg.Config, log logger.Logger) *ProcessorFactory {
	if log == nil {
		log = logger.NewNop()
	}
	return &ProcessorFactory{
		config: config,
		logger: log,
	}
}

// Build wires the text extractor, the OCR chain and the matcher. A pattern
// that does not compile is not an error here; the matcher reports it once and
// never matches.
func (f *ProcessorFactory) Build(ctx context.Context) (*Components, error) {
	recognizer, err := f.NewRecognizer(ctx)
	if err != nil {
		return nil, err
	}

	c := &Components{
		Extractor:  pdf.NewProcessor(f.logger),
		Writer:     pdf.NewPageWriter(f.logger),
		Recognizer: recognizer,
		Matcher:    candidate.NewMatcher(f.config.Pipeline.Pattern, f.logger),
	}

	var renderer document.PageRenderer
	if recognizer != nil {
		c.Renderer = pdf.NewImageRenderer(f.config.OCR.DPI, f.logger)
		renderer = c.Renderer
	}

	c.Acquirer = document.NewAcquirer(
		c.Extractor,
		renderer,
		recognizer,
		f.Preprocessors(),
		document.AcquireOptions{
			MinTextLength: f.config.Pipeline.MinTextLength,
			Languages:     f.config.OCR.Languages,
		},
		f.logger,
	)

	f.logger.Info("Pipeline ready",
		logger.String("engine", f.config.OCR.Engine),
		logger.String("pattern", c.Matcher.Pattern()),
		logger.Bool("rotation", f.config.Pipeline.EnableRotation),
	)
	return c, nil
}

// NewRecognizer returns the configured OCR engine, or nil for "none".
func (f *ProcessorFactory) NewRecognizer(ctx context.Context) (document.Recognizer, error) {
	ocr := f.config.OCR
	switch ocr.Engine {
	case cfg.EngineNone:
		return nil, nil
	case cfg.EngineTextract:
		t := f.config.Textract
		r, err := image.NewTextractRecognizer(ctx, &image.TextractConfig{
			Region:        t.Region,
			Endpoint:      t.Endpoint,
			AccessKey:     t.AccessKey,
			SecretKey:     t.SecretKey,
			MinConfidence: t.MinConfidence,
		}, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create textract recognizer: %w", err)
		}
		return r, nil
	case cfg.EngineTesseract, "":
		tc := tesseract.DefaultConfig()
		tc.TessdataPrefix = ocr.TessdataPrefix
		if len(ocr.Languages) > 0 {
			tc.Languages = ocr.Languages
		}
		if len(ocr.FallbackLanguages) > 0 {
			tc.FallbackLanguages = ocr.FallbackLanguages
		}
		if ocr.PageSegMode > 0 {
			tc.PageSegMode = gosseract.PageSegMode(ocr.PageSegMode)
		}
		if ocr.DPI > 0 {
			tc.DPI = ocr.DPI
		}
		return tesseract.NewRecognizer(tc, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported ocr engine: %s", ocr.Engine)
	}
}

// Preprocessors is the image chain applied to every page before OCR.
func (f *ProcessorFactory) Preprocessors() []document.Preprocessor {
	return []document.Preprocessor{
		image.NewPipeline(image.PreprocessConfig{
			Contrast: f.config.OCR.Contrast,
			Sharpen:  f.config.OCR.Sharpen,
		}),
	}
}

// CheckOCR logs the engine version and warns about missing language models.
// Only Tesseract can be checked locally.
func CheckOCR(r document.Recognizer, log logger.Logger) {
	t, ok := r.(*tesseract.Recognizer)
	if !ok {
		return
	}
	version, missing := t.Check()
	log.Info("Tesseract available", logger.String("version", version))
	if len(missing) > 0 {
		log.Warn("Tesseract language models missing, OCR will fall back",
			logger.Strings("missing", missing),
		)
	}
}
