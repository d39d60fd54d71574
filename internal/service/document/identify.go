package document

import (
	"context"
	"image"

	"github.com/feichai0017/idrouter/internal/agent/candidate"
	"github.com/feichai0017/idrouter/internal/agent/document"
	ocrimage "github.com/feichai0017/idrouter/internal/agent/document/image"
	"github.com/feichai0017/idrouter/internal/models"
	"github.com/feichai0017/idrouter/pkg/logger"
)

// IdentifyOptions 识别选项
type IdentifyOptions struct {
	EnableOCR bool
	// PersistRotation turns the document's own file upside down when the
	// identifier is only found that way.
	PersistRotation bool
}

// rotationDegrees is the retry angle for upside-down documents.
const rotationDegrees = 180

// Identifier runs the per-document state machine:
// Acquired -> Matched | RotationAttempted -> Matched | Failed.
type Identifier struct {
	acquirer *document.Acquirer
	matcher  *candidate.Matcher
	rotator  document.PageRotator
	rotation bool
	logger   logger.Logger
}

func NewIdentifier(acquirer *document.Acquirer, matcher *candidate.Matcher, rotator document.PageRotator, enableRotation bool, log logger.Logger) *Identifier {
	if log == nil {
		log = logger.NewNop()
	}
	return &Identifier{
		acquirer: acquirer,
		matcher:  matcher,
		rotator:  rotator,
		rotation: enableRotation,
		logger:   log.Named("identify"),
	}
}

// Identify acquires the document's text and looks for an identifier.
func (s *Identifier) Identify(ctx context.Context, doc *models.Document, opts IdentifyOptions) models.Identification {
	text := s.acquirer.Acquire(ctx, doc, opts.EnableOCR)
	return s.resolve(ctx, doc, text, opts)
}

// IdentifyPages identifies a document whose page images are already known,
// such as a freshly scanned page. The text layer is not consulted.
func (s *Identifier) IdentifyPages(ctx context.Context, doc *models.Document, pages []image.Image, opts IdentifyOptions) models.Identification {
	doc.Pages = pages
	doc.PageCount = len(pages)
	text := s.acquirer.RecognizePages(ctx, doc.Name, pages)
	doc.SetText(text)
	return s.resolve(ctx, doc, text, opts)
}

func (s *Identifier) resolve(ctx context.Context, doc *models.Document, text string, opts IdentifyOptions) models.Identification {
	result := models.Identification{
		State:  models.StateAcquired,
		NoText: !s.acquirer.Sufficient(text),
	}

	if id, ok := s.matcher.Find(text); ok {
		s.logger.Info("Identifier found",
			logger.String("document", doc.Name),
			logger.String("identifier", id),
		)
		result.State = models.StateMatched
		result.Identifier = id
		return result
	}

	if !opts.EnableOCR || !s.rotation || !doc.HasPages() {
		result.State = models.StateFailed
		return result
	}

	result.State = models.StateRotationAttempted
	s.logger.Info("No identifier found, retrying rotated by 180 degrees",
		logger.String("document", doc.Name),
	)

	rotated, err := ocrimage.RotateAll(doc.Pages)
	if err != nil {
		s.logger.Warn("Rotation failed",
			logger.String("document", doc.Name),
			logger.Error(err),
		)
		result.State = models.StateFailed
		return result
	}

	rotatedText := s.acquirer.RecognizePages(ctx, doc.Name, rotated)
	id, ok := s.matcher.Find(rotatedText)
	if !ok {
		result.State = models.StateFailed
		return result
	}

	doc.Pages = rotated
	doc.Rotated = true
	doc.SetText(rotatedText)
	result.State = models.StateMatched
	result.Identifier = id
	result.Rotated = true
	result.NoText = !s.acquirer.Sufficient(rotatedText)

	s.logger.Info("Identifier found after rotation",
		logger.String("document", doc.Name),
		logger.String("identifier", id),
	)

	if opts.PersistRotation && s.rotator != nil {
		if err := s.rotator.RotatePages(ctx, doc.Path, rotationDegrees); err != nil {
			// still Matched; the file keeps its original orientation
			s.logger.Warn("Failed to save rotated document",
				logger.String("document", doc.Name),
				logger.String("path", doc.Path),
				logger.Error(err),
			)
		}
	}
	return result
}
