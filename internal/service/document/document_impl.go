package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/feichai0017/idrouter/internal/agent/document"
	"github.com/feichai0017/idrouter/internal/models"
	"github.com/feichai0017/idrouter/internal/service/router"
	"github.com/feichai0017/idrouter/pkg/logger"
	"github.com/feichai0017/idrouter/pkg/storage"
)

// ServiceConfig 批处理服务配置
type ServiceConfig struct {
	ArchivePrefix string
}

// BatchService is the batch orchestrator. Documents are processed strictly
// one at a time in listing order.
type BatchService struct {
	identifier *Identifier
	writer     document.PageEditor
	store      storage.Storage
	logger     logger.Logger
	config     *ServiceConfig
}

var _ BatchProcessor = (*BatchService)(nil)

// NewService wires the orchestrator. store may be nil to disable archiving.
func NewService(identifier *Identifier, writer document.PageEditor, store storage.Storage, log logger.Logger, cfg *ServiceConfig) *BatchService {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg == nil {
		cfg = &ServiceConfig{}
	}
	return &BatchService{
		identifier: identifier,
		writer:     writer,
		store:      store,
		logger:     log.Named("batch"),
		config:     cfg,
	}
}

// ListDocuments returns the regular *.pdf files directly inside dir, in
// name order. The extension check ignores case.
func ListDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

func (s *BatchService) RunBatch(ctx context.Context, req models.BatchRequest, events chan<- models.Event) (stats models.ProcessingStats, err error) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	out := emitter{ch: events, batchID: req.ID}
	defer func() { out.summary(ctx, stats) }()

	if err := req.Validate(); err != nil {
		return stats, err
	}

	mode := req.Mode()
	log := s.logger.With(
		logger.String("batch", req.ID),
		logger.String("mode", string(mode)),
	)

	files, err := ListDocuments(req.Source)
	if err != nil {
		log.Error("Failed to list source folder", logger.Error(err))
		out.emit(ctx, models.Event{Kind: models.EventWarning, Message: err.Error()})
		return stats, err
	}

	log.Info("Starting batch",
		logger.String("source", req.Source),
		logger.String("destination", req.Root()),
		logger.Bool("ocr", req.EnableOCR),
		logger.Int("documents", len(files)),
	)
	out.emit(ctx, models.Event{Kind: models.EventStart, Total: len(files)})

	root := req.Root()
	r := router.New(root, s.logger)
	archiver := s.archiver(root)

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			log.Warn("Batch cancelled",
				logger.Int("processed", i),
				logger.Int("documents", len(files)),
			)
			return stats, err
		}

		var result models.DocumentResult
		if mode == models.ModeCopy {
			result = s.copyDocument(ctx, r, path, req.EnableOCR)
		} else {
			result = s.renameDocument(ctx, r, path, req.EnableOCR)
		}
		s.archive(ctx, archiver, result, out)

		stats = stats.Fold(result)
		out.emit(ctx, models.Event{Kind: models.EventDocument, Index: i + 1, Total: len(files), Result: &result})
	}

	log.Info("Batch finished",
		logger.Int("succeeded", stats.Succeeded),
		logger.Int("failed", stats.Failed),
		logger.Int("unidentified", stats.Unidentified),
	)
	return stats, nil
}

// copyDocument leaves the source untouched. A document matched only after
// rotation is copied and then turned upright at its destination.
func (s *BatchService) copyDocument(ctx context.Context, r *router.Router, path string, enableOCR bool) models.DocumentResult {
	name := filepath.Base(path)
	doc := models.NewDocument(path, name)
	ident := s.identifier.Identify(ctx, doc, IdentifyOptions{EnableOCR: enableOCR})

	if !ident.Matched() {
		if ident.NoText {
			s.logger.Info("No usable text in document", logger.String("document", name))
		}
		return s.toUnidentified(r, path, router.CopyFile)
	}

	dest, err := r.NextSequencedPath(ident.Identifier)
	if err != nil {
		return s.fail(name, err)
	}
	if err := router.CopyFile(path, dest); err != nil {
		return s.fail(name, err)
	}
	if doc.Rotated && s.writer != nil {
		if err := s.writer.RotatePages(ctx, dest, rotationDegrees); err != nil {
			// still routed; the copy keeps the original orientation
			s.logger.Warn("Failed to save rotated document",
				logger.String("document", name),
				logger.String("path", dest),
				logger.Error(err),
			)
		}
	}
	return models.Succeeded(name, ident.Identifier, dest, doc.Rotated)
}

// renameDocument moves the source into place, after turning it upright when
// rotation was needed.
func (s *BatchService) renameDocument(ctx context.Context, r *router.Router, path string, enableOCR bool) models.DocumentResult {
	name := filepath.Base(path)
	doc := models.NewDocument(path, name)
	ident := s.identifier.Identify(ctx, doc, IdentifyOptions{EnableOCR: enableOCR, PersistRotation: true})

	if !ident.Matched() {
		return s.toUnidentified(r, path, router.MoveFile)
	}

	dest, err := r.NextFreePath(ident.Identifier)
	if err != nil {
		return s.fail(name, err)
	}
	if err := router.MoveFile(path, dest); err != nil {
		return s.fail(name, err)
	}
	return models.Succeeded(name, ident.Identifier, dest, doc.Rotated)
}

func (s *BatchService) toUnidentified(r *router.Router, path string, transfer func(src, dst string) error) models.DocumentResult {
	name := filepath.Base(path)
	dest, err := r.UnidentifiedPath(name)
	if err != nil {
		return s.fail(name, err)
	}
	if err := transfer(path, dest); err != nil {
		return s.fail(name, err)
	}
	return models.Unidentified(name, dest)
}

func (s *BatchService) fail(name string, err error) models.DocumentResult {
	s.logger.Error("Failed to process document",
		logger.String("document", name),
		logger.Error(err),
	)
	return models.Failed(name, err)
}

func (s *BatchService) archiver(root string) *storage.Archiver {
	if s.store == nil {
		return nil
	}
	return storage.NewArchiver(s.store, s.config.ArchivePrefix, root, s.logger)
}

// archive mirrors a routed document. Failures are reported but do not change
// the document's outcome.
func (s *BatchService) archive(ctx context.Context, a *storage.Archiver, result models.DocumentResult, out emitter) {
	if a == nil || result.Outcome == models.OutcomeFailed || result.Destination == "" {
		return
	}
	if _, err := a.Archive(ctx, result.Destination); err != nil {
		s.logger.Warn("Failed to archive document",
			logger.String("document", result.Document),
			logger.String("path", result.Destination),
			logger.Error(err),
		)
		out.emit(ctx, models.Event{Kind: models.EventWarning, Message: fmt.Sprintf("archive %s: %v", result.Document, err)})
	}
}
