package document

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/feichai0017/idrouter/internal/agent/scanner"
	"github.com/feichai0017/idrouter/internal/models"
	"github.com/feichai0017/idrouter/internal/service/router"
	"github.com/feichai0017/idrouter/pkg/logger"
)

// TempPageName is the name a scanned page is written under before routing.
func TempPageName(n int) string {
	return fmt.Sprintf("temp_page_%d_%s.pdf", n, strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
}

func (s *BatchService) RunScan(ctx context.Context, feeder scanner.Feeder, root string, events chan<- models.Event) (stats models.ProcessingStats, err error) {
	batchID := uuid.New().String()
	out := emitter{ch: events, batchID: batchID}
	defer func() { out.summary(ctx, stats) }()

	if s.writer == nil {
		return stats, fmt.Errorf("scanning requires a page writer")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return stats, fmt.Errorf("failed to create %s: %w", root, err)
	}

	log := s.logger.With(logger.String("batch", batchID), logger.String("mode", "scan"))
	log.Info("Starting scan", logger.String("destination", root))
	out.emit(ctx, models.Event{Kind: models.EventStart})

	r := router.New(root, s.logger)
	archiver := s.archiver(root)

	for n := 1; ; n++ {
		res := feeder.Next(ctx)
		switch res.Kind {
		case scanner.KindExhausted:
			log.Info("Scanner feed exhausted",
				logger.Int("pages", n-1),
				logger.Int("succeeded", stats.Succeeded),
				logger.Int("unidentified", stats.Unidentified),
			)
			return stats, nil
		case scanner.KindError:
			log.Error("Scanner transfer failed", logger.Error(res.Err))
			out.emit(ctx, models.Event{Kind: models.EventWarning, Message: fmt.Sprintf("scanner: %v", res.Err)})
			return stats, res.Err
		}

		result := s.scanPage(ctx, r, root, n, res.Name, res.Page)
		s.archive(ctx, archiver, result, out)
		stats = stats.Fold(result)
		out.emit(ctx, models.Event{Kind: models.EventDocument, Index: n, Result: &result})
	}
}

func (s *BatchService) scanPage(ctx context.Context, r *router.Router, root string, n int, name string, page image.Image) models.DocumentResult {
	if name == "" {
		name = fmt.Sprintf("page_%d", n)
	}

	tmp := filepath.Join(root, TempPageName(n))
	if err := s.writer.WritePages(ctx, []image.Image{page}, tmp); err != nil {
		return s.fail(name, err)
	}

	doc := models.NewDocument(tmp, name)
	ident := s.identifier.IdentifyPages(ctx, doc, []image.Image{page}, IdentifyOptions{EnableOCR: true, PersistRotation: true})

	if !ident.Matched() {
		dest, err := r.UnidentifiedPath(strings.TrimSuffix(name, filepath.Ext(name)) + ".pdf")
		if err != nil {
			return s.fail(name, err)
		}
		if err := router.MoveFile(tmp, dest); err != nil {
			return s.fail(name, err)
		}
		return models.Unidentified(name, dest)
	}

	dest, err := r.NextFreePath(ident.Identifier)
	if err != nil {
		return s.fail(name, err)
	}
	if err := router.MoveFile(tmp, dest); err != nil {
		return s.fail(name, err)
	}
	return models.Succeeded(name, ident.Identifier, dest, doc.Rotated)
}
