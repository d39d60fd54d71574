package document

import (
	"context"

	"github.com/feichai0017/idrouter/internal/agent/scanner"
	"github.com/feichai0017/idrouter/internal/models"
)

// BatchProcessor runs identification batches. Events are optional; a nil
// channel disables them.
type BatchProcessor interface {
	// RunBatch processes every PDF in req.Source.
	RunBatch(ctx context.Context, req models.BatchRequest, events chan<- models.Event) (models.ProcessingStats, error)

	// RunScan processes pages from feeder until it is exhausted or fails,
	// routing each page as a one-page PDF under root.
	RunScan(ctx context.Context, feeder scanner.Feeder, root string, events chan<- models.Event) (models.ProcessingStats, error)
}
