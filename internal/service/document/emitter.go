package document

import (
	"context"
	"time"

	"github.com/feichai0017/idrouter/internal/models"
)

// summaryGrace bounds how long a summary waits for a reader once the batch
// context is done.
const summaryGrace = time.Second

type emitter struct {
	ch      chan<- models.Event
	batchID string
}

func (e emitter) emit(ctx context.Context, ev models.Event) {
	if e.ch == nil {
		return
	}
	ev.BatchID = e.batchID
	select {
	case e.ch <- ev:
	case <-ctx.Done():
	}
}

// summary is delivered even after cancellation, as long as someone is reading.
func (e emitter) summary(ctx context.Context, stats models.ProcessingStats) {
	if e.ch == nil {
		return
	}
	ev := models.Event{Kind: models.EventSummary, BatchID: e.batchID, Stats: &stats}
	if ctx.Err() == nil {
		select {
		case e.ch <- ev:
			return
		case <-ctx.Done():
		}
	}

	timer := time.NewTimer(summaryGrace)
	defer timer.Stop()
	select {
	case e.ch <- ev:
	case <-timer.C:
	}
}
