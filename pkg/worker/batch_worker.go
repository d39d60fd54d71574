package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/idrouter/internal/models"
	"github.com/feichai0017/idrouter/internal/service/document"
	"github.com/feichai0017/idrouter/pkg/logger"
	"github.com/feichai0017/idrouter/pkg/queue"
)

// StatusStore persists batch status where the control surface can read it.
type StatusStore interface {
	SaveFinalStatus(ctx context.Context, status *queue.TaskStatus) error
}

// BatchWorker executes batch:run tasks one at a time.
type BatchWorker struct {
	BaseWorker
	batches document.BatchProcessor
	status  StatusStore
}

var _ Worker = (*BatchWorker)(nil)

func NewBatchWorker(cfg *Config, batches document.BatchProcessor, status StatusStore, log logger.Logger) *BatchWorker {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.Named("worker")

	server := asynq.NewServer(cfg.redisOpt(), asynq.Config{
		// batches share the destination tree
		Concurrency:     1,
		Queues:          map[string]int{queue.BatchQueue: 1},
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          zapAdapter{logger: log},
	})

	w := &BatchWorker{
		BaseWorker: BaseWorker{
			server: server,
			mux:    asynq.NewServeMux(),
			logger: log,
		},
		batches: batches,
		status:  status,
	}
	w.mux.HandleFunc(queue.TaskTypeBatchRun, w.HandleBatchRun)
	return w
}

// HandleBatchRun runs one batch and records its progress and final stats.
func (w *BatchWorker) HandleBatchRun(ctx context.Context, t *asynq.Task) error {
	task, err := queue.ParseBatchTask(t)
	if err != nil {
		w.logger.Error("Failed to parse batch task",
			logger.String("payload", string(t.Payload())),
			logger.Error(err),
		)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	req := task.Request
	if id, ok := asynq.GetTaskID(ctx); ok {
		req.ID = id
	}
	log := w.logger.With(logger.String("taskId", req.ID))
	log.Info("Processing batch task",
		logger.String("source", req.Source),
		logger.String("destination", req.Destination),
		logger.Bool("ocr", req.EnableOCR),
	)

	status := &queue.TaskStatus{
		TaskID:    req.ID,
		Status:    models.StatusRunning,
		StartedAt: time.Now(),
	}
	w.save(ctx, log, status)

	events := make(chan models.Event, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.track(ctx, log, *status, events)
	}()

	stats, runErr := w.batches.RunBatch(ctx, req, events)
	close(events)
	<-done

	final := *status
	final.Stats = &stats
	final.FinishedAt = time.Now()
	switch {
	case runErr == nil:
		final.Status = models.StatusCompleted
		final.Progress = 1.0
	case errors.Is(runErr, context.Canceled):
		final.Status = models.StatusCancelled
		final.Error = runErr.Error()
	default:
		final.Status = models.StatusFailed
		final.Error = runErr.Error()
	}

	// the task context may already be cancelled
	w.save(context.WithoutCancel(ctx), log, &final)

	log.Info("Batch task finished",
		logger.String("status", final.Status.String()),
		logger.Int("succeeded", stats.Succeeded),
		logger.Int("failed", stats.Failed),
		logger.Int("unidentified", stats.Unidentified),
	)
	return runErr
}

// track turns per-document events into progress updates.
func (w *BatchWorker) track(ctx context.Context, log logger.Logger, status queue.TaskStatus, events <-chan models.Event) {
	for ev := range events {
		switch ev.Kind {
		case models.EventDocument:
			if ev.Total > 0 {
				status.Progress = float64(ev.Index) / float64(ev.Total)
			}
			if ev.Result != nil {
				log.Debug("Document routed",
					logger.String("document", ev.Result.Document),
					logger.String("outcome", string(ev.Result.Outcome)),
				)
			}
			w.save(ctx, log, &status)
		case models.EventWarning:
			log.Warn("Batch warning", logger.String("message", ev.Message))
		}
	}
}

func (w *BatchWorker) save(ctx context.Context, log logger.Logger, status *queue.TaskStatus) {
	if w.status == nil {
		return
	}
	if err := w.status.SaveFinalStatus(ctx, status); err != nil {
		log.Error("Failed to save task status", logger.Error(err))
	}
}
