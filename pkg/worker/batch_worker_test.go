package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/idrouter/internal/agent/scanner"
	"github.com/feichai0017/idrouter/internal/models"
	"github.com/feichai0017/idrouter/pkg/logger"
	"github.com/feichai0017/idrouter/pkg/queue"
)

type fakeBatches struct {
	req   models.BatchRequest
	stats models.ProcessingStats
	err   error
}

func (f *fakeBatches) RunBatch(ctx context.Context, req models.BatchRequest, events chan<- models.Event) (models.ProcessingStats, error) {
	f.req = req
	for i := 1; i <= 2; i++ {
		events <- models.Event{Kind: models.EventDocument, Index: i, Total: 2,
			Result: &models.DocumentResult{Document: "a.pdf", Outcome: models.OutcomeSucceeded}}
	}
	events <- models.Event{Kind: models.EventSummary, Stats: &f.stats}
	return f.stats, f.err
}

func (f *fakeBatches) RunScan(ctx context.Context, feeder scanner.Feeder, root string, events chan<- models.Event) (models.ProcessingStats, error) {
	return models.ProcessingStats{}, errors.New("not supported")
}

type memStatus struct {
	mu    sync.Mutex
	saved []queue.TaskStatus
}

func (m *memStatus) SaveFinalStatus(ctx context.Context, status *queue.TaskStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, *status)
	return nil
}

func (m *memStatus) last() queue.TaskStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[len(m.saved)-1]
}

func newTestWorker(batches *fakeBatches, status *memStatus) (*BatchWorker, *logger.TestLogger) {
	log := logger.NewTestLogger()
	return &BatchWorker{
		BaseWorker: BaseWorker{logger: log},
		batches:    batches,
		status:     status,
	}, log
}

func batchTask(t *testing.T, req models.BatchRequest) *asynq.Task {
	t.Helper()
	task, err := queue.NewBatchTask(req, 0)
	require.NoError(t, err)
	return task
}

func TestHandleBatchRun(t *testing.T) {
	batches := &fakeBatches{stats: models.ProcessingStats{Succeeded: 2}}
	status := &memStatus{}
	w, _ := newTestWorker(batches, status)

	req := models.BatchRequest{ID: "batch-1", Source: "/in", Destination: "/out"}
	require.NoError(t, w.HandleBatchRun(context.Background(), batchTask(t, req)))

	assert.Equal(t, req, batches.req)

	// running, two progress updates, final
	require.Len(t, status.saved, 4)
	assert.Equal(t, models.StatusRunning, status.saved[0].Status)
	assert.Equal(t, 0.5, status.saved[1].Progress)

	final := status.last()
	assert.Equal(t, "batch-1", final.TaskID)
	assert.Equal(t, models.StatusCompleted, final.Status)
	assert.Equal(t, 1.0, final.Progress)
	require.NotNil(t, final.Stats)
	assert.Equal(t, 2, final.Stats.Succeeded)
	assert.False(t, final.FinishedAt.IsZero())
}

func TestHandleBatchRunFailure(t *testing.T) {
	batches := &fakeBatches{err: errors.New("source missing")}
	status := &memStatus{}
	w, _ := newTestWorker(batches, status)

	err := w.HandleBatchRun(context.Background(), batchTask(t, models.BatchRequest{ID: "b", Source: "/in"}))
	assert.Error(t, err)
	assert.Equal(t, models.StatusFailed, status.last().Status)
	assert.Equal(t, "source missing", status.last().Error)
}

func TestHandleBatchRunCancelled(t *testing.T) {
	batches := &fakeBatches{err: context.Canceled}
	status := &memStatus{}
	w, _ := newTestWorker(batches, status)

	err := w.HandleBatchRun(context.Background(), batchTask(t, models.BatchRequest{ID: "b", Source: "/in"}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.StatusCancelled, status.last().Status)
}

func TestHandleBatchRunBadPayload(t *testing.T) {
	status := &memStatus{}
	w, log := newTestWorker(&fakeBatches{}, status)

	err := w.HandleBatchRun(context.Background(), asynq.NewTask(queue.TaskTypeBatchRun, []byte("nope")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, status.saved)
	assert.Equal(t, 1, log.Count("ERROR", "Failed to parse batch task"))
}
