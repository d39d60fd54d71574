package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/feichai0017/idrouter/internal/models"
)

const TaskTypeBatchRun = "batch:run"

// BatchQueue is the only queue. Batches share the destination tree, so they
// must never run side by side.
const BatchQueue = "batches"

var ErrTaskNotFound = errors.New("task not found")

// Queue 接口定义
type Queue interface {
	Enqueue(ctx context.Context, req models.BatchRequest) (string, error)
	GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error)
	CancelTask(ctx context.Context, taskID string) error
	SaveFinalStatus(ctx context.Context, status *TaskStatus) error
}

// BatchTask is the payload of a batch:run task.
type BatchTask struct {
	Request   models.BatchRequest `json:"request"`
	CreatedAt time.Time           `json:"createdAt"`
}

// TaskStatus 定义任务状态
type TaskStatus struct {
	TaskID     string                  `json:"taskId"`
	Status     models.ProcessingStatus `json:"status"`
	Progress   float64                 `json:"progress"`
	Error      string                  `json:"error,omitempty"`
	Stats      *models.ProcessingStats `json:"stats,omitempty"`
	StartedAt  time.Time               `json:"startedAt"`
	FinishedAt time.Time               `json:"finishedAt,omitempty"`
}

// Config 定义队列配置
type Config struct {
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	StatusTTL      time.Duration
	ProcessTimeout time.Duration
}

func (c *Config) RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// NewBatchTask encodes req as a task whose id is the batch id.
func NewBatchTask(req models.BatchRequest, timeout time.Duration) (*asynq.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	payload, err := json.Marshal(BatchTask{Request: req, CreatedAt: time.Now()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}

	// a retried batch would route already moved documents twice
	opts := []asynq.Option{
		asynq.Queue(BatchQueue),
		asynq.MaxRetry(0),
		asynq.TaskID(req.ID),
	}
	if timeout > 0 {
		opts = append(opts, asynq.Timeout(timeout))
	}
	return asynq.NewTask(TaskTypeBatchRun, payload, opts...), nil
}

// ParseBatchTask decodes a batch:run payload.
func ParseBatchTask(t *asynq.Task) (*BatchTask, error) {
	var task BatchTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	if err := task.Request.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task data: %w", err)
	}
	return &task, nil
}

// taskClient is the part of asynq.Client the queue uses.
type taskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// statusStore keeps task status records. load returns nil, nil for a task
// with no record.
type statusStore interface {
	save(ctx context.Context, status *TaskStatus) error
	load(ctx context.Context, taskID string) (*TaskStatus, error)
	remove(ctx context.Context, taskID string) error
	Close() error
}

// AsynqQueue 实现
type AsynqQueue struct {
	client    taskClient
	inspector *asynq.Inspector
	status    statusStore
	config    *Config
}

// NewAsynqQueue 创建新的队列实例
func NewAsynqQueue(cfg *Config) *AsynqQueue {
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = 24 * time.Hour
	}
	opt := cfg.RedisOpt()
	return &AsynqQueue{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		status: &redisStatus{
			client: redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}),
			ttl: cfg.StatusTTL,
		},
		config: cfg,
	}
}

func (q *AsynqQueue) Close() error {
	return errors.Join(q.client.Close(), q.inspector.Close(), q.status.Close())
}

// Enqueue records the batch as pending before queueing it, so a worker that
// picks the task up at once cannot have its status overwritten.
func (q *AsynqQueue) Enqueue(ctx context.Context, req models.BatchRequest) (string, error) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	t, err := NewBatchTask(req, q.config.ProcessTimeout)
	if err != nil {
		return "", err
	}

	if err := q.SaveFinalStatus(ctx, &TaskStatus{
		TaskID: req.ID,
		Status: models.StatusPending,
	}); err != nil {
		return "", err
	}

	info, err := q.client.EnqueueContext(ctx, t)
	if err != nil {
		if rmErr := q.status.remove(context.WithoutCancel(ctx), req.ID); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}
	return info.ID, nil
}

// GetTaskStatus prefers the status the worker saved and falls back to the
// queue's own view of the task.
func (q *AsynqQueue) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	status, err := q.status.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if status != nil {
		return status, nil
	}

	info, err := q.inspector.GetTaskInfo(BatchQueue, taskID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		return nil, fmt.Errorf("failed to inspect task: %w", err)
	}
	return convertAsynqStatus(info), nil
}

// CancelTask removes a waiting batch, or signals a running one to stop after
// its current document.
func (q *AsynqQueue) CancelTask(ctx context.Context, taskID string) error {
	info, err := q.inspector.GetTaskInfo(BatchQueue, taskID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		return fmt.Errorf("failed to inspect task: %w", err)
	}

	if info.State == asynq.TaskStateActive {
		if err := q.inspector.CancelProcessing(taskID); err != nil {
			return fmt.Errorf("failed to cancel task: %w", err)
		}
		return nil
	}

	if err := q.inspector.DeleteTask(BatchQueue, taskID); err != nil {
		return fmt.Errorf("failed to cancel task: %w", err)
	}
	return q.SaveFinalStatus(ctx, &TaskStatus{
		TaskID:     taskID,
		Status:     models.StatusCancelled,
		FinishedAt: time.Now(),
	})
}

// SaveFinalStatus 保存任务状态
func (q *AsynqQueue) SaveFinalStatus(ctx context.Context, status *TaskStatus) error {
	return q.status.save(ctx, status)
}

type redisStatus struct {
	client *redis.Client
	ttl    time.Duration
}

func (r *redisStatus) save(ctx context.Context, status *TaskStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	if err := r.client.Set(ctx, statusKey(status.TaskID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save status: %w", err)
	}
	return nil
}

func (r *redisStatus) load(ctx context.Context, taskID string) (*TaskStatus, error) {
	data, err := r.client.Get(ctx, statusKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status from redis: %w", err)
	}
	var status TaskStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return &status, nil
}

func (r *redisStatus) remove(ctx context.Context, taskID string) error {
	return r.client.Del(ctx, statusKey(taskID)).Err()
}

func (r *redisStatus) Close() error {
	return r.client.Close()
}

func statusKey(taskID string) string {
	return fmt.Sprintf("task_status:%s", taskID)
}

// convertAsynqStatus 将 asynq 状态转换为 TaskStatus
func convertAsynqStatus(info *asynq.TaskInfo) *TaskStatus {
	status := &TaskStatus{
		TaskID:    info.ID,
		StartedAt: info.NextProcessAt,
	}

	switch info.State {
	case asynq.TaskStateActive:
		status.Status = models.StatusRunning
	case asynq.TaskStateCompleted:
		status.Status = models.StatusCompleted
		status.Progress = 1.0
		status.FinishedAt = info.CompletedAt
	case asynq.TaskStateRetry, asynq.TaskStateArchived:
		status.Status = models.StatusFailed
		status.Error = info.LastErr
		status.FinishedAt = info.LastFailedAt
	default:
		status.Status = models.StatusPending
	}
	return status
}
