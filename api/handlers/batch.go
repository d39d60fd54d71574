package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/idrouter/internal/models"
	"github.com/feichai0017/idrouter/pkg/logger"
	"github.com/feichai0017/idrouter/pkg/queue"
)

type BatchHandler struct {
	queue  queue.Queue
	paths  *PathPolicy
	logger logger.Logger
}

// CreateBatchRequest 创建批处理请求
type CreateBatchRequest struct {
	Source      string `json:"source" binding:"required"`
	Destination string `json:"destination"`
	EnableOCR   *bool  `json:"enableOcr"`
}

// BatchResponse 批处理响应
type BatchResponse struct {
	TaskID string                  `json:"taskId"`
	Status models.ProcessingStatus `json:"status"`
	Mode   models.Mode             `json:"mode"`
}

func NewBatchHandler(q queue.Queue, paths *PathPolicy, log logger.Logger) *BatchHandler {
	return &BatchHandler{
		queue:  q,
		paths:  paths,
		logger: log.Named("batches"),
	}
}

// CreateBatch enqueues a batch. Both folders must lie under the configured
// roots. OCR defaults to on in rename mode and off in copy mode unless the
// request says otherwise.
func (h *BatchHandler) CreateBatch(c *gin.Context) {
	var body CreateBatchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		handleError(c, h.logger, http.StatusBadRequest, "Invalid batch request", err)
		return
	}

	source, err := h.paths.Resolve(body.Source)
	if err != nil {
		handleError(c, h.logger, http.StatusForbidden, "Source folder not allowed", err)
		return
	}
	req := models.BatchRequest{Source: source}
	if body.Destination != "" {
		if req.Destination, err = h.paths.Resolve(body.Destination); err != nil {
			handleError(c, h.logger, http.StatusForbidden, "Destination folder not allowed", err)
			return
		}
	}
	req.EnableOCR = req.Mode() == models.ModeRename
	if body.EnableOCR != nil {
		req.EnableOCR = *body.EnableOCR
	}

	taskID, err := h.queue.Enqueue(c.Request.Context(), req)
	if err != nil {
		handleError(c, h.logger, http.StatusInternalServerError, "Failed to enqueue batch", err)
		return
	}

	h.logger.Info("Batch enqueued",
		logger.String("taskId", taskID),
		logger.String("source", req.Source),
		logger.String("mode", string(req.Mode())),
	)
	c.JSON(http.StatusAccepted, BatchResponse{
		TaskID: taskID,
		Status: models.StatusPending,
		Mode:   req.Mode(),
	})
}

// GetBatch 获取批处理状态
func (h *BatchHandler) GetBatch(c *gin.Context) {
	taskID := c.Param("taskId")

	status, err := h.queue.GetTaskStatus(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, queue.ErrTaskNotFound) {
			handleError(c, h.logger, http.StatusNotFound, "Batch not found", err)
			return
		}
		handleError(c, h.logger, http.StatusInternalServerError, "Failed to get status", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// CancelBatch 取消批处理
func (h *BatchHandler) CancelBatch(c *gin.Context) {
	taskID := c.Param("taskId")

	if err := h.queue.CancelTask(c.Request.Context(), taskID); err != nil {
		if errors.Is(err, queue.ErrTaskNotFound) {
			handleError(c, h.logger, http.StatusNotFound, "Batch not found", err)
			return
		}
		handleError(c, h.logger, http.StatusInternalServerError, "Failed to cancel batch", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Batch cancelled",
		"taskId":  taskID,
	})
}
