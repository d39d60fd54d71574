package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/idrouter/internal/utils/validator"
	"github.com/feichai0017/idrouter/pkg/logger"
	"github.com/feichai0017/idrouter/pkg/queue"
)

type Handlers struct {
	Batch    *BatchHandler
	Document *DocumentHandler
}

// NewHandlers wires the HTTP handlers. Batches may use folders under roots
// and the upload inbox.
func NewHandlers(
	batches queue.Queue,
	validator *validator.DocumentValidator,
	inboxDir string,
	roots []string,
	log logger.Logger,
) (*Handlers, error) {
	paths, err := NewPathPolicy(append([]string{inboxDir}, roots...)...)
	if err != nil {
		return nil, err
	}
	return &Handlers{
		Batch:    NewBatchHandler(batches, paths, log),
		Document: NewDocumentHandler(validator, inboxDir, log),
	}, nil
}

// ErrorResponse 定义错误响应结构
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
}

// Health reports liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleError 统一错误处理
func handleError(c *gin.Context, log logger.Logger, status int, message string, err error) {
	fields := []logger.Field{logger.String("path", c.Request.URL.Path), logger.Int("status", status)}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if status >= http.StatusInternalServerError {
		log.Error(message, fields...)
	} else {
		log.Warn(message, fields...)
	}

	response := ErrorResponse{Message: message}
	if err != nil {
		response.Error = err.Error()
	}
	c.JSON(status, response)
}
