package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/feichai0017/idrouter/api/handlers"
	"github.com/feichai0017/idrouter/api/middleware"
)

// SetupRoutes 配置所有路由
// Without allowOrigins no CORS headers are sent.
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, allowOrigins []string) {
	if len(allowOrigins) > 0 {
		r.Use(middleware.CORS(allowOrigins))
	}

	r.GET("/health", handlers.Health)

	v1 := r.Group("/api/v1")

	batches := v1.Group("/batches")
	{
		batches.POST("", h.Batch.CreateBatch)
		batches.GET("/:taskId", h.Batch.GetBatch)
		batches.DELETE("/:taskId", h.Batch.CancelBatch)
	}

	v1.POST("/documents", h.Document.Upload)
}
