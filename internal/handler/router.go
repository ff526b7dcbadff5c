package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// HealthHandler implements the health check endpoint. pool is nil when sync
// runs simulated; the check then only covers the process itself.
type HealthHandler struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(pool *pgxpool.Pool, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		pool:   pool,
		logger: logger,
	}
}

// GetHealth reports service and sync-backend health.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	syncBackend := "simulated"
	if h.pool != nil {
		if err := h.pool.Ping(c.Request.Context()); err != nil {
			h.logger.Error("health check failed: sync database unreachable", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"sync":   "disconnected",
				"error":  err.Error(),
			})
			return
		}
		syncBackend = "connected"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"sync":    syncBackend,
		"service": "healthlens-backend",
		"version": "1.0.0",
	})
}

// RegisterRoutes mounts all API endpoints on the router.
func RegisterRoutes(r *gin.Engine, app *AppHandler, chat *ChatHandler, export *ExportHandler, health *HealthHandler) {
	r.GET("/health", health.GetHealth)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/scans", app.PostScan)

		v1.GET("/state", app.GetState)
		v1.POST("/state/reset", app.PostReset)
		v1.PUT("/state/view", app.PutView)

		v1.GET("/records", app.GetRecords)
		v1.POST("/records", app.PostRecord)
		v1.POST("/records/:id/select", app.PostRecordSelect)
		v1.DELETE("/records/:id", app.DeleteRecord)
		v1.GET("/records/:id/summary", export.GetSummary)
		v1.GET("/records/:id/export", export.GetExport)

		v1.POST("/chat/open", chat.PostOpen)
		v1.POST("/chat/messages", chat.PostMessage)

		v1.GET("/theme", app.GetTheme)
		v1.PUT("/theme", app.PutTheme)

		v1.DELETE("/data", app.DeleteAllData)

		v1.GET("/images/:name", export.GetImage)
	}
}
