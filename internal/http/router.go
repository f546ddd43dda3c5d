package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates the status server router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Ledger, cfg.Cluster, cfg.Version)
	router.GET("/health", health.Status)

	api := router.Group("/api")

	if cfg.Runs != nil {
		runs := NewRunsController(cfg.Runs, cfg.Retrier)
		api.GET("/runs", runs.ListRuns)
		api.GET("/runs/:id", runs.GetRun)
		api.GET("/runs/:id/batches", runs.ListBatches)
		if cfg.Retrier != nil {
			api.POST("/runs/:id/batches/:batch/retry", runs.RetryBatch)
		}
	}

	if cfg.Refresh != nil {
		refresh := NewRefreshController(cfg.Refresh)
		api.GET("/refresh", refresh.Status)
		api.POST("/refresh", refresh.Trigger)
	}

	if cfg.Tasks != nil {
		tasks := NewTasksController(cfg.Tasks)
		api.GET("/tasks/:id", tasks.GetTaskStatus)
	}

	return router
}
