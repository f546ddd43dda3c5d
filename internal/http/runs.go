package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/apollo-indexer/internal/database"
	"github.com/mrlokans/apollo-indexer/internal/entities"
	"github.com/mrlokans/apollo-indexer/internal/loader"
)

// RunStore reads the run ledger.
type RunStore interface {
	LatestRuns(limit int) ([]entities.Run, error)
	GetRun(id uint) (*entities.Run, error)
	ListBatches(runID uint) ([]entities.BatchRecord, error)
	FailedBatches(runID uint) ([]entities.BatchRecord, error)
}

// BatchRetrier re-submits one recorded batch.
type BatchRetrier interface {
	RetryBatch(ctx context.Context, runID uint, batch int) (*entities.BatchRecord, error)
}

// RunsController exposes load runs and their batches.
type RunsController struct {
	store   RunStore
	retrier BatchRetrier
}

func NewRunsController(store RunStore, retrier BatchRetrier) *RunsController {
	return &RunsController{store: store, retrier: retrier}
}

// ListRuns handles GET /api/runs
func (rc *RunsController) ListRuns(c *gin.Context) {
	runs, err := rc.store.LatestRuns(parseLimit(c, 20, 200))
	if err != nil {
		respondInternalError(c, err, "list runs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun handles GET /api/runs/:id
func (rc *RunsController) GetRun(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	run, err := rc.store.GetRun(id)
	if errors.Is(err, database.ErrNotFound) {
		respondNotFound(c, "run")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get run")
		return
	}
	c.JSON(http.StatusOK, run)
}

// ListBatches handles GET /api/runs/:id/batches. ?status=failed lists only
// the batches that need a retry.
func (rc *RunsController) ListBatches(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := rc.store.GetRun(id); errors.Is(err, database.ErrNotFound) {
		respondNotFound(c, "run")
		return
	} else if err != nil {
		respondInternalError(c, err, "get run")
		return
	}

	var batches []entities.BatchRecord
	var err error
	switch c.Query("status") {
	case "":
		batches, err = rc.store.ListBatches(id)
	case string(entities.BatchStatusFailed):
		batches, err = rc.store.FailedBatches(id)
	default:
		respondBadRequest(c, "status must be failed or empty")
		return
	}
	if err != nil {
		respondInternalError(c, err, "list batches")
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": id, "batches": batches})
}

// RetryBatch handles POST /api/runs/:id/batches/:batch/retry
func (rc *RunsController) RetryBatch(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	number, ok := parseIntParam(c, "batch")
	if !ok {
		return
	}

	rec, err := rc.retrier.RetryBatch(c.Request.Context(), id, number)
	var batchErr *loader.BatchError
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondNotFound(c, "batch")
	case errors.As(err, &batchErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": batchErr.Error(), "batch": rec})
	case err != nil:
		respondInternalError(c, err, "retry batch")
	default:
		c.JSON(http.StatusOK, gin.H{"batch": rec})
	}
}
