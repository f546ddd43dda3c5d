package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/apollo-indexer/internal/scheduler"
)

// RefreshTrigger starts and reports full refreshes.
type RefreshTrigger interface {
	RunNow() error
	Status() scheduler.Status
}

type RefreshController struct {
	trigger RefreshTrigger
}

func NewRefreshController(trigger RefreshTrigger) *RefreshController {
	return &RefreshController{trigger: trigger}
}

// Status handles GET /api/refresh
func (rc *RefreshController) Status(c *gin.Context) {
	c.JSON(http.StatusOK, rc.trigger.Status())
}

// Trigger handles POST /api/refresh
func (rc *RefreshController) Trigger(c *gin.Context) {
	err := rc.trigger.RunNow()
	if errors.Is(err, scheduler.ErrRefreshInProgress) {
		respondError(c, http.StatusConflict, err.Error(), "refresh_in_progress")
		return
	}
	if err != nil {
		respondInternalError(c, err, "trigger refresh")
		return
	}
	respondAccepted(c, "refresh started", rc.trigger.Status())
}
