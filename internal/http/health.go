package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/apollo-indexer/internal/search"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// Pinger checks a dependency is reachable.
type Pinger interface {
	Ping() error
}

// ClusterChecker reports document store health.
type ClusterChecker interface {
	ClusterHealth(ctx context.Context) (search.Health, error)
}

type HealthController struct {
	ledger  Pinger
	cluster ClusterChecker
	version string
}

func NewHealthController(ledger Pinger, cluster ClusterChecker, version string) *HealthController {
	return &HealthController{
		ledger:  ledger,
		cluster: cluster,
		version: version,
	}
}

// Status reports the ledger and cluster. Only the ledger decides the HTTP
// status; cluster health is informational.
func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.ledger != nil {
		if err := h.ledger.Ping(); err != nil {
			checks["ledger"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["ledger"] = "ok"
		}
	} else {
		checks["ledger"] = "not configured"
		status = "unhealthy"
	}

	if h.cluster != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		health, err := h.cluster.ClusterHealth(ctx)
		cancel()
		if err != nil {
			checks["cluster"] = "error: " + err.Error()
		} else {
			checks["cluster"] = health.Status
		}
	} else {
		checks["cluster"] = "not configured"
	}

	response := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, response)
}
