package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/sttclient/api/types"
	"github.com/killallgit/sttclient/internal/services/events"
)

const (
	statusOK            = "ok"
	statusDegraded      = "degraded"
	statusHealthy       = "healthy"
	statusUnhealthy     = "unhealthy"
	statusNotConfigured = "not configured"
)

// Get reports the state of each client component. A broken history
// database or an exhausted push connection degrades the overall status.
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps == nil {
			deps = &types.Dependencies{}
		}

		overall := statusOK
		database := databaseStatus(deps)
		if database["status"] == statusUnhealthy {
			overall = statusDegraded
		}
		push := eventsStatus(deps)
		if push["status"] == events.StateFailed {
			overall = statusDegraded
		}

		pipeline := "remote"
		if deps.Simulated {
			pipeline = "simulated"
		}

		response := gin.H{
			"status":    overall,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"database":  database,
			"events":    push,
			"pipeline":  pipeline,
		}
		if deps.Catalog != nil {
			response["model"] = deps.Catalog.Selected()
		}
		if deps.Orchestrator != nil {
			response["active_tasks"] = len(deps.Orchestrator.Active())
		}

		c.JSON(http.StatusOK, response)
	}
}

func databaseStatus(deps *types.Dependencies) gin.H {
	if deps.DB == nil || deps.DB.DB == nil {
		return gin.H{"status": statusNotConfigured}
	}
	if err := deps.DB.HealthCheck(); err != nil {
		return gin.H{"status": statusUnhealthy, "error": err.Error()}
	}
	return gin.H{"status": statusHealthy}
}

func eventsStatus(deps *types.Dependencies) gin.H {
	if deps.Events == nil {
		return gin.H{"status": statusNotConfigured}
	}
	status := deps.Events.Status()
	out := gin.H{"status": status.State}
	if status.Error != "" {
		out["error"] = status.Error
	}
	return out
}
