package tasks

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/sttclient/api/types"
)

// RegisterRoutes registers transcription task routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("", List(deps))
	router.POST("", Start(deps))
	router.GET("/:id", Get(deps))
	router.DELETE("/:id", Delete(deps))
	router.POST("/:id/cancel", Cancel(deps))
	router.POST("/:id/retry", Retry(deps))
	router.POST("/:id/export", Export(deps))
}
