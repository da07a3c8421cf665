package catalog

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/sttclient/api/types"
)

// RegisterRoutes registers model catalog routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("", List(deps))
	router.POST("/refresh", Refresh(deps))
	router.GET("/:name", Get(deps))
	router.DELETE("/:name", Delete(deps))
	router.POST("/:name/select", Select(deps))
	router.POST("/:name/download", Download(deps))
}
