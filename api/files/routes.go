package files

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/sttclient/api/types"
)

// RegisterRoutes registers session file routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("", List(deps))
	router.POST("", Add(deps))
	router.GET("/:id", Get(deps))
	router.DELETE("/:id", Delete(deps))
}
