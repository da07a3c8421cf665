package events

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/sttclient/api/types"
)

// RegisterRoutes registers the pushed event journal route
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("", List(deps))
}
