package connection

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/sttclient/api/types"
)

// RegisterRoutes registers push channel status routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("", Get(deps))
}
