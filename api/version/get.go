package version

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/sttclient/api/types"
)

// Get reports the build of the running server
func Get(deps *types.Dependencies) gin.HandlerFunc {
	var build types.BuildInfo
	if deps != nil {
		build = deps.Build
	}
	if build.Version == "" {
		build.Version = "dev"
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, types.VersionResponse{
			Name:      "sttclient",
			Status:    "running",
			BuildInfo: build,
		})
	}
}
