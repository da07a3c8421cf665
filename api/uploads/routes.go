package uploads

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/sttclient/api/types"
)

// RegisterRoutes registers upload progress routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("", List(deps))
	router.POST("/:file_id/cancel", Cancel(deps))
}

// List returns the uploads currently in flight
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		active := deps.Tracker.Active()
		types.SendSuccess(c, types.UploadsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Uploads:      active,
			Count:        len(active),
		})
	}
}

// Cancel drops an in-flight upload. Unknown uploads return 404.
func Cancel(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !deps.Tracker.CancelUpload(c.Param("file_id")) {
			c.JSON(http.StatusNotFound, types.ErrorResponse{
				Status:  types.StatusError,
				Message: "upload not found",
			})
			return
		}
		types.SendSuccess(c, types.BaseResponse{Status: types.StatusOK, Message: "upload cancelled"})
	}
}
