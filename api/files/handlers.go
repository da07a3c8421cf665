package files

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/sttclient/api/types"
)

// List returns every file added to the session
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		list := deps.Registry.List()
		types.SendSuccess(c, types.FilesResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Files:        list,
			Count:        len(list),
		})
	}
}

// Add registers a local audio file. The path must exist on the machine
// running the client.
func Add(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.AddFileRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		file, err := deps.Registry.Add(c.Request.Context(), req.Path)
		if err != nil {
			types.SendError(c, err)
			return
		}

		types.SendCreated(c, types.FileResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			File:         file,
		})
	}
}

// Get returns one file
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := deps.Registry.Get(c.Param("id"))
		if err != nil {
			types.SendError(c, err)
			return
		}

		types.SendSuccess(c, types.FileResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			File:         file,
		})
	}
}

// Delete removes a file from the session. Files with an upload in flight
// have the upload cancelled first.
func Delete(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := deps.Registry.Get(id); err != nil {
			types.SendError(c, err)
			return
		}

		deps.Tracker.CancelUpload(id)
		if err := deps.Registry.Remove(id); err != nil {
			types.SendError(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}
