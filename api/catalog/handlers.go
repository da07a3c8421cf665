package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/sttclient/api/types"
	"github.com/killallgit/sttclient/internal/models"
)

func catalogResponse(deps *types.Dependencies) types.ModelsResponse {
	list := deps.Catalog.List()
	if list == nil {
		list = []*models.Model{}
	}
	return types.ModelsResponse{
		BaseResponse: types.BaseResponse{Status: types.StatusOK},
		Models:       list,
		Selected:     deps.Catalog.Selected(),
		Count:        len(list),
	}
}

// List returns the model catalog and the selected model
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		types.SendSuccess(c, catalogResponse(deps))
	}
}

// Refresh merges the backend catalog and returns the result
func Refresh(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.Catalog.RefreshModels(c.Request.Context()); err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, catalogResponse(deps))
	}
}

// Get returns one model
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		model, err := deps.Catalog.Get(c.Param("name"))
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.ModelResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Model:        model,
		})
	}
}

// Select makes the model the default for new tasks
func Select(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.Catalog.Select(c.Request.Context(), c.Param("name")); err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, catalogResponse(deps))
	}
}

// Download starts fetching a model. Progress is visible on the model entry.
func Download(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if err := deps.Catalog.Download(name, nil); err != nil {
			types.SendError(c, err)
			return
		}

		model, err := deps.Catalog.Get(name)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendAccepted(c, types.ModelResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Model:        model,
		})
	}
}

// Delete removes a model that is not selected
func Delete(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.Catalog.Delete(c.Param("name")); err != nil {
			types.SendError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
