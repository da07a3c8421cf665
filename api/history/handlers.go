package history

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/sttclient/api/types"
	"github.com/killallgit/sttclient/internal/models"
)

const defaultLimit = 50

func available(c *gin.Context, deps *types.Dependencies) bool {
	if deps.History == nil {
		types.SendServiceUnavailable(c, "task history is disabled")
		return false
	}
	return true
}

// List returns finished tasks, most recent first. ?limit=0 returns all.
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !available(c, deps) {
			return
		}
		limit, ok := types.ParseIntQuery(c, "limit", defaultLimit)
		if !ok {
			return
		}

		records, err := deps.History.List(c.Request.Context(), limit)
		if err != nil {
			types.SendError(c, err)
			return
		}
		if records == nil {
			records = []models.TaskRecord{}
		}

		types.SendSuccess(c, types.HistoryResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Records:      records,
			Count:        len(records),
		})
	}
}

// Get returns one history entry by local or remote task id
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !available(c, deps) {
			return
		}
		record, err := deps.History.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.HistoryRecordResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Record:       record,
		})
	}
}

// Delete removes one history entry
func Delete(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !available(c, deps) {
			return
		}
		if err := deps.History.Delete(c.Request.Context(), c.Param("id")); err != nil {
			types.SendError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
