package events

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/sttclient/api/types"
	eventsvc "github.com/killallgit/sttclient/internal/services/events"
)

// List returns journal records with a sequence number above ?since.
// Next is the sequence to pass on the following call.
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var since int64
		if raw := c.Query("since"); raw != "" {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || v < 0 {
				types.SendBadRequest(c, "Invalid since")
				return
			}
			since = v
		}

		records := deps.Journal.Since(since)
		if records == nil {
			records = []eventsvc.Record{}
		}
		next := since
		if n := len(records); n > 0 {
			next = records[n-1].Seq
		}

		types.SendSuccess(c, types.EventsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Events:       records,
			Next:         next,
		})
	}
}
