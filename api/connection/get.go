package connection

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/sttclient/api/types"
)

// Get reports the push channel state, its subscriptions and routing counters
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := types.ConnectionResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
		}
		if deps.Events != nil {
			status := deps.Events.Status()
			resp.Enabled = true
			resp.Connection = &status
			resp.Routing = deps.Events.Router().Stats()
		}
		types.SendSuccess(c, resp)
	}
}
