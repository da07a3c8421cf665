package tasks

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/sttclient/api/types"
	"github.com/killallgit/sttclient/internal/models"
	tasksvc "github.com/killallgit/sttclient/internal/services/tasks"
	"github.com/killallgit/sttclient/pkg/export"
)

// List returns tasks of the session. ?active=true limits the list to
// pending and running tasks.
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var list []*models.TranscriptionTask
		if c.Query("active") == "true" {
			list = deps.Orchestrator.Active()
		} else {
			list = deps.Orchestrator.List()
		}
		if list == nil {
			list = []*models.TranscriptionTask{}
		}

		types.SendSuccess(c, types.TasksResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Tasks:        list,
			Count:        len(list),
		})
	}
}

// Start creates a task for a session file and returns its id. The
// transcription continues in the background.
func Start(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.StartTaskRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		var opts []tasksvc.StartOption
		if req.Language != "" {
			opts = append(opts, tasksvc.WithLanguage(req.Language))
		}
		if o := req.Options; o != nil {
			opts = append(opts, tasksvc.WithConfig(models.TranscriptionConfig{
				IncludeTimestamps: o.IncludeTimestamps,
				IncludeSegments:   o.IncludeSegments,
				DetectLanguage:    o.DetectLanguage,
				Translate:         o.Translate,
				Temperature:       o.Temperature,
				BestOf:            o.BestOf,
			}))
		}

		id, err := deps.Orchestrator.Start(req.FileID, req.Model, opts...)
		if err != nil {
			types.SendError(c, err)
			return
		}

		types.SendAccepted(c, types.TaskStartedResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK, Message: "transcription started"},
			TaskID:       id,
		})
	}
}

// Get returns a task by local or remote id
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		task, err := deps.Orchestrator.Get(c.Param("id"))
		if err != nil {
			types.SendError(c, err)
			return
		}

		types.SendSuccess(c, types.TaskResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Task:         task,
		})
	}
}

// Cancel stops an active task. Cancelling a finished task succeeds without change.
func Cancel(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := deps.Orchestrator.Cancel(id); err != nil {
			types.SendError(c, err)
			return
		}

		task, err := deps.Orchestrator.Get(id)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.TaskResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Task:         task,
		})
	}
}

// Retry starts a new task from a finished one
func Retry(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := deps.Orchestrator.Retry(c.Param("id"))
		if err != nil {
			types.SendError(c, err)
			return
		}

		types.SendAccepted(c, types.TaskStartedResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK, Message: "transcription restarted"},
			TaskID:       id,
		})
	}
}

// Export writes the transcript of a completed task to disk
func Export(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.ExportRequest
		if c.Request.ContentLength > 0 && !types.BindJSONOrError(c, &req) {
			return
		}

		var format export.Format
		if req.Format != "" {
			f, err := export.ParseFormat(req.Format)
			if err != nil {
				types.SendError(c, err)
				return
			}
			format = f
		}

		task, err := deps.Orchestrator.Get(c.Param("id"))
		if err != nil {
			types.SendError(c, err)
			return
		}

		path := req.Path
		if path == "" {
			if format == "" {
				format = export.FormatText
			}
			path = filepath.Join(deps.ExportDir, task.ID+format.Extension())
		}

		if err := deps.Orchestrator.Export(task.ID, path, format); err != nil {
			types.SendError(c, err)
			return
		}
		if format == "" {
			format, _ = export.FormatFromPath(path)
		}

		types.SendSuccess(c, types.ExportResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Path:         path,
			Format:       string(format),
		})
	}
}

// Delete removes a finished task from the session
func Delete(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.Orchestrator.Remove(c.Param("id")); err != nil {
			types.SendError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
