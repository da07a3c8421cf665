package types

import (
	"github.com/killallgit/sttclient/internal/models"
	"github.com/killallgit/sttclient/internal/services/events"
)

// Status constants for API responses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// BaseResponse contains fields common to all API responses
type BaseResponse struct {
	Status  string `json:"status"`            // One of the Status constants above
	Message string `json:"message,omitempty"` // Human-readable message
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`   // error kind
	Details interface{} `json:"details,omitempty"` // Additional error details
}

// FilesResponse lists session files
type FilesResponse struct {
	BaseResponse
	Files []*models.AudioFile `json:"files"`
	Count int                 `json:"count"`
}

// FileResponse wraps a single file
type FileResponse struct {
	BaseResponse
	File *models.AudioFile `json:"file"`
}

// TasksResponse lists tasks
type TasksResponse struct {
	BaseResponse
	Tasks []*models.TranscriptionTask `json:"tasks"`
	Count int                         `json:"count"`
}

// TaskResponse wraps a single task
type TaskResponse struct {
	BaseResponse
	Task *models.TranscriptionTask `json:"task"`
}

// TaskStartedResponse is returned when a task was created
type TaskStartedResponse struct {
	BaseResponse
	TaskID string `json:"task_id"`
}

// ExportResponse reports a written transcript
type ExportResponse struct {
	BaseResponse
	Path   string `json:"path"`
	Format string `json:"format"`
}

// ModelsResponse lists the model catalog
type ModelsResponse struct {
	BaseResponse
	Models   []*models.Model `json:"models"`
	Selected string          `json:"selected"`
	Count    int             `json:"count"`
}

// ModelResponse wraps a single model
type ModelResponse struct {
	BaseResponse
	Model *models.Model `json:"model"`
}

// UploadsResponse lists in-flight uploads
type UploadsResponse struct {
	BaseResponse
	Uploads []*models.UploadProgress `json:"uploads"`
	Count   int                      `json:"count"`
}

// ConnectionResponse reports push channel state
type ConnectionResponse struct {
	BaseResponse
	Enabled    bool             `json:"enabled"`
	Connection *events.Status   `json:"connection,omitempty"`
	Routing    map[string]int64 `json:"routing,omitempty"`
}

// EventsResponse returns journal records after a sequence number
type EventsResponse struct {
	BaseResponse
	Events []events.Record `json:"events"`
	Next   int64           `json:"next"` // pass as since on the next call
}

// HistoryResponse lists persisted finished tasks
type HistoryResponse struct {
	BaseResponse
	Records []models.TaskRecord `json:"records"`
	Count   int                 `json:"count"`
}

// HistoryRecordResponse wraps one persisted task
type HistoryRecordResponse struct {
	BaseResponse
	Record *models.TaskRecord `json:"record"`
}

// VersionResponse represents the version endpoint payload
type VersionResponse struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	BuildInfo
}
