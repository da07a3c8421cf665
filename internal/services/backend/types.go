package backend

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/killallgit/sttclient/internal/models"
)

// Envelope is the uniform wrapper around every backend JSON response
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody is the error member of the envelope
type ErrorBody struct {
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// HealthInfo is returned by GET /health
type HealthInfo struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// ModelSummary is one entry of GET /models
type ModelSummary struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name,omitempty"`
	Description string   `json:"description,omitempty"`
	Languages   []string `json:"languages,omitempty"`
	Ready       *bool    `json:"ready,omitempty"`
	Size        int64    `json:"size,omitempty"`
}

// IsReady reports the backend readiness of the model. Absent means ready.
func (m ModelSummary) IsReady() bool {
	return m.Ready == nil || *m.Ready
}

type modelsPayload struct {
	Models []ModelSummary `json:"models"`
}

// Options is the JSON options field of POST /transcribe
type Options struct {
	IncludeTimestamps bool    `json:"include_timestamps"`
	IncludeSegments   bool    `json:"include_segments"`
	DetectLanguage    bool    `json:"detect_language"`
	Translate         bool    `json:"translate"`
	Temperature       float64 `json:"temperature"`
	BestOf            int     `json:"best_of"`
	Language          string  `json:"language,omitempty"`
}

// OptionsFrom builds request options from a task configuration
func OptionsFrom(cfg models.TranscriptionConfig, language string) Options {
	return Options{
		IncludeTimestamps: cfg.IncludeTimestamps,
		IncludeSegments:   cfg.IncludeSegments,
		DetectLanguage:    cfg.DetectLanguage,
		Translate:         cfg.Translate,
		Temperature:       cfg.Temperature,
		BestOf:            cfg.BestOf,
		Language:          language,
	}
}

// TranscribeRequest describes one upload for POST /transcribe
type TranscribeRequest struct {
	FilePath string
	Model    string
	Options  Options
}

// StartResponse is returned by POST /transcribe
type StartResponse struct {
	TaskID            string   `json:"task_id"`
	Status            string   `json:"status"`
	EstimatedDuration *float64 `json:"estimated_duration,omitempty"`
}

// StatusResponse is returned by GET /transcribe/{task_id}
type StatusResponse struct {
	TaskID       string   `json:"task_id"`
	Status       string   `json:"status"`
	Progress     *float64 `json:"progress,omitempty"`
	Stage        string   `json:"stage,omitempty"`
	ETASeconds   *float64 `json:"eta_seconds,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

// TaskStatus maps the backend status string onto the local task status
func (s *StatusResponse) TaskStatus() models.TaskStatus {
	return ParseStatus(s.Status)
}

// ResultResponse is returned by GET /transcribe/{task_id}/result
type ResultResponse struct {
	TaskID string        `json:"task_id"`
	Status string        `json:"status"`
	Result *RemoteResult `json:"result,omitempty"`
}

// RemoteResult is the backend's result payload. Only text is guaranteed.
type RemoteResult struct {
	Text       string           `json:"text,omitempty"`
	Segments   []models.Segment `json:"segments,omitempty"`
	Language   string           `json:"language,omitempty"`
	Confidence float64          `json:"confidence,omitempty"`
	Duration   float64          `json:"duration,omitempty"`
}

// ToResult converts the payload into a local result
func (r *RemoteResult) ToResult() *models.TranscriptionResult {
	result := &models.TranscriptionResult{
		Text:        r.Text,
		Segments:    append([]models.Segment{}, r.Segments...),
		Language:    r.Language,
		Confidence:  r.Confidence,
		Duration:    r.Duration,
		CompletedAt: time.Now().UTC(),
	}
	if result.Text == "" && len(result.Segments) > 0 {
		result.Text = result.JoinedText()
	}
	if result.Duration == 0 && len(result.Segments) > 0 {
		result.Duration = result.Segments[len(result.Segments)-1].End
	}
	return result
}

type selectModelRequest struct {
	Model string `json:"model"`
}

// ParseStatus normalizes the status vocabulary used by backends
func ParseStatus(status string) models.TaskStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "completed", "complete", "done", "success", "succeeded":
		return models.TaskStatusCompleted
	case "failed", "error":
		return models.TaskStatusFailed
	case "cancelled", "canceled":
		return models.TaskStatusCancelled
	case "processing", "in_progress", "running", "started", "transcribing":
		return models.TaskStatusInProgress
	default:
		return models.TaskStatusPending
	}
}
