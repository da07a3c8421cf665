package models

import (
	"time"
)

// TaskStatus represents the lifecycle state of a transcription task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// ProgressStarted is the nominal progress recorded when execution begins
const ProgressStarted = 0.05

// IsActive returns true for the non-terminal states
func (s TaskStatus) IsActive() bool {
	return s == TaskStatusPending || s == TaskStatusInProgress
}

// IsFinished returns true for the terminal states
func (s TaskStatus) IsFinished() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCancelled
}

// TranscriptionConfig holds per-task recognition options
type TranscriptionConfig struct {
	IncludeTimestamps bool    `json:"include_timestamps"`
	IncludeSegments   bool    `json:"include_segments"`
	DetectLanguage    bool    `json:"detect_language"`
	Translate         bool    `json:"translate"`
	Temperature       float64 `json:"temperature"`
	BestOf            int     `json:"best_of"`
}

// DefaultTranscriptionConfig returns the options used when a caller passes none
func DefaultTranscriptionConfig() TranscriptionConfig {
	return TranscriptionConfig{
		IncludeTimestamps: true,
		IncludeSegments:   true,
		DetectLanguage:    true,
		BestOf:            5,
	}
}

// TranscriptionTask is one transcription attempt tied to one file, model and language
type TranscriptionTask struct {
	ID           string               `json:"id"`
	RemoteID     string               `json:"remote_id,omitempty"` // backend-assigned id once accepted
	Status       TaskStatus           `json:"status"`
	FileID       string               `json:"file_id,omitempty"`
	FilePath     string               `json:"file_path"`
	Model        string               `json:"model"`
	Language     string               `json:"language,omitempty"`
	Config       TranscriptionConfig  `json:"config"`
	Progress     float64              `json:"progress"` // 0.0-1.0
	Stage        string               `json:"stage,omitempty"`
	Result       *TranscriptionResult `json:"result,omitempty"`
	ErrorMessage string               `json:"error_message,omitempty"`
	LiveSegments []Segment            `json:"live_segments,omitempty"` // pushed before completion
	CreatedAt    time.Time            `json:"created_at"`
	StartedAt    *time.Time           `json:"started_at,omitempty"`
	CompletedAt  *time.Time           `json:"completed_at,omitempty"`
}

// NewTask creates a task in the pending state
func NewTask(id, fileID, filePath, model, language string, cfg TranscriptionConfig) *TranscriptionTask {
	return &TranscriptionTask{
		ID:        id,
		Status:    TaskStatusPending,
		FileID:    fileID,
		FilePath:  filePath,
		Model:     model,
		Language:  language,
		Config:    cfg,
		CreatedAt: time.Now().UTC(),
	}
}

// IsActive returns true while the task is pending or in progress
func (t *TranscriptionTask) IsActive() bool {
	return t.Status.IsActive()
}

// IsFinished returns true if the task reached a terminal state
func (t *TranscriptionTask) IsFinished() bool {
	return t.Status.IsFinished()
}

// MatchesID reports whether id is the task's local or remote identifier
func (t *TranscriptionTask) MatchesID(id string) bool {
	return id != "" && (t.ID == id || t.RemoteID == id)
}

// Start moves a pending task into progress. It is a no-op for any other state.
func (t *TranscriptionTask) Start() bool {
	if t.Status != TaskStatusPending {
		return false
	}
	now := time.Now().UTC()
	t.Status = TaskStatusInProgress
	t.StartedAt = &now
	if t.Progress < ProgressStarted {
		t.Progress = ProgressStarted
	}
	return true
}

// SetProgress clamps the value to [0,1]. Finished tasks are left untouched.
func (t *TranscriptionTask) SetProgress(value float64) bool {
	if t.IsFinished() {
		return false
	}
	t.Progress = ClampProgress(value)
	return true
}

// Complete attaches the result and moves the task to completed
func (t *TranscriptionTask) Complete(result *TranscriptionResult) bool {
	if t.IsFinished() || result == nil {
		return false
	}
	now := time.Now().UTC()
	if t.StartedAt == nil {
		t.StartedAt = &now
	}
	if result.CompletedAt.IsZero() {
		result.CompletedAt = now
	}
	t.Status = TaskStatusCompleted
	t.Progress = 1.0
	t.Result = result
	t.ErrorMessage = ""
	t.LiveSegments = nil
	t.CompletedAt = &now
	return true
}

// Fail records the error message and moves the task to failed
func (t *TranscriptionTask) Fail(message string) bool {
	if t.IsFinished() {
		return false
	}
	if message == "" {
		message = "transcription failed"
	}
	now := time.Now().UTC()
	t.Status = TaskStatusFailed
	t.ErrorMessage = message
	t.Result = nil
	t.CompletedAt = &now
	return true
}

// Cancel moves an active task to cancelled
func (t *TranscriptionTask) Cancel() bool {
	if t.IsFinished() {
		return false
	}
	now := time.Now().UTC()
	t.Status = TaskStatusCancelled
	t.CompletedAt = &now
	return true
}

// Clone returns a deep copy safe to hand out as a snapshot
func (t *TranscriptionTask) Clone() *TranscriptionTask {
	if t == nil {
		return nil
	}
	c := *t
	if t.StartedAt != nil {
		started := *t.StartedAt
		c.StartedAt = &started
	}
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		c.CompletedAt = &completed
	}
	if t.Result != nil {
		c.Result = t.Result.Clone()
	}
	if t.LiveSegments != nil {
		c.LiveSegments = append([]Segment(nil), t.LiveSegments...)
	}
	return &c
}

// ClampProgress bounds a progress value to [0,1]
func ClampProgress(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
