package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Segment is one timed span of recognised speech. Start and End are seconds.
type Segment struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// TranscriptionResult is the immutable output of a completed task
type TranscriptionResult struct {
	Text        string    `json:"text"`
	Segments    []Segment `json:"segments"`
	Language    string    `json:"language,omitempty"`
	Confidence  float64   `json:"confidence"`
	Duration    float64   `json:"duration"` // audio duration in seconds
	CompletedAt time.Time `json:"completed_at"`
}

// Clone returns a deep copy of the result
func (r *TranscriptionResult) Clone() *TranscriptionResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Segments = append([]Segment(nil), r.Segments...)
	return &c
}

// JoinedText returns segment texts separated by a single space, or the full text when there are no segments
func (r *TranscriptionResult) JoinedText() string {
	if len(r.Segments) == 0 {
		return r.Text
	}
	parts := make([]string, len(r.Segments))
	for i, s := range r.Segments {
		parts[i] = s.Text
	}
	return strings.Join(parts, " ")
}

// TaskRecord is the persisted history entry of a finished task
type TaskRecord struct {
	ID           string               `gorm:"primaryKey;size:64" json:"id"`
	RemoteID     string               `gorm:"index" json:"remote_id,omitempty"`
	Status       TaskStatus           `gorm:"index" json:"status"`
	FilePath     string               `json:"file_path"`
	Model        string               `gorm:"index" json:"model"`
	Language     string               `json:"language,omitempty"`
	Result       *TranscriptionResult `gorm:"serializer:json" json:"result,omitempty"`
	ErrorMessage string               `json:"error_message,omitempty"`
	StartedAt    *time.Time           `json:"started_at,omitempty"`
	CompletedAt  *time.Time           `gorm:"index" json:"completed_at,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
	DeletedAt    gorm.DeletedAt       `gorm:"index" json:"-"`
}

// TableName specifies the table name for TaskRecord
func (TaskRecord) TableName() string {
	return "task_history"
}

// NewTaskRecord builds a history entry from a task snapshot
func NewTaskRecord(t *TranscriptionTask) *TaskRecord {
	return &TaskRecord{
		ID:           t.ID,
		RemoteID:     t.RemoteID,
		Status:       t.Status,
		FilePath:     t.FilePath,
		Model:        t.Model,
		Language:     t.Language,
		Result:       t.Result.Clone(),
		ErrorMessage: t.ErrorMessage,
		StartedAt:    t.StartedAt,
		CompletedAt:  t.CompletedAt,
		CreatedAt:    t.CreatedAt,
	}
}
