package models

import (
	"path/filepath"
	"strings"
	"time"
)

// FileStatus is the processing state of an audio file in the session
type FileStatus string

const (
	FileStatusPending    FileStatus = "pending"
	FileStatusUploading  FileStatus = "uploading"
	FileStatusProcessing FileStatus = "processing"
	FileStatusCompleted  FileStatus = "completed"
	FileStatusFailed     FileStatus = "failed"
)

// IsTerminal returns true for completed and failed
func (s FileStatus) IsTerminal() bool {
	return s == FileStatusCompleted || s == FileStatusFailed
}

// supportedExtensions lists audio and video containers the backend accepts
var supportedExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".aac":  true,
	".wma":  true,
	".webm": true,
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
}

// IsSupported reports whether the path has a supported audio extension
func IsSupported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// AudioMetadata represents metadata extracted from an audio file
type AudioMetadata struct {
	Duration   float64 `json:"duration"`    // Duration in seconds
	SampleRate int     `json:"sample_rate"` // Sample rate in Hz
	Channels   int     `json:"channels"`    // Number of audio channels
	BitRate    int     `json:"bit_rate"`    // Bitrate in bits per second
	Format     string  `json:"format"`      // Container format (mp3, m4a, etc.)
	Codec      string  `json:"codec,omitempty"`
	Size       int64   `json:"size"`
}

// AudioFile is an audio file added to the session
type AudioFile struct {
	ID            string         `json:"id"`
	Path          string         `json:"path"`
	Name          string         `json:"name"`
	Status        FileStatus     `json:"status"`
	StatusMessage string         `json:"status_message,omitempty"`
	Progress      float64        `json:"progress"`
	TaskID        string         `json:"task_id,omitempty"`
	Metadata      *AudioMetadata `json:"metadata,omitempty"`
	AddedAt       time.Time      `json:"added_at"`
}

// NewAudioFile creates a pending file record for path
func NewAudioFile(id, path string) *AudioFile {
	return &AudioFile{
		ID:      id,
		Path:    path,
		Name:    filepath.Base(path),
		Status:  FileStatusPending,
		AddedAt: time.Now().UTC(),
	}
}

// IsSupported reports whether the file extension is accepted
func (f *AudioFile) IsSupported() bool {
	return IsSupported(f.Path)
}

// IsReady reports whether a transcription can be started for the file
func (f *AudioFile) IsReady() bool {
	return f.IsSupported() && f.Status != FileStatusUploading && f.Status != FileStatusProcessing
}

// SetStatus applies a status change. A terminal status is entered at most
// once and never left; later attempts only show up on their tasks.
func (f *AudioFile) SetStatus(status FileStatus, message string) bool {
	if f.Status.IsTerminal() {
		return false
	}
	f.Status = status
	f.StatusMessage = message
	if status == FileStatusCompleted {
		f.Progress = 1.0
	}
	return true
}

// Clone returns a copy safe to hand out as a snapshot
func (f *AudioFile) Clone() *AudioFile {
	if f == nil {
		return nil
	}
	c := *f
	if f.Metadata != nil {
		m := *f.Metadata
		c.Metadata = &m
	}
	return &c
}

// UploadStage is a coarse upload checkpoint
type UploadStage string

const (
	UploadStageQueued       UploadStage = "queued"
	UploadStageSending      UploadStage = "sending"
	UploadStageAcknowledged UploadStage = "acknowledged"
)

// UploadProgress is the transient tracking entry of an in-flight upload
type UploadProgress struct {
	FileID    string      `json:"file_id"`
	Stage     UploadStage `json:"stage"`
	Progress  float64     `json:"progress"`
	StartedAt time.Time   `json:"started_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
