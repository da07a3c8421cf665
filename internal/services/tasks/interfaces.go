package tasks

import (
	"context"

	"github.com/killallgit/sttclient/internal/models"
	"github.com/killallgit/sttclient/internal/services/events"
)

// Subscriber asks the push channel for events about a channel
type Subscriber interface {
	Subscribe(ch events.Channel) error
}

// Recorder persists finished tasks
type Recorder interface {
	Save(ctx context.Context, task *models.TranscriptionTask) error
}

// StartOption is a functional option for starting tasks
type StartOption func(*startConfig)

// startConfig holds the per-task settings
type startConfig struct {
	Language string
	Config   *models.TranscriptionConfig
}

// WithLanguage sets the language hint of a task
func WithLanguage(language string) StartOption {
	return func(cfg *startConfig) {
		cfg.Language = language
	}
}

// WithConfig overrides the default transcription options
func WithConfig(config models.TranscriptionConfig) StartOption {
	return func(cfg *startConfig) {
		cfg.Config = &config
	}
}
