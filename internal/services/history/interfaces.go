package history

import (
	"context"
	"time"

	"github.com/killallgit/sttclient/internal/models"
)

// Repository defines the persistence of finished transcription tasks
type Repository interface {
	// Save inserts or replaces the history entry of a finished task
	Save(ctx context.Context, task *models.TranscriptionTask) error

	// Get retrieves one entry by local or remote task id
	Get(ctx context.Context, id string) (*models.TaskRecord, error)

	// List returns the most recently finished entries first. A limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]models.TaskRecord, error)

	// Delete removes one entry
	Delete(ctx context.Context, id string) error

	// CleanupOlderThan removes entries that finished before now minus age
	CleanupOlderThan(ctx context.Context, age time.Duration) (int64, error)
}
