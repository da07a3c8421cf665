// Package history persists finished transcription tasks in the local database.
package history

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/killallgit/sttclient/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrRecordNotFound is returned when no history entry matches an id
var ErrRecordNotFound = errors.New("history record not found")

// repository implements the Repository interface using GORM
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new history repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Save upserts a task snapshot. Active tasks are not recorded.
func (r *repository) Save(ctx context.Context, task *models.TranscriptionTask) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}
	if !task.IsFinished() {
		return nil
	}

	record := models.NewTaskRecord(task)
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(record)
	if result.Error != nil {
		return result.Error
	}

	log.Printf("[DEBUG] Recorded task %s (%s) in history", task.ID, task.Status)
	return nil
}

// Get retrieves an entry by local or remote id
func (r *repository) Get(ctx context.Context, id string) (*models.TaskRecord, error) {
	var record models.TaskRecord

	result := r.db.WithContext(ctx).Where("id = ? OR remote_id = ?", id, id).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}

	return &record, nil
}

// List returns entries ordered by completion time, newest first
func (r *repository) List(ctx context.Context, limit int) ([]models.TaskRecord, error) {
	var records []models.TaskRecord

	query := r.db.WithContext(ctx).Order("completed_at DESC").Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

// Delete removes an entry permanently
func (r *repository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).Delete(&models.TaskRecord{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}

	return nil
}

// CleanupOlderThan removes entries that completed before the cutoff
func (r *repository) CleanupOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-age)

	result := r.db.WithContext(ctx).Unscoped().
		Where("completed_at IS NOT NULL AND completed_at < ?", cutoff).
		Delete(&models.TaskRecord{})
	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		log.Printf("[INFO] Removed %d history entries older than %v", result.RowsAffected, age)
	}
	return result.RowsAffected, nil
}
