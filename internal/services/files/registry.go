package files

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/killallgit/sttclient/internal/models"
	"github.com/killallgit/sttclient/internal/store"
	"github.com/killallgit/sttclient/pkg/audio"
	apperrors "github.com/killallgit/sttclient/pkg/errors"
)

// Registry manages the audio files added to the session
type Registry struct {
	store    *store.Store
	metadata audio.MetadataProvider
}

// NewRegistry creates a registry. metadata may be nil.
func NewRegistry(st *store.Store, metadata audio.MetadataProvider) *Registry {
	return &Registry{store: st, metadata: metadata}
}

// Add validates path and registers it as a pending file
func (r *Registry) Add(ctx context.Context, path string) (*models.AudioFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.KindFile, "resolving %s", path)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.KindFile, "audio file %s not accessible", abs)
	}
	if info.IsDir() {
		return nil, apperrors.File(fmt.Sprintf("%s is a directory", abs))
	}
	if !models.IsSupported(abs) {
		return nil, apperrors.File(fmt.Sprintf("unsupported audio format: %s", filepath.Ext(abs))).
			WithDetail("path", abs)
	}

	file := models.NewAudioFile(uuid.NewString(), abs)
	if r.metadata != nil {
		md, err := r.metadata.Probe(ctx, abs)
		if err != nil {
			log.Printf("[WARN] Could not read metadata for %s: %v", abs, err)
		} else {
			file.Metadata = md
		}
	}
	if file.Metadata == nil {
		file.Metadata = &models.AudioMetadata{Size: info.Size()}
	}

	if err := r.store.AddFile(file); err != nil {
		return nil, err
	}
	log.Printf("[INFO] Added file %s (%s)", file.ID, file.Name)
	return file.Clone(), nil
}

// Get returns a snapshot of a file
func (r *Registry) Get(id string) (*models.AudioFile, error) {
	return r.store.File(id)
}

// List returns all session files
func (r *Registry) List() []*models.AudioFile {
	return r.store.Files()
}

// Remove deletes a file from the session
func (r *Registry) Remove(id string) error {
	r.store.RemoveUpload(id)
	return r.store.RemoveFile(id)
}

// SetStatus applies a status change. Entering a terminal status twice is ignored.
func (r *Registry) SetStatus(id string, status models.FileStatus, message string) (*models.AudioFile, error) {
	file, changed, err := r.store.UpdateFile(id, func(f *models.AudioFile) bool {
		return f.SetStatus(status, message)
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		log.Printf("[DEBUG] File %s already finished as %s, ignoring %s", id, file.Status, status)
	}
	return file, nil
}

// SetProgress records a clamped progress value. Finished files are unchanged.
func (r *Registry) SetProgress(id string, progress float64) (*models.AudioFile, error) {
	file, _, err := r.store.UpdateFile(id, func(f *models.AudioFile) bool {
		if f.Status.IsTerminal() {
			return false
		}
		f.Progress = models.ClampProgress(progress)
		return true
	})
	return file, err
}

// LinkTask records the task transcribing the file. A finished file keeps
// the task that finished it.
func (r *Registry) LinkTask(id, taskID string) error {
	_, _, err := r.store.UpdateFile(id, func(f *models.AudioFile) bool {
		if f.Status.IsTerminal() {
			return false
		}
		f.TaskID = taskID
		return true
	})
	return err
}
