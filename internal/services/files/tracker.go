package files

import (
	"log"
	"sync"
	"time"

	"github.com/killallgit/sttclient/internal/models"
	"github.com/killallgit/sttclient/internal/services/events"
	"github.com/killallgit/sttclient/internal/store"
)

// Observer is notified synchronously at every upload checkpoint
type Observer interface {
	UploadProgressed(p models.UploadProgress)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(p models.UploadProgress)

// UploadProgressed calls f(p)
func (f ObserverFunc) UploadProgressed(p models.UploadProgress) {
	f(p)
}

// stageProgress maps checkpoints onto progress values
var stageProgress = map[models.UploadStage]float64{
	models.UploadStageQueued:       0.0,
	models.UploadStageSending:      0.5,
	models.UploadStageAcknowledged: 1.0,
}

// Tracker tracks in-flight uploads in a side table so a finished or cancelled
// upload can be dropped without losing the file record
type Tracker struct {
	store    *store.Store
	registry *Registry

	mu        sync.Mutex
	observers map[string]Observer
}

// NewTracker creates an upload tracker
func NewTracker(st *store.Store, registry *Registry) *Tracker {
	return &Tracker{
		store:     st,
		registry:  registry,
		observers: make(map[string]Observer),
	}
}

// StartUpload registers an upload at progress 0. observer may be nil.
func (t *Tracker) StartUpload(fileID string, observer Observer) (*models.UploadProgress, error) {
	if _, err := t.registry.SetStatus(fileID, models.FileStatusUploading, ""); err != nil {
		return nil, err
	}
	_, _ = t.registry.SetProgress(fileID, 0)

	now := time.Now().UTC()
	p := &models.UploadProgress{
		FileID:    fileID,
		Stage:     models.UploadStageQueued,
		StartedAt: now,
		UpdatedAt: now,
	}
	t.store.PutUpload(p)

	t.mu.Lock()
	if observer != nil {
		t.observers[fileID] = observer
	} else {
		delete(t.observers, fileID)
	}
	t.mu.Unlock()

	t.notify(*p)
	return p, nil
}

// Checkpoint advances the upload to a coarse stage
func (t *Tracker) Checkpoint(fileID string, stage models.UploadStage) error {
	return t.update(fileID, func(p *models.UploadProgress) {
		p.Stage = stage
		if v, ok := stageProgress[stage]; ok && v > p.Progress {
			p.Progress = v
		}
	})
}

// SetProgress records a fine-grained progress value, for example from push events
func (t *Tracker) SetProgress(fileID string, progress float64) error {
	return t.update(fileID, func(p *models.UploadProgress) {
		p.Progress = models.ClampProgress(progress)
		if p.Stage == models.UploadStageQueued && p.Progress > 0 {
			p.Stage = models.UploadStageSending
		}
	})
}

func (t *Tracker) update(fileID string, fn func(p *models.UploadProgress)) error {
	p, _, err := t.store.UpdateUpload(fileID, func(p *models.UploadProgress) bool {
		fn(p)
		p.UpdatedAt = time.Now().UTC()
		return true
	})
	if err != nil {
		return err
	}
	_, _ = t.registry.SetProgress(fileID, p.Progress)
	t.notify(*p)
	return nil
}

// CancelUpload stops tracking an upload. The network call is not interrupted.
// It reports whether an upload was tracked.
func (t *Tracker) CancelUpload(fileID string) bool {
	if !t.store.RemoveUpload(fileID) {
		return false
	}
	t.dropObserver(fileID)
	_, _ = t.registry.SetStatus(fileID, models.FileStatusPending, "upload cancelled")
	log.Printf("[INFO] Upload of file %s cancelled", fileID)
	return true
}

// Complete stops tracking and marks the file as processing on the backend
func (t *Tracker) Complete(fileID string) {
	if p, ok := t.store.Upload(fileID); ok {
		p.Stage = models.UploadStageAcknowledged
		p.Progress = 1.0
		t.notify(*p)
	}
	t.store.RemoveUpload(fileID)
	t.dropObserver(fileID)
	_, _ = t.registry.SetStatus(fileID, models.FileStatusProcessing, "")
}

// Fail stops tracking and records the failure on the file
func (t *Tracker) Fail(fileID, message string) {
	t.store.RemoveUpload(fileID)
	t.dropObserver(fileID)
	if _, err := t.registry.SetStatus(fileID, models.FileStatusFailed, message); err != nil {
		log.Printf("[WARN] Could not mark file %s failed: %v", fileID, err)
	}
}

// Active returns the tracked uploads
func (t *Tracker) Active() []*models.UploadProgress {
	return t.store.Uploads()
}

// HandleEvent merges pushed upload events
func (t *Tracker) HandleEvent(ev events.Event) {
	switch e := ev.(type) {
	case *events.UploadStarted:
		if _, tracked := t.store.Upload(e.FileID); !tracked {
			if _, err := t.StartUpload(e.FileID, nil); err != nil {
				log.Printf("[DEBUG] Ignoring upload_started for unknown file %s", e.FileID)
			}
		}
	case *events.UploadProgress:
		if err := t.SetProgress(e.FileID, e.Progress); err != nil {
			log.Printf("[DEBUG] Ignoring upload_progress for untracked file %s", e.FileID)
		}
	case *events.UploadCompleted:
		t.Complete(e.FileID)
		if e.TaskID != "" {
			_ = t.registry.LinkTask(e.FileID, e.TaskID)
		}
	case *events.UploadFailed:
		t.Fail(e.FileID, e.Error)
	}
}

func (t *Tracker) dropObserver(fileID string) {
	t.mu.Lock()
	delete(t.observers, fileID)
	t.mu.Unlock()
}

func (t *Tracker) notify(p models.UploadProgress) {
	t.mu.Lock()
	observer := t.observers[p.FileID]
	t.mu.Unlock()
	if observer != nil {
		observer.UploadProgressed(p)
	}
}
