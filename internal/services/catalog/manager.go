// Package catalog maintains the recognition model catalog and its lifecycle.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/killallgit/sttclient/internal/models"
	"github.com/killallgit/sttclient/internal/services/backend"
	"github.com/killallgit/sttclient/internal/services/events"
	"github.com/killallgit/sttclient/internal/store"
	"github.com/killallgit/sttclient/pkg/download"
	apperrors "github.com/killallgit/sttclient/pkg/errors"
)

var (
	ErrNoBackend     = errors.New("no backend configured")
	ErrModelNotFound = store.ErrModelNotFound
	ErrModelSelected = store.ErrModelSelected
)

// DownloadObserver is notified at every download progress step
type DownloadObserver interface {
	DownloadProgressed(name string, progress float64)
}

// ObserverFunc adapts a function to the DownloadObserver interface
type ObserverFunc func(name string, progress float64)

// DownloadProgressed calls f(name, progress)
func (f ObserverFunc) DownloadProgressed(name string, progress float64) {
	f(name, progress)
}

// Config configures the manager
type Config struct {
	DefaultModel string
	Dir          string        // where model files are stored; empty disables real downloads
	StepDelay    time.Duration // delay between placeholder progress steps
	Downloader   *download.Downloader
}

// Manager owns model status transitions
type Manager struct {
	store   *store.Store
	gateway backend.Gateway
	cfg     Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	downloads map[string]context.CancelFunc

	// revisions records the clock value of the last local transition per
	// model so a refresh that started earlier cannot overwrite it
	revMu     sync.Mutex
	clock     uint64
	revisions map[string]uint64
}

// NewManager creates a model manager. gateway may be nil.
func NewManager(st *store.Store, gateway backend.Gateway, cfg Config) *Manager {
	if cfg.StepDelay <= 0 {
		cfg.StepDelay = 200 * time.Millisecond
	}
	if cfg.Downloader == nil && cfg.Dir != "" {
		opts := download.DefaultOptions()
		opts.DestDir = cfg.Dir
		cfg.Downloader = download.NewDownloader(opts)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:     st,
		gateway:   gateway,
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		downloads: make(map[string]context.CancelFunc),
		revisions: make(map[string]uint64),
	}
}

// Initialize seeds the presets, refreshes from the backend and selects the
// default model when nothing is selected. Refresh failures are logged.
func (m *Manager) Initialize(ctx context.Context) {
	for _, preset := range Presets() {
		m.store.UpsertModel(preset.Name, func() *models.Model { return preset }, func(*models.Model) bool { return false })
	}
	log.Printf("[INFO] Seeded %d model presets", len(presets))

	if err := m.RefreshModels(ctx); err != nil && !errors.Is(err, ErrNoBackend) {
		log.Printf("[WARN] Model refresh failed during initialization: %v", err)
	}

	if m.store.SelectedModel() == "" && m.cfg.DefaultModel != "" {
		_ = m.store.SelectModel(m.cfg.DefaultModel, false)
		log.Printf("[INFO] Selected default model %s", m.cfg.DefaultModel)
	}
}

// RefreshModels merges the backend catalog into the local one. Existing
// entries only get their readiness updated; unknown entries are inserted.
// Nothing is ever removed.
func (m *Manager) RefreshModels(ctx context.Context) error {
	if m.gateway == nil {
		return ErrNoBackend
	}

	started := m.now()
	remote, err := m.gateway.ListModels(ctx)
	if err != nil {
		return err
	}

	var inserted, updated int
	for _, summary := range remote {
		summary := summary
		_, isNew := m.store.UpsertModel(summary.Name,
			func() *models.Model { return fromSummary(summary) },
			func(model *models.Model) bool {
				if m.revision(model.Name) > started {
					return false
				}
				if model.Status.IsLocalTransition() {
					return false
				}
				if summary.IsReady() {
					if model.Status.IsReady() {
						return false
					}
					model.Status = models.ModelStatusAvailable
					model.StatusMessage = ""
				} else {
					if model.Status == models.ModelStatusUnavailable {
						return false
					}
					model.Status = models.ModelStatusUnavailable
				}
				updated++
				return true
			})
		if isNew {
			inserted++
		}
	}

	log.Printf("[DEBUG] Model refresh: %d reported, %d inserted, %d updated", len(remote), inserted, updated)
	return nil
}

func fromSummary(s backend.ModelSummary) *models.Model {
	model := &models.Model{
		Name:        s.Name,
		DisplayName: s.DisplayName,
		Description: s.Description,
		Type:        models.ModelTypeBuiltin,
		Status:      models.ModelStatusUnavailable,
		Size:        s.Size,
		Languages:   append([]string(nil), s.Languages...),
	}
	if model.DisplayName == "" {
		model.DisplayName = s.Name
	}
	if s.IsReady() {
		model.Status = models.ModelStatusAvailable
	}
	return model
}

// List returns the catalog
func (m *Manager) List() []*models.Model {
	return m.store.Models()
}

// Get returns one catalog entry
func (m *Manager) Get(name string) (*models.Model, error) {
	model, err := m.store.Model(name)
	if err != nil {
		return nil, fmt.Errorf("model %q is not in the catalog: %w", name, err)
	}
	return model, nil
}

// Selected returns the selected model name
func (m *Manager) Selected() string {
	return m.store.SelectedModel()
}

// Select records name as the selected model and notifies the backend.
// Selecting the same model twice is fine.
func (m *Manager) Select(ctx context.Context, name string) error {
	if err := m.store.SelectModel(name, true); err != nil {
		return fmt.Errorf("model %q is not in the catalog: %w", name, err)
	}
	log.Printf("[INFO] Selected model %s", name)

	if m.gateway != nil {
		if err := m.gateway.SetActiveModel(ctx, name); err != nil {
			log.Printf("[WARN] Failed to notify backend of model selection %s: %v", name, err)
		}
	}
	return nil
}

// Download makes a model available. It returns immediately; progress is
// reported to observer (which may be nil) from the download goroutine.
// A ready or already downloading model is left alone.
func (m *Manager) Download(name string, observer DownloadObserver) error {
	var skip bool
	model, _, err := m.store.UpdateModel(name, func(model *models.Model) bool {
		if model.IsReady() || model.Status == models.ModelStatusDownloading {
			skip = true
			return false
		}
		model.Status = models.ModelStatusDownloading
		model.StatusMessage = ""
		model.Progress = 0
		m.touch(model.Name)
		return true
	})
	if err != nil {
		return fmt.Errorf("model %q is not in the catalog: %w", name, err)
	}
	if skip {
		log.Printf("[DEBUG] Model %s is %s, not downloading", name, model.Status)
		return nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.mu.Lock()
	m.downloads[name] = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.mu.Lock()
			delete(m.downloads, name)
			m.mu.Unlock()
			cancel()
		}()
		m.runDownload(ctx, model, observer)
	}()
	return nil
}

func (m *Manager) runDownload(ctx context.Context, model *models.Model, observer DownloadObserver) {
	log.Printf("[INFO] Downloading model %s", model.Name)

	report := func(progress float64) {
		progress = models.ClampProgress(progress)
		_, changed, _ := m.store.UpdateModel(model.Name, func(current *models.Model) bool {
			if current.Status != models.ModelStatusDownloading {
				return false
			}
			current.Progress = progress
			return true
		})
		if changed && observer != nil {
			observer.DownloadProgressed(model.Name, progress)
		}
	}

	var size int64
	var err error
	if model.DownloadURL != "" && m.cfg.Downloader != nil {
		size, err = m.fetch(ctx, model, report)
	} else {
		err = m.simulate(ctx, report)
	}

	if err != nil {
		log.Printf("[ERROR] Download of model %s failed: %v", model.Name, err)
		m.transition(model.Name, func(current *models.Model) bool {
			if current.Status != models.ModelStatusDownloading {
				return false
			}
			current.Status = models.ModelStatusFailed
			current.StatusMessage = err.Error()
			return true
		})
		return
	}

	m.transition(model.Name, func(current *models.Model) bool {
		if current.Status != models.ModelStatusDownloading {
			return false
		}
		current.Status = models.ModelStatusAvailable
		current.StatusMessage = ""
		current.Progress = 1.0
		if size > 0 {
			current.Size = size
		}
		return true
	})
	log.Printf("[INFO] Model %s is available", model.Name)
}

// simulate walks progress from 0 to 100 percent in ten steps
func (m *Manager) simulate(ctx context.Context, report func(float64)) error {
	for step := 0; step <= 10; step++ {
		report(float64(step) / 10)
		if step == 10 {
			break
		}
		select {
		case <-ctx.Done():
			return apperrors.Wrap(ctx.Err(), apperrors.KindGeneric, "download cancelled")
		case <-time.After(m.cfg.StepDelay):
		}
	}
	return nil
}

func (m *Manager) fetch(ctx context.Context, model *models.Model, report func(float64)) (int64, error) {
	report(0)
	var lastPercent int64 = -1
	total := model.Size

	downloader := m.cfg.Downloader.WithProgress(func(downloaded, length int64) {
		if length > 0 {
			total = length
		}
		if total <= 0 {
			return
		}
		percent := downloaded * 100 / total
		if percent != lastPercent {
			lastPercent = percent
			report(float64(downloaded) / float64(total))
		}
	})

	result, err := downloader.Fetch(ctx, model.DownloadURL, "")
	if err != nil {
		return 0, apperrors.Wrapf(err, apperrors.KindAPI, "downloading model %s", model.Name)
	}
	report(1.0)
	return result.ContentLength, nil
}

// Delete removes a model from the catalog. The selected model cannot be deleted.
func (m *Manager) Delete(name string) error {
	model, err := m.store.Model(name)
	if err != nil {
		return fmt.Errorf("model %q is not in the catalog: %w", name, err)
	}
	if err := m.store.RemoveModel(name); err != nil {
		if errors.Is(err, store.ErrModelSelected) {
			return fmt.Errorf("model %q is currently selected: %w", name, err)
		}
		return fmt.Errorf("model %q is not in the catalog: %w", name, err)
	}

	m.mu.Lock()
	if cancel, ok := m.downloads[name]; ok {
		cancel()
	}
	m.mu.Unlock()

	if m.cfg.Dir != "" && model.DownloadURL != "" {
		if name := download.FileNameFromURL(model.DownloadURL); name != "" {
			if err := download.Remove(filepath.Join(m.cfg.Dir, name)); err != nil {
				log.Printf("[WARN] Failed to remove model file for %s: %v", model.Name, err)
			}
		}
	}
	log.Printf("[INFO] Deleted model %s", name)
	return nil
}

// HandleEvent merges pushed model events
func (m *Manager) HandleEvent(ev events.Event) {
	switch e := ev.(type) {
	case *events.ModelDownloadStarted:
		m.pushed(e.ModelID, func(model *models.Model) bool {
			model.Status = models.ModelStatusDownloading
			model.Progress = 0
			if e.Size > 0 {
				model.Size = e.Size
			}
			return true
		})
	case *events.ModelDownloadProgress:
		m.pushed(e.ModelID, func(model *models.Model) bool {
			if model.Status != models.ModelStatusDownloading {
				return false
			}
			model.Progress = models.ClampProgress(e.Progress)
			return true
		})
	case *events.ModelDownloadCompleted:
		m.pushed(e.ModelID, func(model *models.Model) bool {
			model.Status = models.ModelStatusAvailable
			model.StatusMessage = ""
			model.Progress = 1.0
			return true
		})
	case *events.ModelDownloadFailed:
		m.pushed(e.ModelID, func(model *models.Model) bool {
			model.Status = models.ModelStatusFailed
			model.StatusMessage = e.Error
			return true
		})
	case *events.ModelLoaded:
		m.pushed(e.ModelID, func(model *models.Model) bool {
			model.Status = models.ModelStatusLoaded
			model.StatusMessage = ""
			return true
		})
	case *events.ModelUnloaded:
		m.pushed(e.ModelID, func(model *models.Model) bool {
			model.Status = models.ModelStatusAvailable
			return true
		})
	}
}

func (m *Manager) pushed(name string, fn func(*models.Model) bool) {
	if _, err := m.transition(name, fn); err != nil {
		log.Printf("[DEBUG] Ignoring event for unknown model %s", name)
	}
}

// transition applies fn and stamps the model's revision in the same critical section
func (m *Manager) transition(name string, fn func(*models.Model) bool) (*models.Model, error) {
	model, _, err := m.store.UpdateModel(name, func(model *models.Model) bool {
		if !fn(model) {
			return false
		}
		m.touch(model.Name)
		return true
	})
	return model, err
}

func (m *Manager) now() uint64 {
	m.revMu.Lock()
	defer m.revMu.Unlock()
	return m.clock
}

func (m *Manager) touch(name string) {
	m.revMu.Lock()
	defer m.revMu.Unlock()
	m.clock++
	m.revisions[name] = m.clock
}

func (m *Manager) revision(name string) uint64 {
	m.revMu.Lock()
	defer m.revMu.Unlock()
	return m.revisions[name]
}

// Wait blocks until all running downloads have finished
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close cancels running downloads and waits for them
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}
