// Package tasks creates transcription tasks and drives them to a terminal state.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/killallgit/sttclient/internal/models"
	"github.com/killallgit/sttclient/internal/services/backend"
	"github.com/killallgit/sttclient/internal/services/events"
	"github.com/killallgit/sttclient/internal/services/files"
	"github.com/killallgit/sttclient/internal/store"
	"github.com/killallgit/sttclient/pkg/export"
	apperrors "github.com/killallgit/sttclient/pkg/errors"
)

var (
	ErrTaskNotFound    = store.ErrTaskNotFound
	ErrTaskNotFinished = errors.New("task has not finished")
	ErrTaskActive      = errors.New("task is still running")
	ErrNoResult        = errors.New("task has no result")
	ErrNoModel         = errors.New("no model selected")
)

// Config holds orchestrator defaults
type Config struct {
	Defaults        models.TranscriptionConfig
	Language        string
	SimulationDelay time.Duration // per step of the simulated pipeline
}

// Orchestrator owns the lifecycle of transcription tasks. Task state lives in
// the store; the orchestrator only keeps ids.
type Orchestrator struct {
	store      *store.Store
	gateway    backend.Gateway
	registry   *files.Registry
	tracker    *files.Tracker
	subscriber Subscriber
	recorder   Recorder
	cfg        Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates an orchestrator. A nil gateway runs the simulated pipeline.
func NewOrchestrator(st *store.Store, gateway backend.Gateway, registry *files.Registry, tracker *files.Tracker, cfg Config) *Orchestrator {
	if cfg.SimulationDelay <= 0 {
		cfg.SimulationDelay = 500 * time.Millisecond
	}
	if cfg.Defaults == (models.TranscriptionConfig{}) {
		cfg.Defaults = models.DefaultTranscriptionConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		store:    st,
		gateway:  gateway,
		registry: registry,
		tracker:  tracker,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetSubscriber wires the push channel. Each new task is subscribed to.
func (o *Orchestrator) SetSubscriber(s Subscriber) {
	o.subscriber = s
}

// SetRecorder wires persistence of finished tasks
func (o *Orchestrator) SetRecorder(r Recorder) {
	o.recorder = r
}

// Start validates the file, registers a pending task and runs it in the
// background. It returns the new task id without waiting.
func (o *Orchestrator) Start(fileID, model string, opts ...StartOption) (string, error) {
	file, err := o.registry.Get(fileID)
	if err != nil {
		return "", fmt.Errorf("file %s: %w", fileID, err)
	}
	if !file.IsReady() {
		return "", apperrors.File(fmt.Sprintf("file %s is not ready (status %s)", file.Name, file.Status)).
			WithDetail("file_id", fileID)
	}

	cfg := startConfig{Language: o.cfg.Language}
	for _, opt := range opts {
		opt(&cfg)
	}
	return o.launch(file.ID, file.Path, model, cfg)
}

// Retry starts a new task with the same file, model and language as a
// finished one. The old task is left as it is.
func (o *Orchestrator) Retry(id string) (string, error) {
	task, err := o.store.Task(id)
	if err != nil {
		return "", err
	}
	if !task.IsFinished() {
		return "", fmt.Errorf("retry %s (%s): %w", task.ID, task.Status, ErrTaskNotFinished)
	}
	if file, err := o.registry.Get(task.FileID); err == nil && !file.IsReady() {
		return "", apperrors.File(fmt.Sprintf("file %s is busy (status %s)", file.Name, file.Status))
	}

	cfg := task.Config
	newID, err := o.launch(task.FileID, task.FilePath, task.Model, startConfig{Language: task.Language, Config: &cfg})
	if err != nil {
		return "", err
	}
	log.Printf("[INFO] Retrying task %s as %s", task.ID, newID)
	return newID, nil
}

func (o *Orchestrator) launch(fileID, path, model string, cfg startConfig) (string, error) {
	if model == "" {
		model = o.store.SelectedModel()
	}
	if model == "" {
		return "", apperrors.Wrap(ErrNoModel, apperrors.KindConfig, "no model given and none selected")
	}
	options := o.cfg.Defaults
	if cfg.Config != nil {
		options = *cfg.Config
	}

	task := models.NewTask(uuid.NewString(), fileID, path, model, cfg.Language, options)
	if err := o.store.AddTask(task); err != nil {
		return "", err
	}
	id := task.ID
	if fileID != "" {
		if err := o.registry.LinkTask(fileID, id); err != nil {
			log.Printf("[DEBUG] Task %s started for unregistered file %s", id, fileID)
		}
	}
	o.subscribe(events.TaskChannel(id))
	log.Printf("[INFO] Created task %s for %s with model %s", id, path, model)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(id)
	}()
	return id, nil
}

func (o *Orchestrator) subscribe(ch events.Channel) {
	if o.subscriber == nil {
		return
	}
	if err := o.subscriber.Subscribe(ch); err != nil {
		log.Printf("[WARN] Failed to subscribe to %s: %v", ch, err)
	}
}

func (o *Orchestrator) run(id string) {
	task, changed, err := o.store.UpdateTask(id, (*models.TranscriptionTask).Start)
	if err != nil || !changed {
		log.Printf("[DEBUG] Task %s not started (already finished or removed)", id)
		return
	}

	var result *models.TranscriptionResult
	if o.gateway == nil {
		result, err = o.simulate(task)
	} else {
		result, err = o.transcribe(task)
	}

	switch {
	case err == nil:
		o.complete(id, result)
	case errors.Is(err, backend.ErrStopped), errors.Is(err, errCancelled):
		log.Printf("[DEBUG] Task %s stopped after reaching a terminal state", id)
	case o.ctx.Err() != nil:
		o.interrupt(id)
	default:
		o.fail(id, failureMessage(err))
	}
}

var errCancelled = errors.New("task cancelled")

func (o *Orchestrator) transcribe(task *models.TranscriptionTask) (*models.TranscriptionResult, error) {
	obs := &pollObserver{o: o, taskID: task.ID, fileID: task.FileID}
	if o.tracker != nil && task.FileID != "" {
		if _, err := o.tracker.StartUpload(task.FileID, nil); err == nil {
			obs.uploading = true
			_ = o.tracker.Checkpoint(task.FileID, models.UploadStageSending)
		}
	}

	req := &backend.TranscribeRequest{
		FilePath: task.FilePath,
		Model:    task.Model,
		Options:  backend.OptionsFrom(task.Config, task.Language),
	}
	result, err := o.gateway.Transcribe(o.ctx, req, obs)
	if err != nil && obs.uploading && o.uploadTracked(task.FileID) {
		if o.ctx.Err() != nil {
			o.tracker.CancelUpload(task.FileID)
		} else {
			o.tracker.Fail(task.FileID, failureMessage(err))
		}
	}
	return result, err
}

// uploadTracked is false once the upload was cancelled or finished
func (o *Orchestrator) uploadTracked(fileID string) bool {
	_, ok := o.store.Upload(fileID)
	return ok
}

// pollObserver merges poll results into the store
type pollObserver struct {
	o         *Orchestrator
	taskID    string
	fileID    string
	uploading bool
}

func (p *pollObserver) Accepted(remoteID string, _ *backend.StartResponse) {
	if p.uploading && p.o.uploadTracked(p.fileID) {
		_ = p.o.tracker.Checkpoint(p.fileID, models.UploadStageAcknowledged)
		p.o.tracker.Complete(p.fileID)
	}
	p.uploading = false
	if remoteID == "" || remoteID == p.taskID {
		return
	}
	if err := p.o.store.SetRemoteID(p.taskID, remoteID); err != nil {
		log.Printf("[WARN] Failed to record remote id for task %s: %v", p.taskID, err)
		return
	}
	p.o.subscribe(events.TaskChannel(remoteID))
}

func (p *pollObserver) StatusChanged(status *backend.StatusResponse) bool {
	task, _, err := p.o.store.UpdateTask(p.taskID, func(t *models.TranscriptionTask) bool {
		if t.IsFinished() {
			return false
		}
		changed := false
		if status.Progress != nil {
			changed = t.SetProgress(*status.Progress)
		}
		if status.Stage != "" && status.Stage != t.Stage {
			t.Stage = status.Stage
			changed = true
		}
		return changed
	})
	return err == nil && !task.IsFinished()
}

// simulate stands in for a backend: it walks through fixed stages and
// produces a canned result
func (o *Orchestrator) simulate(task *models.TranscriptionTask) (*models.TranscriptionResult, error) {
	stages := []struct {
		name     string
		progress float64
	}{
		{"loading_model", 0.25},
		{"transcribing", 0.5},
		{"aligning", 0.75},
		{"finalizing", 0.95},
	}

	for _, stage := range stages {
		select {
		case <-o.ctx.Done():
			return nil, apperrors.Wrap(o.ctx.Err(), apperrors.KindGeneric, "shutting down")
		case <-time.After(o.cfg.SimulationDelay):
		}
		_, changed, err := o.store.UpdateTask(task.ID, func(t *models.TranscriptionTask) bool {
			if !t.SetProgress(stage.progress) {
				return false
			}
			t.Stage = stage.name
			return true
		})
		if err != nil || !changed {
			return nil, errCancelled
		}
	}

	duration := 4.0
	if file, err := o.registry.Get(task.FileID); err == nil && file.Metadata != nil && file.Metadata.Duration > 0 {
		duration = file.Metadata.Duration
	}
	language := task.Language
	if language == "" {
		language = "en"
	}
	segments := []models.Segment{
		{Text: "This is a simulated transcription.", Start: 0, End: duration / 2, Confidence: 0.9},
		{Text: fmt.Sprintf("Model %s was not contacted.", task.Model), Start: duration / 2, End: duration, Confidence: 0.9},
	}
	result := &models.TranscriptionResult{
		Segments:   segments,
		Language:   language,
		Confidence: 0.9,
		Duration:   duration,
	}
	result.Text = result.JoinedText()
	return result, nil
}

func (o *Orchestrator) complete(id string, result *models.TranscriptionResult) {
	task, changed, err := o.store.UpdateTask(id, func(t *models.TranscriptionTask) bool {
		return t.Complete(result)
	})
	if err != nil {
		log.Printf("[WARN] Completed task %s no longer exists", id)
		return
	}
	if !changed {
		log.Printf("[DEBUG] Discarding late result for task %s (%s)", id, task.Status)
		return
	}
	log.Printf("[INFO] Task %s completed", id)
	o.finished(task)
}

func (o *Orchestrator) fail(id, message string) {
	task, changed, err := o.store.UpdateTask(id, func(t *models.TranscriptionTask) bool {
		return t.Fail(message)
	})
	if err != nil {
		log.Printf("[WARN] Failed task %s no longer exists", id)
		return
	}
	if !changed {
		log.Printf("[DEBUG] Discarding late failure for task %s (%s)", id, task.Status)
		return
	}
	log.Printf("[ERROR] Task %s failed: %s", id, message)
	o.finished(task)
}

// interrupt cancels a task cut short by Close. The task did not run to an
// outcome, so the file is released and nothing goes to history.
func (o *Orchestrator) interrupt(id string) {
	task, changed, err := o.store.UpdateTask(id, (*models.TranscriptionTask).Cancel)
	if err != nil || !changed {
		return
	}
	log.Printf("[WARN] Task %s interrupted by shutdown", id)
	if task.FileID != "" {
		if _, err := o.registry.SetStatus(task.FileID, models.FileStatusPending, "transcription interrupted"); err != nil {
			log.Printf("[DEBUG] Could not update file %s for task %s: %v", task.FileID, id, err)
		}
	}
}

// finished mirrors the outcome onto the file and persists the task
func (o *Orchestrator) finished(task *models.TranscriptionTask) {
	if task.FileID != "" {
		var err error
		switch task.Status {
		case models.TaskStatusCompleted:
			_, err = o.registry.SetStatus(task.FileID, models.FileStatusCompleted, "")
		case models.TaskStatusFailed:
			_, err = o.registry.SetStatus(task.FileID, models.FileStatusFailed, task.ErrorMessage)
		case models.TaskStatusCancelled:
			_, err = o.registry.SetStatus(task.FileID, models.FileStatusPending, "transcription cancelled")
		}
		if err != nil {
			log.Printf("[DEBUG] Could not update file %s for task %s: %v", task.FileID, task.ID, err)
		}
	}

	if o.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.recorder.Save(ctx, task); err != nil {
			log.Printf("[WARN] Failed to record task %s in history: %v", task.ID, err)
		}
	}
}

// Cancel marks a task cancelled. The in-flight backend call is not
// interrupted; its response is discarded. Cancelling a finished task is a no-op.
func (o *Orchestrator) Cancel(id string) error {
	task, changed, err := o.store.UpdateTask(id, (*models.TranscriptionTask).Cancel)
	if err != nil {
		return err
	}
	if !changed {
		log.Printf("[DEBUG] Task %s already %s, nothing to cancel", task.ID, task.Status)
		return nil
	}
	if o.tracker != nil && task.FileID != "" {
		o.tracker.CancelUpload(task.FileID)
	}
	log.Printf("[INFO] Task %s cancelled", task.ID)
	o.finished(task)
	return nil
}

// UpdateProgress records a clamped progress value. Finished tasks are unchanged.
func (o *Orchestrator) UpdateProgress(id string, progress float64) (*models.TranscriptionTask, error) {
	task, _, err := o.store.UpdateTask(id, func(t *models.TranscriptionTask) bool {
		return t.SetProgress(progress)
	})
	return task, err
}

// Get returns a snapshot of a task by local or remote id
func (o *Orchestrator) Get(id string) (*models.TranscriptionTask, error) {
	return o.store.Task(id)
}

// List returns all tasks, oldest first
func (o *Orchestrator) List() []*models.TranscriptionTask {
	return o.store.Tasks()
}

// Active returns the pending and running tasks
func (o *Orchestrator) Active() []*models.TranscriptionTask {
	var active []*models.TranscriptionTask
	for _, t := range o.store.Tasks() {
		if t.IsActive() {
			active = append(active, t)
		}
	}
	return active
}

// Remove drops a finished task from the session
func (o *Orchestrator) Remove(id string) error {
	task, err := o.store.Task(id)
	if err != nil {
		return err
	}
	if task.IsActive() {
		return fmt.Errorf("remove %s: %w", task.ID, ErrTaskActive)
	}
	return o.store.RemoveTask(task.ID)
}

// Export writes the result of a completed task. An empty format is derived
// from the path extension.
func (o *Orchestrator) Export(id, path string, format export.Format) error {
	task, err := o.store.Task(id)
	if err != nil {
		return err
	}
	if task.Status != models.TaskStatusCompleted || task.Result == nil {
		return apperrors.Wrap(ErrNoResult, apperrors.KindFile, fmt.Sprintf("task %s is %s", task.ID, task.Status))
	}
	if format == "" {
		if format, err = export.FormatFromPath(path); err != nil {
			return err
		}
	}
	if err := export.WriteFile(path, task.Result, format); err != nil {
		return err
	}
	log.Printf("[INFO] Exported task %s as %s to %s", task.ID, format, path)
	return nil
}

// HandleEvent merges pushed task events. Events may carry the remote id.
func (o *Orchestrator) HandleEvent(ev events.Event) {
	switch e := ev.(type) {
	case *events.TaskStarted:
		o.pushed(e.TaskID, (*models.TranscriptionTask).Start)
	case *events.TaskProgress:
		o.pushed(e.TaskID, func(t *models.TranscriptionTask) bool {
			if !t.SetProgress(e.Progress) {
				return false
			}
			if e.Stage != "" {
				t.Stage = e.Stage
			}
			return true
		})
	case *events.TaskSegment:
		o.pushed(e.TaskID, func(t *models.TranscriptionTask) bool {
			if t.IsFinished() {
				return false
			}
			t.LiveSegments = append(t.LiveSegments, e.Segment)
			return true
		})
	case *events.TaskCompleted:
		// without a result the poll loop fetches it
		if e.Result == nil {
			return
		}
		if id, ok := o.store.ResolveTaskID(e.TaskID); ok {
			o.complete(id, e.Result.Clone())
		}
	case *events.TaskFailed:
		if id, ok := o.store.ResolveTaskID(e.TaskID); ok {
			o.fail(id, e.Error)
		}
	}
}

func (o *Orchestrator) pushed(id string, fn func(*models.TranscriptionTask) bool) {
	// Events keyed by a remote id are only routable once Accepted has
	// recorded it. Earlier ones are dropped; the poll loop reports the
	// same state on its next status call.
	if _, _, err := o.store.UpdateTask(id, fn); err != nil {
		log.Printf("[DEBUG] Ignoring event for unknown task %s", id)
	}
}

// Wait blocks until every running task has returned
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close stops the running pipelines and waits for them. Tasks still running
// end up cancelled and are not recorded.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

// failureMessage renders err for display, keeping the cause description
func failureMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Cause != nil && appErr.Source != "" {
			return appErr.Message + ": " + appErr.Source
		}
		return appErr.Message
	}
	return err.Error()
}
