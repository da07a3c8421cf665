// Package store holds the shared table of live entities: transcription tasks,
// session files, in-flight uploads and the model catalog.
//
// Every read returns a clone. Every mutation is a read-modify-write of one
// entry under that table's write lock, so callers never hold a lock across
// network I/O and updates to a single id are applied in arrival order.
package store

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/killallgit/sttclient/internal/models"
)

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrTaskExists     = errors.New("task already exists")
	ErrFileNotFound   = errors.New("file not found")
	ErrFileExists     = errors.New("file already exists")
	ErrUploadNotFound = errors.New("upload not found")
	ErrModelNotFound  = errors.New("model not found")
	ErrModelSelected  = errors.New("model is currently selected")
)

// Stats provides statistics about store usage
type Stats struct {
	Reads       int64 `json:"reads"`
	Writes      int64 `json:"writes"`
	Tasks       int   `json:"tasks"`
	ActiveTasks int   `json:"active_tasks"`
	Files       int   `json:"files"`
	Uploads     int   `json:"uploads"`
	Models      int   `json:"models"`
}

// Store is the single owner of shared mutable state
type Store struct {
	tasks   *table[*models.TranscriptionTask]
	files   *table[*models.AudioFile]
	uploads *table[*models.UploadProgress]
	models  *table[*models.Model]

	aliasMu sync.RWMutex
	aliases map[string]string // remote task id -> local task id

	selectMu sync.RWMutex
	selected string

	reads  int64
	writes int64
}

// New creates an empty store
func New() *Store {
	s := &Store{aliases: make(map[string]string)}
	s.tasks = newTable((*models.TranscriptionTask).Clone, &s.reads, &s.writes)
	s.files = newTable((*models.AudioFile).Clone, &s.reads, &s.writes)
	s.uploads = newTable(cloneUpload, &s.reads, &s.writes)
	s.models = newTable((*models.Model).Clone, &s.reads, &s.writes)
	return s
}

func cloneUpload(p *models.UploadProgress) *models.UploadProgress {
	c := *p
	return &c
}

// Stats returns usage counters and table sizes
func (s *Store) Stats() Stats {
	active := 0
	for _, t := range s.tasks.list() {
		if t.IsActive() {
			active++
		}
	}
	return Stats{
		Reads:       atomic.LoadInt64(&s.reads),
		Writes:      atomic.LoadInt64(&s.writes),
		Tasks:       s.tasks.len(),
		ActiveTasks: active,
		Files:       s.files.len(),
		Uploads:     s.uploads.len(),
		Models:      s.models.len(),
	}
}

// Tasks

// AddTask registers a new task. The store takes ownership of the pointer.
func (s *Store) AddTask(task *models.TranscriptionTask) error {
	if !s.tasks.insert(task.ID, task) {
		return ErrTaskExists
	}
	return nil
}

// ResolveTaskID maps a local or remote id onto the local id
func (s *Store) ResolveTaskID(id string) (string, bool) {
	if s.tasks.has(id) {
		return id, true
	}
	s.aliasMu.RLock()
	local, ok := s.aliases[id]
	s.aliasMu.RUnlock()
	return local, ok
}

// Task returns a snapshot of the task with the given local or remote id
func (s *Store) Task(id string) (*models.TranscriptionTask, error) {
	local, ok := s.ResolveTaskID(id)
	if !ok {
		return nil, ErrTaskNotFound
	}
	task, ok := s.tasks.get(local)
	if !ok {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// Tasks returns snapshots of all tasks, oldest first
func (s *Store) Tasks() []*models.TranscriptionTask {
	tasks := s.tasks.list()
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks
}

// UpdateTask applies fn to the live task atomically and returns the resulting snapshot.
// fn reports whether it changed the task.
func (s *Store) UpdateTask(id string, fn func(*models.TranscriptionTask) bool) (*models.TranscriptionTask, bool, error) {
	local, ok := s.ResolveTaskID(id)
	if !ok {
		return nil, false, ErrTaskNotFound
	}
	task, changed, found := s.tasks.update(local, fn)
	if !found {
		return nil, false, ErrTaskNotFound
	}
	return task, changed, nil
}

// SetRemoteID records the backend-assigned id so either id resolves to the task
func (s *Store) SetRemoteID(id, remoteID string) error {
	_, _, err := s.UpdateTask(id, func(t *models.TranscriptionTask) bool {
		t.RemoteID = remoteID
		return true
	})
	if err != nil {
		return err
	}
	if remoteID != "" && remoteID != id {
		s.aliasMu.Lock()
		s.aliases[remoteID] = id
		s.aliasMu.Unlock()
	}
	return nil
}

// RemoveTask deletes a task and its alias
func (s *Store) RemoveTask(id string) error {
	task, err := s.Task(id)
	if err != nil {
		return err
	}
	if !s.tasks.remove(task.ID) {
		return ErrTaskNotFound
	}
	if task.RemoteID != "" {
		s.aliasMu.Lock()
		delete(s.aliases, task.RemoteID)
		s.aliasMu.Unlock()
	}
	return nil
}

// Files

// AddFile registers a session file
func (s *Store) AddFile(file *models.AudioFile) error {
	if !s.files.insert(file.ID, file) {
		return ErrFileExists
	}
	return nil
}

// File returns a snapshot of a session file
func (s *Store) File(id string) (*models.AudioFile, error) {
	file, ok := s.files.get(id)
	if !ok {
		return nil, ErrFileNotFound
	}
	return file, nil
}

// Files returns snapshots of all session files in the order they were added
func (s *Store) Files() []*models.AudioFile {
	return s.files.list()
}

// UpdateFile applies fn to the live file atomically
func (s *Store) UpdateFile(id string, fn func(*models.AudioFile) bool) (*models.AudioFile, bool, error) {
	file, changed, found := s.files.update(id, fn)
	if !found {
		return nil, false, ErrFileNotFound
	}
	return file, changed, nil
}

// RemoveFile deletes a session file
func (s *Store) RemoveFile(id string) error {
	if !s.files.remove(id) {
		return ErrFileNotFound
	}
	return nil
}

// Uploads

// PutUpload inserts or replaces the tracking entry for a file
func (s *Store) PutUpload(p *models.UploadProgress) {
	s.uploads.put(p.FileID, p)
}

// Upload returns a snapshot of the tracking entry for a file
func (s *Store) Upload(fileID string) (*models.UploadProgress, bool) {
	return s.uploads.get(fileID)
}

// Uploads returns snapshots of all tracked uploads
func (s *Store) Uploads() []*models.UploadProgress {
	return s.uploads.list()
}

// UpdateUpload applies fn to the tracking entry atomically
func (s *Store) UpdateUpload(fileID string, fn func(*models.UploadProgress) bool) (*models.UploadProgress, bool, error) {
	p, changed, found := s.uploads.update(fileID, fn)
	if !found {
		return nil, false, ErrUploadNotFound
	}
	return p, changed, nil
}

// RemoveUpload drops a tracking entry. It reports whether one existed.
func (s *Store) RemoveUpload(fileID string) bool {
	return s.uploads.remove(fileID)
}

// Models

// PutModel inserts or replaces a catalog entry
func (s *Store) PutModel(m *models.Model) {
	s.models.put(m.Name, m)
}

// UpsertModel updates the named entry with fn, or inserts create() when absent.
// It reports whether an insert happened.
func (s *Store) UpsertModel(name string, create func() *models.Model, fn func(*models.Model) bool) (*models.Model, bool) {
	m, inserted := s.models.upsert(name, create, fn)
	return s.markSelected(m), inserted
}

// Model returns a snapshot of a catalog entry
func (s *Store) Model(name string) (*models.Model, error) {
	m, ok := s.models.get(name)
	if !ok {
		return nil, ErrModelNotFound
	}
	return s.markSelected(m), nil
}

// Models returns snapshots of the catalog in insertion order
func (s *Store) Models() []*models.Model {
	list := s.models.list()
	for _, m := range list {
		s.markSelected(m)
	}
	return list
}

// UpdateModel applies fn to the live entry atomically
func (s *Store) UpdateModel(name string, fn func(*models.Model) bool) (*models.Model, bool, error) {
	m, changed, found := s.models.update(name, fn)
	if !found {
		return nil, false, ErrModelNotFound
	}
	return s.markSelected(m), changed, nil
}

// RemoveModel deletes a catalog entry unless it is the selected model
func (s *Store) RemoveModel(name string) error {
	s.selectMu.Lock()
	defer s.selectMu.Unlock()

	if s.selected == name {
		return ErrModelSelected
	}
	if !s.models.remove(name) {
		return ErrModelNotFound
	}
	return nil
}

// SelectModel records name as the selected model. With requireExists the
// name must be in the catalog.
func (s *Store) SelectModel(name string, requireExists bool) error {
	s.selectMu.Lock()
	defer s.selectMu.Unlock()

	if requireExists && !s.models.has(name) {
		return ErrModelNotFound
	}
	s.selected = name
	return nil
}

// SelectedModel returns the selected model name, empty when none
func (s *Store) SelectedModel() string {
	s.selectMu.RLock()
	defer s.selectMu.RUnlock()
	return s.selected
}

func (s *Store) markSelected(m *models.Model) *models.Model {
	if m != nil {
		m.Selected = m.Name == s.SelectedModel()
	}
	return m
}
