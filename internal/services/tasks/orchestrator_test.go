package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/killallgit/sttclient/internal/models"
	"github.com/killallgit/sttclient/internal/services/backend"
	"github.com/killallgit/sttclient/internal/services/events"
	"github.com/killallgit/sttclient/internal/services/files"
	"github.com/killallgit/sttclient/internal/store"
	"github.com/killallgit/sttclient/pkg/export"
	apperrors "github.com/killallgit/sttclient/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockGateway is a mock implementation of backend.Gateway
type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Health(ctx context.Context) (*backend.HealthInfo, error) {
	args := m.Called(ctx)
	return nil, args.Error(1)
}

func (m *mockGateway) ListModels(ctx context.Context) ([]backend.ModelSummary, error) {
	args := m.Called(ctx)
	return nil, args.Error(1)
}

func (m *mockGateway) StartTranscription(ctx context.Context, req *backend.TranscribeRequest) (*backend.StartResponse, error) {
	args := m.Called(ctx, req)
	return nil, args.Error(1)
}

func (m *mockGateway) PollStatus(ctx context.Context, taskID string) (*backend.StatusResponse, error) {
	args := m.Called(ctx, taskID)
	return nil, args.Error(1)
}

func (m *mockGateway) FetchResult(ctx context.Context, taskID string) (*backend.ResultResponse, error) {
	args := m.Called(ctx, taskID)
	return nil, args.Error(1)
}

func (m *mockGateway) SetActiveModel(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *mockGateway) Transcribe(ctx context.Context, req *backend.TranscribeRequest, observer backend.Observer) (*models.TranscriptionResult, error) {
	args := m.Called(ctx, req, observer)
	if r := args.Get(0); r != nil {
		return r.(*models.TranscriptionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type recordingSubscriber struct {
	mu       sync.Mutex
	channels []events.Channel
}

func (r *recordingSubscriber) Subscribe(ch events.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = append(r.channels, ch)
	return nil
}

func (r *recordingSubscriber) snapshot() []events.Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Channel(nil), r.channels...)
}

type countingRecorder struct {
	mu    sync.Mutex
	saved []*models.TranscriptionTask
}

func (c *countingRecorder) Save(_ context.Context, task *models.TranscriptionTask) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saved = append(c.saved, task)
	return nil
}

func (c *countingRecorder) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.saved)
}

type fixture struct {
	store    *store.Store
	registry *files.Registry
	tracker  *files.Tracker
	orch     *Orchestrator
	subs     *recordingSubscriber
	recorder *countingRecorder
}

func newFixture(t *testing.T, gw backend.Gateway, delay time.Duration) *fixture {
	t.Helper()
	st := store.New()
	require.NoError(t, st.SelectModel("whisper-base", false))
	registry := files.NewRegistry(st, nil)
	tracker := files.NewTracker(st, registry)

	f := &fixture{
		store:    st,
		registry: registry,
		tracker:  tracker,
		orch:     NewOrchestrator(st, gw, registry, tracker, Config{SimulationDelay: delay}),
		subs:     &recordingSubscriber{},
		recorder: &countingRecorder{},
	}
	f.orch.SetSubscriber(f.subs)
	f.orch.SetRecorder(f.recorder)
	t.Cleanup(f.orch.Close)
	return f
}

func (f *fixture) addFile(t *testing.T, name string) *models.AudioFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o644))
	file, err := f.registry.Add(context.Background(), path)
	require.NoError(t, err)
	return file
}

func assertInvariants(t *testing.T, task *models.TranscriptionTask) {
	t.Helper()
	switch task.Status {
	case models.TaskStatusPending, models.TaskStatusInProgress:
		assert.Nil(t, task.Result)
		assert.Empty(t, task.ErrorMessage)
	case models.TaskStatusCompleted:
		assert.NotNil(t, task.Result)
		assert.Empty(t, task.ErrorMessage)
	case models.TaskStatusFailed:
		assert.Nil(t, task.Result)
		assert.NotEmpty(t, task.ErrorMessage)
	}
}

func waitRunning(t *testing.T, o *Orchestrator, id string) {
	t.Helper()
	require.Eventually(t, func() bool {
		task, err := o.Get(id)
		return err == nil && task.Status == models.TaskStatusInProgress
	}, time.Second, time.Millisecond)
}

func TestStart_SimulatedPipelineCompletes(t *testing.T) {
	f := newFixture(t, nil, time.Millisecond)
	file := f.addFile(t, "meeting.wav")

	id, err := f.orch.Start(file.ID, "", WithLanguage("de"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	f.orch.Wait()

	task, err := f.orch.Get(id)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, task.Status)
	assert.Equal(t, 1.0, task.Progress)
	assert.Equal(t, "whisper-base", task.Model)
	assert.Equal(t, "de", task.Language)
	require.NotNil(t, task.Result)
	assert.Len(t, task.Result.Segments, 2)
	assert.Equal(t, "de", task.Result.Language)
	assert.NotNil(t, task.StartedAt)
	assert.NotNil(t, task.CompletedAt)
	assertInvariants(t, task)

	got, _ := f.registry.Get(file.ID)
	assert.Equal(t, models.FileStatusCompleted, got.Status)
	assert.Equal(t, id, got.TaskID)

	assert.Contains(t, f.subs.snapshot(), events.TaskChannel(id))
	assert.Equal(t, 1, f.recorder.count())
}

func TestStart_Validation(t *testing.T) {
	f := newFixture(t, nil, time.Millisecond)

	_, err := f.orch.Start("missing", "")
	assert.ErrorIs(t, err, store.ErrFileNotFound)

	file := f.addFile(t, "a.wav")
	_, err = f.registry.SetStatus(file.ID, models.FileStatusUploading, "")
	require.NoError(t, err)
	_, err = f.orch.Start(file.ID, "")
	assert.True(t, apperrors.Is(err, apperrors.KindFile))

	require.NoError(t, f.store.SelectModel("", false))
	other := f.addFile(t, "b.wav")
	_, err = f.orch.Start(other.ID, "")
	assert.True(t, apperrors.Is(err, apperrors.KindConfig))
	assert.ErrorIs(t, err, ErrNoModel)
	assert.Empty(t, f.orch.List())
}

func TestUpdateProgress_Clamps(t *testing.T) {
	f := newFixture(t, nil, time.Hour)
	file := f.addFile(t, "a.wav")
	id, err := f.orch.Start(file.ID, "")
	require.NoError(t, err)
	waitRunning(t, f.orch, id)

	task, err := f.orch.UpdateProgress(id, 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, task.Progress)

	task, err = f.orch.UpdateProgress(id, -0.2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, task.Progress)

	require.NoError(t, f.orch.Cancel(id))
	task, err = f.orch.UpdateProgress(id, 0.7)
	require.NoError(t, err)
	assert.Equal(t, 0.0, task.Progress, "finished tasks are not updated")

	_, err = f.orch.UpdateProgress("nope", 0.5)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestRetry(t *testing.T) {
	f := newFixture(t, nil, time.Hour)
	file := f.addFile(t, "a.wav")
	id, err := f.orch.Start(file.ID, "whisper-small", WithLanguage("fr"))
	require.NoError(t, err)

	_, err = f.orch.Retry(id)
	assert.ErrorIs(t, err, ErrTaskNotFinished)

	require.NoError(t, f.orch.Cancel(id))
	newID, err := f.orch.Retry(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, newID)

	old, _ := f.orch.Get(id)
	assert.Equal(t, models.TaskStatusCancelled, old.Status)

	retried, _ := f.orch.Get(newID)
	assert.Equal(t, old.FilePath, retried.FilePath)
	assert.Equal(t, "whisper-small", retried.Model)
	assert.Equal(t, "fr", retried.Language)
	assert.True(t, retried.IsActive())

	_, err = f.orch.Retry("nope")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	require.NoError(t, f.orch.Cancel(newID))
}

func TestCancel(t *testing.T) {
	f := newFixture(t, nil, time.Hour)
	file := f.addFile(t, "a.wav")
	id, err := f.orch.Start(file.ID, "")
	require.NoError(t, err)

	require.NoError(t, f.orch.Cancel(id))
	task, _ := f.orch.Get(id)
	assert.Equal(t, models.TaskStatusCancelled, task.Status)
	assert.NotNil(t, task.CompletedAt)
	assertInvariants(t, task)

	// cancelling again is a no-op
	require.NoError(t, f.orch.Cancel(id))
	assert.ErrorIs(t, f.orch.Cancel("nope"), ErrTaskNotFound)

	got, _ := f.registry.Get(file.ID)
	assert.True(t, got.IsReady())
	assert.Equal(t, 1, f.recorder.count())
}

func TestConcurrentTasksAreIndependent(t *testing.T) {
	f := newFixture(t, nil, time.Hour)
	a := f.addFile(t, "a.wav")
	b := f.addFile(t, "b.wav")

	var idA, idB string
	var errA, errB error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); idA, errA = f.orch.Start(a.ID, "") }()
	go func() { defer wg.Done(); idB, errB = f.orch.Start(b.ID, "") }()
	wg.Wait()
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.NotEqual(t, idA, idB)

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i <= 100; i++ {
			_, _ = f.orch.UpdateProgress(idA, float64(i)/100)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i <= 100; i++ {
			_, _ = f.orch.UpdateProgress(idB, 0.3)
		}
	}()
	wg.Wait()

	taskA, _ := f.orch.Get(idA)
	taskB, _ := f.orch.Get(idB)
	assert.Equal(t, 1.0, taskA.Progress)
	assert.Equal(t, 0.3, taskB.Progress)
	assert.Equal(t, a.Path, taskA.FilePath)
	assert.Equal(t, b.Path, taskB.FilePath)
	assert.Len(t, f.orch.Active(), 2)
}

func TestStart_BackendSuccess(t *testing.T) {
	gw := &mockGateway{}
	result := &models.TranscriptionResult{
		Text:     "hello world",
		Segments: []models.Segment{{Text: "hello", Start: 0, End: 1}, {Text: "world", Start: 1, End: 2}},
	}
	progress := 0.5
	gw.On("Transcribe", mock.Anything, mock.MatchedBy(func(req *backend.TranscribeRequest) bool {
		return req.Model == "whisper-base" && req.Options.BestOf == 5 && req.Options.Language == "en"
	}), mock.Anything).Run(func(args mock.Arguments) {
		obs := args.Get(2).(backend.Observer)
		obs.Accepted("remote-1", &backend.StartResponse{TaskID: "remote-1", Status: "queued"})
		assert.True(t, obs.StatusChanged(&backend.StatusResponse{TaskID: "remote-1", Status: "processing", Progress: &progress, Stage: "decoding"}))
	}).Return(result, nil)

	f := newFixture(t, gw, time.Millisecond)
	file := f.addFile(t, "a.wav")
	id, err := f.orch.Start(file.ID, "", WithLanguage("en"))
	require.NoError(t, err)
	f.orch.Wait()

	task, err := f.orch.Get("remote-1")
	require.NoError(t, err)
	assert.Equal(t, id, task.ID)
	assert.Equal(t, "remote-1", task.RemoteID)
	assert.Equal(t, models.TaskStatusCompleted, task.Status)
	assert.Equal(t, "decoding", task.Stage)
	assert.Equal(t, "hello world", task.Result.Text)
	assertInvariants(t, task)

	assert.Empty(t, f.tracker.Active())
	got, _ := f.registry.Get(file.ID)
	assert.Equal(t, models.FileStatusCompleted, got.Status)

	subs := f.subs.snapshot()
	assert.Contains(t, subs, events.TaskChannel(id))
	assert.Contains(t, subs, events.TaskChannel("remote-1"))
	gw.AssertExpectations(t)
}

func TestStart_BackendFailureFailsTask(t *testing.T) {
	gw := &mockGateway{}
	gw.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.API("decoder crashed"))

	f := newFixture(t, gw, time.Millisecond)
	file := f.addFile(t, "a.wav")
	id, err := f.orch.Start(file.ID, "")
	require.NoError(t, err, "gateway failures do not surface from Start")
	f.orch.Wait()

	task, _ := f.orch.Get(id)
	assert.Equal(t, models.TaskStatusFailed, task.Status)
	assert.Equal(t, "decoder crashed", task.ErrorMessage)
	assertInvariants(t, task)

	got, _ := f.registry.Get(file.ID)
	assert.Equal(t, models.FileStatusFailed, got.Status)
	assert.Equal(t, "decoder crashed", got.StatusMessage)
	assert.Empty(t, f.tracker.Active())
}

func TestCancel_LateResultIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	gw := &mockGateway{}
	gw.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		close(entered)
		<-release
	}).Return(&models.TranscriptionResult{Text: "too late"}, nil)

	f := newFixture(t, gw, time.Millisecond)
	file := f.addFile(t, "a.wav")
	id, err := f.orch.Start(file.ID, "")
	require.NoError(t, err)

	<-entered
	require.NoError(t, f.orch.Cancel(id))
	close(release)
	f.orch.Wait()

	task, _ := f.orch.Get(id)
	assert.Equal(t, models.TaskStatusCancelled, task.Status)
	assert.Nil(t, task.Result)
	assert.Equal(t, 1, f.recorder.count())
}

func TestRetry_FailedFileStaysFailed(t *testing.T) {
	gw := &mockGateway{}
	gw.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.API("decoder crashed")).Once()
	gw.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(2).(backend.Observer).Accepted("", nil)
	}).Return(&models.TranscriptionResult{Text: "second try"}, nil).Once()

	f := newFixture(t, gw, time.Millisecond)
	file := f.addFile(t, "a.wav")
	id, err := f.orch.Start(file.ID, "")
	require.NoError(t, err)
	f.orch.Wait()

	newID, err := f.orch.Retry(id)
	require.NoError(t, err)
	f.orch.Wait()

	retried, _ := f.orch.Get(newID)
	assert.Equal(t, models.TaskStatusCompleted, retried.Status)
	assert.Equal(t, "second try", retried.Result.Text)
	assertInvariants(t, retried)

	got, _ := f.registry.Get(file.ID)
	assert.Equal(t, models.FileStatusFailed, got.Status)
	assert.Equal(t, "decoder crashed", got.StatusMessage)
	assert.Equal(t, id, got.TaskID)
	assert.Empty(t, f.tracker.Active())
	assert.Equal(t, 2, f.recorder.count())
	gw.AssertExpectations(t)
}

func TestCancel_CompletedFileStaysCompleted(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	gw := &mockGateway{}
	gw.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(2).(backend.Observer).Accepted("", nil)
	}).Return(&models.TranscriptionResult{Text: "first"}, nil).Once()
	gw.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		close(entered)
		<-release
	}).Return(&models.TranscriptionResult{Text: "second"}, nil).Once()

	f := newFixture(t, gw, time.Millisecond)
	file := f.addFile(t, "a.wav")
	id, err := f.orch.Start(file.ID, "")
	require.NoError(t, err)
	f.orch.Wait()

	got, _ := f.registry.Get(file.ID)
	require.Equal(t, models.FileStatusCompleted, got.Status)
	require.True(t, got.IsReady())

	second, err := f.orch.Start(file.ID, "")
	require.NoError(t, err)
	<-entered
	require.NoError(t, f.orch.Cancel(second))
	close(release)
	f.orch.Wait()

	task, _ := f.orch.Get(second)
	assert.Equal(t, models.TaskStatusCancelled, task.Status)

	got, _ = f.registry.Get(file.ID)
	assert.Equal(t, models.FileStatusCompleted, got.Status)
	assert.Empty(t, got.StatusMessage)
	assert.Equal(t, 1.0, got.Progress)
	assert.Equal(t, id, got.TaskID)
	assert.Empty(t, f.tracker.Active())
}

func TestClose_CancelsRunningSimulation(t *testing.T) {
	f := newFixture(t, nil, time.Hour)
	file := f.addFile(t, "a.wav")
	id, err := f.orch.Start(file.ID, "")
	require.NoError(t, err)
	waitRunning(t, f.orch, id)

	f.orch.Close()

	task, err := f.orch.Get(id)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCancelled, task.Status)
	assert.Empty(t, task.ErrorMessage)
	assert.NotNil(t, task.CompletedAt)
	assertInvariants(t, task)
	assert.Equal(t, 0, f.recorder.count())

	got, _ := f.registry.Get(file.ID)
	assert.Equal(t, models.FileStatusPending, got.Status)
	assert.Equal(t, "transcription interrupted", got.StatusMessage)
	assert.True(t, got.IsReady())
}

func TestClose_CancelsBackendCall(t *testing.T) {
	entered := make(chan struct{})
	gw := &mockGateway{}
	gw.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		close(entered)
		<-args.Get(0).(context.Context).Done()
	}).Return(nil, context.Canceled)

	f := newFixture(t, gw, time.Millisecond)
	file := f.addFile(t, "a.wav")
	id, err := f.orch.Start(file.ID, "")
	require.NoError(t, err)
	<-entered

	f.orch.Close()

	task, _ := f.orch.Get(id)
	assert.Equal(t, models.TaskStatusCancelled, task.Status)
	assert.Empty(t, task.ErrorMessage)
	assert.Equal(t, 0, f.recorder.count())

	got, _ := f.registry.Get(file.ID)
	assert.Equal(t, models.FileStatusPending, got.Status)
	assert.Empty(t, f.tracker.Active())
}

func TestPollObserver_StopsOnTerminalTask(t *testing.T) {
	f := newFixture(t, nil, time.Hour)
	file := f.addFile(t, "a.wav")
	id, err := f.orch.Start(file.ID, "")
	require.NoError(t, err)

	obs := &pollObserver{o: f.orch, taskID: id}
	p := 0.4
	assert.True(t, obs.StatusChanged(&backend.StatusResponse{Progress: &p}))

	require.NoError(t, f.orch.Cancel(id))
	assert.False(t, obs.StatusChanged(&backend.StatusResponse{Progress: &p}))
	assert.False(t, (&pollObserver{o: f.orch, taskID: "gone"}).StatusChanged(&backend.StatusResponse{}))
}

func TestExport(t *testing.T) {
	f := newFixture(t, nil, time.Millisecond)
	file := f.addFile(t, "a.wav")
	id, err := f.orch.Start(file.ID, "")
	require.NoError(t, err)
	f.orch.Wait()

	dir := t.TempDir()
	srt := filepath.Join(dir, "out.srt")
	require.NoError(t, f.orch.Export(id, srt, ""))
	data, err := os.ReadFile(srt)
	require.NoError(t, err)
	assert.Contains(t, string(data), "1\n00:00:00,000 --> 00:00:02,000\n")

	txt := filepath.Join(dir, "nested", "out.data")
	require.NoError(t, f.orch.Export(id, txt, export.FormatText))
	data, err = os.ReadFile(txt)
	require.NoError(t, err)
	assert.Contains(t, string(data), "simulated transcription")

	assert.Error(t, f.orch.Export(id, filepath.Join(dir, "out.docx"), ""))
}

func TestExport_RequiresCompletedTask(t *testing.T) {
	f := newFixture(t, nil, time.Hour)
	file := f.addFile(t, "a.wav")
	id, err := f.orch.Start(file.ID, "")
	require.NoError(t, err)

	err = f.orch.Export(id, filepath.Join(t.TempDir(), "out.srt"), "")
	assert.ErrorIs(t, err, ErrNoResult)
	require.NoError(t, f.orch.Cancel(id))
}

func TestHandleEvent(t *testing.T) {
	f := newFixture(t, nil, time.Hour)
	file := f.addFile(t, "a.wav")
	id, err := f.orch.Start(file.ID, "")
	require.NoError(t, err)
	require.NoError(t, f.store.SetRemoteID(id, "remote-9"))

	f.orch.HandleEvent(&events.TaskProgress{TaskID: "remote-9", Progress: 0.42, Stage: "decoding"})
	f.orch.HandleEvent(&events.TaskSegment{TaskID: id, Segment: models.Segment{Text: "partial", End: 1}})

	task, _ := f.orch.Get(id)
	assert.Equal(t, 0.42, task.Progress)
	assert.Equal(t, "decoding", task.Stage)
	require.Len(t, task.LiveSegments, 1)

	// completion without a result is left to the poll loop
	f.orch.HandleEvent(&events.TaskCompleted{TaskID: id})
	task, _ = f.orch.Get(id)
	assert.True(t, task.IsActive())

	f.orch.HandleEvent(&events.TaskFailed{TaskID: "remote-9", Error: "out of memory"})
	task, _ = f.orch.Get(id)
	assert.Equal(t, models.TaskStatusFailed, task.Status)
	assert.Equal(t, "out of memory", task.ErrorMessage)

	// terminal states are immutable
	f.orch.HandleEvent(&events.TaskCompleted{TaskID: id, Result: &models.TranscriptionResult{Text: "x"}})
	f.orch.HandleEvent(&events.TaskProgress{TaskID: id, Progress: 0.9})
	task, _ = f.orch.Get(id)
	assert.Equal(t, models.TaskStatusFailed, task.Status)
	assert.Equal(t, 0.42, task.Progress)
	assertInvariants(t, task)

	f.orch.HandleEvent(&events.TaskProgress{TaskID: "ghost", Progress: 0.1})
}

func TestHandleEvent_RemoteIDNotYetKnown(t *testing.T) {
	f := newFixture(t, nil, time.Hour)
	file := f.addFile(t, "a.wav")
	id, err := f.orch.Start(file.ID, "")
	require.NoError(t, err)
	waitRunning(t, f.orch, id)

	// dropped: nothing maps remote-7 to the task yet
	f.orch.HandleEvent(&events.TaskProgress{TaskID: "remote-7", Progress: 0.6, Stage: "decoding"})
	task, _ := f.orch.Get(id)
	assert.NotEqual(t, 0.6, task.Progress)
	assert.True(t, task.IsActive())
	_, err = f.orch.Get("remote-7")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	require.NoError(t, f.store.SetRemoteID(id, "remote-7"))
	f.orch.HandleEvent(&events.TaskProgress{TaskID: "remote-7", Progress: 0.6, Stage: "decoding"})
	task, _ = f.orch.Get(id)
	assert.Equal(t, 0.6, task.Progress)
	assert.Equal(t, "decoding", task.Stage)
}

func TestRemove(t *testing.T) {
	f := newFixture(t, nil, time.Hour)
	file := f.addFile(t, "a.wav")
	id, err := f.orch.Start(file.ID, "")
	require.NoError(t, err)

	assert.ErrorIs(t, f.orch.Remove(id), ErrTaskActive)
	require.NoError(t, f.orch.Cancel(id))
	require.NoError(t, f.orch.Remove(id))
	_, err = f.orch.Get(id)
	assert.True(t, errors.Is(err, ErrTaskNotFound))
}
