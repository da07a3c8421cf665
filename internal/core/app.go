// Package core wires the store, backend gateway, push channel and services
// into one application instance.
package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/killallgit/sttclient/internal/database"
	"github.com/killallgit/sttclient/internal/models"
	"github.com/killallgit/sttclient/internal/services/backend"
	"github.com/killallgit/sttclient/internal/services/catalog"
	"github.com/killallgit/sttclient/internal/services/cleanup"
	"github.com/killallgit/sttclient/internal/services/events"
	"github.com/killallgit/sttclient/internal/services/files"
	"github.com/killallgit/sttclient/internal/services/history"
	"github.com/killallgit/sttclient/internal/services/tasks"
	"github.com/killallgit/sttclient/internal/store"
	"github.com/killallgit/sttclient/pkg/audio"
	"github.com/killallgit/sttclient/pkg/config"
)

// journalSize is the number of pushed events kept for the local API
const journalSize = 1000

// App holds every long-lived component of a session
type App struct {
	Config *config.Config

	Store   *store.Store
	Backend *backend.Client // nil when no backend is configured
	Router  *events.Router
	Events  *events.Client // nil when push events are disabled
	Journal *events.Journal

	Registry     *files.Registry
	Tracker      *files.Tracker
	Catalog      *catalog.Manager
	Orchestrator *tasks.Orchestrator

	DB      *database.DB // nil when history is disabled
	History history.Repository
	Cleanup *cleanup.Service

	unlisten []func()
}

// New builds an App from configuration without starting background work
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	app := &App{
		Config:  cfg,
		Store:   store.New(),
		Router:  events.NewRouter(),
		Journal: events.NewJournal(journalSize),
	}

	var gateway backend.Gateway
	if cfg.Backend.BaseURL != "" {
		app.Backend = backend.NewClient(backend.Config{
			BaseURL:           cfg.Backend.BaseURL,
			Token:             cfg.Backend.Token,
			UserAgent:         cfg.Backend.UserAgent,
			Timeout:           cfg.Backend.Timeout,
			PollInterval:      cfg.Backend.PollInterval,
			RequestsPerSecond: cfg.Backend.RateLimit,
			BurstSize:         cfg.Backend.Burst,
		})
		gateway = app.Backend
		log.Printf("[INFO] Using backend at %s", app.Backend.BaseURL())
	} else {
		log.Println("[INFO] No backend configured, transcriptions run the simulated pipeline")
	}

	prober := audio.NewProber(cfg.Processing.FFprobePath, cfg.Processing.MetadataTimeout)
	if err := prober.Available(); err != nil {
		log.Printf("[WARN] Audio metadata unavailable: %v", err)
	}

	app.Registry = files.NewRegistry(app.Store, prober)
	app.Tracker = files.NewTracker(app.Store, app.Registry)
	app.Catalog = catalog.NewManager(app.Store, gateway, catalog.Config{
		DefaultModel: cfg.Models.Default,
		Dir:          cfg.Models.Dir,
		StepDelay:    cfg.Models.DownloadStepDelay,
	})
	app.Orchestrator = tasks.NewOrchestrator(app.Store, gateway, app.Registry, app.Tracker, tasks.Config{
		Defaults:        transcriptionDefaults(cfg.Transcription),
		Language:        cfg.Transcription.Language,
		SimulationDelay: cfg.Transcription.SimulationDelay,
	})

	if cfg.Events.Enabled && cfg.Events.URL != "" {
		app.Events = events.NewClient(events.Config{
			HeartbeatInterval:    cfg.Events.HeartbeatInterval,
			InitialDelay:         cfg.Events.ReconnectInitialDelay,
			MaxDelay:             cfg.Events.ReconnectMaxDelay,
			MaxReconnectAttempts: cfg.Events.MaxReconnectAttempts,
		}, &events.WebsocketTransport{URL: cfg.Events.URL, Token: cfg.Backend.Token}, app.Router)
		app.Events.AddObserver(connectionLogger{})
		app.Orchestrator.SetSubscriber(app.Events)
	}

	if cfg.Database.Enabled {
		db, err := database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize history database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, err
		}
		app.DB = db
		app.History = history.NewRepository(db.DB)
		app.Orchestrator.SetRecorder(app.History)
	}

	var pruner cleanup.HistoryPruner
	if app.History != nil {
		pruner = app.History
	}
	app.Cleanup = cleanup.NewService(cleanup.Config{
		ModelsDir:       cfg.Models.Dir,
		HistoryMaxAge:   cfg.Database.Retention,
		CleanupInterval: cfg.Database.CleanupInterval,
	}, pruner)

	app.listen()
	return app, nil
}

// listen registers the services on the broad channels they consume
func (a *App) listen() {
	a.unlisten = append(a.unlisten,
		a.Router.Listen(events.TranscriptionChannel, a.Orchestrator),
		a.Router.Listen(events.FilesChannel, a.Tracker),
		a.Router.Listen(events.ModelsChannel, a.Catalog),
	)
	for _, ch := range []events.Channel{events.TranscriptionChannel, events.FilesChannel, events.ModelsChannel, events.SystemChannel} {
		a.unlisten = append(a.unlisten, a.Router.Listen(ch, a.Journal))
	}
}

// Start initializes the model catalog and starts the push channel and cleanup loop
func (a *App) Start(ctx context.Context) {
	a.Catalog.Initialize(ctx)

	if a.Events != nil {
		for _, ch := range []events.Channel{events.TranscriptionChannel, events.FilesChannel, events.ModelsChannel, events.SystemChannel} {
			if err := a.Events.Subscribe(ch); err != nil {
				log.Printf("[WARN] Failed to subscribe to %s: %v", ch, err)
			}
		}
		a.Events.Start(ctx)
	}

	a.Cleanup.Start(ctx)
}

// Close stops background work, waiting for running tasks to settle
func (a *App) Close() error {
	for _, stop := range a.unlisten {
		stop()
	}
	if a.Events != nil {
		a.Events.Stop()
	}
	a.Cleanup.Stop()
	a.Orchestrator.Close()
	a.Catalog.Close()

	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// WaitTask blocks until the task is finished or ctx is done
func (a *App) WaitTask(ctx context.Context, id string, poll time.Duration) (*models.TranscriptionTask, error) {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		task, err := a.Orchestrator.Get(id)
		if err != nil {
			return nil, err
		}
		if task.IsFinished() {
			return task, nil
		}
		select {
		case <-ctx.Done():
			return task, ctx.Err()
		case <-ticker.C:
		}
	}
}

func transcriptionDefaults(cfg config.TranscriptionConfig) models.TranscriptionConfig {
	return models.TranscriptionConfig{
		IncludeTimestamps: cfg.IncludeTimestamps,
		IncludeSegments:   cfg.IncludeSegments,
		DetectLanguage:    cfg.DetectLanguage,
		Translate:         cfg.Translate,
		Temperature:       cfg.Temperature,
		BestOf:            cfg.BestOf,
	}
}

type connectionLogger struct{}

func (connectionLogger) ConnectionStateChanged(state events.ConnectionState, err error) {
	if err != nil {
		log.Printf("[WARN] Event channel %s: %v", state, err)
		return
	}
	log.Printf("[INFO] Event channel %s", state)
}
