package types

import (
	"github.com/killallgit/sttclient/internal/database"
	"github.com/killallgit/sttclient/internal/services/catalog"
	"github.com/killallgit/sttclient/internal/services/events"
	"github.com/killallgit/sttclient/internal/services/files"
	"github.com/killallgit/sttclient/internal/services/history"
	"github.com/killallgit/sttclient/internal/services/tasks"
)

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB           *database.DB
	Registry     *files.Registry
	Tracker      *files.Tracker
	Catalog      *catalog.Manager
	Orchestrator *tasks.Orchestrator
	History      history.Repository // nil when history is disabled
	Events       *events.Client     // nil when push events are disabled
	Journal      *events.Journal
	ExportDir    string
	Simulated    bool // no backend configured
	Build        BuildInfo
}

// BuildInfo describes the running binary
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuiltAt   string `json:"built_at"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}
