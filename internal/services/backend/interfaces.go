package backend

import (
	"context"

	"github.com/killallgit/sttclient/internal/models"
)

// Gateway defines the typed operations against the speech-to-text backend
type Gateway interface {
	Health(ctx context.Context) (*HealthInfo, error)
	ListModels(ctx context.Context) ([]ModelSummary, error)
	StartTranscription(ctx context.Context, req *TranscribeRequest) (*StartResponse, error)
	PollStatus(ctx context.Context, taskID string) (*StatusResponse, error)
	FetchResult(ctx context.Context, taskID string) (*ResultResponse, error)
	SetActiveModel(ctx context.Context, name string) error

	// Transcribe uploads the file, polls until the backend reports a terminal
	// status and fetches the result
	Transcribe(ctx context.Context, req *TranscribeRequest, observer Observer) (*models.TranscriptionResult, error)
}

// Observer receives updates while Transcribe is running
type Observer interface {
	// Accepted is called once the backend assigned a task id
	Accepted(remoteID string, resp *StartResponse)
	// StatusChanged is called after every poll. Returning false stops polling.
	StatusChanged(status *StatusResponse) bool
}
