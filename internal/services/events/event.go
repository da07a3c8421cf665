package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/killallgit/sttclient/internal/models"
)

// EventType is the wire tag of a push event
type EventType string

const (
	TypeTaskStarted   EventType = "task_started"
	TypeTaskProgress  EventType = "task_progress"
	TypeTaskSegment   EventType = "task_segment"
	TypeTaskCompleted EventType = "task_completed"
	TypeTaskFailed    EventType = "task_failed"

	TypeUploadStarted   EventType = "upload_started"
	TypeUploadProgress  EventType = "upload_progress"
	TypeUploadCompleted EventType = "upload_completed"
	TypeUploadFailed    EventType = "upload_failed"

	TypeModelDownloadStarted   EventType = "model_download_started"
	TypeModelDownloadProgress  EventType = "model_download_progress"
	TypeModelDownloadCompleted EventType = "model_download_completed"
	TypeModelDownloadFailed    EventType = "model_download_failed"
	TypeModelLoaded            EventType = "model_loaded"
	TypeModelUnloaded          EventType = "model_unloaded"

	TypeSystemStatus    EventType = "system_status"
	TypeContainerStatus EventType = "container_status"

	TypeConnected    EventType = "connected"
	TypeDisconnected EventType = "disconnected"
	TypeError        EventType = "error"
	TypePing         EventType = "ping"
	TypePong         EventType = "pong"
	TypeSubscribed   EventType = "subscribed"
	TypeUnsubscribed EventType = "unsubscribed"

	// Client to server control frames
	TypeSubscribe   EventType = "subscribe"
	TypeUnsubscribe EventType = "unsubscribe"
)

var (
	// ErrUnknownEvent indicates a frame with an unrecognised type tag
	ErrUnknownEvent = errors.New("unknown event type")

	// ErrMalformedFrame indicates a frame that is not a tagged JSON object
	ErrMalformedFrame = errors.New("malformed event frame")
)

// Event is the closed set of push events. Only types in this package implement it.
type Event interface {
	Type() EventType
	isEvent()
}

// Task events

type TaskStarted struct {
	TaskID   string `json:"task_id"`
	Model    string `json:"model,omitempty"`
	FilePath string `json:"file_path,omitempty"`
}

type TaskProgress struct {
	TaskID     string   `json:"task_id"`
	Progress   float64  `json:"progress"`
	Stage      string   `json:"stage,omitempty"`
	ETASeconds *float64 `json:"eta_seconds,omitempty"`
}

type TaskSegment struct {
	TaskID  string         `json:"task_id"`
	Segment models.Segment `json:"segment"`
}

type TaskCompleted struct {
	TaskID string                      `json:"task_id"`
	Result *models.TranscriptionResult `json:"result,omitempty"`
}

type TaskFailed struct {
	TaskID string `json:"task_id"`
	Error  string `json:"error"`
}

// Upload events

type UploadStarted struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

type UploadProgress struct {
	FileID     string  `json:"file_id"`
	Progress   float64 `json:"progress"`
	BytesSent  int64   `json:"bytes_sent,omitempty"`
	TotalBytes int64   `json:"total_bytes,omitempty"`
}

type UploadCompleted struct {
	FileID string `json:"file_id"`
	TaskID string `json:"task_id,omitempty"`
}

type UploadFailed struct {
	FileID string `json:"file_id"`
	Error  string `json:"error"`
}

// Model events

type ModelDownloadStarted struct {
	ModelID string `json:"model_id"`
	Size    int64  `json:"size,omitempty"`
}

type ModelDownloadProgress struct {
	ModelID         string  `json:"model_id"`
	Progress        float64 `json:"progress"`
	BytesDownloaded int64   `json:"bytes_downloaded,omitempty"`
	TotalBytes      int64   `json:"total_bytes,omitempty"`
}

type ModelDownloadCompleted struct {
	ModelID string `json:"model_id"`
}

type ModelDownloadFailed struct {
	ModelID string `json:"model_id"`
	Error   string `json:"error"`
}

type ModelLoaded struct {
	ModelID string `json:"model_id"`
}

type ModelUnloaded struct {
	ModelID string `json:"model_id"`
}

// System events

type SystemStatus struct {
	Status      string  `json:"status"`
	Message     string  `json:"message,omitempty"`
	ActiveTasks int     `json:"active_tasks,omitempty"`
	QueueLength int     `json:"queue_length,omitempty"`
	CPUPercent  float64 `json:"cpu_percent,omitempty"`
	MemoryMB    int64   `json:"memory_mb,omitempty"`
}

type ContainerStatus struct {
	Container string `json:"container"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

// Connection management

type Connected struct {
	ClientID      string `json:"client_id,omitempty"`
	ServerVersion string `json:"server_version,omitempty"`
}

type Disconnected struct {
	Reason string `json:"reason,omitempty"`
}

type Error struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type Ping struct {
	Timestamp int64 `json:"timestamp,omitempty"`
}

type Pong struct {
	Timestamp int64 `json:"timestamp,omitempty"`
}

type Subscribed struct {
	Channel Channel `json:"channel"`
}

type Unsubscribed struct {
	Channel Channel `json:"channel"`
}

type Subscribe struct {
	Channel Channel `json:"channel"`
}

type Unsubscribe struct {
	Channel Channel `json:"channel"`
}

func (*TaskStarted) Type() EventType            { return TypeTaskStarted }
func (*TaskProgress) Type() EventType           { return TypeTaskProgress }
func (*TaskSegment) Type() EventType            { return TypeTaskSegment }
func (*TaskCompleted) Type() EventType          { return TypeTaskCompleted }
func (*TaskFailed) Type() EventType             { return TypeTaskFailed }
func (*UploadStarted) Type() EventType          { return TypeUploadStarted }
func (*UploadProgress) Type() EventType         { return TypeUploadProgress }
func (*UploadCompleted) Type() EventType        { return TypeUploadCompleted }
func (*UploadFailed) Type() EventType           { return TypeUploadFailed }
func (*ModelDownloadStarted) Type() EventType   { return TypeModelDownloadStarted }
func (*ModelDownloadProgress) Type() EventType  { return TypeModelDownloadProgress }
func (*ModelDownloadCompleted) Type() EventType { return TypeModelDownloadCompleted }
func (*ModelDownloadFailed) Type() EventType    { return TypeModelDownloadFailed }
func (*ModelLoaded) Type() EventType            { return TypeModelLoaded }
func (*ModelUnloaded) Type() EventType          { return TypeModelUnloaded }
func (*SystemStatus) Type() EventType           { return TypeSystemStatus }
func (*ContainerStatus) Type() EventType        { return TypeContainerStatus }
func (*Connected) Type() EventType              { return TypeConnected }
func (*Disconnected) Type() EventType           { return TypeDisconnected }
func (*Error) Type() EventType                  { return TypeError }
func (*Ping) Type() EventType                   { return TypePing }
func (*Pong) Type() EventType                   { return TypePong }
func (*Subscribed) Type() EventType             { return TypeSubscribed }
func (*Unsubscribed) Type() EventType           { return TypeUnsubscribed }
func (*Subscribe) Type() EventType              { return TypeSubscribe }
func (*Unsubscribe) Type() EventType            { return TypeUnsubscribe }

func (*TaskStarted) isEvent()            {}
func (*TaskProgress) isEvent()           {}
func (*TaskSegment) isEvent()            {}
func (*TaskCompleted) isEvent()          {}
func (*TaskFailed) isEvent()             {}
func (*UploadStarted) isEvent()          {}
func (*UploadProgress) isEvent()         {}
func (*UploadCompleted) isEvent()        {}
func (*UploadFailed) isEvent()           {}
func (*ModelDownloadStarted) isEvent()   {}
func (*ModelDownloadProgress) isEvent()  {}
func (*ModelDownloadCompleted) isEvent() {}
func (*ModelDownloadFailed) isEvent()    {}
func (*ModelLoaded) isEvent()            {}
func (*ModelUnloaded) isEvent()          {}
func (*SystemStatus) isEvent()           {}
func (*ContainerStatus) isEvent()        {}
func (*Connected) isEvent()              {}
func (*Disconnected) isEvent()           {}
func (*Error) isEvent()                  {}
func (*Ping) isEvent()                   {}
func (*Pong) isEvent()                   {}
func (*Subscribed) isEvent()             {}
func (*Unsubscribed) isEvent()           {}
func (*Subscribe) isEvent()              {}
func (*Unsubscribe) isEvent()            {}

// newEvent allocates the variant for a type tag
func newEvent(t EventType) (Event, error) {
	switch t {
	case TypeTaskStarted:
		return &TaskStarted{}, nil
	case TypeTaskProgress:
		return &TaskProgress{}, nil
	case TypeTaskSegment:
		return &TaskSegment{}, nil
	case TypeTaskCompleted:
		return &TaskCompleted{}, nil
	case TypeTaskFailed:
		return &TaskFailed{}, nil
	case TypeUploadStarted:
		return &UploadStarted{}, nil
	case TypeUploadProgress:
		return &UploadProgress{}, nil
	case TypeUploadCompleted:
		return &UploadCompleted{}, nil
	case TypeUploadFailed:
		return &UploadFailed{}, nil
	case TypeModelDownloadStarted:
		return &ModelDownloadStarted{}, nil
	case TypeModelDownloadProgress:
		return &ModelDownloadProgress{}, nil
	case TypeModelDownloadCompleted:
		return &ModelDownloadCompleted{}, nil
	case TypeModelDownloadFailed:
		return &ModelDownloadFailed{}, nil
	case TypeModelLoaded:
		return &ModelLoaded{}, nil
	case TypeModelUnloaded:
		return &ModelUnloaded{}, nil
	case TypeSystemStatus:
		return &SystemStatus{}, nil
	case TypeContainerStatus:
		return &ContainerStatus{}, nil
	case TypeConnected:
		return &Connected{}, nil
	case TypeDisconnected:
		return &Disconnected{}, nil
	case TypeError:
		return &Error{}, nil
	case TypePing:
		return &Ping{}, nil
	case TypePong:
		return &Pong{}, nil
	case TypeSubscribed:
		return &Subscribed{}, nil
	case TypeUnsubscribed:
		return &Unsubscribed{}, nil
	case TypeSubscribe:
		return &Subscribe{}, nil
	case TypeUnsubscribe:
		return &Unsubscribe{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, t)
	}
}

type frame struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode parses a wire frame. Both {type, data} and flattened {type, ...fields} are accepted.
func Decode(raw []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}

	ev, err := newEvent(f.Type)
	if err != nil {
		return nil, err
	}

	payload := []byte(f.Data)
	if len(payload) == 0 || string(payload) == "null" {
		payload = raw
	}
	if err := json.Unmarshal(payload, ev); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrMalformedFrame, f.Type, err)
	}
	return ev, nil
}

// Encode renders an event as a {type, data} frame
func Encode(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", ev.Type(), err)
	}
	return json.Marshal(frame{Type: ev.Type(), Data: data})
}

// Routes returns the channels an event is delivered on. Connection management
// events have no routes and are handled by the client itself.
func Routes(ev Event) []Channel {
	switch e := ev.(type) {
	case *TaskStarted:
		return []Channel{TranscriptionChannel, TaskChannel(e.TaskID)}
	case *TaskProgress:
		return []Channel{TranscriptionChannel, TaskChannel(e.TaskID)}
	case *TaskSegment:
		return []Channel{TranscriptionChannel, TaskChannel(e.TaskID)}
	case *TaskCompleted:
		return []Channel{TranscriptionChannel, TaskChannel(e.TaskID)}
	case *TaskFailed:
		return []Channel{TranscriptionChannel, TaskChannel(e.TaskID)}
	case *UploadStarted:
		return []Channel{FilesChannel, FileChannel(e.FileID)}
	case *UploadProgress:
		return []Channel{FilesChannel, FileChannel(e.FileID)}
	case *UploadCompleted:
		return []Channel{FilesChannel, FileChannel(e.FileID)}
	case *UploadFailed:
		return []Channel{FilesChannel, FileChannel(e.FileID)}
	case *ModelDownloadStarted:
		return []Channel{ModelsChannel, ModelChannel(e.ModelID)}
	case *ModelDownloadProgress:
		return []Channel{ModelsChannel, ModelChannel(e.ModelID)}
	case *ModelDownloadCompleted:
		return []Channel{ModelsChannel, ModelChannel(e.ModelID)}
	case *ModelDownloadFailed:
		return []Channel{ModelsChannel, ModelChannel(e.ModelID)}
	case *ModelLoaded:
		return []Channel{ModelsChannel, ModelChannel(e.ModelID)}
	case *ModelUnloaded:
		return []Channel{ModelsChannel, ModelChannel(e.ModelID)}
	case *SystemStatus, *ContainerStatus:
		return []Channel{SystemChannel}
	case *Connected, *Disconnected, *Error, *Ping, *Pong,
		*Subscribed, *Unsubscribed, *Subscribe, *Unsubscribe:
		return nil
	default:
		return nil
	}
}
