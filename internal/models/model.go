package models

// ModelType is the kind of recognition model
type ModelType string

const (
	ModelTypeBuiltin   ModelType = "builtin"
	ModelTypeCustom    ModelType = "custom"
	ModelTypeFineTuned ModelType = "fine_tuned"
	ModelTypeAPI       ModelType = "api"
	ModelTypeLocal     ModelType = "local"
)

// ModelStatus is the lifecycle state of a model
type ModelStatus string

const (
	ModelStatusUnavailable ModelStatus = "unavailable"
	ModelStatusDownloading ModelStatus = "downloading"
	ModelStatusAvailable   ModelStatus = "available"
	ModelStatusLoading     ModelStatus = "loading"
	ModelStatusLoaded      ModelStatus = "loaded"
	ModelStatusInUse       ModelStatus = "in_use"
	ModelStatusFailed      ModelStatus = "failed"
)

// IsReady returns true when the model can be used immediately
func (s ModelStatus) IsReady() bool {
	return s == ModelStatusAvailable || s == ModelStatusLoaded
}

// IsLocalTransition returns true for states set by in-flight local operations
func (s ModelStatus) IsLocalTransition() bool {
	return s == ModelStatusDownloading || s == ModelStatusLoading || s == ModelStatusInUse
}

// ModelCapabilities lists optional recognition features
type ModelCapabilities struct {
	Translation bool `json:"translation"`
	Diarization bool `json:"diarization"`
}

// ModelParameters holds inference parameters
type ModelParameters struct {
	SampleRate      int `json:"sample_rate"`
	ChunkSize       int `json:"chunk_size"`
	BatchSize       int `json:"batch_size"`
	MaxBatchDelayMs int `json:"max_batch_delay_ms"`
}

// PerformanceSnapshot is the last measured model performance
type PerformanceSnapshot struct {
	RealTimeFactor float64 `json:"real_time_factor"`
	WordErrorRate  float64 `json:"word_error_rate"`
	MemoryMB       int     `json:"memory_mb"`
}

// Model is a recognition model in the catalog
type Model struct {
	Name          string               `json:"name"`
	DisplayName   string               `json:"display_name"`
	Description   string               `json:"description,omitempty"`
	Type          ModelType            `json:"type"`
	Status        ModelStatus          `json:"status"`
	StatusMessage string               `json:"status_message,omitempty"`
	Size          int64                `json:"size"` // bytes, 0 when unknown
	Languages     []string             `json:"languages"`
	Capabilities  ModelCapabilities    `json:"capabilities"`
	Parameters    ModelParameters      `json:"parameters"`
	Performance   *PerformanceSnapshot `json:"performance,omitempty"`
	DownloadURL   string               `json:"download_url,omitempty"`
	Progress      float64              `json:"progress"`
	Selected      bool                 `json:"selected"`
}

// IsReady returns true when the model is available or loaded
func (m *Model) IsReady() bool {
	return m.Status.IsReady()
}

// SupportsLanguage reports whether the model lists the language. An empty list means any.
func (m *Model) SupportsLanguage(lang string) bool {
	if lang == "" || len(m.Languages) == 0 {
		return true
	}
	for _, l := range m.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Clone returns a copy safe to hand out as a snapshot
func (m *Model) Clone() *Model {
	if m == nil {
		return nil
	}
	c := *m
	c.Languages = append([]string(nil), m.Languages...)
	if m.Performance != nil {
		p := *m.Performance
		c.Performance = &p
	}
	return &c
}
