package types

// AddFileRequest adds a local audio file to the session
type AddFileRequest struct {
	Path string `json:"path" binding:"required"`
}

// StartTaskRequest starts a transcription of a session file
type StartTaskRequest struct {
	FileID   string                `json:"file_id" binding:"required"`
	Model    string                `json:"model,omitempty"`    // defaults to the selected model
	Language string                `json:"language,omitempty"` // defaults to the configured language
	Options  *TranscriptionOptions `json:"options,omitempty"`
}

// TranscriptionOptions overrides the default recognition options
type TranscriptionOptions struct {
	IncludeTimestamps bool    `json:"include_timestamps"`
	IncludeSegments   bool    `json:"include_segments"`
	DetectLanguage    bool    `json:"detect_language"`
	Translate         bool    `json:"translate"`
	Temperature       float64 `json:"temperature"`
	BestOf            int     `json:"best_of"`
}

// ExportRequest writes a completed transcript to disk
type ExportRequest struct {
	Path   string `json:"path,omitempty"`   // defaults to <export dir>/<task id>.<format>
	Format string `json:"format,omitempty"` // derived from path when empty
}
