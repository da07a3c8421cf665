package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Environment   string              `mapstructure:"environment"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Events        EventsConfig        `mapstructure:"events"`
	Models        ModelsConfig        `mapstructure:"models"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Processing    ProcessingConfig    `mapstructure:"processing"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Server        ServerConfig        `mapstructure:"server"`
	Export        ExportConfig        `mapstructure:"export"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// BackendConfig contains speech-to-text backend settings. An empty BaseURL
// means no backend is configured and the simulated pipeline is used.
type BackendConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Token        string        `mapstructure:"token"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	RateLimit    int           `mapstructure:"rate_limit"`
	Burst        int           `mapstructure:"burst"`
	UserAgent    string        `mapstructure:"user_agent"`
}

// EventsConfig contains push-event channel settings
type EventsConfig struct {
	Enabled               bool          `mapstructure:"enabled"`
	URL                   string        `mapstructure:"url"`
	HeartbeatInterval     time.Duration `mapstructure:"heartbeat_interval"`
	ReconnectInitialDelay time.Duration `mapstructure:"reconnect_initial_delay"`
	ReconnectMaxDelay     time.Duration `mapstructure:"reconnect_max_delay"`
	MaxReconnectAttempts  int           `mapstructure:"max_reconnect_attempts"`
}

// ModelsConfig contains model catalog settings
type ModelsConfig struct {
	Default           string        `mapstructure:"default"`
	Dir               string        `mapstructure:"dir"`
	DownloadStepDelay time.Duration `mapstructure:"download_step_delay"`
}

// TranscriptionConfig contains default transcription options
type TranscriptionConfig struct {
	Language          string        `mapstructure:"language"`
	IncludeTimestamps bool          `mapstructure:"include_timestamps"`
	IncludeSegments   bool          `mapstructure:"include_segments"`
	DetectLanguage    bool          `mapstructure:"detect_language"`
	Translate         bool          `mapstructure:"translate"`
	Temperature       float64       `mapstructure:"temperature"`
	BestOf            int           `mapstructure:"best_of"`
	SimulationDelay   time.Duration `mapstructure:"simulation_delay"`
}

// ProcessingConfig contains local audio inspection settings
type ProcessingConfig struct {
	FFprobePath     string        `mapstructure:"ffprobe_path"`
	MetadataTimeout time.Duration `mapstructure:"metadata_timeout"`
}

// DatabaseConfig contains task history database settings
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Verbose bool   `mapstructure:"verbose"`

	// Retention removes finished tasks older than this; 0 keeps all history
	Retention       time.Duration `mapstructure:"retention"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// ServerConfig contains local control API settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	LockFile        string        `mapstructure:"lock_file"`
}

// ExportConfig contains transcript export settings
type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}
