package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	apperrors "github.com/killallgit/sttclient/pkg/errors"
	"github.com/spf13/viper"
)

// DefaultConfigPath is read when no explicit config file is given
const DefaultConfigPath = "./config/settings.yaml"

var (
	once       sync.Once
	initErr    error
	configPath = DefaultConfigPath
)

// SetConfigFile overrides the config file location. Must be called before Init.
func SetConfigFile(path string) {
	if strings.TrimSpace(path) != "" {
		configPath = path
	}
}

// Init initializes the configuration system
// This should be called once at application startup
func Init() error {
	once.Do(func() {
		initErr = Load()
	})
	return initErr
}

// Load reads defaults, the config file and environment overrides into viper
func Load() error {
	setDefaults()

	// Set up environment variable reading for overrides
	viper.SetEnvPrefix("STTCLIENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	path := filepath.Clean(configPath)
	viper.SetConfigFile(path)

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env vars apply
		var notFound viper.ConfigFileNotFoundError
		if !os.IsNotExist(err) && !errors.As(err, &notFound) {
			return apperrors.Wrapf(err, apperrors.KindConfig, "reading config file %s", path)
		}
	}

	if err := validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindConfig, "unmarshaling config")
	}
	return &config, nil
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// validate validates the configuration using Viper values
func validate() error {
	if baseURL := viper.GetString("backend.base_url"); baseURL != "" {
		if err := validateURL(baseURL, "http", "https"); err != nil {
			return apperrors.Config("backend.base_url", err.Error())
		}
	} else {
		log.Printf("[WARN] No backend configured, transcriptions will use the simulated pipeline")
	}

	if viper.GetBool("events.enabled") {
		if err := validateURL(viper.GetString("events.url"), "ws", "wss"); err != nil {
			return apperrors.Config("events.url", err.Error())
		}
	}

	if viper.GetDuration("backend.timeout") <= 0 {
		return apperrors.Config("backend.timeout", "must be positive")
	}

	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return apperrors.Config("server.port", fmt.Sprintf("invalid port %d", port))
	}

	// Auto-correct invalid values
	if viper.GetDuration("backend.poll_interval") <= 0 {
		viper.Set("backend.poll_interval", 2*time.Second)
	}
	if viper.GetInt("events.max_reconnect_attempts") <= 0 {
		viper.Set("events.max_reconnect_attempts", 10)
	}
	if viper.GetInt("transcription.best_of") <= 0 {
		viper.Set("transcription.best_of", 5)
	}

	return nil
}

func validateURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, scheme := range schemes {
		if u.Scheme == scheme && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%q must be an absolute %s URL", raw, strings.Join(schemes, "/"))
}

// Validate validates a Config struct (for testing)
func (c *Config) Validate() error {
	if c.Backend.BaseURL != "" {
		if err := validateURL(c.Backend.BaseURL, "http", "https"); err != nil {
			return apperrors.Config("backend.base_url", err.Error())
		}
	}
	if c.Events.Enabled {
		if err := validateURL(c.Events.URL, "ws", "wss"); err != nil {
			return apperrors.Config("events.url", err.Error())
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperrors.Config("server.port", fmt.Sprintf("invalid port %d", c.Server.Port))
	}
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = 60 * time.Second
	}
	if c.Backend.PollInterval <= 0 {
		c.Backend.PollInterval = 2 * time.Second
	}
	if c.Events.MaxReconnectAttempts <= 0 {
		c.Events.MaxReconnectAttempts = 10
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("environment", "development")

	// Backend defaults
	viper.SetDefault("backend.base_url", "")
	viper.SetDefault("backend.token", "")
	viper.SetDefault("backend.timeout", 60*time.Second)
	viper.SetDefault("backend.poll_interval", 2*time.Second)
	viper.SetDefault("backend.rate_limit", 10)
	viper.SetDefault("backend.burst", 5)
	viper.SetDefault("backend.user_agent", "sttclient/1.0")

	// Push event defaults
	viper.SetDefault("events.enabled", false)
	viper.SetDefault("events.url", "ws://localhost:8000/ws")
	viper.SetDefault("events.heartbeat_interval", 30*time.Second)
	viper.SetDefault("events.reconnect_initial_delay", 1*time.Second)
	viper.SetDefault("events.reconnect_max_delay", 30*time.Second)
	viper.SetDefault("events.max_reconnect_attempts", 10)

	// Model defaults
	viper.SetDefault("models.default", "whisper-base")
	viper.SetDefault("models.dir", "")
	viper.SetDefault("models.download_step_delay", 200*time.Millisecond)

	// Transcription defaults
	viper.SetDefault("transcription.language", "")
	viper.SetDefault("transcription.include_timestamps", true)
	viper.SetDefault("transcription.include_segments", true)
	viper.SetDefault("transcription.detect_language", true)
	viper.SetDefault("transcription.translate", false)
	viper.SetDefault("transcription.temperature", 0.0)
	viper.SetDefault("transcription.best_of", 5)
	viper.SetDefault("transcription.simulation_delay", 2*time.Second)

	// Processing defaults
	viper.SetDefault("processing.ffprobe_path", "ffprobe")
	viper.SetDefault("processing.metadata_timeout", 15*time.Second)

	// Database defaults
	viper.SetDefault("database.enabled", true)
	viper.SetDefault("database.path", "./data/history.db")
	viper.SetDefault("database.verbose", false)
	viper.SetDefault("database.retention", time.Duration(0))
	viper.SetDefault("database.cleanup_interval", time.Hour)

	// Local control API defaults
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8765)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)
	viper.SetDefault("server.lock_file", "./data/sttclient.lock")

	// Export defaults
	viper.SetDefault("export.dir", "./exports")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
}
