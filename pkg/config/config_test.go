package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/killallgit/sttclient/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T)
	}{
		{
			name: "load from settings.yaml",
			content: `
backend:
  base_url: "http://127.0.0.1:8000"
  token: "secret"
server:
  port: 9000
`,
			check: func(t *testing.T) {
				assert.Equal(t, "http://127.0.0.1:8000", GetString("backend.base_url"))
				assert.Equal(t, "secret", GetString("backend.token"))
				assert.Equal(t, 9000, GetInt("server.port"))
			},
		},
		{
			name: "environment variable override",
			content: `
server:
  port: 9000
`,
			env: map[string]string{"STTCLIENT_SERVER_PORT": "9191"},
			check: func(t *testing.T) {
				assert.Equal(t, 9191, GetInt("server.port"))
			},
		},
		{
			name: "missing config file with defaults",
			check: func(t *testing.T) {
				assert.Equal(t, 8765, GetInt("server.port"))
				assert.Equal(t, 60*time.Second, GetDuration("backend.timeout"))
				assert.Equal(t, "whisper-base", GetString("models.default"))
				assert.True(t, GetBool("transcription.include_segments"))
			},
		},
		{
			name: "invalid backend url",
			content: `
backend:
  base_url: "not a url"
`,
			wantErr: true,
		},
		{
			name: "events enabled with http url",
			content: `
events:
  enabled: true
  url: "http://localhost:8000/ws"
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			defer viper.Reset()

			dir := t.TempDir()
			path := filepath.Join(dir, "settings.yaml")
			if tt.content != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			previous := configPath
			SetConfigFile(path)
			defer func() { configPath = previous }()

			err := Load()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.Is(err, apperrors.KindConfig))
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t)
			}
		})
	}
}

func TestGetConfig(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	previous := configPath
	SetConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	defer func() { configPath = previous }()

	require.NoError(t, Load())

	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Backend.PollInterval)
	assert.Equal(t, 10, cfg.Events.MaxReconnectAttempts)
	assert.Equal(t, 30*time.Second, cfg.Events.ReconnectMaxDelay)
	assert.Equal(t, "./data/history.db", cfg.Database.Path)
	assert.Equal(t, 5, cfg.Transcription.BestOf)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: &Config{
				Backend: BackendConfig{BaseURL: "https://stt.example.com"},
				Server:  ServerConfig{Host: "localhost", Port: 8765},
			},
		},
		{
			name: "offline config without backend",
			config: &Config{
				Server: ServerConfig{Host: "localhost", Port: 8765},
			},
		},
		{
			name: "invalid port",
			config: &Config{
				Server: ServerConfig{Host: "localhost", Port: 0},
			},
			wantErr: true,
		},
		{
			name: "events enabled without url",
			config: &Config{
				Events: EventsConfig{Enabled: true},
				Server: ServerConfig{Port: 8765},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 60*time.Second, tt.config.Backend.Timeout)
		})
	}
}
