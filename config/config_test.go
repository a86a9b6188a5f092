package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultListenAddress, cfg.ListenAddress)
	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.MaxUploadBytes)
	assert.ElementsMatch(t, DefaultAllowedExtensions, cfg.AllowedExtensions)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadConfigFile_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
listen_address: ":8080"
upload_dir: /tmp/confab-uploads
max_upload_bytes: 1048576
allowed_extensions: [wav, mp3]
idle_eviction: 10m
transcription:
  base_url: http://stt.internal:9000
  timeout: 45s
  max_retries: 5
redis:
  host: cache.internal
  port: 6380
log_level: debug
log_json: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddress)
	assert.Equal(t, "/tmp/confab-uploads", cfg.UploadDir)
	assert.Equal(t, int64(1048576), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"wav", "mp3"}, cfg.AllowedExtensions)
	assert.Equal(t, 10*time.Minute, cfg.IdleEviction)
	assert.Equal(t, "http://stt.internal:9000", cfg.Transcription.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.Transcription.Timeout)
	assert.Equal(t, 5, cfg.Transcription.MaxRetries)
	require.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "cache.internal:6380", cfg.Redis.Addr())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogJSON)

	// Untouched sections keep their defaults.
	assert.Equal(t, DefaultCallTimeout, cfg.Summarization.Timeout)
}

func TestLoadConfigFile_BadDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("idle_eviction: soon\n"), 0o600))

	_, err := LoadConfigFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "idle_eviction")
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("CONFAB_LISTEN_ADDRESS", ":9999")
	t.Setenv("CONFAB_ALLOWED_EXTENSIONS", "wav, OGG")
	t.Setenv("CONFAB_SENTIMENT_URL", "http://sentiment.internal")
	t.Setenv("CONFAB_REDIS_HOST", "redis.internal")
	t.Setenv("CONFAB_REDIS_DB", "3")

	cfg := DefaultConfig()
	loadFromEnv(cfg)

	assert.Equal(t, ":9999", cfg.ListenAddress)
	assert.Equal(t, []string{"wav", "ogg"}, cfg.AllowedExtensions)
	assert.Equal(t, "http://sentiment.internal", cfg.Sentiment.BaseURL)
	require.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestSaveConfig_RoundTrips(t *testing.T) {
	t.Setenv("CONFAB_CONFIG_DIR", t.TempDir())

	cfg := DefaultConfig()
	cfg.ListenAddress = ":7070"
	cfg.IdleEviction = 45 * time.Minute
	cfg.Transcription.BaseURL = "http://stt.internal:9000"
	cfg.Transcription.Timeout = 90 * time.Second
	require.NoError(t, SaveConfig(cfg))

	loaded, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":7070", loaded.ListenAddress)
	assert.Equal(t, 45*time.Minute, loaded.IdleEviction)
	assert.Equal(t, "http://stt.internal:9000", loaded.Transcription.BaseURL)
	assert.Equal(t, 90*time.Second, loaded.Transcription.Timeout)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
	}{
		{"empty listen address", func(c *ServerConfig) { c.ListenAddress = "" }},
		{"zero max upload", func(c *ServerConfig) { c.MaxUploadBytes = 0 }},
		{"no extensions", func(c *ServerConfig) { c.AllowedExtensions = nil }},
		{"negative idle eviction", func(c *ServerConfig) { c.IdleEviction = -time.Second }},
		{"bogus log level", func(c *ServerConfig) { c.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
