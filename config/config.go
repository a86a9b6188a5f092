// Package config provides configuration management for the confab server.
// It supports loading configuration from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultListenAddress  = ":5000"
	DefaultUploadDir      = "uploads"
	DefaultMaxUploadBytes = 16 << 20 // 16 MiB
	DefaultIdleEviction   = 30 * time.Minute
	DefaultEvictInterval  = 1 * time.Minute
	DefaultCallTimeout    = 2 * time.Minute
	DefaultConfigDir      = ".confab"
	DefaultConfigFile     = "config.yaml"
)

// DefaultAllowedExtensions lists the audio/video container types accepted
// for upload, without the leading dot.
var DefaultAllowedExtensions = []string{"mp3", "wav", "ogg", "webm", "mp4", "m4a"}

// CollaboratorConfig holds the endpoint for one external processing service.
// An empty BaseURL means the built-in local implementation is used instead.
type CollaboratorConfig struct {
	// BaseURL is the HTTP base URL of the collaborator service.
	BaseURL string `yaml:"base_url,omitempty"`

	// Timeout bounds a single call to the collaborator.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// MaxRetries is the number of retries on transient failures.
	MaxRetries int `yaml:"max_retries,omitempty"`
}

// RedisConfig holds the optional Redis event mirror settings.
// When Host is empty the mirror is disabled and events are only delivered
// to in-process websocket subscribers.
type RedisConfig struct {
	// Host is the Redis server hostname.
	Host string `yaml:"host,omitempty"`

	// Port is the Redis server port (default: 6379).
	Port int `yaml:"port,omitempty"`

	// Password is the Redis auth password.
	Password string `yaml:"password,omitempty"`

	// DB is the Redis database index.
	DB int `yaml:"db,omitempty"`
}

// MarshalYAML renders the timeout as a duration string so the output
// round-trips through loadFromFile.
func (c CollaboratorConfig) MarshalYAML() (any, error) {
	type out struct {
		BaseURL    string `yaml:"base_url,omitempty"`
		Timeout    string `yaml:"timeout,omitempty"`
		MaxRetries int    `yaml:"max_retries,omitempty"`
	}
	o := out{BaseURL: c.BaseURL, MaxRetries: c.MaxRetries}
	if c.Timeout > 0 {
		o.Timeout = c.Timeout.String()
	}
	return o, nil
}

// Enabled reports whether the Redis event mirror is configured.
func (c *RedisConfig) Enabled() bool {
	return c != nil && c.Host != ""
}

// Addr returns the host:port address for the Redis client.
func (c *RedisConfig) Addr() string {
	port := c.Port
	if port == 0 {
		port = 6379
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

// ServerConfig holds the confab server configuration.
type ServerConfig struct {
	// ListenAddress is the host:port the HTTP/websocket server binds to.
	ListenAddress string `yaml:"listen_address"`

	// UploadDir is the directory for temporary audio storage.
	UploadDir string `yaml:"upload_dir"`

	// MaxUploadBytes caps the size of a single uploaded file.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// AllowedExtensions lists accepted upload container types (no dot).
	AllowedExtensions []string `yaml:"allowed_extensions,omitempty"`

	// IdleEviction is how long a session may sit without activity before
	// it becomes eligible for store eviction.
	IdleEviction time.Duration `yaml:"idle_eviction"`

	// EvictInterval is how often the eviction janitor runs.
	EvictInterval time.Duration `yaml:"evict_interval"`

	// Transcription configures the speech-to-text collaborator.
	Transcription CollaboratorConfig `yaml:"transcription"`

	// Summarization configures the summary collaborator.
	Summarization CollaboratorConfig `yaml:"summarization"`

	// ActionItems configures the action-item extraction collaborator.
	ActionItems CollaboratorConfig `yaml:"action_items"`

	// Sentiment configures the sentiment analysis collaborator.
	Sentiment CollaboratorConfig `yaml:"sentiment"`

	// Redis holds the optional event mirror settings.
	Redis *RedisConfig `yaml:"redis,omitempty"`

	// LogLevel sets the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level,omitempty"`

	// LogJSON enables JSON log output (human-readable when false).
	LogJSON bool `yaml:"log_json,omitempty"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty"`
}

// MarshalYAML renders durations as strings so a saved config file can be
// loaded back without changes.
func (c ServerConfig) MarshalYAML() (any, error) {
	type out struct {
		ListenAddress     string             `yaml:"listen_address"`
		UploadDir         string             `yaml:"upload_dir"`
		MaxUploadBytes    int64              `yaml:"max_upload_bytes"`
		AllowedExtensions []string           `yaml:"allowed_extensions,omitempty"`
		IdleEviction      string             `yaml:"idle_eviction"`
		EvictInterval     string             `yaml:"evict_interval"`
		Transcription     CollaboratorConfig `yaml:"transcription"`
		Summarization     CollaboratorConfig `yaml:"summarization"`
		ActionItems       CollaboratorConfig `yaml:"action_items"`
		Sentiment         CollaboratorConfig `yaml:"sentiment"`
		Redis             *RedisConfig       `yaml:"redis,omitempty"`
		LogLevel          string             `yaml:"log_level,omitempty"`
		LogJSON           bool               `yaml:"log_json,omitempty"`
		Debug             bool               `yaml:"debug,omitempty"`
	}
	return out{
		ListenAddress:     c.ListenAddress,
		UploadDir:         c.UploadDir,
		MaxUploadBytes:    c.MaxUploadBytes,
		AllowedExtensions: c.AllowedExtensions,
		IdleEviction:      c.IdleEviction.String(),
		EvictInterval:     c.EvictInterval.String(),
		Transcription:     c.Transcription,
		Summarization:     c.Summarization,
		ActionItems:       c.ActionItems,
		Sentiment:         c.Sentiment,
		Redis:             c.Redis,
		LogLevel:          c.LogLevel,
		LogJSON:           c.LogJSON,
		Debug:             c.Debug,
	}, nil
}

// DefaultConfig returns a ServerConfig with default values.
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		ListenAddress:     DefaultListenAddress,
		UploadDir:         DefaultUploadDir,
		MaxUploadBytes:    DefaultMaxUploadBytes,
		AllowedExtensions: append([]string(nil), DefaultAllowedExtensions...),
		IdleEviction:      DefaultIdleEviction,
		EvictInterval:     DefaultEvictInterval,
		Transcription:     CollaboratorConfig{Timeout: DefaultCallTimeout, MaxRetries: 2},
		Summarization:     CollaboratorConfig{Timeout: DefaultCallTimeout, MaxRetries: 2},
		ActionItems:       CollaboratorConfig{Timeout: DefaultCallTimeout, MaxRetries: 2},
		Sentiment:         CollaboratorConfig{Timeout: DefaultCallTimeout, MaxRetries: 2},
		LogLevel:          "info",
	}
}

// ConfigDir returns the configuration directory path.
// Uses $CONFAB_CONFIG_DIR if set, otherwise ~/.confab
func ConfigDir() (string, error) {
	if dir := os.Getenv("CONFAB_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the server configuration from file and environment variables.
// Configuration is loaded in this order (later sources override earlier):
// 1. Default values
// 2. Config file (~/.confab/config.yaml or $CONFAB_CONFIG_DIR/config.yaml)
// 3. Environment variables (CONFAB_LISTEN_ADDRESS, CONFAB_UPLOAD_DIR, ...)
func LoadConfig() (*ServerConfig, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadConfigFile loads configuration from an explicit path, overlaying
// environment variables afterwards.
func LoadConfigFile(path string) (*ServerConfig, error) {
	cfg := DefaultConfig()

	if err := loadFromFile(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *ServerConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	// Temp struct so durations can be written as strings in YAML.
	type collaboratorFile struct {
		BaseURL    string `yaml:"base_url"`
		Timeout    string `yaml:"timeout"`
		MaxRetries int    `yaml:"max_retries"`
	}
	type configFile struct {
		ListenAddress     string           `yaml:"listen_address"`
		UploadDir         string           `yaml:"upload_dir"`
		MaxUploadBytes    int64            `yaml:"max_upload_bytes"`
		AllowedExtensions []string         `yaml:"allowed_extensions"`
		IdleEviction      string           `yaml:"idle_eviction"`
		EvictInterval     string           `yaml:"evict_interval"`
		Transcription     collaboratorFile `yaml:"transcription"`
		Summarization     collaboratorFile `yaml:"summarization"`
		ActionItems       collaboratorFile `yaml:"action_items"`
		Sentiment         collaboratorFile `yaml:"sentiment"`
		Redis             *RedisConfig     `yaml:"redis"`
		LogLevel          string           `yaml:"log_level"`
		LogJSON           *bool            `yaml:"log_json"`
		Debug             *bool            `yaml:"debug"`
	}

	var fileCfg configFile
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if fileCfg.ListenAddress != "" {
		cfg.ListenAddress = fileCfg.ListenAddress
	}
	if fileCfg.UploadDir != "" {
		cfg.UploadDir = fileCfg.UploadDir
	}
	if fileCfg.MaxUploadBytes > 0 {
		cfg.MaxUploadBytes = fileCfg.MaxUploadBytes
	}
	if len(fileCfg.AllowedExtensions) > 0 {
		cfg.AllowedExtensions = fileCfg.AllowedExtensions
	}
	if fileCfg.IdleEviction != "" {
		d, err := time.ParseDuration(fileCfg.IdleEviction)
		if err != nil {
			return fmt.Errorf("parsing idle_eviction: %w", err)
		}
		cfg.IdleEviction = d
	}
	if fileCfg.EvictInterval != "" {
		d, err := time.ParseDuration(fileCfg.EvictInterval)
		if err != nil {
			return fmt.Errorf("parsing evict_interval: %w", err)
		}
		cfg.EvictInterval = d
	}

	applyCollaborator := func(dst *CollaboratorConfig, src collaboratorFile, name string) error {
		if src.BaseURL != "" {
			dst.BaseURL = src.BaseURL
		}
		if src.Timeout != "" {
			d, err := time.ParseDuration(src.Timeout)
			if err != nil {
				return fmt.Errorf("parsing %s.timeout: %w", name, err)
			}
			dst.Timeout = d
		}
		if src.MaxRetries > 0 {
			dst.MaxRetries = src.MaxRetries
		}
		return nil
	}
	if err := applyCollaborator(&cfg.Transcription, fileCfg.Transcription, "transcription"); err != nil {
		return err
	}
	if err := applyCollaborator(&cfg.Summarization, fileCfg.Summarization, "summarization"); err != nil {
		return err
	}
	if err := applyCollaborator(&cfg.ActionItems, fileCfg.ActionItems, "action_items"); err != nil {
		return err
	}
	if err := applyCollaborator(&cfg.Sentiment, fileCfg.Sentiment, "sentiment"); err != nil {
		return err
	}

	if fileCfg.Redis != nil {
		cfg.Redis = fileCfg.Redis
	}
	if fileCfg.LogLevel != "" {
		cfg.LogLevel = fileCfg.LogLevel
	}
	if fileCfg.LogJSON != nil {
		cfg.LogJSON = *fileCfg.LogJSON
	}
	if fileCfg.Debug != nil {
		cfg.Debug = *fileCfg.Debug
	}

	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *ServerConfig) {
	if v := os.Getenv("CONFAB_LISTEN_ADDRESS"); v != "" {
		cfg.ListenAddress = v
	}
	if v := os.Getenv("CONFAB_UPLOAD_DIR"); v != "" {
		cfg.UploadDir = v
	}
	if v := os.Getenv("CONFAB_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("CONFAB_ALLOWED_EXTENSIONS"); v != "" {
		parts := strings.Split(v, ",")
		exts := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
				exts = append(exts, p)
			}
		}
		if len(exts) > 0 {
			cfg.AllowedExtensions = exts
		}
	}
	if v := os.Getenv("CONFAB_IDLE_EVICTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.IdleEviction = d
		}
	}
	if v := os.Getenv("CONFAB_TRANSCRIPTION_URL"); v != "" {
		cfg.Transcription.BaseURL = v
	}
	if v := os.Getenv("CONFAB_SUMMARIZATION_URL"); v != "" {
		cfg.Summarization.BaseURL = v
	}
	if v := os.Getenv("CONFAB_ACTION_ITEMS_URL"); v != "" {
		cfg.ActionItems.BaseURL = v
	}
	if v := os.Getenv("CONFAB_SENTIMENT_URL"); v != "" {
		cfg.Sentiment.BaseURL = v
	}
	if v := os.Getenv("CONFAB_REDIS_HOST"); v != "" {
		if cfg.Redis == nil {
			cfg.Redis = &RedisConfig{}
		}
		cfg.Redis.Host = v
	}
	if cfg.Redis != nil {
		if v := os.Getenv("CONFAB_REDIS_PORT"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				cfg.Redis.Port = n
			}
		}
		if v := os.Getenv("CONFAB_REDIS_PASSWORD"); v != "" {
			cfg.Redis.Password = v
		}
		if v := os.Getenv("CONFAB_REDIS_DB"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				cfg.Redis.DB = n
			}
		}
	}
	if v := os.Getenv("CONFAB_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CONFAB_LOG_JSON"); v == "true" || v == "1" {
		cfg.LogJSON = true
	}
	if v := os.Getenv("CONFAB_DEBUG"); v == "true" || v == "1" {
		cfg.Debug = true
	}
}

// Validate checks the configuration for invalid values.
func (c *ServerConfig) Validate() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("listen_address must not be empty")
	}
	if c.UploadDir == "" {
		return fmt.Errorf("upload_dir must not be empty")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if len(c.AllowedExtensions) == 0 {
		return fmt.Errorf("allowed_extensions must not be empty")
	}
	if c.IdleEviction <= 0 {
		return fmt.Errorf("idle_eviction must be positive, got %s", c.IdleEviction)
	}
	if c.EvictInterval <= 0 {
		return fmt.Errorf("evict_interval must be positive, got %s", c.EvictInterval)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	return nil
}

// SaveConfig writes the configuration to the default config path, creating
// the directory if needed.
func SaveConfig(cfg *ServerConfig) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	path := filepath.Join(dir, DefaultConfigFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
