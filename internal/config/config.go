package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultBufferSize        = 1000
	DefaultMaxReconnects     = 10
	DefaultInitialDelay      = 1 * time.Second
	DefaultMaxDelay          = 30 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultHealthTimeout     = 3 * time.Second
	DefaultCloseTimeout      = 5 * time.Second
	DefaultChunkMB           = 5
	DefaultRetries           = 3
	DefaultConcurrency       = 4
	DefaultRequestTimeout    = 60 * time.Second
	DefaultArtifactDir       = "test-results"
)

// Config is the top-level reporter configuration.
// Fields map 1:1 to runstream.yaml.
type Config struct {
	// ServerURL is the streaming endpoint (ws:// or wss://).
	ServerURL string `yaml:"server_url"`

	// UploadURL overrides the derived upload endpoint. When empty the
	// endpoint is derived from ServerURL (ws→http, /ws→/upload).
	UploadURL string `yaml:"upload_url"`

	// ArtifactDir is the directory scanned for artifacts after the run.
	ArtifactDir string `yaml:"artifact_dir"`

	// Auth configures how the reporter authenticates to the collector.
	Auth AuthConfig `yaml:"auth"`

	// Stream holds connection-manager settings.
	Stream StreamConfig `yaml:"stream"`

	// Upload holds artifact-upload settings.
	Upload UploadConfig `yaml:"upload"`
}

// AuthConfig specifies where the collector credential comes from.
type AuthConfig struct {
	// TokenEnv is the name of the environment variable that holds the
	// bearer token. The token is attached to the dial URL as a query
	// parameter and to upload requests as an Authorization header.
	TokenEnv string `yaml:"token_env"`
}

// Token returns the credential resolved from the environment.
// Returns empty string if TokenEnv is unset or the variable is not found.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// StreamConfig holds connection-manager settings.
type StreamConfig struct {
	// BufferSize is the maximum number of events held in memory while the
	// collector is unreachable.
	BufferSize int `yaml:"buffer_size"`

	// MaxReconnects caps scheduled reconnection attempts. Once reached the
	// client stays disconnected and events buffer until evicted.
	MaxReconnects int `yaml:"max_reconnects"`

	// InitialDelay seeds the exponential reconnect backoff.
	InitialDelay time.Duration `yaml:"initial_delay"`

	// MaxDelay caps the reconnect backoff.
	MaxDelay time.Duration `yaml:"max_delay"`

	// HeartbeatInterval controls how often the application-level ping
	// message is sent on a live connection.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// HealthTimeout bounds the pre-connect health probe.
	HealthTimeout time.Duration `yaml:"health_timeout"`

	// CloseTimeout bounds the graceful shutdown handshake.
	CloseTimeout time.Duration `yaml:"close_timeout"`
}

// UploadConfig holds artifact-upload settings.
type UploadConfig struct {
	// ChunkMB is the whole-file/chunked decision threshold in megabytes.
	// Files up to ChunkMB are sent in one request.
	ChunkMB int `yaml:"chunk_mb"`

	// Retries is the number of additional attempts after the first failure
	// for each file (whole-file or full chunk sequence).
	Retries int `yaml:"retries"`

	// Concurrency is the number of parallel upload workers.
	Concurrency int `yaml:"concurrency"`

	// RequestTimeout bounds each individual upload request.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// ChunkThreshold returns the decision threshold in bytes.
func (u UploadConfig) ChunkThreshold() int64 {
	return int64(u.ChunkMB) * 1024 * 1024
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config pre-populated with default values. ServerURL
// has no default and must be set before the config validates.
func Defaults() *Config {
	return &Config{
		ArtifactDir: DefaultArtifactDir,
		Stream: StreamConfig{
			BufferSize:        DefaultBufferSize,
			MaxReconnects:     DefaultMaxReconnects,
			InitialDelay:      DefaultInitialDelay,
			MaxDelay:          DefaultMaxDelay,
			HeartbeatInterval: DefaultHeartbeatInterval,
			HealthTimeout:     DefaultHealthTimeout,
			CloseTimeout:      DefaultCloseTimeout,
		},
		Upload: UploadConfig{
			ChunkMB:        DefaultChunkMB,
			Retries:        DefaultRetries,
			Concurrency:    DefaultConcurrency,
			RequestTimeout: DefaultRequestTimeout,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	u, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return fmt.Errorf("server_url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return fmt.Errorf("server_url: scheme must be ws or wss, got %q", u.Scheme)
	}
	if cfg.Stream.BufferSize <= 0 {
		return fmt.Errorf("stream.buffer_size must be positive")
	}
	if cfg.Stream.InitialDelay <= 0 {
		return fmt.Errorf("stream.initial_delay must be positive")
	}
	if cfg.Stream.MaxDelay < cfg.Stream.InitialDelay {
		return fmt.Errorf("stream.max_delay must be >= stream.initial_delay")
	}
	if cfg.Stream.HeartbeatInterval <= 0 {
		return fmt.Errorf("stream.heartbeat_interval must be positive")
	}
	if cfg.Upload.ChunkMB <= 0 {
		return fmt.Errorf("upload.chunk_mb must be positive")
	}
	if cfg.Upload.Retries < 0 {
		return fmt.Errorf("upload.retries must not be negative")
	}
	if cfg.Upload.Concurrency <= 0 {
		return fmt.Errorf("upload.concurrency must be positive")
	}
	return nil
}
