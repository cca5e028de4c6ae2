package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// loadFromString writes yaml to a temp file and loads it.
func loadFromString(t *testing.T, yaml string) *Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runstream.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cfg
}

func TestLoad_Valid(t *testing.T) {
	yaml := `
server_url: "wss://collector.example.com/ws"
artifact_dir: "artifacts"
auth:
  token_env: RUNSTREAM_TOKEN
stream:
  buffer_size: 500
  max_reconnects: 5
  heartbeat_interval: 10s
upload:
  chunk_mb: 8
  concurrency: 2
`
	cfg := loadFromString(t, yaml)

	if cfg.ServerURL != "wss://collector.example.com/ws" {
		t.Errorf("server_url: got %q", cfg.ServerURL)
	}
	if cfg.ArtifactDir != "artifacts" {
		t.Errorf("artifact_dir: got %q", cfg.ArtifactDir)
	}
	if cfg.Stream.BufferSize != 500 {
		t.Errorf("buffer_size: got %d", cfg.Stream.BufferSize)
	}
	if cfg.Stream.MaxReconnects != 5 {
		t.Errorf("max_reconnects: got %d", cfg.Stream.MaxReconnects)
	}
	if cfg.Stream.HeartbeatInterval != 10*time.Second {
		t.Errorf("heartbeat_interval: got %v", cfg.Stream.HeartbeatInterval)
	}
	if cfg.Upload.ChunkMB != 8 {
		t.Errorf("chunk_mb: got %d", cfg.Upload.ChunkMB)
	}
	if cfg.Upload.Concurrency != 2 {
		t.Errorf("concurrency: got %d", cfg.Upload.Concurrency)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadFromString(t, `server_url: "ws://localhost:5555"`)

	if cfg.Stream.BufferSize != DefaultBufferSize {
		t.Errorf("default buffer_size: got %d, want %d", cfg.Stream.BufferSize, DefaultBufferSize)
	}
	if cfg.Stream.MaxReconnects != DefaultMaxReconnects {
		t.Errorf("default max_reconnects: got %d, want %d", cfg.Stream.MaxReconnects, DefaultMaxReconnects)
	}
	if cfg.Stream.InitialDelay != DefaultInitialDelay {
		t.Errorf("default initial_delay: got %v, want %v", cfg.Stream.InitialDelay, DefaultInitialDelay)
	}
	if cfg.Stream.MaxDelay != DefaultMaxDelay {
		t.Errorf("default max_delay: got %v, want %v", cfg.Stream.MaxDelay, DefaultMaxDelay)
	}
	if cfg.Upload.ChunkMB != DefaultChunkMB {
		t.Errorf("default chunk_mb: got %d, want %d", cfg.Upload.ChunkMB, DefaultChunkMB)
	}
	if cfg.Upload.Retries != DefaultRetries {
		t.Errorf("default retries: got %d, want %d", cfg.Upload.Retries, DefaultRetries)
	}
	if cfg.ArtifactDir != DefaultArtifactDir {
		t.Errorf("default artifact_dir: got %q", cfg.ArtifactDir)
	}
}

func TestLoad_ExplicitZeroRetries(t *testing.T) {
	cfg := loadFromString(t, `
server_url: "ws://localhost:5555"
upload:
  retries: 0
`)
	if cfg.Upload.Retries != 0 {
		t.Errorf("retries: got %d, want 0", cfg.Upload.Retries)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing server_url", `artifact_dir: "x"`},
		{"bad scheme", `server_url: "http://localhost:5555"`},
		{"negative buffer", "server_url: \"ws://x\"\nstream:\n  buffer_size: -1"},
		{"zero chunk", "server_url: \"ws://x\"\nupload:\n  chunk_mb: 0"},
		{"negative retries", "server_url: \"ws://x\"\nupload:\n  retries: -2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "runstream.yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0o644); err != nil {
				t.Fatalf("write temp config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestToken_ResolvesFromEnv(t *testing.T) {
	t.Setenv("RUNSTREAM_TEST_TOKEN", "tok-123")

	a := AuthConfig{TokenEnv: "RUNSTREAM_TEST_TOKEN"}
	if got := a.Token(); got != "tok-123" {
		t.Errorf("Token = %q, want tok-123", got)
	}

	if got := (AuthConfig{}).Token(); got != "" {
		t.Errorf("Token with no env = %q, want empty", got)
	}
}

func TestChunkThreshold(t *testing.T) {
	u := UploadConfig{ChunkMB: 5}
	if got := u.ChunkThreshold(); got != 5*1024*1024 {
		t.Errorf("ChunkThreshold = %d, want %d", got, 5*1024*1024)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runstream.yaml")
	if err := os.WriteFile(path, []byte(`server_url: "ws://localhost:1111"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	go func() {
		_ = Watch(ctx, path, func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// Give the watcher a moment to register, then rewrite the file.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`server_url: "ws://localhost:2222"`), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.ServerURL != "ws://localhost:2222" {
			t.Errorf("reloaded server_url = %q", cfg.ServerURL)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the rewrite")
	}
}
