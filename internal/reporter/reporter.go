package reporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/runstream/runstream/internal/artifact"
	"github.com/runstream/runstream/internal/config"
	"github.com/runstream/runstream/internal/endpoint"
	"github.com/runstream/runstream/internal/event"
	"github.com/runstream/runstream/internal/stream"
)

// Reporter streams run events to the collector and uploads artifacts when
// the run finishes. Create one per run with New, call Start before the run,
// Emit (or the lifecycle helpers) during it, and Finish after.
type Reporter struct {
	cfg       *config.Config
	runID     string
	healthURL string
	client    *stream.Client
	uploader  *artifact.Uploader
	disabled  bool

	// probeClient performs the health probe; injectable for tests.
	probeClient *http.Client
}

// New builds a Reporter from cfg. An empty runID gets a fresh UUID. The
// only error path is a malformed server URL — everything at run time is
// best-effort.
func New(cfg *config.Config, runID string) (*Reporter, error) {
	if runID == "" {
		runID = uuid.New().String()
	}
	token := cfg.Auth.Token()

	dialURL, err := endpoint.DialURL(cfg.ServerURL, token)
	if err != nil {
		return nil, fmt.Errorf("reporter: %w", err)
	}
	healthURL, err := endpoint.HealthURL(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("reporter: %w", err)
	}
	uploadURL := cfg.UploadURL
	if uploadURL == "" {
		uploadURL, err = endpoint.UploadURL(cfg.ServerURL)
		if err != nil {
			return nil, fmt.Errorf("reporter: %w", err)
		}
	}

	return &Reporter{
		cfg:         cfg,
		runID:       runID,
		healthURL:   healthURL,
		client:      stream.New(cfg.Stream, dialURL),
		uploader:    artifact.NewUploader(uploadURL, token, cfg.Upload),
		probeClient: &http.Client{Timeout: cfg.Stream.HealthTimeout},
	}, nil
}

// RunID returns the session identifier shared by every event and upload.
func (r *Reporter) RunID() string { return r.runID }

// Disabled reports whether the health probe turned the reporter off for
// this run.
func (r *Reporter) Disabled() bool { return r.disabled }

// Start probes the collector and, when healthy, establishes the streaming
// session. A failed probe disables the whole subsystem for the run: no
// connection is attempted, no uploads will happen, and the host proceeds
// unaffected.
func (r *Reporter) Start(ctx context.Context) {
	if err := r.probe(ctx); err != nil {
		r.disabled = true
		slog.Warn("reporter: collector unhealthy, disabled for this run",
			"url", r.healthURL, "err", err)
		return
	}
	r.client.Connect(ctx)
}

// Emit delivers one event best-effort. Safe to call from any goroutine; a
// disabled reporter drops the event.
func (r *Reporter) Emit(ev event.Event) {
	if r.disabled {
		return
	}
	r.client.Send(ev)
}

// Finish uploads the artifact directory and closes the streaming session.
// The summary is the only failure signal the caller ever sees.
func (r *Reporter) Finish(ctx context.Context) artifact.Summary {
	if r.disabled {
		return artifact.Summary{}
	}

	manifest, err := artifact.Scan(r.cfg.ArtifactDir)
	if err != nil {
		slog.Warn("reporter: artifact scan failed, skipping uploads",
			"dir", r.cfg.ArtifactDir, "err", err)
		manifest = nil
	}

	sum := r.uploader.UploadAll(ctx, manifest, r.runID, r.cfg.Upload.Concurrency)
	r.client.Close()
	return sum
}

// probe performs the bounded health GET with the bearer credential.
func (r *Reporter) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.healthURL, nil)
	if err != nil {
		return err
	}
	if token := r.cfg.Auth.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.probeClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health probe returned %d", resp.StatusCode)
	}
	return nil
}

// --- lifecycle helpers, mirroring the host's callbacks ----------------------

// Begin emits the session-start event.
func (r *Reporter) Begin(rootDir string, args []string) {
	r.Emit(event.Begin(r.runID, rootDir, args))
}

// End emits the session-end event.
func (r *Reporter) End(exitStatus, failed, collected int) {
	r.Emit(event.End(r.runID, exitStatus, failed, collected))
}

// TestBegin emits the test-start event.
func (r *Reporter) TestBegin(testID, file string, line int, name string) {
	r.Emit(event.TestBegin(r.runID, testID, file, line, name))
}

// TestEnd emits the test-finish event.
func (r *Reporter) TestEnd(testID, outcome string, durationSec float64) {
	r.Emit(event.TestEnd(r.runID, testID, outcome, durationSec))
}

// StepBegin emits the step-start event.
func (r *Reporter) StepBegin(title, category string) {
	r.Emit(event.StepBegin(r.runID, title, category))
}

// StepEnd emits the step-finish event.
func (r *Reporter) StepEnd(title, category string, durationMS float64, stepErr string) {
	r.Emit(event.StepEnd(r.runID, title, category, durationMS, stepErr))
}

// Error emits a run-level error event.
func (r *Reporter) Error(message string) {
	r.Emit(event.Error(r.runID, message))
}
