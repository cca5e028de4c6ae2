package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/runstream/runstream/internal/config"
)

const (
	retryBackoffInitial = 1 * time.Second
	retryBackoffMax     = 10 * time.Second
)

// Outcome is the per-file result of a Transfer. Failures are data, not
// errors: exhausted retries produce an Outcome with OK false and the last
// error's description.
type Outcome struct {
	Entry    *Entry
	OK       bool
	Err      string
	Attempts int
}

// Uploader sends files to the collector's upload endpoint.
type Uploader struct {
	endpoint  string // whole-file endpoint; chunks go to endpoint+"/chunk"
	token     string
	threshold int64
	retries   int
	client    *http.Client

	// sleep and newUploadID are injectable for tests.
	sleep       func(time.Duration)
	newUploadID func() string
}

// NewUploader creates an Uploader posting to endpoint with the given
// credential and upload settings.
func NewUploader(endpoint, token string, cfg config.UploadConfig) *Uploader {
	return &Uploader{
		endpoint:    endpoint,
		token:       token,
		threshold:   cfg.ChunkThreshold(),
		retries:     cfg.Retries,
		client:      &http.Client{Timeout: cfg.RequestTimeout},
		sleep:       time.Sleep,
		newUploadID: func() string { return uuid.New().String() },
	}
}

// Transfer uploads one file, whole or chunked, retrying the full transfer
// on failure. It never returns an error — the Outcome carries the result.
func (u *Uploader) Transfer(ctx context.Context, entry *Entry, runID string) Outcome {
	var lastErr error
	for attempt := 0; attempt <= u.retries; attempt++ {
		if attempt > 0 {
			u.sleep(retryDelay(attempt - 1))
		}

		err := u.attempt(ctx, entry, runID)
		if err == nil {
			return Outcome{Entry: entry, OK: true, Attempts: attempt + 1}
		}
		lastErr = err
		slog.Debug("artifact: transfer attempt failed",
			"file", entry.RelPath, "attempt", attempt+1, "err", err)

		if ctx.Err() != nil {
			break
		}
	}

	slog.Warn("artifact: transfer failed", "file", entry.RelPath, "err", lastErr)
	return Outcome{Entry: entry, OK: false, Err: lastErr.Error(), Attempts: u.retries + 1}
}

// attempt performs one complete transfer: a single request for small files,
// an ordered chunk sequence for large ones. A chunked attempt always starts
// over from chunk 0 with a fresh uploadId.
func (u *Uploader) attempt(ctx context.Context, entry *Entry, runID string) error {
	if entry.Size <= u.threshold {
		return u.sendWhole(ctx, entry, runID)
	}
	return u.sendChunked(ctx, entry, runID)
}

func (u *Uploader) sendWhole(ctx context.Context, entry *Entry, runID string) error {
	f, err := os.Open(entry.AbsPath)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	fields := map[string]string{
		"runId":        runID,
		"relativePath": entry.RelPath,
	}
	return u.post(ctx, u.endpoint, entry.Name, f, fields)
}

func (u *Uploader) sendChunked(ctx context.Context, entry *Entry, runID string) error {
	f, err := os.Open(entry.AbsPath)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	uploadID := u.newUploadID()
	total := int((entry.Size + u.threshold - 1) / u.threshold)

	for idx := 0; idx < total; idx++ {
		fields := map[string]string{
			"runId":        runID,
			"relativePath": entry.RelPath,
			"uploadId":     uploadID,
			"chunkIndex":   strconv.Itoa(idx),
			"totalChunks":  strconv.Itoa(total),
		}
		chunk := io.LimitReader(f, u.threshold)
		if err := u.post(ctx, u.endpoint+"/chunk", entry.Name, chunk, fields); err != nil {
			return fmt.Errorf("chunk %d/%d: %w", idx, total, err)
		}
	}
	return nil
}

// post sends one multipart form request: the file content plus the metadata
// fields. Any 2xx response is success.
func (u *Uploader) post(ctx context.Context, url, name string, content io.Reader, fields map[string]string) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("multipart: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("multipart field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if u.token != "" {
		req.Header.Set("Authorization", "Bearer "+u.token)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// retryDelay computes the wait before retry attempt n (0-indexed):
// min(1s * 2^n, 10s), no jitter.
func retryDelay(attempt int) time.Duration {
	d := retryBackoffInitial << uint(attempt)
	if d > retryBackoffMax || d <= 0 {
		d = retryBackoffMax
	}
	return d
}
