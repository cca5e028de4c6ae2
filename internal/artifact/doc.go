// Package artifact moves run artifacts (screenshots, traces, videos, logs)
// to the collector after the run.
//
// Scan walks the artifact directory once and produces a flat manifest of
// regular files. A missing directory yields an empty manifest, not an
// error — a run with no artifacts is normal.
//
// Uploader.Transfer moves one file: a single multipart POST up to the chunk
// threshold (default 5 MB), otherwise an ordered chunk sequence sharing a
// per-attempt uploadId. Each file gets retries+1 attempts with exponential
// backoff (1s→10s); a chunk failure restarts the whole sequence. Failures
// are returned as Outcome values, never as errors — nothing in this package
// can abort the host run.
//
// Uploader.UploadAll drives a fixed pool of workers that pull files from a
// shared list, so large files do not pin the schedule, and aggregates the
// outcomes into a Summary.
package artifact
