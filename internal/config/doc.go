// Package config loads and watches the reporter configuration file.
//
// Top-level types:
//   - Config — server_url, optional upload_url override, artifact_dir,
//     auth, stream, upload
//   - AuthConfig — token_env; Token() resolves the credential from the
//     environment so the secret never lives in the file
//   - StreamConfig — buffer size, reconnect policy (max attempts, initial
//     and max delay), heartbeat interval, health-probe and close timeouts
//   - UploadConfig — chunk size in MB, retries, worker concurrency,
//     per-request timeout
//
// Load(path) reads the YAML file, applies defaults (buffer 1000, 10
// reconnects 1s→30s, 30s heartbeat, 3s health timeout, 5 MB chunks,
// 3 retries, 4 workers), then validates.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It handles the rename→create
// pattern used by atomic-save editors by re-adding the watch after the
// event. A failed reload is logged and the previous config stays active.
package config
