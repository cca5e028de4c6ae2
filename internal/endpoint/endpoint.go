package endpoint

import (
	"fmt"
	"net/url"
	"strings"
)

// DialURL returns the WebSocket URL to dial, with the credential attached as
// a token query parameter. The token travels in the URL because header
// injection is not supported end-to-end on every runtime the server fronts.
func DialURL(serverURL, token string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("endpoint: parse server url: %w", err)
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// UploadURL derives the HTTP upload endpoint from the streaming URL:
// ws→http, wss→https, and a trailing /ws path segment becomes /upload
// (appended when absent). ws://host:5555 → http://host:5555/upload,
// wss://host/reporter/ws → https://host/reporter/upload.
func UploadURL(serverURL string) (string, error) {
	return derive(serverURL, "upload")
}

// HealthURL derives the HTTP health-probe endpoint the same way UploadURL
// does, with a /health final segment.
func HealthURL(serverURL string) (string, error) {
	return derive(serverURL, "health")
}

func derive(serverURL, segment string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("endpoint: parse server url: %w", err)
	}

	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
		// Already an HTTP URL — only the path is rewritten.
	default:
		return "", fmt.Errorf("endpoint: unsupported scheme %q", u.Scheme)
	}

	path := strings.TrimSuffix(u.Path, "/")
	if strings.HasSuffix(path, "/ws") {
		path = strings.TrimSuffix(path, "/ws")
	}
	u.Path = path + "/" + segment
	u.RawQuery = ""
	return u.String(), nil
}
