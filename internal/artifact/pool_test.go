package artifact

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/runstream/runstream/internal/config"
)

// countingServer records which files arrive and tracks peak concurrency.
type countingServer struct {
	mu       sync.Mutex
	files    map[string]int // relativePath → times received
	inFlight atomic.Int32
	peak     atomic.Int32
	failRel  string // requests for this relativePath always fail
}

func (s *countingServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond) // hold the slot so overlap is observable

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rel := r.FormValue("relativePath")
	if rel == s.failRel {
		http.Error(w, "nope", http.StatusBadGateway)
		return
	}

	s.mu.Lock()
	s.files[rel]++
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func poolUploader(t *testing.T, srv *countingServer, retries int) *Uploader {
	t.Helper()
	srv.files = make(map[string]int)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	u := NewUploader(ts.URL+"/upload", "", config.UploadConfig{
		ChunkMB:        1,
		Retries:        retries,
		Concurrency:    4,
		RequestTimeout: 5 * time.Second,
	})
	u.sleep = func(time.Duration) {}
	return u
}

func poolManifest(t *testing.T, n int) []*Entry {
	t.Helper()
	manifest := make([]*Entry, n)
	for i := range manifest {
		manifest[i] = tempEntry(t, fmt.Sprintf("file-%02d.txt", i), 10+i)
	}
	return manifest
}

func TestUploadAll_ProcessesEveryFileOnce(t *testing.T) {
	srv := &countingServer{}
	u := poolUploader(t, srv, 0)
	manifest := poolManifest(t, 10)

	sum := u.UploadAll(context.Background(), manifest, "run-1", 3)

	if sum.Total != 10 || sum.Succeeded != 10 || sum.Failed != 0 {
		t.Errorf("summary = %+v, want 10/10/0", sum)
	}
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if len(srv.files) != 10 {
		t.Errorf("server saw %d distinct files, want 10", len(srv.files))
	}
	for rel, n := range srv.files {
		if n != 1 {
			t.Errorf("file %s received %d times, want 1", rel, n)
		}
	}
}

func TestUploadAll_BoundsConcurrency(t *testing.T) {
	srv := &countingServer{}
	u := poolUploader(t, srv, 0)
	manifest := poolManifest(t, 12)

	u.UploadAll(context.Background(), manifest, "run-1", 3)

	if peak := srv.peak.Load(); peak > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak)
	}
}

func TestUploadAll_EmptyManifest(t *testing.T) {
	u := NewUploader("http://127.0.0.1:1/upload", "", config.UploadConfig{
		ChunkMB: 1, Concurrency: 4, RequestTimeout: time.Second,
	})

	sum := u.UploadAll(context.Background(), nil, "run-1", 4)
	if sum.Total != 0 || sum.Succeeded != 0 || sum.Failed != 0 || sum.BytesSent != 0 {
		t.Errorf("empty manifest summary = %+v, want all zeros", sum)
	}
}

func TestUploadAll_CollectsFailures(t *testing.T) {
	srv := &countingServer{failRel: "file-03.txt"}
	u := poolUploader(t, srv, 1)
	manifest := poolManifest(t, 5)

	sum := u.UploadAll(context.Background(), manifest, "run-1", 2)

	if sum.Succeeded != 4 || sum.Failed != 1 {
		t.Fatalf("summary = %+v, want 4 succeeded / 1 failed", sum)
	}
	if len(sum.Failures) != 1 || sum.Failures[0].Entry.RelPath != "file-03.txt" {
		t.Errorf("failures = %+v, want file-03.txt", sum.Failures)
	}
	if sum.Failures[0].Attempts != 2 {
		t.Errorf("failed attempts = %d, want retries+1 = 2", sum.Failures[0].Attempts)
	}

	var wantBytes int64
	for _, e := range manifest {
		if e.RelPath != "file-03.txt" {
			wantBytes += e.Size
		}
	}
	if sum.BytesSent != wantBytes {
		t.Errorf("BytesSent = %d, want %d", sum.BytesSent, wantBytes)
	}
}

func TestUploadAll_MoreWorkersThanFiles(t *testing.T) {
	srv := &countingServer{}
	u := poolUploader(t, srv, 0)
	manifest := poolManifest(t, 2)

	sum := u.UploadAll(context.Background(), manifest, "run-1", 8)
	if sum.Succeeded != 2 {
		t.Errorf("summary = %+v, want 2 succeeded", sum)
	}
	if peak := srv.peak.Load(); peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}
