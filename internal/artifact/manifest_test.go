package artifact

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestScan_FlatAndNested(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "trace.zip"), 100)
	writeFile(t, filepath.Join(root, "shots", "login.png"), 42)
	writeFile(t, filepath.Join(root, "shots", "deep", "cart.png"), 7)

	manifest, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(manifest) != 3 {
		t.Fatalf("manifest has %d entries, want 3", len(manifest))
	}

	bySize := map[string]int64{}
	for _, e := range manifest {
		bySize[e.RelPath] = e.Size
		if e.AbsPath == "" || !filepath.IsAbs(e.AbsPath) {
			t.Errorf("entry %s: AbsPath %q not absolute", e.RelPath, e.AbsPath)
		}
	}
	want := map[string]int64{
		"trace.zip":           100,
		"shots/login.png":     42,
		"shots/deep/cart.png": 7,
	}
	for rel, size := range want {
		if bySize[rel] != size {
			t.Errorf("entry %s: size %d, want %d", rel, bySize[rel], size)
		}
	}
}

func TestScan_MissingRootIsEmpty(t *testing.T) {
	manifest, err := Scan(filepath.Join(t.TempDir(), "no-such-dir"))
	if err != nil {
		t.Fatalf("Scan on missing root returned error: %v", err)
	}
	if len(manifest) != 0 {
		t.Errorf("manifest has %d entries, want 0", len(manifest))
	}
}

func TestScan_SkipsDirectories(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "empty", "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	manifest, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(manifest) != 0 {
		t.Errorf("manifest has %d entries, want 0 (directories only)", len(manifest))
	}
}

func TestScan_NameIsBase(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "shots", "login.png"), 1)

	manifest, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(manifest) != 1 || manifest[0].Name != "login.png" {
		t.Errorf("manifest = %+v, want one entry named login.png", manifest)
	}
}
