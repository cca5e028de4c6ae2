package artifact

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Entry is one file discovered by Scan. Entries are immutable after the
// scan except for TestID, which callers may set to correlate the file with
// the test that produced it.
type Entry struct {
	// AbsPath is the absolute filesystem path used to read the file.
	AbsPath string

	// RelPath is the slash-separated path relative to the scan root; it is
	// what the collector stores the file under.
	RelPath string

	// Name is the base file name.
	Name string

	// Size is the file size in bytes at scan time.
	Size int64

	// TestID optionally names the test this artifact belongs to.
	TestID string
}

// Scan walks the tree rooted at root depth-first and returns an entry for
// every regular file. A missing root returns an empty manifest and no
// error; any other filesystem error propagates. The scan runs once, after
// the run's work is complete, so the tree is stable during the walk.
func Scan(root string) ([]*Entry, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("artifact: resolve root: %w", err)
	}

	var manifest []*Entry
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return err
		}
		manifest = append(manifest, &Entry{
			AbsPath: path,
			RelPath: filepath.ToSlash(rel),
			Name:    d.Name(),
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("artifact: scan %s: %w", root, err)
	}
	return manifest, nil
}
