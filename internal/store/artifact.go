package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Artifact is a single file overwritten wholesale on every Save.
//
// Writers are serialized and go through a temp file in the same directory
// followed by a rename, so a reader sees either the previous or the new blob.
// Readers take no lock.
type Artifact struct {
	path string
	mu   sync.Mutex
}

func NewArtifact(path string) *Artifact {
	return &Artifact{path: path}
}

// Path returns the configured location.
func (a *Artifact) Path() string {
	return a.path
}

// Save replaces the artifact with data.
func (a *Artifact) Save(data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	dir := filepath.Dir(a.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(a.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp artifact: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting artifact mode: %w", err)
	}
	if err := os.Rename(tmpName, a.path); err != nil {
		return fmt.Errorf("replacing artifact %s: %w", a.path, err)
	}
	return nil
}

// Load returns the stored blob. A missing file is not an error: it returns
// (nil, false, nil) meaning no artifact has been written yet.
func (a *Artifact) Load() ([]byte, bool, error) {
	data, err := os.ReadFile(a.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading artifact %s: %w", a.path, err)
	}
	return data, true, nil
}
