// Package store persists derivative files.
//
// Derivatives are content-addressed by filename, so existence alone is the
// cache-hit signal and a file is never rewritten once it is in place.
// Two writers racing on the same name both produce equivalent bytes; the
// last rename wins.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FS is a filesystem-backed derivative store.
type FS struct {
	// Perm is applied to written files. Zero means 0644.
	Perm os.FileMode
}

// New creates a filesystem store.
func New() *FS {
	return &FS{Perm: 0644}
}

// Exists reports whether a file is present at path. It is a single stat.
func (s *FS) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}

// EnsureDir creates dir and its parents. It is a no-op when dir exists.
func (s *FS) EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// Write stores data at path. The bytes go to a temp file in the same
// directory first and are renamed into place, so a reader never sees a
// truncated derivative.
func (s *FS) Write(path string, data []byte) error {
	if err := s.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := writeFileAtomic(path, data, s.perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (s *FS) perm() os.FileMode {
	if s.Perm == 0 {
		return 0644
	}
	return s.Perm
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	_ = tmp.Sync()
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
