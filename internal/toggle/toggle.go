// Package toggle persists the user's enable/disable switch for automatic
// clock-out. The switch is a marker file: present means disabled.
package toggle

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

// MarkerName is the file whose presence disables automatic clock-out.
const MarkerName = "skip-punch.txt"

const markerContent = "skip"

// Store reads and writes the toggle marker in a directory.
type Store struct {
	fs   afero.Fs
	path string
}

// New returns a Store rooted at dir on the OS filesystem.
func New(dir string) *Store {
	return NewWithFs(afero.NewOsFs(), dir)
}

// NewWithFs returns a Store backed by fsys.
func NewWithFs(fsys afero.Fs, dir string) *Store {
	return &Store{fs: fsys, path: filepath.Join(dir, MarkerName)}
}

// Path returns the marker path.
func (s *Store) Path() string {
	return s.path
}

// IsEnabled reports whether automatic clock-out is enabled. A marker that
// cannot be inspected is treated as absent.
func (s *Store) IsEnabled() bool {
	_, err := s.fs.Stat(s.path)
	return err != nil
}

// SetEnabled creates or removes the marker. Both directions are idempotent.
func (s *Store) SetEnabled(enabled bool) error {
	if enabled {
		err := s.fs.Remove(s.path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", s.path, err)
		}
		return nil
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(s.path), err)
	}
	if err := afero.WriteFile(s.fs, s.path, []byte(markerContent), 0644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// Toggle flips the state and returns the new value of IsEnabled.
func (s *Store) Toggle() (bool, error) {
	next := !s.IsEnabled()
	if err := s.SetEnabled(next); err != nil {
		return !next, err
	}
	return next, nil
}
