// Package store owns the on-disk layout of model artifacts: a read-only
// bundled directory shipped with the application and a writable installed
// directory per install. All mutations are atomic (write-temp-then-rename)
// so a concurrent reader never observes a partially written artifact.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pders01/modelkeep/internal/models"
)

const feedbackFile = "feedback.json"

// Store resolves and mutates artifact paths for all model identities.
type Store struct {
	// bundledDir holds the shipped, read-only artifacts.
	bundledDir string

	// dataDir is the writable per-install base directory.
	dataDir string
}

// New creates a store rooted at the given directories, creating the
// writable layout if it does not exist. The bundled directory is never
// written to.
func New(bundledDir, dataDir string) (*Store, error) {
	if bundledDir == "" {
		return nil, fmt.Errorf("%w: bundled directory not configured", models.ErrStorage)
	}
	if dataDir == "" {
		return nil, fmt.Errorf("%w: data directory not configured", models.ErrStorage)
	}

	s := &Store{bundledDir: bundledDir, dataDir: dataDir}

	if err := os.MkdirAll(s.InstalledDir(), 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create installed directory: %v", models.ErrStorage, err)
	}

	return s, nil
}

// InstalledDir returns the directory holding writable artifacts.
func (s *Store) InstalledDir() string {
	return filepath.Join(s.dataDir, "installed")
}

// BundledPath returns the read-only artifact location for an identity.
// The second return is false if that model was not packaged.
func (s *Store) BundledPath(id models.Identity) (string, bool) {
	path := filepath.Join(s.bundledDir, id.ArtifactName())
	return path, s.Exists(path)
}

// InstalledPath returns the deterministic writable location for an
// identity. Existence is not guaranteed.
func (s *Store) InstalledPath(id models.Identity) string {
	return filepath.Join(s.InstalledDir(), id.ArtifactName())
}

// ResolvePath returns the preferred artifact path for a load attempt:
// the installed copy if present, else the bundled copy. The second return
// is false when neither exists.
func (s *Store) ResolvePath(id models.Identity) (string, bool) {
	if installed := s.InstalledPath(id); s.Exists(installed) {
		return installed, true
	}
	return s.BundledPath(id)
}

// Exists reports whether a regular file exists at path.
func (s *Store) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// InstallArtifact atomically replaces the installed artifact for an
// identity. Idempotent under retry.
func (s *Store) InstallArtifact(id models.Identity, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: refusing to install empty artifact for %s", models.ErrStorage, id)
	}
	return s.atomicWrite(s.InstalledPath(id), data)
}

// RemoveInstalled deletes the installed artifact. Removing an absent
// artifact is not an error.
func (s *Store) RemoveInstalled(id models.Identity) error {
	err := os.Remove(s.InstalledPath(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: failed to remove installed artifact: %v", models.ErrStorage, err)
	}
	return nil
}

// RestoreBundled replaces the installed artifact with the bundled copy.
// Returns ErrNotFound if the identity was not packaged.
func (s *Store) RestoreBundled(id models.Identity) error {
	bundled, ok := s.BundledPath(id)
	if !ok {
		return fmt.Errorf("%w: no bundled artifact for %s", models.ErrNotFound, id)
	}

	data, err := os.ReadFile(bundled)
	if err != nil {
		return fmt.Errorf("%w: failed to read bundled artifact: %v", models.ErrStorage, err)
	}

	return s.atomicWrite(s.InstalledPath(id), data)
}

// ReadArtifact reads the artifact bytes at path.
func (s *Store) ReadArtifact(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read artifact: %v", models.ErrStorage, err)
	}
	return data, nil
}

// SaveFeedback persists buffered feedback entries, replacing any previous
// snapshot. Called on shutdown and background transitions.
func (s *Store) SaveFeedback(entries []models.FeedbackEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal feedback: %v", models.ErrStorage, err)
	}
	return s.atomicWrite(filepath.Join(s.dataDir, feedbackFile), data)
}

// LoadFeedback reads the persisted feedback snapshot. Returns an empty
// slice if none was saved.
func (s *Store) LoadFeedback() ([]models.FeedbackEntry, error) {
	data, err := os.ReadFile(filepath.Join(s.dataDir, feedbackFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read feedback file: %v", models.ErrStorage, err)
	}

	var entries []models.FeedbackEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: invalid feedback file: %v", models.ErrStorage, err)
	}

	return entries, nil
}

// atomicWrite writes data using write-temp-then-rename so readers observe
// either the old or the new complete file, never a mix.
func (s *Store) atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %v", models.ErrStorage, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %v", models.ErrStorage, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: failed to write temp file: %v", models.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: failed to close temp file: %v", models.ErrStorage, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: failed to rename temp file: %v", models.ErrStorage, err)
	}

	return nil
}
