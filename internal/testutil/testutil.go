package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pders01/modelkeep/internal/models"
	"github.com/pders01/modelkeep/internal/registry"
)

// TempModelDir creates a temporary bundled/data directory pair for testing
type TempModelDir struct {
	BundledDir string
	DataDir    string
	T          *testing.T
}

// NewTempModelDir creates the layout with no artifacts
func NewTempModelDir(t *testing.T) *TempModelDir {
	t.Helper()

	base := t.TempDir()
	bundled := filepath.Join(base, "bundled")
	data := filepath.Join(base, "data")

	for _, dir := range []string{bundled, data} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}

	return &TempModelDir{
		BundledDir: bundled,
		DataDir:    data,
		T:          t,
	}
}

// WriteBundled writes a framed artifact with the given body into the
// bundled directory
func (d *TempModelDir) WriteBundled(id models.Identity, body string) string {
	d.T.Helper()

	path := filepath.Join(d.BundledDir, id.ArtifactName())
	data := registry.EncodeArtifact([]byte(body))
	if err := os.WriteFile(path, data, 0644); err != nil {
		d.T.Fatalf("failed to write bundled artifact: %v", err)
	}
	return path
}

// WriteInstalled writes a framed artifact with the given body into the
// installed directory
func (d *TempModelDir) WriteInstalled(id models.Identity, body string) string {
	d.T.Helper()

	dir := filepath.Join(d.DataDir, "installed")
	if err := os.MkdirAll(dir, 0755); err != nil {
		d.T.Fatalf("failed to create installed dir: %v", err)
	}

	path := filepath.Join(dir, id.ArtifactName())
	data := registry.EncodeArtifact([]byte(body))
	if err := os.WriteFile(path, data, 0644); err != nil {
		d.T.Fatalf("failed to write installed artifact: %v", err)
	}
	return path
}

// CorruptInstalled overwrites the installed artifact with raw bytes,
// bypassing framing, to simulate on-disk tampering
func (d *TempModelDir) CorruptInstalled(id models.Identity, raw []byte) string {
	d.T.Helper()

	dir := filepath.Join(d.DataDir, "installed")
	if err := os.MkdirAll(dir, 0755); err != nil {
		d.T.Fatalf("failed to create installed dir: %v", err)
	}

	path := filepath.Join(dir, id.ArtifactName())
	if err := os.WriteFile(path, raw, 0644); err != nil {
		d.T.Fatalf("failed to corrupt installed artifact: %v", err)
	}
	return path
}

// InstalledPath returns where the installed artifact for id lives
func (d *TempModelDir) InstalledPath(id models.Identity) string {
	return filepath.Join(d.DataDir, "installed", id.ArtifactName())
}

// ReadFile reads a file or fails the test
func (d *TempModelDir) ReadFile(path string) []byte {
	d.T.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		d.T.Fatalf("failed to read %s: %v", path, err)
	}
	return data
}
