// Package blob defines the external blob-storage collaborator. The core
// never inspects blob contents; it records only the URL the collaborator
// returns, plus the declared size and MIME type.
package blob

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Storage persists opaque blobs under caller-chosen paths.
type Storage interface {
	// Put persists the blob and returns a stable URL for it.
	Put(path string, data []byte) (string, error)
	// Delete removes a previously stored blob. Deleting an absent path
	// is not an error.
	Delete(path string) error
}

// DiskStore is a Storage that writes blobs under a base directory and
// returns file URLs. It stands in for a real object store in local
// deployments and tests.
type DiskStore struct {
	baseDir string
}

// NewDiskStore creates a DiskStore rooted at baseDir.
func NewDiskStore(baseDir string) *DiskStore {
	return &DiskStore{baseDir: baseDir}
}

// Put writes the blob to disk and returns its file URL.
func (d *DiskStore) Put(path string, data []byte) (string, error) {
	clean, err := d.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(clean), 0755); err != nil {
		return "", fmt.Errorf("create blob dir: %w", err)
	}
	if err := os.WriteFile(clean, data, 0644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return "file://" + clean, nil
}

// Delete removes the blob at path. Missing blobs are ignored.
func (d *DiskStore) Delete(path string) error {
	clean, err := d.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(clean); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// resolve joins path under the base directory and rejects traversal out
// of it.
func (d *DiskStore) resolve(path string) (string, error) {
	clean := filepath.Join(d.baseDir, filepath.Clean("/"+path))
	if !strings.HasPrefix(clean, filepath.Clean(d.baseDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid blob path: %s", path)
	}
	return clean, nil
}
