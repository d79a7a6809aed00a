// Package storage defines the mirror-root file-system abstraction.
package storage

import "github.com/arving/kbmirror/internal/models"

// Provider is the interface for mirror file operations. All paths are
// '/'-separated and relative to the mirror root.
type Provider interface {
	// EnsureDir creates dir (and any missing parents) under the mirror root.
	// Creating an already-existing directory is not an error.
	EnsureDir(dir string) error
	// List returns metadata for every .md file under dir, skipping
	// dot-directories (run state lives in one).
	List(dir string) ([]models.ArticleMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
}
