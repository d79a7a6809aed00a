// Package testutil provides shared test helpers for setting up mirror
// directories and databases.
package testutil

import (
	"testing"

	"github.com/arving/kbmirror/internal/index"
	"github.com/arving/kbmirror/internal/progress"
	"github.com/arving/kbmirror/internal/storage"
)

// TestMirror creates a temporary mirror directory with a storage.Provider.
func TestMirror(t *testing.T) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	files, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, files
}

// TestDB opens an article index inside root.
func TestDB(t *testing.T, root string) *index.DB {
	t.Helper()
	db, err := index.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestProgress opens a progress store inside root.
func TestProgress(t *testing.T, root string) *progress.Store {
	t.Helper()
	records, err := progress.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { records.Close() })
	return records
}
