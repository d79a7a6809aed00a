package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/arving/kbmirror/internal/apperr"
)

func tempMirror(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestNewFSCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "mirror")
	if _, err := NewFS(root); err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		t.Errorf("root not created: %v", err)
	}
}

func TestWriteAndRead(t *testing.T) {
	s := tempMirror(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("article.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("article.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempMirror(t)
	if err := s.Write("a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestEnsureDirIdempotent(t *testing.T) {
	s := tempMirror(t)
	if err := s.EnsureDir("One/Two"); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	// Creating an already-existing directory is not an error.
	if err := s.EnsureDir("One/Two"); err != nil {
		t.Fatalf("EnsureDir (repeat): %v", err)
	}
	info, err := os.Stat(filepath.Join(s.Root(), "One", "Two"))
	if err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}
}

func TestList(t *testing.T) {
	s := tempMirror(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/b.md", []byte("b"))
	_ = s.Write("readme.txt", []byte("not md"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
}

func TestListSkipsDotDirectories(t *testing.T) {
	s := tempMirror(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write(".kbmirror/state.md", []byte("not content"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Path != "a.md" {
		t.Errorf("items = %+v, want only a.md", items)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempMirror(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
		if err := s.EnsureDir(p); err == nil {
			t.Errorf("expected error for mkdir %q", p)
		}
	}
}

func TestAtomicWriteOverwrite(t *testing.T) {
	s := tempMirror(t)
	_ = s.Write("atomic.md", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != string(updated) {
		t.Errorf("content = %q", got)
	}

	// No temp files may be left behind.
	entries, _ := os.ReadDir(s.Root())
	for _, e := range entries {
		if e.Name() != "atomic.md" {
			t.Errorf("unexpected leftover file %q", e.Name())
		}
	}
}

func TestReadMissingIsNotFound(t *testing.T) {
	store := tempMirror(t)
	_, err := store.Read("no/such.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
