package content

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arving/kbmirror/internal/apperr"
	"github.com/arving/kbmirror/internal/storage"
)

func mirror(t *testing.T) *storage.FS {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestFetchDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/documents/x1" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("Some **markdown** body.\n"))
	}))
	defer srv.Close()

	store := mirror(t)
	c := NewClient(srv.URL, 5*time.Second, "", store)
	err := c.FetchDocument(context.Background(), Request{
		ContainerDir: "Intro",
		DestPath:     "Intro/Hello.md",
		TargetRef:    "x1",
		ContextID:    "B",
		Title:        "Hello",
		CanonicalURL: "https://kb.example.com/guide/hello",
	})
	if err != nil {
		t.Fatalf("FetchDocument: %v", err)
	}

	data, err := store.Read("Intro/Hello.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "# Hello\n\n") {
		t.Errorf("missing title header:\n%s", text)
	}
	if !strings.Contains(text, "Some **markdown** body.") {
		t.Errorf("body missing:\n%s", text)
	}
	if !strings.Contains(text, "*Source: https://kb.example.com/guide/hello*") {
		t.Errorf("missing canonical footer:\n%s", text)
	}
}

func TestFetchDocument_RewritesImages(t *testing.T) {
	var imgHits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/img/"):
			imgHits++
			_, _ = w.Write([]byte("rawimagebytes"))
		default:
			_, _ = w.Write([]byte("Before ![diagram](" + srvURL(r) + "/img/pic.png) after.\n" +
				"And again ![same](" + srvURL(r) + "/img/pic.png).\n"))
		}
	}))
	defer srv.Close()

	store := mirror(t)
	c := NewClient(srv.URL, 5*time.Second, "", store)
	err := c.FetchDocument(context.Background(), Request{
		ContainerDir: "Intro",
		DestPath:     "Intro/Hello.md",
		TargetRef:    "x1",
		ContextID:    "B",
		Title:        "Hello",
		CanonicalURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("FetchDocument: %v", err)
	}

	if imgHits != 1 {
		t.Errorf("image fetched %d times, want 1 (deduplicated)", imgHits)
	}

	data, _ := store.Read("Intro/Hello.md")
	text := string(data)
	if strings.Contains(text, "http") && strings.Contains(text, "/img/pic.png)") {
		t.Errorf("external image reference survived:\n%s", text)
	}
	if strings.Count(text, "](B-1.png)") != 2 {
		t.Errorf("rewritten references wrong:\n%s", text)
	}

	img, err := store.Read("Intro/B-1.png")
	if err != nil {
		t.Fatalf("image not written: %v", err)
	}
	if string(img) != "rawimagebytes" {
		t.Errorf("image content = %q", img)
	}
}

// srvURL reconstructs the test server's base URL from the inbound request so
// the served markdown can reference the same server.
func srvURL(r *http.Request) string {
	return "http://" + r.Host
}

func TestFetchDocument_Non200IsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, "", mirror(t))
	err := c.FetchDocument(context.Background(), Request{DestPath: "a.md", TargetRef: "x"})
	var fe *apperr.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want FetchError", err)
	}
	if fe.Status != http.StatusInternalServerError {
		t.Errorf("status = %d", fe.Status)
	}
}

func TestFetchDocument_FailedImageFailsWholeFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/img/") {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("![x](" + srvURL(r) + "/img/missing.png)\n"))
	}))
	defer srv.Close()

	store := mirror(t)
	c := NewClient(srv.URL, 5*time.Second, "", store)
	err := c.FetchDocument(context.Background(), Request{
		ContainerDir: "Intro", DestPath: "Intro/Hello.md", TargetRef: "x1", ContextID: "B",
	})
	var fe *apperr.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want FetchError", err)
	}
	// The article itself must not have been written.
	if _, err := store.Read("Intro/Hello.md"); err == nil {
		t.Error("article written despite image failure")
	}
}
