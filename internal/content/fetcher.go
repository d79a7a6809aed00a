// Package content retrieves individual article documents and materialises
// them as self-contained markdown files: external images are downloaded next
// to the article, a title header is prefixed, and a canonical-source footer
// is appended. The orchestrator treats each fetch as atomic — any internal
// failure (network, status, image download, write) surfaces as one
// FetchError and leaves no progress record behind.
package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/arving/kbmirror/internal/apperr"
	"github.com/arving/kbmirror/internal/storage"
)

// imageRe matches inline markdown images with absolute http(s) targets.
var imageRe = regexp.MustCompile(`!\[([^\]]*)\]\((https?://[^)\s]+)\)`)

// Request identifies one article to fetch and where to put it.
type Request struct {
	ContainerDir string // directory holding the article, relative to root
	DestPath     string // article file path, relative to root
	TargetRef    string // opaque document reference from the tree source
	ContextID    string // node id; keys downloaded image file names
	Title        string // display title for the prefixed header
	CanonicalURL string // source link for the appended footer
}

// Client fetches article documents from the book's document endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	store      storage.Provider
}

// NewClient creates a content client. baseURL is the book site root; the
// document endpoint lives under its /api/documents/ path.
func NewClient(baseURL string, timeout time.Duration, userAgent string, store storage.Provider) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		store:      store,
	}
}

// FetchDocument retrieves the document behind req.TargetRef, rewrites its
// images, and atomically writes the final markdown to req.DestPath.
func (c *Client) FetchDocument(ctx context.Context, req Request) error {
	docURL := c.baseURL + "/api/documents/" + url.PathEscape(req.TargetRef)
	body, err := c.get(ctx, docURL)
	if err != nil {
		return err
	}

	text, err := c.rewriteImages(ctx, string(body), req)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(req.Title)
	b.WriteString("\n\n")
	b.WriteString(strings.TrimRight(text, "\n"))
	b.WriteString("\n\n---\n\n*Source: ")
	b.WriteString(req.CanonicalURL)
	b.WriteString("*\n")

	if err := c.store.Write(req.DestPath, []byte(b.String())); err != nil {
		return &apperr.FetchError{URL: docURL, Err: err}
	}
	return nil
}

// rewriteImages downloads every external image into the article's directory,
// named by the node's context id, and rewrites the markdown to reference the
// local copies.
func (c *Client) rewriteImages(ctx context.Context, text string, req Request) (string, error) {
	matches := imageRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	local := make(map[string]string, len(matches)) // remote URL -> local file name
	n := 0
	for _, m := range matches {
		remote := m[2]
		if _, done := local[remote]; done {
			continue
		}
		n++
		name := fmt.Sprintf("%s-%d%s", req.ContextID, n, imageExt(remote))

		data, err := c.get(ctx, remote)
		if err != nil {
			return "", err
		}
		dest := name
		if req.ContainerDir != "" {
			dest = req.ContainerDir + "/" + name
		}
		if err := c.store.Write(dest, data); err != nil {
			return "", &apperr.FetchError{URL: remote, Err: err}
		}
		local[remote] = name
	}

	return imageRe.ReplaceAllStringFunc(text, func(s string) string {
		m := imageRe.FindStringSubmatch(s)
		return "![" + m[1] + "](" + local[m[2]] + ")"
	}), nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &apperr.FetchError{URL: rawURL, Err: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperr.FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &apperr.FetchError{URL: rawURL, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperr.FetchError{URL: rawURL, Err: err}
	}
	return body, nil
}

// imageExt extracts a usable file extension from an image URL, defaulting to
// .png when the URL path carries none.
func imageExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".png"
	}
	ext := path.Ext(u.Path)
	if ext == "" || len(ext) > 5 {
		return ".png"
	}
	return ext
}
