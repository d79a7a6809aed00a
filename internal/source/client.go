// Package source fetches a remote book's identity and flattened content tree.
// The remote site embeds a JSON state block in its landing page HTML; no
// authentication is involved.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/arving/kbmirror/internal/apperr"
	"github.com/arving/kbmirror/internal/models"
)

// stateRe captures the embedded state block: window.__KB_STATE__ = {...};
var stateRe = regexp.MustCompile(`(?s)window\.__KB_STATE__\s*=\s*(\{.*?\})\s*;\s*</script>`)

// Client fetches book metadata over plain HTTP.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a source client. A zero timeout disables the deadline.
func NewClient(timeout time.Duration, userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// rawState mirrors the embedded JSON document.
type rawState struct {
	Book struct {
		ID          string `json:"id"`
		Slug        string `json:"slug"`
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"book"`
	Pages []rawPage `json:"pages"`
}

type rawPage struct {
	ID       string `json:"id"`
	Parent   string `json:"parent"`
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	Document string `json:"document"`
}

// FetchBookInfo retrieves the book page at locator and extracts the embedded
// state block. A non-200 response or unparsable payload yields a FetchError;
// a page without the expected data block yields an empty BookInfo and no
// error (the orchestrator then fails fast on the missing id).
func (c *Client) FetchBookInfo(ctx context.Context, locator string) (models.BookInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return models.BookInfo{}, fmt.Errorf("source: build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.BookInfo{}, &apperr.FetchError{URL: locator, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.BookInfo{}, &apperr.FetchError{URL: locator, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.BookInfo{}, &apperr.FetchError{URL: locator, Err: err}
	}

	m := stateRe.FindSubmatch(body)
	if m == nil {
		// Expected data block absent: not an error at this boundary.
		return models.BookInfo{}, nil
	}

	var state rawState
	if err := json.Unmarshal(m[1], &state); err != nil {
		return models.BookInfo{}, &apperr.FetchError{URL: locator, Err: fmt.Errorf("decode state block: %w", err)}
	}

	info := models.BookInfo{
		ID:          state.Book.ID,
		Slug:        state.Book.Slug,
		Name:        state.Book.Title,
		Description: state.Book.Description,
		URL:         strings.TrimRight(locator, "/"),
		Nodes:       make([]models.TreeNode, 0, len(state.Pages)),
	}
	for _, p := range state.Pages {
		info.Nodes = append(info.Nodes, models.TreeNode{
			ID:        p.ID,
			ParentID:  p.Parent,
			Kind:      nodeKind(p),
			Title:     p.Title,
			TargetRef: p.Document,
		})
	}
	return info, nil
}

// nodeKind maps the source's page kinds onto the engine's classification.
// Groups are folders; anything carrying a document reference is a leaf.
func nodeKind(p rawPage) models.NodeKind {
	switch {
	case p.Kind == "group":
		return models.KindDirectory
	case p.Document != "":
		return models.KindLeaf
	default:
		return models.KindUnknown
	}
}
