// Package models defines the domain types for kbmirror.
package models

// NodeKind classifies an entry in the source's flattened tree description.
type NodeKind string

const (
	// KindDirectory marks a node that denotes a folder of further nodes.
	KindDirectory NodeKind = "directory"
	// KindLeaf marks a node that denotes a downloadable article.
	KindLeaf NodeKind = "leaf"
	// KindUnknown marks a node the source did not classify.
	KindUnknown NodeKind = ""
)

// TreeNode is one entry in the flattened, ordered tree description of a book.
// The sequence carries the load-bearing invariant that a node's parent, if
// present at all, appears at an earlier index than the node itself.
type TreeNode struct {
	ID        string   `json:"id"`
	ParentID  string   `json:"parent_id,omitempty"`
	Kind      NodeKind `json:"kind"`
	Title     string   `json:"title"`
	TargetRef string   `json:"target_ref,omitempty"`
}

// IsDirectory reports whether the node denotes a folder.
func (n TreeNode) IsDirectory() bool { return n.Kind == KindDirectory }

// IsLeaf reports whether the node denotes a downloadable article.
// Directory classification takes priority when both would match.
func (n TreeNode) IsLeaf() bool { return !n.IsDirectory() && n.TargetRef != "" }

// BookInfo describes a remote knowledge base: its identity and the flattened
// node sequence of its content tree.
type BookInfo struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	URL         string     `json:"url"`
	Nodes       []TreeNode `json:"nodes"`
}

// ResolvedEntry is a node's computed file-system location plus the full
// ancestor id/title chains it was derived from. Path is '/'-joined and
// relative to the mirror root; leaves carry a ".md" suffix.
type ResolvedEntry struct {
	ID            string   `json:"id"`
	Path          string   `json:"path"`
	TitleSegments []string `json:"title_segments"`
	IDSegments    []string `json:"id_segments"`
	SourceNode    TreeNode `json:"source_node"`
}

// Depth returns the entry's nesting depth (root-level entries have depth 1).
func (e ResolvedEntry) Depth() int { return len(e.IDSegments) }

// RunReport summarises one orchestrator pass.
type RunReport struct {
	TotalArticles  int             `json:"total_articles"`
	FailedArticles []ResolvedEntry `json:"failed_articles,omitempty"`
	SkippedNodes   int             `json:"skipped_nodes"`
	Complete       bool            `json:"complete"`
}

// Failed reports whether any article fetch failed during the pass.
func (r RunReport) Failed() bool { return len(r.FailedArticles) > 0 }
