// Package resolve reconstructs hierarchical file-system paths from the
// source's flattened node sequence. Tree structure arrives implicitly as
// parent-id back-references with the guarantee that a node's parent, when
// present at all, appears earlier in the sequence; a single forward pass with
// an id-keyed entry map is therefore sufficient — each node only ever looks
// up its immediate parent, whose full ancestor chain is already computed.
package resolve

import (
	"strings"

	"github.com/arving/kbmirror/internal/models"
	"github.com/arving/kbmirror/internal/progress"
	"github.com/arving/kbmirror/internal/sanitize"
)

// Resolution is the id-keyed table of every resolved entry, together with
// the set of nodes already handled by a previous run. It is owned exclusively
// by the caller; nothing here is shared process state.
type Resolution struct {
	entries map[string]models.ResolvedEntry
	order   []string
	skip    map[string]struct{}
}

// Tree resolves the node sequence against prior progress records.
//
// Prior records are replayed first, in order: each one seeds the entry map
// and the skip set. That reconstructs exactly the ancestor chains later
// nodes need, without re-deriving them, and is what makes resumption correct.
// Then the sequence is walked once: skipped nodes are left alone, directory
// nodes and leaves get entries built from their parent's precomputed
// segments, and nodes matching neither classification are ignored.
func Tree(nodes []models.TreeNode, prior []progress.Record) *Resolution {
	r := &Resolution{
		entries: make(map[string]models.ResolvedEntry, len(nodes)+len(prior)),
		order:   make([]string, 0, len(nodes)),
		skip:    make(map[string]struct{}, len(prior)),
	}

	for _, rec := range prior {
		r.entries[rec.Entry.ID] = rec.Entry
		r.skip[rec.Entry.ID] = struct{}{}
	}

	for _, node := range nodes {
		if _, done := r.skip[node.ID]; done {
			if _, ok := r.entries[node.ID]; ok {
				r.order = append(r.order, node.ID)
			}
			continue
		}

		switch {
		case node.IsDirectory():
			r.insert(r.resolveDirectory(node))
		case node.IsLeaf():
			r.insert(r.resolveLeaf(node))
		default:
			// Malformed entry: neither a directory marker nor a document
			// reference. Not an error; the node is simply not mirrored.
		}
	}

	return r
}

func (r *Resolution) resolveDirectory(node models.TreeNode) models.ResolvedEntry {
	titles, ids := r.parentChain(node.ParentID)
	titles = append(titles, sanitize.Segment(node.Title))
	ids = append(ids, node.ID)
	return models.ResolvedEntry{
		ID:            node.ID,
		Path:          joinPath(titles),
		TitleSegments: titles,
		IDSegments:    ids,
		SourceNode:    node,
	}
}

func (r *Resolution) resolveLeaf(node models.TreeNode) models.ResolvedEntry {
	titles, ids := r.parentChain(node.ParentID)
	titles = append(titles, sanitize.Segment(node.Title)+".md")
	ids = append(ids, node.ID)
	return models.ResolvedEntry{
		ID:            node.ID,
		Path:          joinPath(titles),
		TitleSegments: titles,
		IDSegments:    ids,
		SourceNode:    node,
	}
}

// parentChain returns copies of the parent's segment chains, or empty chains
// when the parent is absent or unresolved (a root-level node). Copying keeps
// entries immutable once inserted: appending to a returned chain can never
// alias another entry's backing array.
func (r *Resolution) parentChain(parentID string) (titles, ids []string) {
	parent, ok := r.entries[parentID]
	if parentID == "" || !ok {
		return nil, nil
	}
	titles = make([]string, len(parent.TitleSegments), len(parent.TitleSegments)+1)
	copy(titles, parent.TitleSegments)
	ids = make([]string, len(parent.IDSegments), len(parent.IDSegments)+1)
	copy(ids, parent.IDSegments)
	return titles, ids
}

func (r *Resolution) insert(e models.ResolvedEntry) {
	r.entries[e.ID] = e
	r.order = append(r.order, e.ID)
}

// Lookup returns the resolved entry for a node id.
func (r *Resolution) Lookup(id string) (models.ResolvedEntry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// Skipped reports whether the node was already handled by a previous run.
func (r *Resolution) Skipped(id string) bool {
	_, ok := r.skip[id]
	return ok
}

// Ordered returns every entry that corresponds to a node of the current
// source sequence, in original sequence order. Entries replayed from prior
// runs whose nodes no longer exist in the sequence are retained in the map
// (they may still anchor ancestor chains) but are not part of this ordering.
func (r *Resolution) Ordered() []models.ResolvedEntry {
	out := make([]models.ResolvedEntry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id])
	}
	return out
}

// Len returns the number of resolved entries in the map.
func (r *Resolution) Len() int { return len(r.entries) }

func joinPath(segments []string) string {
	return strings.Join(segments, "/")
}
