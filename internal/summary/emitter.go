// Package summary renders the generated table-of-contents document for a
// mirrored book.
package summary

import (
	"strings"

	"github.com/arving/kbmirror/internal/models"
)

// FileName is the table-of-contents file written at the mirror root. The
// document is regenerated in full on every run.
const FileName = "SUMMARY.md"

// Render produces the outline document: one line per resolved entry, in the
// order given (original node order), nested by ancestor-chain depth.
// Directory entries are plain items; leaves link to their relative path.
// An empty entry list yields a document with only the book name and
// description.
func Render(name, description string, entries []models.ResolvedEntry) string {
	var b strings.Builder

	b.WriteString("# ")
	b.WriteString(name)
	b.WriteString("\n")
	if description != "" {
		b.WriteString("\n")
		b.WriteString(description)
		b.WriteString("\n")
	}
	if len(entries) == 0 {
		return b.String()
	}

	b.WriteString("\n")
	for _, e := range entries {
		depth := e.Depth()
		if depth < 1 {
			depth = 1
		}
		b.WriteString(strings.Repeat("  ", depth-1))
		if e.SourceNode.IsLeaf() {
			b.WriteString("- [")
			b.WriteString(e.SourceNode.Title)
			b.WriteString("](")
			b.WriteString(linkTarget(e.Path))
			b.WriteString(")\n")
		} else {
			b.WriteString("- ")
			b.WriteString(e.SourceNode.Title)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// linkTarget escapes the characters that break inline markdown link
// destinations. Sanitized paths may still carry spaces, parentheses, and
// percent signs; the percent goes first so the escapes themselves survive.
func linkTarget(path string) string {
	path = strings.ReplaceAll(path, "%", "%25")
	r := strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29")
	return r.Replace(path)
}
