// Package parser extracts display metadata from mirrored Markdown articles.
package parser

import "strings"

// Title returns the first H1 heading of a Markdown document, or empty string
// when none exists. Mirrored articles carry their section title as a leading
// H1, so this recovers the display title without consulting the source.
func Title(data []byte) string {
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// TitleOrStem returns the document's H1 title, falling back to the file name
// stem (final path segment without the .md suffix).
func TitleOrStem(path string, data []byte) string {
	if t := Title(data); t != "" {
		return t
	}
	stem := path
	if i := strings.LastIndex(stem, "/"); i >= 0 {
		stem = stem[i+1:]
	}
	return strings.TrimSuffix(stem, ".md")
}
