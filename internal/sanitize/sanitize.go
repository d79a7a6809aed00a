// Package sanitize turns untrusted section titles into safe path segments.
package sanitize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const illegal = "\\/:*?\"<>|\n\r"

// Segment maps an arbitrary title to a file-system-safe path component.
// Every character that is illegal in a path component is replaced with an
// underscore, then at most the FIRST whitespace character encountered is
// removed. The narrow whitespace rule is intentional and preserved as-is:
// whitespace after the first occurrence survives (see DESIGN.md).
// Deterministic and total; never fails.
func Segment(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	for _, r := range title {
		if strings.ContainsRune(illegal, r) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}

	out := b.String()
	for i, r := range out {
		if unicode.IsSpace(r) {
			return out[:i] + out[i+utf8.RuneLen(r):]
		}
	}
	return out
}
