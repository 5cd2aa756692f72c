// Package sanitize cleans concept labels read from matrix files and concept
// maps. Labels end up in DOT sources, terminal tables and MCP tool results
// that agents read, so markup and control characters are removed on load.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxNameLength is the maximum length of a concept name, in runes.
const MaxNameLength = 120

var (
	// reXMLTag matches XML/HTML tags including those with attributes and self-closing tags.
	// It also matches XML processing instructions like <?xml ...?>.
	reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

	// reBackticks matches backtick runs used for inline code and fences.
	reBackticks = regexp.MustCompile("`+")

	// reWhitespace matches any run of whitespace.
	reWhitespace = regexp.MustCompile(`\s+`)
)

// ConceptName returns a single-line label safe to print or embed.
//
// The pipeline runs in this order:
//  1. Strip null bytes and ASCII control characters (tabs and newlines become spaces)
//  2. Strip XML/HTML tags
//  3. Remove backticks
//  4. Collapse whitespace runs to one space and trim
//  5. Truncate to MaxNameLength runes
//
// Names that are already clean come back unchanged.
func ConceptName(input string) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = reXMLTag.ReplaceAllString(s, "")
	s = reBackticks.ReplaceAllString(s, "")
	s = strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))

	if runes := []rune(s); len(runes) > MaxNameLength {
		s = strings.TrimSpace(string(runes[:MaxNameLength]))
	}
	return s
}

// stripControlChars removes ASCII control characters (0x00-0x1F, 0x7F).
// Tab, newline and carriage return become spaces so words stay apart.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t' || r == '\r':
			b.WriteRune(' ')
		case r < 0x20 || r == 0x7F:
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
