// Package frontmatter extracts the leading #+KEY: value header block from org
// documents and detects rich-links embedded in header values.
package frontmatter

import (
	"regexp"
	"strings"
)

// Entry is one header line: a lower-cased key and its raw (untrimmed of
// links) value text.
type Entry struct {
	Key      string
	RawValue string
}

// headerLine matches one frontmatter line: #+KEY: value. The key is matched
// case-insensitively; the value is everything after the first colon.
var headerLine = regexp.MustCompile(`(?i)^#\+([a-z][a-z0-9_.-]*):[ \t]*(.*)$`)

// Parse returns the frontmatter entries of a document in source order.
//
// Scanning starts at the first line matching the header pattern and consumes
// strictly consecutive matching lines; the first non-matching line (blank
// lines included) ends the block. Duplicate keys within the block are all
// returned — replace-by-key semantics belong to the row layer.
func Parse(text string) []Entry {
	var entries []Entry
	inBlock := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		m := headerLine.FindStringSubmatch(line)
		if m == nil {
			if inBlock {
				break
			}
			continue
		}
		inBlock = true
		entries = append(entries, Entry{
			Key:      strings.ToLower(m[1]),
			RawValue: strings.TrimSpace(m[2]),
		})
	}
	return entries
}

// richLink matches the first [[target][display]] construct in a value.
var richLink = regexp.MustCompile(`\[\[([^][]+)\]\[([^][]+)\]\]`)

// ExtractLink splits a raw header value into display text and link.
//
// When the value contains a [[target][display]] construct, the inner display
// text is returned along with the entire bracketed construct — the canonical
// stored link representation. Otherwise the value passes through unchanged
// with ok=false. Unbalanced brackets never error; they simply don't match.
// Only the first construct in the value is considered.
func ExtractLink(raw string) (display, link string, ok bool) {
	m := richLink.FindStringSubmatch(raw)
	if m == nil {
		return raw, "", false
	}
	return m[2], m[0], true
}
