// Package registry reads the external org-id locations file: the mapping of
// document IDs to the absolute paths of the files that contain them. orgdex
// only ever reads this file; org-id owns it.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one registered document: a stable ID and its path relative to the
// configured org root.
type Entry struct {
	ID   string
	Path string
}

// Reader reads registered document IDs from an org-id locations file.
type Reader struct {
	// LocationsPath is the org-id locations file to read.
	LocationsPath string
	// Root is the directory paths are made relative to.
	Root string
}

// Read parses the locations file and returns one entry per document ID.
//
// The file holds a printed Lisp list of the shape
//
//	(("/abs/path/a.org" "id1" "id2") ("/abs/path/b.org" "id3"))
//
// where each inner list is an absolute path followed by every ID located in
// that file. Duplicate IDs keep the first occurrence in file order; later
// ones are silently dropped. A missing file yields an empty slice, not an
// error.
func (r *Reader) Read() ([]Entry, error) {
	data, err := os.ReadFile(r.LocationsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read id locations: %w", err)
	}

	lists, err := parseSexp(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse id locations %s: %w", r.LocationsPath, err)
	}

	var entries []Entry
	seen := make(map[string]bool)
	for _, list := range lists {
		if len(list) < 2 {
			continue
		}
		relPath := r.relativize(list[0])
		for _, id := range list[1:] {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			entries = append(entries, Entry{ID: id, Path: relPath})
		}
	}
	return entries, nil
}

// relativize converts an absolute path to a path relative to the root,
// keeping the original path when it lies outside the root.
func (r *Reader) relativize(abs string) string {
	if r.Root == "" {
		return abs
	}
	rel, err := filepath.Rel(r.Root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return abs
	}
	return rel
}

// parseSexp reads a Lisp list of string lists. Only the three token kinds the
// locations format uses are recognized: parens, double-quoted strings (with
// backslash escapes), and whitespace.
func parseSexp(input string) ([][]string, error) {
	var lists [][]string
	var current []string
	depth := 0

	i := 0
	n := len(input)
	for i < n {
		c := input[i]
		switch {
		case c == '(':
			depth++
			if depth > 2 {
				return nil, fmt.Errorf("unexpected nesting at offset %d", i)
			}
			if depth == 2 {
				current = nil
			}
			i++
		case c == ')':
			if depth == 0 {
				return nil, fmt.Errorf("unbalanced ')' at offset %d", i)
			}
			if depth == 2 {
				lists = append(lists, current)
			}
			depth--
			i++
		case c == '"':
			s, next, err := readString(input, i)
			if err != nil {
				return nil, err
			}
			if depth != 2 {
				return nil, fmt.Errorf("string outside entry at offset %d", i)
			}
			current = append(current, s)
			i = next
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", c, i)
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unterminated list")
	}
	return lists, nil
}

// readString consumes a double-quoted string starting at input[start] and
// returns its unescaped contents and the index after the closing quote.
func readString(input string, start int) (string, int, error) {
	var b strings.Builder
	i := start + 1
	for i < len(input) {
		c := input[i]
		switch c {
		case '\\':
			if i+1 >= len(input) {
				return "", 0, fmt.Errorf("dangling escape at offset %d", i)
			}
			b.WriteByte(input[i+1])
			i += 2
		case '"':
			return b.String(), i + 1, nil
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", 0, fmt.Errorf("unterminated string at offset %d", start)
}
