package indexer

import (
	"fmt"
	"path/filepath"

	"github.com/orgdex/orgdex/internal/frontmatter"
	"github.com/orgdex/orgdex/internal/store"
)

// SynthesizeRows turns extracted frontmatter into storage rows for one
// document, then appends the two synthetic rows every indexed document
// carries: "file" (bare filename, linked back to the document by ID) and
// "file.path" (the root-relative path, no link).
//
// Duplicate keys in the frontmatter collapse to the last occurrence when
// stored, since rows share the (id, key) primary key.
func SynthesizeRows(id, relPath string, entries []frontmatter.Entry) []store.FileRow {
	rows := make([]store.FileRow, 0, len(entries)+2)
	for _, e := range entries {
		display, link, _ := frontmatter.ExtractLink(e.RawValue)
		rows = append(rows, store.FileRow{
			ID:    id,
			Key:   e.Key,
			Value: display,
			Link:  link,
		})
	}

	filename := filepath.Base(relPath)
	rows = append(rows,
		store.FileRow{
			ID:    id,
			Key:   "file",
			Value: filename,
			Link:  fmt.Sprintf("[[id:%s][%s]]", id, filename),
		},
		store.FileRow{
			ID:    id,
			Key:   "file.path",
			Value: relPath,
		},
	)
	return rows
}
