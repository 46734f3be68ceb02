// Package query compiles filter/column/sort specifications into SQL over the
// org_files table and reshapes the tabular result into typed rows.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"slices"
)

// LinkDisplay selects an output-shaping mode for link columns.
type LinkDisplay int

const (
	// LinkNone leaves all columns as their raw stored values.
	LinkNone LinkDisplay = iota
	// LinkTitle renders the title column as a rich-link back to its
	// owning document when a file link is available.
	LinkTitle
)

// Spec is one query: which columns to show, which documents to match, and how
// to order them. Constructed per call, never persisted.
type Spec struct {
	// Columns are the output columns, in order. Required.
	Columns []string
	// Aliases substitutes display headers for column names. Row values are
	// unaffected.
	Aliases map[string]string
	// Filter selects documents; nil matches all.
	Filter Filter
	// Sort orders output rows; empty imposes no ordering.
	Sort []SortKey
	// LinkDisplay is the optional link rendering mode.
	LinkDisplay LinkDisplay
}

// Result is the shaped output of a query.
type Result struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Engine executes compiled queries against a SQLite database.
type Engine struct {
	db *sql.DB
}

// NewEngine creates a query engine on an open database connection.
// The engine does not own the connection.
func NewEngine(db *sql.DB) *Engine {
	return &Engine{db: db}
}

// fileLinkTarget extracts the target of a stored file link of the form
// [[id:...][display]].
var fileLinkTarget = regexp.MustCompile(`^\[\[(id:[^][]+)\]\[[^][]*\]\]$`)

// Execute compiles and runs a query specification.
//
// In LinkTitle mode the fetched column set is silently widened with title and
// file.link (without duplicating them) so title synthesis has its inputs;
// sort-only columns are widened the same way. Output rows carry exactly the
// requested columns in request order, absent values as empty strings.
func (e *Engine) Execute(ctx context.Context, spec Spec) (*Result, error) {
	if len(spec.Columns) == 0 {
		return nil, fmt.Errorf("query needs at least one column")
	}

	fetch := slices.Clone(spec.Columns)
	for _, k := range spec.Sort {
		if !slices.Contains(fetch, k.Column) {
			fetch = append(fetch, k.Column)
		}
	}
	if spec.LinkDisplay == LinkTitle {
		for _, extra := range []string{"title", "file.link"} {
			if !slices.Contains(fetch, extra) {
				fetch = append(fetch, extra)
			}
		}
	}

	stmt, args, err := buildQuery(fetch, spec.Filter, spec.Sort)
	if err != nil {
		return nil, err
	}

	rows, err := e.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	var fetched [][]string
	for rows.Next() {
		scanned := make([]sql.NullString, len(fetch))
		dests := make([]any, len(fetch))
		for i := range scanned {
			dests[i] = &scanned[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make([]string, len(fetch))
		for i, v := range scanned {
			if v.Valid {
				row[i] = v.String
			}
		}
		fetched = append(fetched, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	if spec.LinkDisplay == LinkTitle {
		synthesizeTitleLinks(fetch, fetched)
	}

	result := &Result{
		Headers: make([]string, len(spec.Columns)),
		Rows:    make([][]string, len(fetched)),
	}
	for i, name := range spec.Columns {
		if alias, ok := spec.Aliases[name]; ok {
			result.Headers[i] = alias
		} else {
			result.Headers[i] = name
		}
	}
	for r, row := range fetched {
		out := make([]string, len(spec.Columns))
		for c, name := range spec.Columns {
			out[c] = row[slices.Index(fetch, name)]
		}
		result.Rows[r] = out
	}
	return result, nil
}

// synthesizeTitleLinks rewrites the title column in place: when a row's
// file.link parses as [[id:...][...]], the title becomes a link to that
// target wrapping the title text. Rows without a parseable link keep the raw
// title; rows without a title stay empty. Only the title column is touched.
func synthesizeTitleLinks(fetch []string, rows [][]string) {
	titleIdx := slices.Index(fetch, "title")
	linkIdx := slices.Index(fetch, "file.link")
	if titleIdx < 0 || linkIdx < 0 {
		return
	}
	for _, row := range rows {
		title := row[titleIdx]
		if title == "" {
			continue
		}
		m := fileLinkTarget.FindStringSubmatch(row[linkIdx])
		if m == nil {
			continue
		}
		row[titleIdx] = fmt.Sprintf("[[%s][%s]]", m[1], title)
	}
}

// FileEntry is one stored row of a document, as returned by FileEntries.
type FileEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Link  string `json:"link,omitempty"`
}

// FileEntries returns every stored row for one document, ordered by key.
// A document with no rows yields an empty slice.
func (e *Engine) FileEntries(ctx context.Context, id string) ([]FileEntry, error) {
	rows, err := e.db.QueryContext(ctx,
		`SELECT key, value, link FROM org_files WHERE id = ? ORDER BY key`, id)
	if err != nil {
		return nil, fmt.Errorf("query file entries: %w", err)
	}
	defer rows.Close()

	var entries []FileEntry
	for rows.Next() {
		var key string
		var value, link sql.NullString
		if err := rows.Scan(&key, &value, &link); err != nil {
			return nil, fmt.Errorf("scan file entry: %w", err)
		}
		entries = append(entries, FileEntry{
			Key:   key,
			Value: value.String,
			Link:  link.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read file entries: %w", err)
	}
	return entries, nil
}
