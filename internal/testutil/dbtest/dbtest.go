// Package dbtest provides shared database test helpers for seeding and
// querying test databases. It is importable from any test package without
// circular dependency issues (it does not import internal/query).
package dbtest

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// NewTestDB creates an in-memory SQLite database with the production schema
// loaded. schemaPath is the path to schema.sql relative to the caller's
// package (e.g. "../store/schema.sql").
func NewTestDB(t testing.TB, schemaPath string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile(schemaPath)
	if err != nil {
		t.Fatalf("read schema.sql: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	return db
}

// Row is one org_files row to seed.
type Row struct {
	ID    string
	Key   string
	Value string
	Link  string // empty stores NULL
}

// Seed inserts rows into org_files.
func Seed(t testing.TB, db *sql.DB, rows []Row) {
	t.Helper()
	for _, r := range rows {
		link := sql.NullString{String: r.Link, Valid: r.Link != ""}
		if _, err := db.Exec(
			`INSERT OR REPLACE INTO org_files (id, key, value, link) VALUES (?, ?, ?, ?)`,
			r.ID, r.Key, r.Value, link,
		); err != nil {
			t.Fatalf("seed row (%s, %s): %v", r.ID, r.Key, err)
		}
	}
}

// SeedFile seeds the rows a fully indexed document would have: the given
// frontmatter key/values plus the synthetic file and file.path rows.
func SeedFile(t testing.TB, db *sql.DB, id, filename, relPath string, kv map[string]string) {
	t.Helper()
	rows := []Row{
		{ID: id, Key: "file", Value: filename, Link: "[[id:" + id + "][" + filename + "]]"},
		{ID: id, Key: "file.path", Value: relPath},
	}
	for k, v := range kv {
		rows = append(rows, Row{ID: id, Key: k, Value: v})
	}
	Seed(t, db, rows)
}

// CountRows returns the number of org_files rows for a document, or all rows
// when id is empty.
func CountRows(t testing.TB, db *sql.DB, id string) int {
	t.Helper()
	var n int
	var err error
	if id == "" {
		err = db.QueryRow(`SELECT COUNT(*) FROM org_files`).Scan(&n)
	} else {
		err = db.QueryRow(`SELECT COUNT(*) FROM org_files WHERE id = ?`, id).Scan(&n)
	}
	if err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return n
}
