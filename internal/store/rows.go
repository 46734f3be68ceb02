package store

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// FileRow is one persisted frontmatter entry for a document.
// Link is empty when the raw value contained no rich-link.
type FileRow struct {
	ID    string
	Key   string
	Value string
	Link  string
}

// ReplaceFileRows replaces every stored row for a document in one transaction:
// all prior rows for the ID are deleted first so stale keys from an earlier
// version of the document never survive a re-index.
//
// A failed insert does not abort the document. The row is retried once in
// degraded form (same key, empty value, no link); if that also fails the key
// is dropped. Both outcomes are logged.
func (s *Store) ReplaceFileRows(id string, rows []FileRow, log *slog.Logger) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM org_files WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete rows for %s: %w", id, err)
		}

		for _, row := range rows {
			link := sql.NullString{String: row.Link, Valid: row.Link != ""}
			_, err := tx.Exec(
				`INSERT OR REPLACE INTO org_files (id, key, value, link) VALUES (?, ?, ?, ?)`,
				id, row.Key, row.Value, link,
			)
			if err == nil {
				continue
			}
			log.Warn("row insert failed, retrying degraded",
				"id", id, "key", row.Key, "error", err)

			_, retryErr := tx.Exec(
				`INSERT OR REPLACE INTO org_files (id, key, value, link) VALUES (?, ?, '', NULL)`,
				id, row.Key,
			)
			if retryErr != nil {
				log.Warn("degraded row insert failed, dropping key",
					"id", id, "key", row.Key, "error", retryErr)
			}
		}
		return nil
	})
}

// DeleteFileRows removes every stored row for a document.
func (s *Store) DeleteFileRows(id string) error {
	if _, err := s.db.Exec(`DELETE FROM org_files WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete rows for %s: %w", id, err)
	}
	return nil
}

// Clear removes every row from the store.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM org_files`); err != nil {
		return fmt.Errorf("clear org_files: %w", err)
	}
	return nil
}
