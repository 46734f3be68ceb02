package store

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return s
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func readRows(t *testing.T, s *Store, id string) []FileRow {
	t.Helper()
	rows, err := s.db.Query(
		`SELECT id, key, value, COALESCE(link, '') FROM org_files WHERE id = ? ORDER BY key`, id)
	if err != nil {
		t.Fatalf("query rows: %v", err)
	}
	defer rows.Close()

	var out []FileRow
	for rows.Next() {
		var r FileRow
		if err := rows.Scan(&r.ID, &r.Key, &r.Value, &r.Link); err != nil {
			t.Fatalf("scan row: %v", err)
		}
		out = append(out, r)
	}
	return out
}

func TestReplaceFileRows(t *testing.T) {
	s := newTestStore(t)
	log := discardLogger()

	first := []FileRow{
		{ID: "id-1", Key: "title", Value: "Old Title"},
		{ID: "id-1", Key: "stale", Value: "goes away"},
		{ID: "id-1", Key: "author", Value: "A", Link: "[[id:other][A]]"},
	}
	if err := s.ReplaceFileRows("id-1", first, log); err != nil {
		t.Fatalf("ReplaceFileRows: %v", err)
	}

	second := []FileRow{
		{ID: "id-1", Key: "title", Value: "New Title"},
		{ID: "id-1", Key: "date", Value: "2024-06-01"},
	}
	if err := s.ReplaceFileRows("id-1", second, log); err != nil {
		t.Fatalf("ReplaceFileRows: %v", err)
	}

	want := []FileRow{
		{ID: "id-1", Key: "date", Value: "2024-06-01"},
		{ID: "id-1", Key: "title", Value: "New Title"},
	}
	if diff := cmp.Diff(want, readRows(t, s, "id-1")); diff != "" {
		t.Errorf("rows after replace mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceFileRowsDuplicateKeyLastWins(t *testing.T) {
	s := newTestStore(t)

	rows := []FileRow{
		{ID: "id-1", Key: "tag", Value: "first"},
		{ID: "id-1", Key: "tag", Value: "second"},
	}
	if err := s.ReplaceFileRows("id-1", rows, discardLogger()); err != nil {
		t.Fatalf("ReplaceFileRows: %v", err)
	}

	got := readRows(t, s, "id-1")
	if len(got) != 1 || got[0].Value != "second" {
		t.Errorf("got %+v, want single row with value %q", got, "second")
	}
}

func TestReplaceFileRowsDoesNotTouchOtherDocuments(t *testing.T) {
	s := newTestStore(t)
	log := discardLogger()

	if err := s.ReplaceFileRows("id-1", []FileRow{{ID: "id-1", Key: "title", Value: "One"}}, log); err != nil {
		t.Fatalf("ReplaceFileRows: %v", err)
	}
	if err := s.ReplaceFileRows("id-2", []FileRow{{ID: "id-2", Key: "title", Value: "Two"}}, log); err != nil {
		t.Fatalf("ReplaceFileRows: %v", err)
	}
	if err := s.ReplaceFileRows("id-1", nil, log); err != nil {
		t.Fatalf("ReplaceFileRows: %v", err)
	}

	if got := readRows(t, s, "id-1"); len(got) != 0 {
		t.Errorf("id-1 rows = %+v, want none", got)
	}
	if got := readRows(t, s, "id-2"); len(got) != 1 {
		t.Errorf("id-2 rows = %+v, want untouched single row", got)
	}
}

func TestDeleteFileRows(t *testing.T) {
	s := newTestStore(t)

	if err := s.ReplaceFileRows("id-1", []FileRow{{ID: "id-1", Key: "title", Value: "X"}}, discardLogger()); err != nil {
		t.Fatalf("ReplaceFileRows: %v", err)
	}
	if err := s.DeleteFileRows("id-1"); err != nil {
		t.Fatalf("DeleteFileRows: %v", err)
	}
	if got := readRows(t, s, "id-1"); len(got) != 0 {
		t.Errorf("rows after delete = %+v, want none", got)
	}
}

func TestClearAndStats(t *testing.T) {
	s := newTestStore(t)
	log := discardLogger()

	if err := s.ReplaceFileRows("id-1", []FileRow{
		{ID: "id-1", Key: "title", Value: "A"},
		{ID: "id-1", Key: "date", Value: "2024-01-01"},
	}, log); err != nil {
		t.Fatalf("ReplaceFileRows: %v", err)
	}
	if err := s.ReplaceFileRows("id-2", []FileRow{
		{ID: "id-2", Key: "title", Value: "B"},
	}, log); err != nil {
		t.Fatalf("ReplaceFileRows: %v", err)
	}

	stats, err := s.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.FileCount != 2 || stats.RowCount != 3 || stats.KeyCount != 2 {
		t.Errorf("stats = %+v, want 2 files, 3 rows, 2 keys", stats)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	stats, err = s.GetStats()
	if err != nil {
		t.Fatalf("GetStats after clear: %v", err)
	}
	if stats.FileCount != 0 || stats.RowCount != 0 {
		t.Errorf("stats after clear = %+v, want empty", stats)
	}
}

func TestOpenExistingMissing(t *testing.T) {
	_, err := OpenExisting(filepath.Join(t.TempDir(), "nope.db"))
	if err == nil {
		t.Fatal("OpenExisting succeeded on missing database")
	}
}
