package query

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidateColumn(t *testing.T) {
	valid := []string{"title", "file.path", "roam_refs", "my-key", "a+b", "0day", "file.link"}
	for _, name := range valid {
		if err := validateColumn(name); err != nil {
			t.Errorf("validateColumn(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", `ti"tle`, "a b", "x;y", "(select", "-lead", "a\nb", "漢字"}
	for _, name := range invalid {
		if err := validateColumn(name); err == nil {
			t.Errorf("validateColumn(%q) succeeded, want error", name)
		}
	}
}

func TestColumnExpr(t *testing.T) {
	tests := []struct {
		name     string
		wantExpr string
		wantArg  string
	}{
		{
			name:     "title",
			wantExpr: `MAX(CASE WHEN key = ? THEN value END) AS "title"`,
			wantArg:  "title",
		},
		{
			name:     "source.link",
			wantExpr: `MAX(CASE WHEN key = ? THEN link END) AS "source.link"`,
			wantArg:  "source",
		},
		{
			name:     "file.link",
			wantExpr: `MAX(CASE WHEN key = ? THEN link END) AS "file.link"`,
			wantArg:  "file",
		},
	}
	for _, tt := range tests {
		expr, arg, err := columnExpr(tt.name)
		if err != nil {
			t.Errorf("columnExpr(%q) error: %v", tt.name, err)
			continue
		}
		if expr != tt.wantExpr || arg != tt.wantArg {
			t.Errorf("columnExpr(%q) = (%q, %q), want (%q, %q)",
				tt.name, expr, arg, tt.wantExpr, tt.wantArg)
		}
	}
}

func TestCompileFilter(t *testing.T) {
	tests := []struct {
		name       string
		filter     Filter
		wantClause string
		wantArgs   []any
	}{
		{
			name:       "nil matches all",
			filter:     nil,
			wantClause: "1 = 1",
		},
		{
			name:       "match all",
			filter:     MatchAll{},
			wantClause: "1 = 1",
		},
		{
			name:       "tag contains",
			filter:     TagContains{Tag: "project"},
			wantClause: `id IN (SELECT id FROM org_files WHERE key = ? AND value LIKE ?)`,
			wantArgs:   []any{"filetags", "%project%"},
		},
		{
			name:       "exact compare",
			filter:     Compare{Key: "type", Op: Eq, Value: "book"},
			wantClause: `id IN (SELECT id FROM org_files WHERE key = ? AND value = ?)`,
			wantArgs:   []any{"type", "book"},
		},
		{
			name:       "wildcard compare",
			filter:     Compare{Key: "title", Op: Like, Value: "%go%"},
			wantClause: `id IN (SELECT id FROM org_files WHERE key = ? AND value LIKE ?)`,
			wantArgs:   []any{"title", "%go%"},
		},
		{
			name:       "numeric compare casts and binds integer",
			filter:     Compare{Key: "rating", Op: Gte, Value: "4"},
			wantClause: `id IN (SELECT id FROM org_files WHERE key = ? AND CAST(value AS INTEGER) >= ?)`,
			wantArgs:   []any{"rating", int64(4)},
		},
		{
			name: "and composition",
			filter: And{Filters: []Filter{
				Compare{Key: "a", Op: Eq, Value: "1"},
				Compare{Key: "b", Op: Eq, Value: "2"},
			}},
			wantClause: `(id IN (SELECT id FROM org_files WHERE key = ? AND value = ?) AND id IN (SELECT id FROM org_files WHERE key = ? AND value = ?))`,
			wantArgs:   []any{"a", "1", "b", "2"},
		},
		{
			name: "or composition",
			filter: Or{Filters: []Filter{
				TagContains{Tag: "x"},
				Compare{Key: "b", Op: Eq, Value: "2"},
			}},
			wantClause: `(id IN (SELECT id FROM org_files WHERE key = ? AND value LIKE ?) OR id IN (SELECT id FROM org_files WHERE key = ? AND value = ?))`,
			wantArgs:   []any{"filetags", "%x%", "b", "2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clause, args, err := compileFilter(tt.filter)
			if err != nil {
				t.Fatalf("compileFilter error: %v", err)
			}
			if clause != tt.wantClause {
				t.Errorf("clause = %q, want %q", clause, tt.wantClause)
			}
			if diff := cmp.Diff(tt.wantArgs, args); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompileFilterErrors(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
	}{
		{"empty and", And{}},
		{"empty or", Or{}},
		{"non-integer numeric value", Compare{Key: "rating", Op: Gt, Value: "high"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := compileFilter(tt.filter); err == nil {
				t.Error("compileFilter succeeded, want error")
			}
		})
	}
}

func TestSortClauseNullsLast(t *testing.T) {
	clause, args, err := sortClause([]SortKey{
		{Column: "date", Direction: Desc},
		{Column: "title", Direction: Asc},
	})
	if err != nil {
		t.Fatalf("sortClause error: %v", err)
	}

	want := `ORDER BY MAX(CASE WHEN key = ? THEN value END) IS NULL, MAX(CASE WHEN key = ? THEN value END) DESC, ` +
		`MAX(CASE WHEN key = ? THEN value END) IS NULL, MAX(CASE WHEN key = ? THEN value END) ASC`
	if clause != want {
		t.Errorf("clause = %q, want %q", clause, want)
	}
	if diff := cmp.Diff([]any{"date", "date", "title", "title"}, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildQueryArgOrder(t *testing.T) {
	stmt, args, err := buildQuery(
		[]string{"title", "date"},
		Compare{Key: "type", Op: Eq, Value: "book"},
		[]SortKey{{Column: "date", Direction: Desc}},
	)
	if err != nil {
		t.Fatalf("buildQuery error: %v", err)
	}

	if !strings.Contains(stmt, "GROUP BY id") {
		t.Errorf("statement missing GROUP BY id: %s", stmt)
	}
	if strings.Count(stmt, "?") != len(args) {
		t.Errorf("placeholder count %d != arg count %d in %s",
			strings.Count(stmt, "?"), len(args), stmt)
	}

	// SELECT args, then WHERE args, then ORDER BY args.
	want := []any{"title", "date", "type", "book", "date", "date"}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildQueryRejectsBadColumn(t *testing.T) {
	if _, _, err := buildQuery([]string{`x"; DROP TABLE org_files; --`}, nil, nil); err == nil {
		t.Fatal("buildQuery accepted an injectable column name")
	}
	if _, _, err := buildQuery([]string{"title"}, nil, []SortKey{{Column: "a b"}}); err == nil {
		t.Fatal("buildQuery accepted an injectable sort column")
	}
}
