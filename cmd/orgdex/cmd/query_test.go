package cmd

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/orgdex/orgdex/internal/config"
	"github.com/orgdex/orgdex/internal/query"
)

// resetQueryFlags restores the package-level flag variables around a test.
func resetQueryFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		queryColumns = ""
		queryWhere = nil
		queryAny = false
		queryTag = ""
		queryFilterJSON = ""
		querySort = nil
		queryAliases = nil
		queryLinks = ""
		cfg = nil
	})
	cfg = &config.Config{}
}

func TestBuildQuerySpec(t *testing.T) {
	resetQueryFlags(t)
	queryColumns = "title, date ,author"
	queryWhere = []string{"type=book", "rating=>=4"}
	querySort = []string{"date:desc", "title"}
	queryAliases = []string{"title=Title"}
	queryLinks = "title"

	spec, err := buildQuerySpec()
	if err != nil {
		t.Fatalf("buildQuerySpec: %v", err)
	}

	want := query.Spec{
		Columns: []string{"title", "date", "author"},
		Aliases: map[string]string{"title": "Title"},
		Filter: query.And{Filters: []query.Filter{
			query.Compare{Key: "type", Op: query.Eq, Value: "book"},
			query.Compare{Key: "rating", Op: query.Gte, Value: "4"},
		}},
		Sort: []query.SortKey{
			{Column: "date", Direction: query.Desc},
			{Column: "title", Direction: query.Asc},
		},
		LinkDisplay: query.LinkTitle,
	}
	if diff := cmp.Diff(want, spec); diff != "" {
		t.Errorf("spec mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildQuerySpecAnyMakesOr(t *testing.T) {
	resetQueryFlags(t)
	queryColumns = "title"
	queryWhere = []string{"type=book", "type=article"}
	queryAny = true

	spec, err := buildQuerySpec()
	if err != nil {
		t.Fatalf("buildQuerySpec: %v", err)
	}
	if _, ok := spec.Filter.(query.Or); !ok {
		t.Errorf("filter = %T, want query.Or with --any", spec.Filter)
	}
}

func TestBuildQuerySpecConfigAliasesMerged(t *testing.T) {
	resetQueryFlags(t)
	cfg.Org.ColumnAliases = map[string]string{"title": "From Config", "date": "Date"}
	queryColumns = "title,date"
	queryAliases = []string{"title=From Flag"}

	spec, err := buildQuerySpec()
	if err != nil {
		t.Fatalf("buildQuerySpec: %v", err)
	}
	want := map[string]string{"title": "From Flag", "date": "Date"}
	if diff := cmp.Diff(want, spec.Aliases); diff != "" {
		t.Errorf("aliases mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildQuerySpecErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func()
	}{
		{"no columns", func() { queryColumns = " , " }},
		{"bad where", func() { queryColumns = "title"; queryWhere = []string{"no-equals"} }},
		{"bad numeric operand", func() { queryColumns = "title"; queryWhere = []string{"rating=>=x"} }},
		{"bad sort direction", func() { queryColumns = "title"; querySort = []string{"date:down"} }},
		{"bad alias", func() { queryColumns = "title"; queryAliases = []string{"noequals"} }},
		{"bad links mode", func() { queryColumns = "title"; queryLinks = "footnote" }},
		{"bad filter json", func() { queryColumns = "title"; queryFilterJSON = "{" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetQueryFlags(t)
			tt.setup()
			if _, err := buildQuerySpec(); err == nil {
				t.Error("buildQuerySpec succeeded, want error")
			}
		})
	}
}

func TestBuildFilterCombinesSources(t *testing.T) {
	resetQueryFlags(t)
	queryWhere = []string{"type=book"}
	queryTag = "project"
	queryFilterJSON = `{"key": "rating", "value": ">=4"}`

	f, err := buildFilter()
	if err != nil {
		t.Fatalf("buildFilter: %v", err)
	}
	want := query.And{Filters: []query.Filter{
		query.Compare{Key: "type", Op: query.Eq, Value: "book"},
		query.TagContains{Tag: "project"},
		query.Compare{Key: "rating", Op: query.Gte, Value: "4"},
	}}
	if diff := cmp.Diff(query.Filter(want), f); diff != "" {
		t.Errorf("filter mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildFilterEmpty(t *testing.T) {
	resetQueryFlags(t)
	f, err := buildFilter()
	if err != nil {
		t.Fatalf("buildFilter: %v", err)
	}
	if f != nil {
		t.Errorf("filter = %v, want nil for no flags", f)
	}
}
