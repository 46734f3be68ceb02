package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/orgdex/orgdex/internal/query"
	"github.com/orgdex/orgdex/internal/store"
	"github.com/spf13/cobra"
)

var (
	queryColumns    string
	queryWhere      []string
	queryAny        bool
	queryTag        string
	queryFilterJSON string
	querySort       []string
	queryAliases    []string
	queryLinks      string
	queryFormat     string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query indexed documents by frontmatter",
	Long: `Query the frontmatter index: pick columns, filter documents, and sort.

Filter conditions use the frontmatter key and a value pattern:
  key=value      exact match
  key=%pat%      wildcard match (SQL LIKE, % and _)
  key=>=5        integer comparison (also <=, >, <)
  file.name=x    match the bare filename exactly
  file.path=%p%  match the relative path as a pattern

Multiple --where conditions are ANDed; pass --any to OR them instead.
Append .link to a column name to show the stored link instead of the
display value.

Examples:
  orgdex query --columns title,author --where type=book --sort date:desc
  orgdex query --columns title,file --tag project
  orgdex query --columns title --where rating=">=4" --links title
  orgdex query --columns title --filter-json '{"or":[{"key":"type","value":"article"},{"key":"type","value":"book"}]}'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := buildQuerySpec()
		if err != nil {
			return err
		}

		s, err := store.OpenExisting(cfg.DatabasePath())
		if err != nil {
			return err
		}
		defer s.Close()

		engine := query.NewEngine(s.DB())
		result, err := engine.Execute(cmd.Context(), spec)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}

		switch queryFormat {
		case "table":
			outputResultTable(result)
			return nil
		case "list":
			outputResultList(result)
			return nil
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		default:
			return fmt.Errorf("unknown format %q (table, list, json)", queryFormat)
		}
	},
}

// buildQuerySpec converts the command flags into a query specification.
// Flag parse problems are configuration errors; nothing touches the database
// until the whole spec is valid.
func buildQuerySpec() (query.Spec, error) {
	spec := query.Spec{}

	for _, col := range strings.Split(queryColumns, ",") {
		col = strings.TrimSpace(col)
		if col != "" {
			spec.Columns = append(spec.Columns, col)
		}
	}
	if len(spec.Columns) == 0 {
		return spec, fmt.Errorf("--columns is required")
	}

	filter, err := buildFilter()
	if err != nil {
		return spec, err
	}
	spec.Filter = filter

	for _, s := range querySort {
		col, dirStr, hasDir := strings.Cut(s, ":")
		dir := query.Asc
		if hasDir {
			switch dirStr {
			case "asc":
			case "desc":
				dir = query.Desc
			default:
				return spec, fmt.Errorf("sort direction %q must be asc or desc", dirStr)
			}
		}
		spec.Sort = append(spec.Sort, query.SortKey{Column: col, Direction: dir})
	}

	// Aliases from config first, then flag overrides.
	aliases := make(map[string]string)
	for col, display := range cfg.Org.ColumnAliases {
		aliases[col] = display
	}
	for _, a := range queryAliases {
		col, display, ok := strings.Cut(a, "=")
		if !ok {
			return spec, fmt.Errorf("alias %q must be column=Display", a)
		}
		aliases[col] = display
	}
	if len(aliases) > 0 {
		spec.Aliases = aliases
	}

	switch queryLinks {
	case "":
	case "title":
		spec.LinkDisplay = query.LinkTitle
	default:
		return spec, fmt.Errorf("--links %q is not supported (only: title)", queryLinks)
	}

	return spec, nil
}

// buildFilter combines the --where, --tag, and --filter-json flags into one
// filter tree. All given sources are ANDed together.
func buildFilter() (query.Filter, error) {
	var filters []query.Filter

	var atoms []query.Filter
	for _, w := range queryWhere {
		key, value, ok := strings.Cut(w, "=")
		if !ok {
			return nil, fmt.Errorf("condition %q must be key=value", w)
		}
		atom, err := query.ParseAtom(strings.ToLower(strings.TrimSpace(key)), value)
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, atom)
	}
	switch {
	case len(atoms) == 1:
		filters = append(filters, atoms[0])
	case len(atoms) > 1 && queryAny:
		filters = append(filters, query.Or{Filters: atoms})
	case len(atoms) > 1:
		filters = append(filters, query.And{Filters: atoms})
	}

	if queryTag != "" {
		filters = append(filters, query.TagContains{Tag: queryTag})
	}

	if queryFilterJSON != "" {
		f, err := query.ParseFilterJSON([]byte(queryFilterJSON))
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}

	switch len(filters) {
	case 0:
		return nil, nil
	case 1:
		return filters[0], nil
	default:
		return query.And{Filters: filters}, nil
	}
}

func outputResultTable(result *query.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headerUpper(result.Headers), "\t"))

	rules := make([]string, len(result.Headers))
	for i, h := range result.Headers {
		rules[i] = strings.Repeat("─", max(len([]rune(h)), 1))
	}
	fmt.Fprintln(w, strings.Join(rules, "\t"))

	for _, row := range result.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
	fmt.Printf("\nShowing %d results\n", len(result.Rows))
}

func outputResultList(result *query.Result) {
	for _, row := range result.Rows {
		fmt.Println(strings.Join(row, " · "))
	}
}

func headerUpper(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = strings.ToUpper(h)
	}
	return out
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryColumns, "columns", "c", "", "Comma-separated columns to show (required)")
	queryCmd.Flags().StringArrayVarP(&queryWhere, "where", "w", nil, "Filter condition key=value (repeatable)")
	queryCmd.Flags().BoolVar(&queryAny, "any", false, "OR the --where conditions instead of ANDing them")
	queryCmd.Flags().StringVar(&queryTag, "tag", "", "Match documents whose filetags contain this substring")
	queryCmd.Flags().StringVar(&queryFilterJSON, "filter-json", "", "Full filter tree as JSON")
	queryCmd.Flags().StringArrayVarP(&querySort, "sort", "s", nil, "Sort key column or column:desc (repeatable)")
	queryCmd.Flags().StringArrayVar(&queryAliases, "alias", nil, "Header alias column=Display (repeatable)")
	queryCmd.Flags().StringVar(&queryLinks, "links", "", "Link display mode (title)")
	queryCmd.Flags().StringVarP(&queryFormat, "format", "f", "table", "Output format: table, list, json")
	_ = queryCmd.MarkFlagRequired("columns")
}
