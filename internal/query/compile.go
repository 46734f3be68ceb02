package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// columnName restricts column identifiers to a closed character set so they
// can be quoted into SQL text. Everything else (keys, values, patterns) is a
// bound parameter.
var columnName = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.+-]*$`)

// validateColumn checks that name is a safe, quotable identifier.
func validateColumn(name string) error {
	if !columnName.MatchString(name) {
		return fmt.Errorf("invalid column name %q", name)
	}
	return nil
}

// columnExpr builds the per-document aggregate expression selecting one
// column: the value (or, for names ending in .link, the link) of the row
// whose key matches. The key is returned as a bound argument.
func columnExpr(name string) (expr string, arg string, err error) {
	if err := validateColumn(name); err != nil {
		return "", "", err
	}
	field := "value"
	key := name
	if strings.HasSuffix(name, ".link") && name != ".link" {
		field = "link"
		key = strings.TrimSuffix(name, ".link")
	}
	expr = fmt.Sprintf(`MAX(CASE WHEN key = ? THEN %s END) AS "%s"`, field, name)
	return expr, key, nil
}

// compileFilter compiles a filter tree into an id-membership predicate with
// every key and value bound as a parameter. An unknown filter shape is a
// configuration error.
func compileFilter(f Filter) (string, []any, error) {
	switch f := f.(type) {
	case nil, MatchAll:
		return "1 = 1", nil, nil

	case TagContains:
		return `id IN (SELECT id FROM org_files WHERE key = ? AND value LIKE ?)`,
			[]any{"filetags", "%" + f.Tag + "%"}, nil

	case Compare:
		op, err := f.Op.token()
		if err != nil {
			return "", nil, err
		}
		if f.Op.numeric() {
			n, err := strconv.ParseInt(strings.TrimSpace(f.Value), 10, 64)
			if err != nil {
				return "", nil, fmt.Errorf("numeric comparison on %q: %q is not an integer", f.Key, f.Value)
			}
			clause := fmt.Sprintf(
				`id IN (SELECT id FROM org_files WHERE key = ? AND CAST(value AS INTEGER) %s ?)`, op)
			return clause, []any{f.Key, n}, nil
		}
		clause := fmt.Sprintf(
			`id IN (SELECT id FROM org_files WHERE key = ? AND value %s ?)`, op)
		return clause, []any{f.Key, f.Value}, nil

	case And:
		return compileJunction(f.Filters, " AND ")

	case Or:
		return compileJunction(f.Filters, " OR ")

	default:
		return "", nil, fmt.Errorf("unknown filter type %T", f)
	}
}

func compileJunction(subs []Filter, sep string) (string, []any, error) {
	if len(subs) == 0 {
		return "", nil, fmt.Errorf("empty %s filter", strings.TrimSpace(sep))
	}
	clauses := make([]string, 0, len(subs))
	var args []any
	for _, sub := range subs {
		clause, subArgs, err := compileFilter(sub)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, clause)
		args = append(args, subArgs...)
	}
	return "(" + strings.Join(clauses, sep) + ")", args, nil
}

// SortDirection orders a sort key ascending or descending.
type SortDirection int

const (
	Asc SortDirection = iota
	Desc
)

// SortKey is one (column, direction) pair of a sort specification.
type SortKey struct {
	Column    string
	Direction SortDirection
}

// sortClause compiles the sort specification. Each key repeats the column's
// aggregate expression rather than referencing its alias, so sorting works
// even when the key collides with a base table column name. Documents missing
// the sort key always order last, regardless of direction.
func sortClause(sort []SortKey) (string, []any, error) {
	if len(sort) == 0 {
		return "", nil, nil
	}
	terms := make([]string, 0, len(sort))
	var args []any
	for _, k := range sort {
		expr, arg, err := columnExpr(k.Column)
		if err != nil {
			return "", nil, err
		}
		// Strip the AS alias; ORDER BY wants the bare expression.
		expr = expr[:strings.LastIndex(expr, " AS ")]
		dir := "ASC"
		if k.Direction == Desc {
			dir = "DESC"
		}
		terms = append(terms, fmt.Sprintf("%s IS NULL, %s %s", expr, expr, dir))
		args = append(args, arg, arg)
	}
	return "ORDER BY " + strings.Join(terms, ", "), args, nil
}

// buildQuery assembles the full statement: one output row per document id,
// columns populated by key-picking aggregates, filtered by the compiled
// predicate. Argument order follows placeholder order: SELECT, WHERE, ORDER BY.
func buildQuery(fetchCols []string, filter Filter, sort []SortKey) (string, []any, error) {
	selects := make([]string, 0, len(fetchCols))
	var args []any
	for _, name := range fetchCols {
		expr, arg, err := columnExpr(name)
		if err != nil {
			return "", nil, err
		}
		selects = append(selects, expr)
		args = append(args, arg)
	}

	where, whereArgs, err := compileFilter(filter)
	if err != nil {
		return "", nil, err
	}
	args = append(args, whereArgs...)

	order, orderArgs, err := sortClause(sort)
	if err != nil {
		return "", nil, err
	}
	args = append(args, orderArgs...)

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(selects, ", "))
	b.WriteString(" FROM org_files WHERE ")
	b.WriteString(where)
	b.WriteString(" GROUP BY id")
	if order != "" {
		b.WriteString(" ")
		b.WriteString(order)
	}
	return b.String(), args, nil
}
