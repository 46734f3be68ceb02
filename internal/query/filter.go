package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Op is a comparison operator, decided once when a filter atom is parsed.
type Op int

const (
	Eq Op = iota
	Like
	Gt
	Gte
	Lt
	Lte
)

// token returns the SQL operator token for op.
func (op Op) token() (string, error) {
	switch op {
	case Eq:
		return "=", nil
	case Like:
		return "LIKE", nil
	case Gt:
		return ">", nil
	case Gte:
		return ">=", nil
	case Lt:
		return "<", nil
	case Lte:
		return "<=", nil
	default:
		return "", fmt.Errorf("unknown operator %d", int(op))
	}
}

// numeric reports whether op compares values as integers.
func (op Op) numeric() bool {
	switch op {
	case Gt, Gte, Lt, Lte:
		return true
	}
	return false
}

// Filter is the closed set of query predicates. A nil Filter means match-all.
type Filter interface {
	isFilter()
}

// MatchAll matches every indexed document.
type MatchAll struct{}

// TagContains matches documents whose filetags value contains the substring.
type TagContains struct {
	Tag string
}

// And is the conjunction of one or more sub-filters.
type And struct {
	Filters []Filter
}

// Or is the disjunction of one or more sub-filters.
type Or struct {
	Filters []Filter
}

// Compare matches documents having a row with the given key whose value
// satisfies Op against Value. For numeric operators the stored value is cast
// to an integer and Value must be an integer literal.
type Compare struct {
	Key   string
	Op    Op
	Value string
}

func (MatchAll) isFilter()    {}
func (TagContains) isFilter() {}
func (And) isFilter()         {}
func (Or) isFilter()          {}
func (Compare) isFilter()     {}

// ParseAtom converts a raw key/value pair into a Compare filter. The dispatch
// below is ordered and first-match-wins; it runs exactly once here so the
// compiler never re-derives operators from value prefixes.
//
//  1. key "file.path" matches the stored relative path as a wildcard pattern
//  2. key "file.name" matches the stored filename (key "file") exactly
//  3. a >=, <=, > or < prefix (checked longest first) makes an integer
//     comparison of the remainder
//  4. a % anywhere in the value makes a wildcard match
//  5. anything else is an exact match
func ParseAtom(key, value string) (Compare, error) {
	switch key {
	case "file.path":
		return Compare{Key: "file.path", Op: Like, Value: value}, nil
	case "file.name":
		return Compare{Key: "file", Op: Eq, Value: value}, nil
	}

	for _, p := range []struct {
		prefix string
		op     Op
	}{
		{">=", Gte},
		{"<=", Lte},
		{">", Gt},
		{"<", Lt},
	} {
		if strings.HasPrefix(value, p.prefix) {
			operand := strings.TrimSpace(strings.TrimPrefix(value, p.prefix))
			if _, err := strconv.ParseInt(operand, 10, 64); err != nil {
				return Compare{}, fmt.Errorf("numeric comparison %s%s for key %q: operand is not an integer", p.prefix, operand, key)
			}
			return Compare{Key: key, Op: p.op, Value: operand}, nil
		}
	}

	if strings.Contains(value, "%") {
		return Compare{Key: key, Op: Like, Value: value}, nil
	}
	return Compare{Key: key, Op: Eq, Value: value}, nil
}

// filterWire is the JSON wire shape for filters, shared by the HTTP API and
// the MCP server. Exactly one of the fields must be set:
//
//	{"tag": "project"}
//	{"key": "type", "value": "book"}
//	{"and": [...]} / {"or": [...]}
type filterWire struct {
	Tag   *string      `json:"tag,omitempty"`
	Key   *string      `json:"key,omitempty"`
	Value *string      `json:"value,omitempty"`
	And   []filterWire `json:"and,omitempty"`
	Or    []filterWire `json:"or,omitempty"`
}

// ParseFilterJSON decodes the filter wire format. An empty or ambiguous
// object is a configuration error, not a match-all; callers express match-all
// by omitting the filter entirely.
func ParseFilterJSON(data []byte) (Filter, error) {
	var w filterWire
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("decode filter: %w", err)
	}
	return w.toFilter()
}

func (w filterWire) toFilter() (Filter, error) {
	var set int
	if w.Tag != nil {
		set++
	}
	if w.Key != nil {
		set++
	}
	if len(w.And) > 0 {
		set++
	}
	if len(w.Or) > 0 {
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("filter must have exactly one of tag, key/value, and, or")
	}

	switch {
	case w.Tag != nil:
		return TagContains{Tag: *w.Tag}, nil
	case w.Key != nil:
		if w.Value == nil {
			return nil, fmt.Errorf("filter key %q has no value", *w.Key)
		}
		return ParseAtom(*w.Key, *w.Value)
	case len(w.And) > 0:
		subs, err := wireList(w.And)
		if err != nil {
			return nil, err
		}
		return And{Filters: subs}, nil
	default:
		subs, err := wireList(w.Or)
		if err != nil {
			return nil, err
		}
		return Or{Filters: subs}, nil
	}
}

func wireList(ws []filterWire) ([]Filter, error) {
	subs := make([]Filter, 0, len(ws))
	for _, sub := range ws {
		f, err := sub.toFilter()
		if err != nil {
			return nil, err
		}
		subs = append(subs, f)
	}
	return subs, nil
}
