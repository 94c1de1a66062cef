package resource

import (
	"cmp"
	"encoding/json"
	"slices"
	"strings"
)

// Direction is the sort order of a [SortConfig].
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// SortConfig selects the sort key. An empty Key leaves rows in fetch order.
type SortConfig struct {
	Key       string
	Direction Direction
}

// Toggle returns the config after the user picks key: the same key flips direction,
// a different key starts ascending.
func (s SortConfig) Toggle(key string) SortConfig {
	if s.Key == key {
		if s.Direction == Ascending {
			return SortConfig{Key: key, Direction: Descending}
		}
		return SortConfig{Key: key, Direction: Ascending}
	}
	return SortConfig{Key: key, Direction: Ascending}
}

// Derive filters rows by term over fields and then sorts them by cfg. rows is never modified.
func Derive(rows Rows, cfg SortConfig, term string, fields []string) Rows {
	return Sort(Filter(rows, term, fields), cfg)
}

// Filter keeps the rows where the trimmed, lower-cased term is a substring of any of fields.
// An empty term keeps every row. The result is always a new slice.
func Filter(rows Rows, term string, fields []string) Rows {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make(Rows, 0, len(rows))
	for _, r := range rows {
		if term == "" || matches(r, term, fields) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r Row, term string, fields []string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(r.String(f)), term) {
			return true
		}
	}
	return false
}

// Sort returns a stably sorted copy of rows.
//
// Missing and null values are equal to each other and placed after every present value in both directions.
func Sort(rows Rows, cfg SortConfig) Rows {
	out := slices.Clone(rows)
	if out == nil {
		out = Rows{}
	}
	if cfg.Key == "" {
		return out
	}

	slices.SortStableFunc(out, func(a, b Row) int {
		av, aok := present(a, cfg.Key)
		bv, bok := present(b, cfg.Key)
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return 1
		case !bok:
			return -1
		}
		c := Compare(av, bv)
		if cfg.Direction == Descending {
			return -c
		}
		return c
	})
	return out
}

func present(r Row, key string) (any, bool) {
	v, ok := r.Lookup(key)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Compare orders two non-null values. Numbers compare numerically, strings by byte order
// and false sorts before true. Across types: number < string < bool < anything else.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}

	switch ra {
	case rankNumber:
		x, _ := number(a)
		y, _ := number(b)
		return cmp.Compare(x, y)
	case rankString:
		return strings.Compare(a.(string), b.(string))
	case rankBool:
		x, y := a.(bool), b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	}
	return 0
}

const (
	rankNumber = iota
	rankString
	rankBool
	rankOther
)

func rank(v any) int {
	if _, ok := number(v); ok {
		return rankNumber
	}
	switch v.(type) {
	case string:
		return rankString
	case bool:
		return rankBool
	}
	return rankOther
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

type viewKey struct {
	version int
	sort    SortConfig
	term    string
}

// View memoizes [Derive] for one collection. The derived rows are recomputed only when
// the rows, the sort config or the search term change.
type View struct {
	fields  []string
	rows    Rows
	version int
	sort    SortConfig
	term    string

	cached   Rows
	key      viewKey
	valid    bool
	computes int
}

// NewView creates a [View] searching over fields.
func NewView(fields []string) *View {
	return &View{fields: fields}
}

// SetRows replaces the raw collection.
func (v *View) SetRows(rows Rows) {
	v.rows = rows
	v.version++
}

// Sort returns the current sort config.
func (v *View) Sort() SortConfig { return v.sort }

// SetSort replaces the sort config.
func (v *View) SetSort(cfg SortConfig) { v.sort = cfg }

// Toggle applies [SortConfig.Toggle] for key and returns the new config.
func (v *View) Toggle(key string) SortConfig {
	v.sort = v.sort.Toggle(key)
	return v.sort
}

// Term returns the current search term.
func (v *View) Term() string { return v.term }

// SetTerm replaces the search term.
func (v *View) SetTerm(term string) { v.term = term }

// Rows returns the derived rows. Callers must not modify the result.
func (v *View) Rows() Rows {
	key := viewKey{version: v.version, sort: v.sort, term: v.term}
	if v.valid && v.key == key {
		return v.cached
	}
	v.cached = Derive(v.rows, v.sort, v.term, v.fields)
	v.key = key
	v.valid = true
	v.computes++
	return v.cached
}

// Computations reports how many times the derived rows were recomputed.
func (v *View) Computations() int { return v.computes }
