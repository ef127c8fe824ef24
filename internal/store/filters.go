package store

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Op is a filter operator over a projection column.
type Op string

const (
	OpEq      Op = "="
	OpLt      Op = "<"
	OpLte     Op = "<="
	OpGt      Op = ">"
	OpGte     Op = ">="
	OpIn      Op = "IN"
	OpNotNull Op = "NOT NULL"
)

// Cond is one predicate on a projection column.
type Cond struct {
	Column string
	Op     Op
	Value  any   // ignored for OpNotNull
	Values []any // OpIn only
}

// Eq builds an equality predicate.
func Eq(column string, value any) Cond {
	return Cond{Column: column, Op: OpEq, Value: value}
}

// In builds a membership predicate.
func In(column string, values ...any) Cond {
	return Cond{Column: column, Op: OpIn, Values: values}
}

// Before builds a strict upper-bound predicate.
func Before(column string, value any) Cond {
	return Cond{Column: column, Op: OpLt, Value: value}
}

// NotNull builds a presence predicate.
func NotNull(column string) Cond {
	return Cond{Column: column, Op: OpNotNull}
}

// Filter narrows and orders a GetAll query. The zero value returns every row
// for the organization, most recently updated first.
type Filter struct {
	Where   []Cond
	OrderBy string // projection column or "updated_at"; default updated_at
	Asc     bool   // default descending
	Limit   int    // 0 = no limit
}

// buildWhere renders the filter predicates against the schema, validating
// every referenced column so callers can never inject raw SQL.
func buildWhere(schema *Schema, f Filter) (string, []any, error) {
	var clauses []string
	var args []any

	for _, c := range f.Where {
		if _, ok := schema.column(c.Column); !ok && c.Column != "updated_at" {
			return "", nil, fmt.Errorf("unknown projection column %q for %s", c.Column, schema.Name)
		}
		switch c.Op {
		case OpEq, OpLt, OpLte, OpGt, OpGte:
			clauses = append(clauses, fmt.Sprintf("%s %s ?", c.Column, c.Op))
			args = append(args, c.Value)
		case OpIn:
			if len(c.Values) == 0 {
				// Empty membership matches nothing
				clauses = append(clauses, "0 = 1")
				continue
			}
			placeholders := strings.Repeat("?, ", len(c.Values))
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", c.Column, placeholders[:len(placeholders)-2]))
			args = append(args, c.Values...)
		case OpNotNull:
			clauses = append(clauses, fmt.Sprintf("%s IS NOT NULL", c.Column))
		default:
			return "", nil, fmt.Errorf("unsupported filter op %q", c.Op)
		}
	}

	if len(clauses) == 0 {
		return "", args, nil
	}
	return " AND " + strings.Join(clauses, " AND "), args, nil
}

// Matches reports whether a payload satisfies every predicate in where,
// evaluated over the schema's projection values. Semantics mirror the SQL
// rendering in buildWhere: a missing projection value fails any comparison,
// the way NULL does in SQL.
func Matches(schema *Schema, where []Cond, payload json.RawMessage) (bool, error) {
	vals, err := schema.projections(payload)
	if err != nil {
		return false, err
	}
	byName := make(map[string]any, len(schema.Columns))
	for i, c := range schema.Columns {
		byName[c.Name] = vals[i]
	}

	for _, c := range where {
		v, ok := byName[c.Column]
		if !ok {
			return false, fmt.Errorf("unknown projection column %q for %s", c.Column, schema.Name)
		}
		match, err := evalCond(c, v)
		if err != nil {
			return false, err
		}
		if !match {
			return false, nil
		}
	}
	return true, nil
}

func evalCond(c Cond, v any) (bool, error) {
	switch c.Op {
	case OpNotNull:
		return v != nil, nil
	case OpIn:
		if v == nil {
			return false, nil
		}
		for _, want := range c.Values {
			if condEqual(v, want) {
				return true, nil
			}
		}
		return false, nil
	case OpEq:
		return v != nil && condEqual(v, c.Value), nil
	case OpLt, OpLte, OpGt, OpGte:
		if v == nil {
			return false, nil
		}
		cmp, err := condCompare(v, c.Value)
		if err != nil {
			return false, err
		}
		switch c.Op {
		case OpLt:
			return cmp < 0, nil
		case OpLte:
			return cmp <= 0, nil
		case OpGt:
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	default:
		return false, fmt.Errorf("unsupported filter op %q", c.Op)
	}
}

func condEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func condCompare(a, b any) (int, error) {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1, nil
			case fa > fb:
				return 1, nil
			}
			return 0, nil
		}
	}
	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		return strings.Compare(sa, sb), nil
	}
	return 0, fmt.Errorf("cannot compare %T with %T", a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// buildOrder renders the ORDER BY / LIMIT tail.
func buildOrder(schema *Schema, f Filter) (string, error) {
	col := f.OrderBy
	if col == "" {
		col = "updated_at"
	}
	if _, ok := schema.column(col); !ok && col != "updated_at" {
		return "", fmt.Errorf("unknown order column %q for %s", col, schema.Name)
	}

	dir := "DESC"
	if f.Asc {
		dir = "ASC"
	}
	tail := fmt.Sprintf(" ORDER BY %s %s", col, dir)
	if f.Limit > 0 {
		tail += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	return tail, nil
}
