package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm/clause"
)

type CommonFilterOperator string

const (
	CommonFilterOperatorEq        CommonFilterOperator = "eq"
	CommonFilterOperatorNotEq     CommonFilterOperator = "not_eq"
	CommonFilterOperatorLt        CommonFilterOperator = "lt"
	CommonFilterOperatorLte       CommonFilterOperator = "lte"
	CommonFilterOperatorGt        CommonFilterOperator = "gt"
	CommonFilterOperatorGte       CommonFilterOperator = "gte"
	CommonFilterOperatorDateRange CommonFilterOperator = "date_range"
	CommonFilterOperatorRange     CommonFilterOperator = "range"
	CommonFilterOperatorIn        CommonFilterOperator = "in"
)

type CommonFilter struct {
	Field    string               `json:"field"`
	Operator CommonFilterOperator `json:"operator"`
	Values   []any                `json:"values"`
	Filters  []CommonFilter       `json:"filters"`
}

// Build constructs a GORM expression.
func (f *CommonFilter) Build(builder clause.Builder) {
	if len(f.Values) == 0 {
		return
	}

	value := f.Values[0]

	switch f.Operator {
	case CommonFilterOperatorEq:
		// Handle JSON operator fields (containing -> or ->> operators)
		if strings.Contains(f.Field, "->") {
			// Use raw SQL expression for JSON operators
			clause.Expr{SQL: fmt.Sprintf("%s = ?", f.Field), Vars: []interface{}{value}}.Build(builder)
		} else {
			// Use standard equality for regular fields
			clause.Eq{Column: f.Field, Value: value}.Build(builder)
		}
	case CommonFilterOperatorNotEq:
		clause.NotConditions{Exprs: []clause.Expression{clause.Eq{Column: f.Field, Value: value}}}.Build(builder)
	case CommonFilterOperatorLt:
		clause.Lt{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorLte:
		clause.Lte{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorGt:
		clause.Gt{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorGte:
		clause.Gte{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorRange:
		if len(f.Values) < 2 {
			return
		}

		clause.And(clause.Gte{Column: f.Field, Value: f.Values[0]}, clause.Lte{Column: f.Field, Value: f.Values[1]}).Build(builder)
	case CommonFilterOperatorIn:
		clause.IN{Column: f.Field, Values: f.Values}.Build(builder)
	default:
		return
	}
}

// FieldGetter resolves a filter field to the record's value.
type FieldGetter func(field string) (any, bool)

// Match evaluates the filter against an in-memory record. It mirrors Build
// for the operators stores can evaluate without SQL; unknown fields never match.
func (f *CommonFilter) Match(get FieldGetter) bool {
	if len(f.Values) == 0 {
		return true
	}
	actual, ok := get(f.Field)
	if !ok {
		return false
	}

	switch f.Operator {
	case CommonFilterOperatorEq:
		c, ok := compareValues(actual, f.Values[0])
		return ok && c == 0
	case CommonFilterOperatorNotEq:
		c, ok := compareValues(actual, f.Values[0])
		return !ok || c != 0
	case CommonFilterOperatorLt:
		c, ok := compareValues(actual, f.Values[0])
		return ok && c < 0
	case CommonFilterOperatorLte:
		c, ok := compareValues(actual, f.Values[0])
		return ok && c <= 0
	case CommonFilterOperatorGt:
		c, ok := compareValues(actual, f.Values[0])
		return ok && c > 0
	case CommonFilterOperatorGte:
		c, ok := compareValues(actual, f.Values[0])
		return ok && c >= 0
	case CommonFilterOperatorRange, CommonFilterOperatorDateRange:
		if len(f.Values) < 2 {
			return true
		}
		lo, ok1 := compareValues(actual, f.Values[0])
		hi, ok2 := compareValues(actual, f.Values[1])
		return ok1 && ok2 && lo >= 0 && hi <= 0
	case CommonFilterOperatorIn:
		for _, v := range f.Values {
			if c, ok := compareValues(actual, v); ok && c == 0 {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// MatchAll reports whether every filter matches.
func MatchAll(filters []*CommonFilter, get FieldGetter) bool {
	for _, f := range filters {
		if f != nil && !f.Match(get) {
			return false
		}
	}
	return true
}

func compareValues(actual, expected any) (int, bool) {
	switch a := actual.(type) {
	case *string:
		if a == nil {
			return 0, expected == nil
		}
		return compareValues(*a, expected)
	case string:
		e, ok := expected.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(a, e), true
	case bool:
		e, ok := expected.(bool)
		if !ok {
			return 0, false
		}
		if a == e {
			return 0, true
		}
		return 1, true
	case time.Time:
		e, ok := toTime(expected)
		if !ok {
			return 0, false
		}
		return a.Compare(e), true
	}
	a, ok := toFloat(actual)
	if !ok {
		return 0, false
	}
	e, ok := toFloat(expected)
	if !ok {
		return 0, false
	}
	switch {
	case a < e:
		return -1, true
	case a > e:
		return 1, true
	}
	return 0, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.DateTime, time.DateOnly} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// CompareValues orders two filter operands the way Match does. ok is false
// when they are not comparable.
func CompareValues(a, b any) (c int, ok bool) {
	return compareValues(a, b)
}
