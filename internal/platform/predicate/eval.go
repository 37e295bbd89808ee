package predicate

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Row supplies column values for in-memory evaluation. A nil value is NULL.
type Row interface {
	Value(column string) (interface{}, bool)
}

// MapRow is a Row backed by a map keyed by qualified column name.
type MapRow map[string]interface{}

func (r MapRow) Value(column string) (interface{}, bool) {
	v, ok := r[column]
	return v, ok
}

// Merge returns a row holding the columns of every given row.
func Merge(rows ...MapRow) MapRow {
	out := MapRow{}
	for _, r := range rows {
		for k, v := range r {
			out[k] = v
		}
	}
	return out
}

type truth int8

const (
	unknown truth = iota
	falsy
	truthy
)

func truthOf(b bool) truth {
	if b {
		return truthy
	}
	return falsy
}

// Eval reports whether row satisfies n the way a SQL WHERE clause would:
// only a TRUE result matches, FALSE and UNKNOWN do not.
func Eval(n *Node, row Row) (bool, error) {
	t, err := eval(n, row)
	if err != nil {
		return false, err
	}
	return t == truthy, nil
}

func eval(n *Node, row Row) (truth, error) {
	if n == nil {
		return unknown, fmt.Errorf("nil predicate")
	}

	switch n.Type {
	case NodeTrue:
		return truthy, nil
	case NodeFalse:
		return falsy, nil

	case NodeCompare:
		l, err := evalExpr(n.Left, row)
		if err != nil {
			return unknown, err
		}
		r, err := evalExpr(n.Right, row)
		if err != nil {
			return unknown, err
		}
		if l == nil || r == nil {
			return unknown, nil
		}
		cmp, err := compareValues(l, r)
		if err != nil {
			return unknown, err
		}
		switch n.Op {
		case OpEq:
			return truthOf(cmp == 0), nil
		case OpNe:
			return truthOf(cmp != 0), nil
		case OpLt:
			return truthOf(cmp < 0), nil
		case OpLe:
			return truthOf(cmp <= 0), nil
		case OpGt:
			return truthOf(cmp > 0), nil
		case OpGe:
			return truthOf(cmp >= 0), nil
		}
		return unknown, fmt.Errorf("unknown operator %q", n.Op)

	case NodeIsNull, NodeNotNull:
		v, err := evalExpr(n.Left, row)
		if err != nil {
			return unknown, err
		}
		if n.Type == NodeIsNull {
			return truthOf(v == nil), nil
		}
		return truthOf(v != nil), nil

	case NodeIn:
		v, err := evalExpr(n.Left, row)
		if err != nil {
			return unknown, err
		}
		if len(n.Values) == 0 {
			return falsy, nil
		}
		if v == nil {
			return unknown, nil
		}
		for _, candidate := range n.Values {
			c := normalize(candidate)
			if c == nil {
				continue
			}
			cmp, err := compareValues(v, c)
			if err != nil {
				return unknown, err
			}
			if cmp == 0 {
				return truthy, nil
			}
		}
		return falsy, nil

	case NodeAnd:
		result := truthy
		for _, child := range n.Children {
			t, err := eval(child, row)
			if err != nil {
				return unknown, err
			}
			if t == falsy {
				return falsy, nil
			}
			if t == unknown {
				result = unknown
			}
		}
		return result, nil

	case NodeOr:
		result := falsy
		for _, child := range n.Children {
			t, err := eval(child, row)
			if err != nil {
				return unknown, err
			}
			if t == truthy {
				return truthy, nil
			}
			if t == unknown {
				result = unknown
			}
		}
		return result, nil

	case NodeNot:
		if len(n.Children) != 1 {
			return unknown, fmt.Errorf("not node requires one child, got %d", len(n.Children))
		}
		t, err := eval(n.Children[0], row)
		if err != nil {
			return unknown, err
		}
		switch t {
		case truthy:
			return falsy, nil
		case falsy:
			return truthy, nil
		}
		return unknown, nil
	}

	return unknown, fmt.Errorf("unknown predicate node %s", n.Type)
}

func evalExpr(e Expr, row Row) (interface{}, error) {
	switch e.Type {
	case ExprColumn:
		v, ok := row.Value(e.Column)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", e.Column)
		}
		return normalize(v), nil

	case ExprValue:
		v := normalize(e.Value)
		if t, ok := v.(time.Time); ok {
			return Date(t), nil
		}
		return v, nil

	case ExprDate:
		v, err := evalExpr(e.Args[0], row)
		if err != nil || v == nil {
			return nil, err
		}
		t, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("date of non-time value %T", v)
		}
		return Date(t), nil

	case ExprLower:
		v, err := evalExpr(e.Args[0], row)
		if err != nil || v == nil {
			return nil, err
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("lower of non-string value %T", v)
		}
		return strings.ToLower(s), nil

	case ExprAddDays, ExprDaysBetween, ExprPlus:
		a, err := evalExpr(e.Args[0], row)
		if err != nil {
			return nil, err
		}
		b, err := evalExpr(e.Args[1], row)
		if err != nil {
			return nil, err
		}
		if a == nil || b == nil {
			return nil, nil
		}
		switch e.Type {
		case ExprAddDays:
			t, ok := a.(time.Time)
			days, okDays := b.(float64)
			if !ok || !okDays {
				return nil, fmt.Errorf("add days needs (time, number), got (%T, %T)", a, b)
			}
			return Date(t).AddDate(0, 0, int(days)), nil
		case ExprDaysBetween:
			from, ok := a.(time.Time)
			to, okTo := b.(time.Time)
			if !ok || !okTo {
				return nil, fmt.Errorf("days between needs two times, got (%T, %T)", a, b)
			}
			return math.Round(Date(to).Sub(Date(from)).Hours() / 24), nil
		default:
			x, ok := a.(float64)
			y, okY := b.(float64)
			if !ok || !okY {
				return nil, fmt.Errorf("plus needs two numbers, got (%T, %T)", a, b)
			}
			return x + y, nil
		}
	}

	return nil, fmt.Errorf("unknown expression type %d", e.Type)
}

// normalize collapses numeric kinds to float64 and dereferences pointers.
func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case *int:
		if x == nil {
			return nil
		}
		return float64(*x)
	case *int64:
		if x == nil {
			return nil
		}
		return float64(*x)
	case *float64:
		if x == nil {
			return nil
		}
		return *x
	case *string:
		if x == nil {
			return nil
		}
		return *x
	case *time.Time:
		if x == nil {
			return nil
		}
		return *x
	}
	return v
}

func compareValues(a, b interface{}) (int, error) {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			break
		}
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
		return 0, nil
	case string:
		y, ok := b.(string)
		if !ok {
			break
		}
		return strings.Compare(x, y), nil
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			break
		}
		return x.Compare(y), nil
	case bool:
		y, ok := b.(bool)
		if !ok {
			break
		}
		if x == y {
			return 0, nil
		}
		if !x {
			return -1, nil
		}
		return 1, nil
	}
	return 0, fmt.Errorf("cannot compare %T with %T", a, b)
}
