package predicate

import (
	"fmt"
	"strings"
	"time"
)

// Context maps column qualifiers to SQL table aliases and lists the columns
// each qualifier exposes.
type Context struct {
	Aliases map[string]string
	Columns map[string][]string
}

func (c *Context) column(name string) (string, error) {
	qualifier, col, ok := strings.Cut(name, ".")
	if !ok {
		return "", fmt.Errorf("column %q is not qualified", name)
	}
	alias, ok := c.Aliases[qualifier]
	if !ok {
		return "", fmt.Errorf("unknown column qualifier %q", qualifier)
	}
	if cols, ok := c.Columns[qualifier]; ok {
		found := false
		for _, known := range cols {
			if known == col {
				found = true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("unknown column %q", name)
		}
	}
	return alias + "." + col, nil
}

// Compile converts a predicate tree to a SQL boolean expression.
// startIdx is the first positional parameter index ($1, $2, ...).
func Compile(n *Node, ctx *Context, startIdx int) (string, []interface{}, error) {
	if n == nil {
		return "", nil, fmt.Errorf("nil predicate")
	}

	switch n.Type {
	case NodeTrue:
		return "TRUE", nil, nil
	case NodeFalse:
		return "FALSE", nil, nil

	case NodeCompare:
		left, leftArgs, err := compileExpr(n.Left, ctx, startIdx)
		if err != nil {
			return "", nil, err
		}
		right, rightArgs, err := compileExpr(n.Right, ctx, startIdx+len(leftArgs))
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s %s %s", left, n.Op, right), append(leftArgs, rightArgs...), nil

	case NodeIsNull, NodeNotNull:
		operand, args, err := compileExpr(n.Left, ctx, startIdx)
		if err != nil {
			return "", nil, err
		}
		if n.Type == NodeIsNull {
			return operand + " IS NULL", args, nil
		}
		return operand + " IS NOT NULL", args, nil

	case NodeIn:
		if len(n.Values) == 0 {
			return "FALSE", nil, nil
		}
		operand, args, err := compileExpr(n.Left, ctx, startIdx)
		if err != nil {
			return "", nil, err
		}
		placeholders := make([]string, len(n.Values))
		for i, v := range n.Values {
			placeholders[i] = fmt.Sprintf("$%d", startIdx+len(args))
			args = append(args, v)
		}
		return fmt.Sprintf("%s IN (%s)", operand, strings.Join(placeholders, ", ")), args, nil

	case NodeAnd, NodeOr:
		joiner := " AND "
		if n.Type == NodeOr {
			joiner = " OR "
		}
		parts := make([]string, 0, len(n.Children))
		var args []interface{}
		for _, child := range n.Children {
			sql, childArgs, err := Compile(child, ctx, startIdx+len(args))
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			args = append(args, childArgs...)
		}
		return "(" + strings.Join(parts, joiner) + ")", args, nil

	case NodeNot:
		if len(n.Children) != 1 {
			return "", nil, fmt.Errorf("not node requires one child, got %d", len(n.Children))
		}
		sql, args, err := Compile(n.Children[0], ctx, startIdx)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("NOT (%s)", sql), args, nil
	}

	return "", nil, fmt.Errorf("unknown predicate node %s", n.Type)
}

func compileExpr(e Expr, ctx *Context, startIdx int) (string, []interface{}, error) {
	switch e.Type {
	case ExprColumn:
		col, err := ctx.column(e.Column)
		if err != nil {
			return "", nil, err
		}
		return col, nil, nil

	case ExprValue:
		if t, ok := e.Value.(time.Time); ok {
			return fmt.Sprintf("$%d::date", startIdx), []interface{}{Date(t)}, nil
		}
		return fmt.Sprintf("$%d", startIdx), []interface{}{e.Value}, nil

	case ExprDate, ExprLower:
		if len(e.Args) != 1 {
			return "", nil, fmt.Errorf("expression %d requires one argument", e.Type)
		}
		inner, args, err := compileExpr(e.Args[0], ctx, startIdx)
		if err != nil {
			return "", nil, err
		}
		if e.Type == ExprDate {
			return fmt.Sprintf("CAST(%s AS DATE)", inner), args, nil
		}
		return fmt.Sprintf("LOWER(%s)", inner), args, nil

	case ExprAddDays, ExprDaysBetween, ExprPlus:
		if len(e.Args) != 2 {
			return "", nil, fmt.Errorf("expression %d requires two arguments", e.Type)
		}
		a, aArgs, err := compileExpr(e.Args[0], ctx, startIdx)
		if err != nil {
			return "", nil, err
		}
		b, bArgs, err := compileExpr(e.Args[1], ctx, startIdx+len(aArgs))
		if err != nil {
			return "", nil, err
		}
		args := append(aArgs, bArgs...)
		switch e.Type {
		case ExprAddDays:
			return fmt.Sprintf("(CAST(%s AS DATE) + CAST(%s AS INTEGER))", a, b), args, nil
		case ExprDaysBetween:
			return fmt.Sprintf("(CAST(%s AS DATE) - CAST(%s AS DATE))", b, a), args, nil
		default:
			return fmt.Sprintf("(%s + %s)", a, b), args, nil
		}
	}

	return "", nil, fmt.Errorf("unknown expression type %d", e.Type)
}
