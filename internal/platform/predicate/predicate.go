package predicate

import (
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Predicate expression trees
//
// A predicate is built once and rendered two ways: compiled to a SQL WHERE
// fragment with positional parameters for PostgreSQL, or evaluated in memory
// against a row of column values with SQL three-valued NULL semantics.
// Column names are qualified ("patient.current_art_status"); the qualifier
// selects the table alias at compile time.
// ---------------------------------------------------------------------------

// NodeType identifies the kind of predicate node.
type NodeType int

const (
	NodeCompare NodeType = iota // Left Op Right
	NodeIn                      // Left IN (Values...)
	NodeIsNull                  // Left IS NULL
	NodeNotNull                 // Left IS NOT NULL
	NodeAnd                     // all Children
	NodeOr                      // any Child
	NodeNot                     // negate Children[0]
	NodeTrue
	NodeFalse
)

// Operator is a comparison operator for NodeCompare.
type Operator string

const (
	OpEq Operator = "="
	OpNe Operator = "<>"
	OpLt Operator = "<"
	OpLe Operator = "<="
	OpGt Operator = ">"
	OpGe Operator = ">="
)

// Node is a boolean predicate tree node.
type Node struct {
	Type     NodeType
	Op       Operator
	Left     Expr
	Right    Expr
	Values   []interface{}
	Children []*Node
}

// ExprType identifies the kind of scalar expression.
type ExprType int

const (
	ExprColumn      ExprType = iota // qualified column reference
	ExprValue                       // bound parameter
	ExprDate                        // calendar date of Args[0]
	ExprAddDays                     // Args[0] + Args[1] days
	ExprDaysBetween                 // whole days from Args[0] to Args[1]
	ExprLower                       // lower-case string
	ExprPlus                        // numeric Args[0] + Args[1]
)

// Expr is a scalar expression used as a comparison operand.
type Expr struct {
	Type   ExprType
	Column string
	Value  interface{}
	Args   []Expr
}

func Col(name string) Expr { return Expr{Type: ExprColumn, Column: name} }

func Val(v interface{}) Expr { return Expr{Type: ExprValue, Value: v} }

// DateOf truncates a timestamp expression to its calendar date.
func DateOf(e Expr) Expr { return Expr{Type: ExprDate, Args: []Expr{e}} }

// AddDays shifts the calendar date of date by days.
func AddDays(date, days Expr) Expr { return Expr{Type: ExprAddDays, Args: []Expr{date, days}} }

// DaysBetween is the number of calendar days from from to to (to - from).
func DaysBetween(from, to Expr) Expr { return Expr{Type: ExprDaysBetween, Args: []Expr{from, to}} }

func Lower(e Expr) Expr { return Expr{Type: ExprLower, Args: []Expr{e}} }

func Plus(a, b Expr) Expr { return Expr{Type: ExprPlus, Args: []Expr{a, b}} }

func compare(op Operator, l, r Expr) *Node {
	return &Node{Type: NodeCompare, Op: op, Left: l, Right: r}
}

func Eq(l, r Expr) *Node { return compare(OpEq, l, r) }
func Ne(l, r Expr) *Node { return compare(OpNe, l, r) }
func Lt(l, r Expr) *Node { return compare(OpLt, l, r) }
func Le(l, r Expr) *Node { return compare(OpLe, l, r) }
func Gt(l, r Expr) *Node { return compare(OpGt, l, r) }
func Ge(l, r Expr) *Node { return compare(OpGe, l, r) }

// Between is lo <= x AND x <= hi.
func Between(x, lo, hi Expr) *Node {
	return And(Ge(x, lo), Le(x, hi))
}

func IsNull(e Expr) *Node  { return &Node{Type: NodeIsNull, Left: e} }
func NotNull(e Expr) *Node { return &Node{Type: NodeNotNull, Left: e} }

func In(e Expr, values ...interface{}) *Node {
	return &Node{Type: NodeIn, Left: e, Values: values}
}

// NullOrEmpty matches a NULL or empty-string column.
func NullOrEmpty(e Expr) *Node {
	return Or(IsNull(e), Eq(e, Val("")))
}

func True() *Node  { return &Node{Type: NodeTrue} }
func False() *Node { return &Node{Type: NodeFalse} }

// And joins nodes with AND. Nil and TRUE children are dropped; an empty
// conjunction is TRUE.
func And(nodes ...*Node) *Node {
	var children []*Node
	for _, n := range nodes {
		if n == nil || n.Type == NodeTrue {
			continue
		}
		if n.Type == NodeFalse {
			return False()
		}
		children = append(children, n)
	}
	switch len(children) {
	case 0:
		return True()
	case 1:
		return children[0]
	}
	return &Node{Type: NodeAnd, Children: children}
}

// Or joins nodes with OR. Nil and FALSE children are dropped; an empty
// disjunction is FALSE.
func Or(nodes ...*Node) *Node {
	var children []*Node
	for _, n := range nodes {
		if n == nil || n.Type == NodeFalse {
			continue
		}
		if n.Type == NodeTrue {
			return True()
		}
		children = append(children, n)
	}
	switch len(children) {
	case 0:
		return False()
	case 1:
		return children[0]
	}
	return &Node{Type: NodeOr, Children: children}
}

func Not(n *Node) *Node {
	if n == nil {
		return False()
	}
	switch n.Type {
	case NodeTrue:
		return False()
	case NodeFalse:
		return True()
	}
	return &Node{Type: NodeNot, Children: []*Node{n}}
}

// IsFalse reports whether n can never match.
func IsFalse(n *Node) bool {
	return n != nil && n.Type == NodeFalse
}

// Date returns the UTC midnight of t's calendar date.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (t NodeType) String() string {
	switch t {
	case NodeCompare:
		return "compare"
	case NodeIn:
		return "in"
	case NodeIsNull:
		return "is-null"
	case NodeNotNull:
		return "not-null"
	case NodeAnd:
		return "and"
	case NodeOr:
		return "or"
	case NodeNot:
		return "not"
	case NodeTrue:
		return "true"
	case NodeFalse:
		return "false"
	}
	return fmt.Sprintf("node(%d)", int(t))
}
