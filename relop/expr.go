/*
Copyright 2026 The Relq Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package relop

import (
	"fmt"
	"strings"
)

// Expr is a scalar expression over column variables. The algebra is small
// on purpose: join conditions and residual predicates need comparisons,
// boolean combinators, null tests and uninterpreted calls, nothing more.
type Expr interface {
	iExpr()
	String() string
}

func (*Column) iExpr()     {}
func (*Literal) iExpr()    {}
func (*Comparison) iExpr() {}
func (*And) iExpr()        {}
func (*Or) iExpr()         {}
func (*Not) iExpr()        {}
func (*Is) iExpr()         {}
func (*Call) iExpr()       {}

// Literal is a constant. Val is nil for NULL, otherwise an int64, float64,
// string or bool.
type Literal struct {
	Val any
}

func (l *Literal) String() string {
	switch v := l.Val.(type) {
	case nil:
		return "null"
	case string:
		return "'" + v + "'"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ComparisonOp is the operator of a Comparison.
type ComparisonOp int8

const (
	EqualOp ComparisonOp = iota
	NotEqualOp
	LessThanOp
	LessEqualOp
	GreaterThanOp
	GreaterEqualOp
)

func (op ComparisonOp) String() string {
	switch op {
	case EqualOp:
		return "="
	case NotEqualOp:
		return "!="
	case LessThanOp:
		return "<"
	case LessEqualOp:
		return "<="
	case GreaterThanOp:
		return ">"
	case GreaterEqualOp:
		return ">="
	}
	return "?"
}

// Comparison applies a ComparisonOp to two scalar operands.
type Comparison struct {
	Op    ComparisonOp
	Left  Expr
	Right Expr
}

func (c *Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.Left, c.Op, c.Right)
}

// And is a binary conjunction. Conjunction chains lean left, which is what
// SplitAndExpression and AndExpressions maintain.
type And struct {
	Left  Expr
	Right Expr
}

func (a *And) String() string {
	return fmt.Sprintf("%s and %s", a.Left, a.Right)
}

// Or is a binary disjunction.
type Or struct {
	Left  Expr
	Right Expr
}

func (o *Or) String() string {
	return fmt.Sprintf("(%s or %s)", o.Left, o.Right)
}

// Not negates its operand.
type Not struct {
	Inner Expr
}

func (n *Not) String() string {
	return fmt.Sprintf("not %s", n.Inner)
}

// IsOp is the operator of an Is expression.
type IsOp int8

const (
	IsNullOp IsOp = iota
	IsNotNullOp
)

// Is tests an operand against NULL.
type Is struct {
	Left Expr
	Op   IsOp
}

func (i *Is) String() string {
	if i.Op == IsNotNullOp {
		return fmt.Sprintf("%s is not null", i.Left)
	}
	return fmt.Sprintf("%s is null", i.Left)
}

// NotNull builds the IS NOT NULL test for a column.
func NotNull(col *Column) Expr {
	return &Is{Left: col, Op: IsNotNullOp}
}

// Call is an uninterpreted function application. The optimizer treats it as
// a black box over its argument columns.
type Call struct {
	Name string
	Args []Expr
}

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return c.Name + "(" + strings.Join(args, ", ") + ")"
}

// VisitExpr walks e depth first, pre-order. Returning false from visit
// stops the descent below that node.
func VisitExpr(e Expr, visit func(Expr) bool) {
	if e == nil || !visit(e) {
		return
	}
	switch node := e.(type) {
	case *Comparison:
		VisitExpr(node.Left, visit)
		VisitExpr(node.Right, visit)
	case *And:
		VisitExpr(node.Left, visit)
		VisitExpr(node.Right, visit)
	case *Or:
		VisitExpr(node.Left, visit)
		VisitExpr(node.Right, visit)
	case *Not:
		VisitExpr(node.Inner, visit)
	case *Is:
		VisitExpr(node.Left, visit)
	case *Call:
		for _, arg := range node.Args {
			VisitExpr(arg, visit)
		}
	}
}

// ColumnsOf returns the distinct columns of e in first-appearance order.
func ColumnsOf(e Expr) (result []*Column) {
	seen := map[VarID]bool{}
	VisitExpr(e, func(node Expr) bool {
		if col, ok := node.(*Column); ok && !seen[col.ID] {
			seen[col.ID] = true
			result = append(result, col)
		}
		return true
	})
	return
}

// SplitAndExpression breaks up the Expr into its component Exprs, separated
// by And boundaries. The results are appended to filters, which can be nil.
func SplitAndExpression(filters []Expr, node Expr) []Expr {
	if node == nil {
		return filters
	}
	if and, ok := node.(*And); ok {
		filters = SplitAndExpression(filters, and.Left)
		filters = SplitAndExpression(filters, and.Right)
		return filters
	}
	return append(filters, node)
}

// AndExpressions ands together two or more expressions, minimising the expr
// when possible: nils are skipped and exact duplicates appear once.
func AndExpressions(exprs ...Expr) Expr {
	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return exprs[0]
	default:
		result := (Expr)(nil)
	outer:
		for i, expr := range exprs {
			if expr == nil {
				continue
			}
			if result == nil {
				result = expr
				continue
			}
			for j := 0; j < i; j++ {
				if EqualsExpr(expr, exprs[j]) {
					continue outer
				}
			}
			result = &And{Left: result, Right: expr}
		}
		return result
	}
}

// SubstituteColumns rewrites e replacing each column by lookup(col) when it
// returns non-nil. Untouched subtrees are shared, changed spines copied.
func SubstituteColumns(e Expr, lookup func(*Column) *Column) Expr {
	if e == nil {
		return nil
	}
	switch node := e.(type) {
	case *Column:
		if repl := lookup(node); repl != nil {
			return repl
		}
		return node
	case *Literal:
		return node
	case *Comparison:
		l, r := SubstituteColumns(node.Left, lookup), SubstituteColumns(node.Right, lookup)
		if l == node.Left && r == node.Right {
			return node
		}
		return &Comparison{Op: node.Op, Left: l, Right: r}
	case *And:
		l, r := SubstituteColumns(node.Left, lookup), SubstituteColumns(node.Right, lookup)
		if l == node.Left && r == node.Right {
			return node
		}
		return &And{Left: l, Right: r}
	case *Or:
		l, r := SubstituteColumns(node.Left, lookup), SubstituteColumns(node.Right, lookup)
		if l == node.Left && r == node.Right {
			return node
		}
		return &Or{Left: l, Right: r}
	case *Not:
		in := SubstituteColumns(node.Inner, lookup)
		if in == node.Inner {
			return node
		}
		return &Not{Inner: in}
	case *Is:
		in := SubstituteColumns(node.Left, lookup)
		if in == node.Left {
			return node
		}
		return &Is{Left: in, Op: node.Op}
	case *Call:
		args := node.Args
		changed := false
		for i, arg := range node.Args {
			repl := SubstituteColumns(arg, lookup)
			if repl != arg {
				if !changed {
					args = make([]Expr, len(node.Args))
					copy(args, node.Args)
					changed = true
				}
				args[i] = repl
			}
		}
		if !changed {
			return node
		}
		return &Call{Name: node.Name, Args: args}
	}
	return e
}

// EqualsExpr reports structural equality, comparing columns by identity.
func EqualsExpr(a, b Expr) bool {
	return EqualsExprWith(a, b, func(x, y *Column) bool { return x == y })
}

// EqualsExprWith reports structural equality under a caller-chosen column
// equivalence. Self-join matching passes an equivalence that pairs the
// same-named columns of the two table instances.
func EqualsExprWith(a, b Expr, colEq func(*Column, *Column) bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case *Column:
		bv, ok := b.(*Column)
		return ok && colEq(av, bv)
	case *Literal:
		bv, ok := b.(*Literal)
		return ok && av.Val == bv.Val
	case *Comparison:
		bv, ok := b.(*Comparison)
		return ok && av.Op == bv.Op &&
			EqualsExprWith(av.Left, bv.Left, colEq) && EqualsExprWith(av.Right, bv.Right, colEq)
	case *And:
		bv, ok := b.(*And)
		return ok && EqualsExprWith(av.Left, bv.Left, colEq) && EqualsExprWith(av.Right, bv.Right, colEq)
	case *Or:
		bv, ok := b.(*Or)
		return ok && EqualsExprWith(av.Left, bv.Left, colEq) && EqualsExprWith(av.Right, bv.Right, colEq)
	case *Not:
		bv, ok := b.(*Not)
		return ok && EqualsExprWith(av.Inner, bv.Inner, colEq)
	case *Is:
		bv, ok := b.(*Is)
		return ok && av.Op == bv.Op && EqualsExprWith(av.Left, bv.Left, colEq)
	case *Call:
		bv, ok := b.(*Call)
		if !ok || av.Name != bv.Name || len(av.Args) != len(bv.Args) {
			return false
		}
		for i := range av.Args {
			if !EqualsExprWith(av.Args[i], bv.Args[i], colEq) {
				return false
			}
		}
		return true
	}
	return false
}
