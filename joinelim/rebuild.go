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

package joinelim

import (
	"sort"

	"github.com/relq/relq/log"
	"github.com/relq/relq/relop"
)

// pendingPredicate is a conjunct that could not attach at the join it
// came from because elimination moved some of its variables. It floats
// upward until an ancestor subtree spans [lo, hi], the node interval
// covering every variable's new slot.
type pendingPredicate struct {
	expr   relop.Expr
	lo, hi nodeID

	// floating conjuncts reference no columns at all and attach at the
	// first node that considers them.
	floating bool

	// external conjuncts reference columns produced outside the join
	// region and can only attach above its root.
	external bool
}

func (p pendingPredicate) legalAt(n *augNode) bool {
	if p.external {
		return false
	}
	return p.floating || (n.subtreeStart <= p.lo && p.hi <= n.id)
}

// rebuild walks the augmented tree bottom-up and emits the slimmed
// operator tree. Conjuncts whose variables moved during elimination
// attach at the lowest ancestor that spans all of them again; whatever
// cannot attach anywhere lands in a filter above the root.
func (g *joinGraph) rebuild() relop.Operator {
	root, pending := g.rebuildNode(g.root)
	if root == nil {
		root = &relop.SingleRow{}
	}
	if len(pending) == 0 {
		return root
	}
	leftovers := make([]relop.Expr, 0, len(pending))
	for _, p := range pending {
		leftovers = append(leftovers, p.expr)
	}
	log.V(3).Infof("joinelim: %d conjuncts attach above the rebuilt root", len(leftovers))
	return relop.NewFilter(root, leftovers...)
}

func (g *joinGraph) rebuildNode(id nodeID) (relop.Operator, []pendingPredicate) {
	n := g.nodes[id]
	switch {
	case n.table != nil:
		return g.rebuildTable(n), nil
	case n.join != nil && n.join.isCross:
		return g.rebuildCross(n)
	case n.join != nil:
		return g.rebuildJoin(n)
	default:
		// Opaque subtrees pass through untouched.
		return n.op, nil
	}
}

// rebuildTable emits the scan that now lives at this slot: the
// survivor of the slot's replacement class, placed once at the class's
// earliest node. Every other slot of the class emits nothing. The scan
// picks up an IS NOT NULL filter for each null check collected while
// joins around it were removed.
func (g *joinGraph) rebuildTable(n *augNode) relop.Operator {
	s := n.table.survivor()
	if s.newLocation != n.id {
		return nil
	}
	if len(s.nullable) == 0 {
		return s.scan
	}

	cols := make([]*relop.Column, 0, len(s.nullable))
	seen := make(map[relop.VarID]bool, len(s.nullable))
	for _, col := range s.nullable {
		col = g.finalColumn(col)
		if seen[col.ID] {
			continue
		}
		seen[col.ID] = true
		cols = append(cols, col)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].ID < cols[j].ID })

	filters := make([]relop.Expr, len(cols))
	for i, col := range cols {
		filters[i] = relop.NotNull(col)
	}
	return relop.NewFilter(s.scan, filters...)
}

func (g *joinGraph) rebuildJoin(n *augNode) (relop.Operator, []pendingPredicate) {
	left, pending := g.rebuildNode(n.children[0])
	right, rightPending := g.rebuildNode(n.children[1])
	pending = append(pending, rightPending...)

	jv := n.join
	if jv.kind == relop.LeftOuterJoin && (left == nil || right == nil) {
		// A one-sided left outer join degenerates to its surviving
		// side. Its condition only decided which rows null-extend, so
		// reapplying it anywhere would change the result.
		if left != nil {
			return left, pending
		}
		return right, pending
	}

	if left != nil && right != nil && jv.kind != relop.InnerJoin {
		// Outer join conditions stay put: every variable they mention
		// is confined to its own side, so they are always well formed
		// here, and nothing from below may be pulled in.
		join := &relop.Join{
			Kind:      jv.kind,
			Left:      left,
			Right:     right,
			Condition: relop.AndExpressions(g.conditionConjuncts(jv)...),
		}
		g.processed[join] = true
		return join, pending
	}

	pending = append(g.localizeConjuncts(g.conditionConjuncts(jv)), pending...)
	attach, pending := splitByLegality(pending, n)
	switch {
	case left != nil && right != nil:
		join := &relop.Join{
			Kind:      relop.InnerJoin,
			Left:      left,
			Right:     right,
			Condition: relop.AndExpressions(attach...),
		}
		g.processed[join] = true
		return join, pending
	case left == nil && right == nil:
		if len(attach) == 0 {
			return nil, pending
		}
		return relop.NewFilter(&relop.SingleRow{}, attach...), pending
	default:
		survivor := left
		if survivor == nil {
			survivor = right
		}
		if len(attach) == 0 {
			return survivor, pending
		}
		return relop.NewFilter(survivor, attach...), pending
	}
}

// rebuildCross recombines the surviving sources of an n-way cross
// join. Crosses never absorb conjuncts; anything pending belongs to an
// ancestor join.
func (g *joinGraph) rebuildCross(n *augNode) (relop.Operator, []pendingPredicate) {
	var pending []pendingPredicate
	sources := make([]relop.Operator, 0, len(n.children))
	for _, c := range n.children {
		child, p := g.rebuildNode(c)
		pending = append(pending, p...)
		if child != nil {
			sources = append(sources, child)
		}
	}
	switch len(sources) {
	case 0:
		return nil, pending
	case 1:
		return sources[0], pending
	default:
		cross := relop.NewCrossJoin(sources...)
		g.processed[cross] = true
		return cross, pending
	}
}

// conditionConjuncts reassembles a join's condition with every column
// rewritten to its surviving variable. A pair whose two sides collapsed
// onto one column is no equality anymore: under three-valued logic it
// is exactly a null test, so it turns into IS NOT NULL for a nullable
// column and vanishes for a non-nullable one.
func (g *joinGraph) conditionConjuncts(jv *joinVertex) []relop.Expr {
	out := make([]relop.Expr, 0, len(jv.leftVars)+len(jv.residual))
	for i := range jv.leftVars {
		l := g.finalColumn(jv.leftVars[i])
		r := g.finalColumn(jv.rightVars[i])
		if l.ID == r.ID {
			if e := g.nullTest(l); e != nil {
				out = append(out, e)
			}
			continue
		}
		out = append(out, &relop.Comparison{Op: relop.EqualOp, Left: l, Right: r})
	}
	for _, res := range jv.residual {
		if e := g.rewriteTautology(g.substitute(res)); e != nil {
			out = append(out, e)
		}
	}
	return out
}

// rewriteTautology handles residual conjuncts whose two sides collapsed
// onto the same column, the same way collapsed equality pairs are
// handled.
func (g *joinGraph) rewriteTautology(e relop.Expr) relop.Expr {
	cmp, ok := e.(*relop.Comparison)
	if !ok || cmp.Op != relop.EqualOp {
		return e
	}
	l, lok := cmp.Left.(*relop.Column)
	r, rok := cmp.Right.(*relop.Column)
	if !lok || !rok || l.ID != r.ID {
		return e
	}
	return g.nullTest(l)
}

// nullTest returns the IS NOT NULL conjunct a collapsed equality stands
// for, or nil when the column cannot be NULL or the surviving scan is
// already wrapped in the same test through its collected nullable
// columns.
func (g *joinGraph) nullTest(col *relop.Column) relop.Expr {
	if !col.Nullable || g.obligated(col) {
		return nil
	}
	return relop.NotNull(col)
}

// obligated reports whether the column is among the nullable columns
// its surviving table re-emits as scan-level IS NOT NULL filters.
func (g *joinGraph) obligated(col *relop.Column) bool {
	tv := g.vertexOf[col.Origin]
	if tv == nil {
		return false
	}
	for _, c := range tv.nullable {
		if g.finalColumn(c).ID == col.ID {
			return true
		}
	}
	return false
}

func (g *joinGraph) localizeConjuncts(conjuncts []relop.Expr) []pendingPredicate {
	out := make([]pendingPredicate, 0, len(conjuncts))
	for _, c := range conjuncts {
		p := pendingPredicate{expr: c, lo: noNode, hi: noNode, floating: true}
		for _, col := range relop.ColumnsOf(c) {
			loc := g.varLocation(col)
			if loc == noNode {
				p.external = true
				break
			}
			if p.floating {
				p.lo, p.hi = loc, loc
				p.floating = false
				continue
			}
			if loc < p.lo {
				p.lo = loc
			}
			if loc > p.hi {
				p.hi = loc
			}
		}
		out = append(out, p)
	}
	return out
}

func splitByLegality(pending []pendingPredicate, n *augNode) (attach []relop.Expr, rest []pendingPredicate) {
	for _, p := range pending {
		if p.legalAt(n) {
			attach = append(attach, p.expr)
		} else {
			rest = append(rest, p)
		}
	}
	return attach, rest
}

// varLocation is the slot at which the variable's value surfaces in
// the rebuilt tree: its table class's earliest node, or the opaque
// subtree defining it. Variables from outside the join region have no
// slot.
func (g *joinGraph) varLocation(col *relop.Column) nodeID {
	if tv := g.vertexOf[col.Origin]; tv != nil {
		return tv.survivor().newLocation
	}
	if id, ok := g.opaqueHome[col.Origin]; ok {
		return id
	}
	return noNode
}

func (g *joinGraph) finalColumn(col *relop.Column) *relop.Column {
	if to, ok := g.finalMap[col.ID]; ok {
		return to
	}
	return col
}

func (g *joinGraph) substitute(e relop.Expr) relop.Expr {
	return relop.SubstituteColumns(e, func(col *relop.Column) *relop.Column {
		return g.finalMap[col.ID]
	})
}
