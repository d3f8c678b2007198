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
	"github.com/relq/relq/relop"
	"github.com/relq/relq/schema"
	"github.com/relq/relq/semantics"
)

// eliminateParentChild drops one side of foreign-key joins that add no
// information: a parent reached through its full key contributes only
// key columns the child already carries, and a child with at-most-one
// multiplicity can vanish when nothing reads it.
func (g *joinGraph) eliminateParentChild() {
	for _, tv := range g.tables {
		for _, e := range tv.edges {
			if tv.eliminated() {
				break
			}
			if e.restricted || e.Right.eliminated() {
				continue
			}
			g.tryParentChildEdge(e)
		}
	}
}

// tryParentChildEdge checks the catalog in both orientations and
// applies the first constraint whose conditions all hold. Inner joins
// tolerate equality pairs beyond the constraint as long as each lands
// on a matched parent key column: such a conjunct rewrites through the
// substitution map and survives as a filter. Outer joins need the
// condition to be exactly the constraint, because an extra pair can
// fail a row the key matched and the degenerate join loses the
// conjunct that decided it.
func (g *joinGraph) tryParentChildEdge(e *joinEdge) {
	// Orientation 1: Left is the parent, Right the child.
	for _, fk := range g.cat.ParentChildConstraints(e.Left.rel, e.Right.rel) {
		childCols, parentCols, ok := fkMatchedColumns(fk, e.RightVars, e.LeftVars)
		if !ok {
			continue
		}
		exact := len(e.LeftVars) == len(fk.ChildColumns)
		switch e.Kind {
		case relop.InnerJoin:
			if !exact && !columnsWithin(e.LeftVars, parentCols) {
				continue
			}
			if g.tryEliminateParent(e, fk, e.Left, e.Right, parentCols, childCols, true) {
				return
			}
		case relop.LeftOuterJoin:
			if exact && g.tryEliminateChild(e, fk, e.Left, e.Right, parentCols, childCols) {
				return
			}
		}
	}

	// Orientation 2: Right is the parent, Left the child. Left outer
	// edges are only ever built left to right, so the reverse
	// constraint has to be looked up from here.
	for _, fk := range g.cat.ParentChildConstraints(e.Right.rel, e.Left.rel) {
		childCols, parentCols, ok := fkMatchedColumns(fk, e.LeftVars, e.RightVars)
		if !ok {
			continue
		}
		if len(e.LeftVars) != len(fk.ChildColumns) &&
			(e.Kind != relop.InnerJoin || !columnsWithin(e.RightVars, parentCols)) {
			continue
		}
		if g.tryEliminateParent(e, fk, e.Right, e.Left, parentCols, childCols, e.Kind == relop.InnerJoin) {
			return
		}
	}
}

// columnsWithin reports whether every column in vars is one of the
// matched columns. Edge columns are the scan's canonical instances, so
// identity comparison suffices.
func columnsWithin(vars, matched []*relop.Column) bool {
	for _, v := range vars {
		found := false
		for _, m := range matched {
			if m == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// tryEliminateParent removes the parent side of a key join. The child
// keeps the information: every parent key column reads through the
// child's foreign key column afterwards. Inner joins also dropped
// child rows with NULL foreign keys, so the child collects IS NOT NULL
// obligations for those columns.
func (g *joinGraph) tryEliminateParent(e *joinEdge, fk *schema.ForeignKey, parent, child *tableVertex, parentCols, childCols []*relop.Column, addNotNull bool) bool {
	if e.Kind == relop.LeftOuterJoin && e.owner != nil && len(e.owner.residual) > 0 {
		// Dropping the parent of a left outer join discards its
		// condition; a residual would change which rows null-extend.
		return false
	}
	if g.compositeBlocked(fk, childCols, parentCols, e) {
		return false
	}
	allowed := semantics.VarSetFromColumns(parentCols)
	if g.referencedOutside(parent, allowed, g.ownerOp(e)) {
		return false
	}
	if e.owner != nil && g.residualReferencesBeyond(e.owner.residual, parent, allowed) {
		return false
	}
	mapping := make(map[relop.VarID]*relop.Column, len(parentCols))
	for i := range parentCols {
		mapping[parentCols[i].ID] = childCols[i]
	}
	if !obligationsCovered(parent, mapping) {
		return false
	}
	if !g.canRelocate(parent, child) {
		return false
	}

	if addNotNull {
		for _, cc := range childCols {
			if cc.Nullable {
				child.nullable = append(child.nullable, cc)
			}
		}
	}
	g.eliminateTable(parent, child, mapping)
	g.note("eliminated parent table %s in favor of child %s", parent.alias(), child.alias())
	return true
}

// tryEliminateChild removes the child side of a left outer key join
// when the constraint promises at most one child per parent, so the
// join can neither duplicate nor drop parent rows. With multiplicity
// One the child's key columns stay readable through the parent key;
// with ZeroOrOne nothing may read the child at all, since absent
// children null-extend.
func (g *joinGraph) tryEliminateChild(e *joinEdge, fk *schema.ForeignKey, parent, child *tableVertex, parentCols, childCols []*relop.Column) bool {
	if fk.ChildMultiplicity == schema.Many {
		return false
	}
	if e.owner != nil && len(e.owner.residual) > 0 {
		// A residual can fail the guaranteed match.
		return false
	}
	if g.compositeBlocked(fk, childCols, childCols, e) {
		return false
	}
	var allowed semantics.VarSet
	mapping := make(map[relop.VarID]*relop.Column)
	if fk.ChildMultiplicity == schema.One {
		allowed = semantics.VarSetFromColumns(childCols)
		for i := range childCols {
			mapping[childCols[i].ID] = parentCols[i]
		}
	}
	if g.referencedOutside(child, allowed, g.ownerOp(e)) {
		return false
	}
	if !obligationsCovered(child, mapping) {
		return false
	}
	if !g.canRelocate(child, parent) {
		return false
	}

	g.eliminateTable(child, parent, mapping)
	g.note("eliminated child table %s in favor of parent %s", child.alias(), parent.alias())
	return true
}

// compositeBlocked applies the nullable composite foreign key rule:
// with several key columns and any child column nullable, unmatched
// rows are not reproducible from one side, so elimination only
// proceeds when no key column of the eliminated side is read outside
// the join condition.
func (g *joinGraph) compositeBlocked(fk *schema.ForeignKey, childCols, elimCols []*relop.Column, e *joinEdge) bool {
	if len(fk.ChildColumns) <= 1 {
		return false
	}
	nullable := false
	for _, cc := range childCols {
		if cc.Nullable {
			nullable = true
			break
		}
	}
	if !nullable {
		return false
	}
	vars := g.expandThroughMap(semantics.VarSetFromColumns(elimCols))
	return g.sem.HasVarReferencesOutside(vars, g.sem.Root(), g.ownerOp(e))
}

func (g *joinGraph) ownerOp(e *joinEdge) relop.Operator {
	if e.owner == nil {
		return nil
	}
	return g.nodes[e.owner.node].op
}

// residualReferencesBeyond reports whether the residual conjuncts read
// any column of tv outside allowed, resolving replacement chains first
// so reads spelled through an eliminated alias still count.
func (g *joinGraph) residualReferencesBeyond(residual []relop.Expr, tv *tableVertex, allowed semantics.VarSet) bool {
	for _, r := range residual {
		for _, col := range relop.ColumnsOf(r) {
			col = g.terminalColumn(col)
			if col.Origin == tv.scan && !allowed.Contains(col.ID) {
				return true
			}
		}
	}
	return false
}

// terminalColumn resolves a column through the replacement chain built
// so far.
func (g *joinGraph) terminalColumn(col *relop.Column) *relop.Column {
	for {
		next, ok := g.varMap[col.ID]
		if !ok {
			return col
		}
		col = next
	}
}
