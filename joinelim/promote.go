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
)

// promoteJoins turns left outer joins into inner joins where a foreign
// key guarantees every left row a right-side match, so the null
// extension can never fire. Promoted joins keep their edges, flipped
// to inner and restricted to self-join use, plus restricted mirrors.
func (g *joinGraph) promoteJoins() {
	for _, n := range g.nodes {
		jv := n.join
		if jv == nil || jv.isCross || jv.kind != relop.LeftOuterJoin {
			continue
		}
		if len(jv.edges) == 0 {
			continue
		}
		if len(jv.residual) > 0 {
			// A residual conjunct can fail a row the foreign key
			// matched, so promotion only fires on pure key joins.
			continue
		}
		promotable := true
		for _, e := range jv.edges {
			if !g.promotableEdge(n, e) {
				promotable = false
				break
			}
		}
		if !promotable {
			continue
		}

		jv.kind = relop.InnerJoin
		jv.promoted = true
		for _, e := range jv.edges {
			e.Kind = relop.InnerJoin
			e.restricted = true
			mirrorL := make([]*relop.Column, len(e.RightVars))
			mirrorR := make([]*relop.Column, len(e.LeftVars))
			copy(mirrorL, e.RightVars)
			copy(mirrorR, e.LeftVars)
			g.addDerivedEdge(e.Right, e.Left, mirrorL, mirrorR, relop.InnerJoin, true)
		}
		g.modified = true
		g.note("promoted left outer join on %s to inner", n.op.(*relop.Join).Condition)
	}
}

// promotableEdge checks one edge of a left outer join: a foreign key
// from the left (child) table must match the edge's pairs exactly with
// non-nullable child columns, and the left table's rows must all reach
// the join intact. A lower join that drops or null-extends them could
// feed key values the schema says cannot be NULL. Exactness matters
// the same way the empty-residual guard does: an equality pair beyond
// the constraint can fail a row the key matched, and that row must
// still null-extend.
func (g *joinGraph) promotableEdge(n *augNode, e *joinEdge) bool {
	for _, col := range e.LeftVars {
		if col.Nullable {
			return false
		}
	}
	if !g.preservedToJoin(e.Left.node, n.id) {
		return false
	}
	for _, fk := range g.cat.ParentChildConstraints(e.Right.rel, e.Left.rel) {
		if len(e.LeftVars) != len(fk.ChildColumns) {
			continue
		}
		if _, _, ok := fkMatchedColumns(fk, e.LeftVars, e.RightVars); ok {
			return true
		}
	}
	return false
}

// preservedToJoin proves every row of the table at from is still
// present when the join at target applies: each step of the walk up
// must keep the current node on the preserved (left) side of a left
// outer join. Any other ancestor kind can drop or duplicate rows.
func (g *joinGraph) preservedToJoin(from, target nodeID) bool {
	for cur := from; ; {
		parent := g.nodes[cur].parent
		if parent == target {
			return true
		}
		if parent == noNode {
			return false
		}
		pn := g.nodes[parent]
		if pn.join == nil || pn.join.isCross ||
			pn.join.kind != relop.LeftOuterJoin || pn.children[0] != cur {
			return false
		}
		cur = parent
	}
}

// fkMatchedColumns locates, for every column pair of the constraint, a
// matching equality pair on the edge. It returns the child- and
// parent-side columns in constraint order. Extra pairs on the edge are
// allowed here; callers that need an exact condition check separately.
func fkMatchedColumns(fk *schema.ForeignKey, childVars, parentVars []*relop.Column) (childCols, parentCols []*relop.Column, ok bool) {
	childCols = make([]*relop.Column, 0, len(fk.ChildColumns))
	parentCols = make([]*relop.Column, 0, len(fk.ChildColumns))
	for i := range fk.ChildColumns {
		found := false
		for j := range childVars {
			if childVars[j].Name == fk.ChildColumns[i] && parentVars[j].Name == fk.ParentColumns[i] {
				childCols = append(childCols, childVars[j])
				parentCols = append(parentCols, parentVars[j])
				found = true
				break
			}
		}
		if !found {
			return nil, nil, false
		}
	}
	return childCols, parentCols, true
}
