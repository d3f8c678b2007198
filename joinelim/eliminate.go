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
	"github.com/relq/relq/semantics"
)

// canRelocate is the shared safety test for removing one of two
// equated tables: whichever currently sits higher must be movable to
// the other's position, and the walk from its position up to their
// least common ancestor must never leave it as the preserved (left)
// child of a left outer join. Such a step would change which rows the
// outer join preserves. The walk starts at the current position, not
// the original node: a survivor that already absorbed an earlier table
// sits at that table's slot now.
func (g *joinGraph) canRelocate(a, b *tableVertex) bool {
	pa, pb := a.newLocation, b.newLocation
	mover := pa
	if pb > mover {
		mover = pb
	}
	stop := g.lca(pa, pb)
	for cur := mover; cur != stop; {
		parent := g.nodes[cur].parent
		pn := g.nodes[parent]
		if pn.join != nil && !pn.join.isCross &&
			pn.join.kind == relop.LeftOuterJoin && pn.children[0] == cur {
			return false
		}
		cur = parent
	}
	return true
}

// eliminateTable retires loser in favour of winner. mapping pairs each
// replaced loser column with the winner column standing in for it; the
// loser's bookkeeping folds into the winner so later decisions keep
// seeing its references and pending null checks. The winner inherits
// the lower of the two materialisation points.
func (g *joinGraph) eliminateTable(loser, winner *tableVertex, mapping map[relop.VarID]*relop.Column) {
	for from, to := range mapping {
		g.varMap[from] = to
	}

	loser.refs.ForEach(func(v relop.VarID) {
		if to, ok := mapping[v]; ok {
			winner.refs.Add(to.ID)
		}
	})
	winner.nullable = append(winner.nullable, loser.nullable...)
	loser.nullable = nil

	loser.replacedBy = winner
	if loser.newLocation < winner.newLocation {
		winner.newLocation = loser.newLocation
	}
	g.modified = true
}

// expandThroughMap widens vars with every variable that currently maps
// onto one of them, so reference checks also see uses still spelled
// with an eliminated alias.
func (g *joinGraph) expandThroughMap(vars semantics.VarSet) semantics.VarSet {
	out := vars.Clone()
	for from, to := range g.varMap {
		for {
			next, ok := g.varMap[to.ID]
			if !ok {
				break
			}
			to = next
		}
		if vars.Contains(to.ID) {
			out.Add(from)
		}
	}
	return out
}

// referencedOutside reports whether any column of tv beyond allowed is
// read somewhere other than the condition of exclude. A nil exclude
// counts every read.
func (g *joinGraph) referencedOutside(tv *tableVertex, allowed semantics.VarSet, exclude relop.Operator) bool {
	check := tv.refs.AndNot(allowed)
	if check.IsEmpty() {
		return false
	}
	return g.sem.HasVarReferencesOutside(g.expandThroughMap(check), g.sem.Root(), exclude)
}

// obligationsCovered reports whether every pending IS NOT NULL column
// of the loser survives the elimination through mapping. An obligation
// that cannot be re-spelled would silently widen the result.
func obligationsCovered(loser *tableVertex, mapping map[relop.VarID]*relop.Column) bool {
	for _, col := range loser.nullable {
		if _, ok := mapping[col.ID]; !ok {
			return false
		}
	}
	return true
}
