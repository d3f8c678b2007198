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
	"github.com/relq/relq/log"
	"github.com/relq/relq/relop"
)

// joinEdge records that two tables are equated column by column,
// either by a join condition (owner set) or derived transitively
// (owner nil). LeftVars[i] is joined to RightVars[i].
type joinEdge struct {
	Left  *tableVertex
	Right *tableVertex

	LeftVars  []*relop.Column
	RightVars []*relop.Column

	// Kind is InnerJoin or LeftOuterJoin; full outer joins never
	// produce edges.
	Kind relop.JoinKind

	owner *joinVertex

	// restricted edges were minted by left outer join promotion and
	// may only drive self-join elimination.
	restricted bool
}

// buildEdges turns every join's equality pairs into edges between
// table vertices. Inner joins also get the mirrored edge; left outer
// joins only point left to right. Edges are only minted when the right
// side is a single table, so each one names the exact vertex a later
// relocation would stand in for.
func (g *joinGraph) buildEdges() {
	for _, n := range g.nodes {
		if n.join == nil || n.join.isCross || n.join.kind == relop.FullOuterJoin {
			continue
		}
		g.addJoinEdges(n)
	}
}

func (g *joinGraph) addJoinEdges(n *augNode) {
	jv := n.join
	rt := g.nodes[n.children[1]].table
	if rt == nil {
		return
	}
	for i := range jv.leftVars {
		l, r := jv.leftVars[i], jv.rightVars[i]
		lt := g.vertexOf[l.Origin]
		if lt == nil || g.vertexOf[r.Origin] != rt {
			// The column lives inside an opaque subtree.
			continue
		}
		if lt.lastVisible < n.id || rt.lastVisible < n.id {
			log.V(3).Infof("joinelim: pair %s = %s not visible at join #%d", l, r, n.id)
			continue
		}
		g.addEdgePair(jv, lt, rt, l, r, jv.kind)
		if jv.kind == relop.InnerJoin {
			g.addEdgePair(jv, rt, lt, r, l, relop.InnerJoin)
		}
	}
}

// addEdgePair appends the column pair to the edge from→to owned by
// this join, creating the edge on first use. Pairs of distinct joins
// never merge into one edge.
func (g *joinGraph) addEdgePair(owner *joinVertex, from, to *tableVertex, fromCol, toCol *relop.Column, kind relop.JoinKind) {
	for _, e := range from.edges {
		if e.owner != owner || e.Right != to || e.Kind != kind {
			continue
		}
		for i := range e.LeftVars {
			if e.LeftVars[i].ID == fromCol.ID && e.RightVars[i].ID == toCol.ID {
				return // duplicate pair
			}
		}
		e.LeftVars = append(e.LeftVars, fromCol)
		e.RightVars = append(e.RightVars, toCol)
		return
	}
	e := &joinEdge{
		Left:      from,
		Right:     to,
		LeftVars:  []*relop.Column{fromCol},
		RightVars: []*relop.Column{toCol},
		Kind:      kind,
		owner:     owner,
	}
	from.edges = append(from.edges, e)
	owner.edges = append(owner.edges, e)
}

// addDerivedEdge attaches an ownerless edge built by the transitive
// generator or the promoter.
func (g *joinGraph) addDerivedEdge(from, to *tableVertex, fromCols, toCols []*relop.Column, kind relop.JoinKind, restricted bool) *joinEdge {
	e := &joinEdge{
		Left:       from,
		Right:      to,
		LeftVars:   fromCols,
		RightVars:  toCols,
		Kind:       kind,
		restricted: restricted,
	}
	from.edges = append(from.edges, e)
	return e
}

// hasEdge reports whether any edge already runs from→to. The
// transitive generator never adds a second edge for a table pair, no
// matter which columns it would equate.
func hasEdge(from, to *tableVertex) bool {
	for _, e := range from.edges {
		if e.Right == to {
			return true
		}
	}
	return false
}
