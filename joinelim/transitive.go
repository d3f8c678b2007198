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

// synthesizeTransitiveEdges derives A→C edges from A→B and B→C edges
// that equate the same columns of B. The loops are index based on
// purpose: derived edges are appended to the same slices and get
// re-examined, so chains longer than three tables close too.
func (g *joinGraph) synthesizeTransitiveEdges() {
	for i := 0; i < len(g.tables); i++ {
		a := g.tables[i]
		for j := 0; j < len(a.edges); j++ {
			ab := a.edges[j]
			mid := ab.Right
			for k := 0; k < len(mid.edges); k++ {
				g.tryTransitive(ab, mid.edges[k])
			}
		}
	}
}

func (g *joinGraph) tryTransitive(ab, bc *joinEdge) {
	if ab.restricted || bc.restricted {
		return
	}
	if bc.Right == ab.Left {
		// Walking back along the mirror proves nothing new.
		return
	}
	if ab.Kind != bc.Kind {
		return
	}
	if ab.Kind == relop.LeftOuterJoin &&
		(!lojSelfJoinEdge(ab) || !lojSelfJoinEdge(bc) ||
			hasResidual(ab) || hasResidual(bc)) {
		// Outer join composition is only sound across self-joins that
		// replay the same rows on both hops. A residual on either hop
		// breaks that replay and cannot be carried by the new edge.
		return
	}

	fromCols, toCols := matchSharedColumns(ab, bc)
	if len(fromCols) == 0 {
		return
	}
	if ab.Kind == relop.LeftOuterJoin &&
		(len(fromCols) != len(ab.LeftVars) || len(fromCols) != len(bc.LeftVars)) {
		return
	}
	if hasEdge(ab.Left, bc.Right) {
		return
	}

	g.addDerivedEdge(ab.Left, bc.Right, fromCols, toCols, ab.Kind, false)
	log.V(3).Infof("joinelim: derived %s edge %s -> %s over %s",
		ab.Kind, ab.Left.alias(), bc.Right.alias(), ab.Right.alias())
	if ab.Kind == relop.InnerJoin && !hasEdge(bc.Right, ab.Left) {
		mirrorFrom := make([]*relop.Column, len(toCols))
		mirrorTo := make([]*relop.Column, len(fromCols))
		copy(mirrorFrom, toCols)
		copy(mirrorTo, fromCols)
		g.addDerivedEdge(bc.Right, ab.Left, mirrorFrom, mirrorTo, relop.InnerJoin, false)
	}
}

// matchSharedColumns merge-joins the two edges over the variable ids
// of the shared middle table and yields the outer column pairs. Both
// pair lists are visited in ascending middle-side id order so the
// derived pairs come out deterministic.
func matchSharedColumns(ab, bc *joinEdge) (fromCols, toCols []*relop.Column) {
	ai := sortedByID(ab.RightVars)
	bi := sortedByID(bc.LeftVars)
	x, y := 0, 0
	for x < len(ai) && y < len(bi) {
		av := ab.RightVars[ai[x]]
		bv := bc.LeftVars[bi[y]]
		switch {
		case av.ID < bv.ID:
			x++
		case av.ID > bv.ID:
			y++
		default:
			fromCols = append(fromCols, ab.LeftVars[ai[x]])
			toCols = append(toCols, bc.RightVars[bi[y]])
			x++
			y++
		}
	}
	return fromCols, toCols
}

func sortedByID(cols []*relop.Column) []int {
	idx := make([]int, len(cols))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return cols[idx[a]].ID < cols[idx[b]].ID
	})
	return idx
}

func hasResidual(e *joinEdge) bool {
	return e.owner != nil && len(e.owner.residual) > 0
}

// lojSelfJoinEdge reports whether the edge joins two instances of one
// relation on same-named columns.
func lojSelfJoinEdge(e *joinEdge) bool {
	if e.Left.rel != e.Right.rel {
		return false
	}
	for i := range e.LeftVars {
		if e.LeftVars[i].Name != e.RightVars[i].Name {
			return false
		}
	}
	return true
}
