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
	"github.com/relq/relq/rqerrors"
	"github.com/relq/relq/schema"
	"github.com/relq/relq/semantics"
)

// eliminateSelfJoins collapses repeated instances of a relation that
// are joined on its full key: first star groups (several instances
// hanging off the same columns of one center table), then direct
// self-joins left over.
func (g *joinGraph) eliminateSelfJoins() error {
	for _, tv := range g.tables {
		if tv.eliminated() {
			continue
		}
		if err := g.eliminateStarGroups(tv); err != nil {
			return err
		}
	}
	for _, tv := range g.tables {
		if tv.eliminated() {
			continue
		}
		if err := g.eliminatePlainSelfJoins(tv); err != nil {
			return err
		}
	}
	return nil
}

func (g *joinGraph) eliminateStarGroups(center *tableVertex) error {
	var order []*schema.Relation
	groups := make(map[*schema.Relation][]*joinEdge)
	for _, e := range center.edges {
		if e.Right.eliminated() {
			continue
		}
		if _, ok := groups[e.Right.rel]; !ok {
			order = append(order, e.Right.rel)
		}
		groups[e.Right.rel] = append(groups[e.Right.rel], e)
	}

	for _, rel := range order {
		edges := groups[rel]
		if len(edges) < 2 {
			continue
		}
		if !rel.HasKey() {
			return rqerrors.Errorf(rqerrors.FailedPrecondition,
				"cannot eliminate self-joins over relation %s: it declares no key", rel.Name)
		}
		var qualified []*joinEdge
		for _, e := range edges {
			if starQualified(e) {
				qualified = append(qualified, e)
			}
		}

		// Partition the qualified edges into compatibility classes and
		// collapse each class onto its lowest instance. A class whose
		// edges disagree with the rest must not poison the others.
		for len(qualified) > 1 {
			class := []*joinEdge{qualified[0]}
			var rest []*joinEdge
			for _, e := range qualified[1:] {
				if edgesCompatible(class[0], e) {
					class = append(class, e)
				} else {
					rest = append(rest, e)
				}
			}
			qualified = rest
			if len(class) < 2 {
				continue
			}
			keeper := class[0]
			for _, e := range class[1:] {
				if e.Right.node < keeper.Right.node {
					keeper = e
				}
			}
			for _, e := range class {
				if e == keeper || e.Right == keeper.Right {
					continue
				}
				if !g.canRelocate(e.Right, keeper.Right) {
					continue
				}
				g.eliminateSelfJoinedTable(e.Right, keeper.Right)
			}
		}
	}
	return nil
}

func (g *joinGraph) eliminatePlainSelfJoins(tv *tableVertex) error {
	for _, e := range tv.edges {
		if tv.eliminated() {
			break
		}
		if e.Right.eliminated() || e.Left.rel != e.Right.rel {
			continue
		}
		if !e.Left.rel.HasKey() {
			return rqerrors.Errorf(rqerrors.FailedPrecondition,
				"cannot eliminate self-join of relation %s: it declares no key", e.Left.rel.Name)
		}
		if !plainQualified(e) {
			continue
		}
		if e.Kind == relop.LeftOuterJoin && e.owner != nil && len(e.owner.residual) > 0 {
			// The doomed instance takes the join condition down with
			// it; a residual would change which rows null-extend.
			continue
		}
		if !g.canRelocate(e.Left, e.Right) {
			continue
		}
		g.eliminateSelfJoinedTable(e.Right, e.Left)
	}
	return nil
}

// starQualified requires the edge to join every key column of its
// right table; a left outer edge must join nothing else, or the null
// extension could differ between instances.
func starQualified(e *joinEdge) bool {
	rel := e.Right.rel
	covered := make(map[string]bool, len(e.RightVars))
	for _, rv := range e.RightVars {
		ord := rel.Ordinal(rv.Name)
		if ord >= 0 && rel.IsKeyColumn(ord) {
			covered[rv.Name] = true
			continue
		}
		if e.Kind == relop.LeftOuterJoin {
			return false
		}
	}
	if len(covered) != len(rel.KeyOrdinals) {
		return false
	}
	return e.Kind != relop.LeftOuterJoin || residualStaysLocal(e)
}

// residualStaysLocal reports whether the owner's residual reads only
// the edge's right table or columns the edge equates. Residuals are
// compared between instances by column name, and a column from
// anywhere else can spell two different instances the same way.
func residualStaysLocal(e *joinEdge) bool {
	if e.owner == nil {
		return true
	}
	equated := semantics.VarSetFromColumns(e.LeftVars)
	for _, res := range e.owner.residual {
		for _, col := range relop.ColumnsOf(res) {
			if col.Origin != e.Right.scan && !equated.Contains(col.ID) {
				return false
			}
		}
	}
	return true
}

// plainQualified is the direct self-join test: the pairs must equate
// every key column with its same-named twin. A left outer edge also
// needs non-nullable keys, since a null-keyed preserved row reads NULL
// through the doomed instance but a value through the survivor.
func plainQualified(e *joinEdge) bool {
	rel := e.Right.rel
	covered := make(map[string]bool, len(e.RightVars))
	for i, rv := range e.RightVars {
		lv := e.LeftVars[i]
		ord := rel.Ordinal(rv.Name)
		if lv.Name == rv.Name && ord >= 0 && rel.IsKeyColumn(ord) {
			if e.Kind == relop.LeftOuterJoin && rv.Nullable {
				return false
			}
			covered[rv.Name] = true
			continue
		}
		if e.Kind == relop.LeftOuterJoin {
			return false
		}
	}
	return len(covered) == len(rel.KeyOrdinals)
}

// edgesCompatible reports whether the loser edge replays the keeper:
// same kind, same center columns, same right-side column names and
// matching residual predicates on the owning joins.
func edgesCompatible(keeper, other *joinEdge) bool {
	if keeper.Kind != other.Kind {
		return false
	}
	if !semantics.VarSetFromColumns(keeper.LeftVars).Equal(semantics.VarSetFromColumns(other.LeftVars)) {
		return false
	}
	if !sameColumnNames(keeper.RightVars, other.RightVars) {
		return false
	}
	return residualsMatch(keeper.owner, other.owner)
}

func sameColumnNames(a, b []*relop.Column) bool {
	if len(a) != len(b) {
		return false
	}
	names := make(map[string]int, len(a))
	for _, col := range a {
		names[col.Name]++
	}
	for _, col := range b {
		names[col.Name]--
		if names[col.Name] < 0 {
			return false
		}
	}
	return true
}

// residualsMatch compares the residual conjuncts of two owning joins
// structurally. A derived edge has no owner and matches an empty
// residual.
func residualsMatch(a, b *joinVertex) bool {
	var ra, rb []relop.Expr
	if a != nil {
		ra = a.residual
	}
	if b != nil {
		rb = b.residual
	}
	if len(ra) != len(rb) {
		return false
	}
	for i := range ra {
		if !wildcardEquals(ra[i], rb[i]) {
			return false
		}
	}
	return true
}

// wildcardEquals compares expression trees by shape and column names.
// Columns match when they name the same column of the same relation,
// regardless of which instance defines them; literal leaves match any
// literal. Reference identity never matters.
func wildcardEquals(a, b relop.Expr) bool {
	switch ea := a.(type) {
	case *relop.Column:
		eb, ok := b.(*relop.Column)
		return ok && columnsEquivalent(ea, eb)
	case *relop.Literal:
		_, ok := b.(*relop.Literal)
		return ok
	case *relop.Comparison:
		eb, ok := b.(*relop.Comparison)
		return ok && ea.Op == eb.Op &&
			wildcardEquals(ea.Left, eb.Left) && wildcardEquals(ea.Right, eb.Right)
	case *relop.And:
		eb, ok := b.(*relop.And)
		return ok && wildcardEquals(ea.Left, eb.Left) && wildcardEquals(ea.Right, eb.Right)
	case *relop.Or:
		eb, ok := b.(*relop.Or)
		return ok && wildcardEquals(ea.Left, eb.Left) && wildcardEquals(ea.Right, eb.Right)
	case *relop.Not:
		eb, ok := b.(*relop.Not)
		return ok && wildcardEquals(ea.Inner, eb.Inner)
	case *relop.Is:
		eb, ok := b.(*relop.Is)
		return ok && ea.Op == eb.Op && wildcardEquals(ea.Left, eb.Left)
	case *relop.Call:
		eb, ok := b.(*relop.Call)
		if !ok || ea.Name != eb.Name || len(ea.Args) != len(eb.Args) {
			return false
		}
		for i := range ea.Args {
			if !wildcardEquals(ea.Args[i], eb.Args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func columnsEquivalent(a, b *relop.Column) bool {
	return a.Name == b.Name && a.Origin.Relation == b.Origin.Relation
}

// eliminateSelfJoinedTable maps every column of the loser to its
// same-named twin on the winner and retires the loser.
func (g *joinGraph) eliminateSelfJoinedTable(loser, winner *tableVertex) {
	mapping := make(map[relop.VarID]*relop.Column, len(loser.scan.Columns))
	for _, col := range loser.scan.Columns {
		mapping[col.ID] = winner.scan.Column(col.Name)
	}
	g.eliminateTable(loser, winner, mapping)
	g.note("eliminated self-joined table %s in favor of %s", loser.alias(), winner.alias())
}
