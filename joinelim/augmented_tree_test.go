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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relq/relq/relop"
	"github.com/relq/relq/rqerrors"
)

func TestBuildTreePostOrder(t *testing.T) {
	f := newFixture(t)
	o := f.scan("orders", "o")
	c := f.scan("customers", "c")
	u := f.scan("users", "u")
	inner := relop.NewJoin(relop.InnerJoin, o, c, eq(o.Column("cid"), c.Column("id")))
	root := relop.NewJoin(relop.LeftOuterJoin, inner, u, eq(o.Column("id"), u.Column("id")))

	g := f.graph(root, nil)

	// Post order: children before parents, left before right.
	require.Len(t, g.nodes, 5)
	assert.Same(t, o, g.nodes[0].op)
	assert.Same(t, c, g.nodes[1].op)
	assert.Same(t, inner, g.nodes[2].op)
	assert.Same(t, u, g.nodes[3].op)
	assert.Same(t, root, g.nodes[4].op)
	assert.Equal(t, nodeID(4), g.root)

	// Parent back-pointers and subtree intervals.
	assert.Equal(t, nodeID(2), g.nodes[0].parent)
	assert.Equal(t, nodeID(2), g.nodes[1].parent)
	assert.Equal(t, nodeID(4), g.nodes[2].parent)
	assert.Equal(t, nodeID(4), g.nodes[3].parent)
	assert.Equal(t, noNode, g.nodes[4].parent)
	assert.Equal(t, nodeID(0), g.nodes[2].subtreeStart)
	assert.Equal(t, nodeID(3), g.nodes[3].subtreeStart)
	assert.Equal(t, nodeID(0), g.nodes[4].subtreeStart)

	// Table vertices in node id order, found through their scans.
	require.Len(t, g.tables, 3)
	assert.Same(t, g.tables[0], g.vertexOf[o])
	assert.Same(t, g.tables[1], g.vertexOf[c])
	assert.Same(t, g.tables[2], g.vertexOf[u])
	assert.Equal(t, nodeID(0), g.tables[0].node)
	assert.Equal(t, nodeID(0), g.tables[0].newLocation)

	// Every scan and join is marked processed for later stages.
	for _, op := range []relop.Operator{o, c, u, inner, root} {
		assert.True(t, g.processed[op], "%s not marked processed", op.ShortDescription())
	}

	// defined accumulates bottom-up.
	assert.True(t, g.nodes[2].defined.Contains(o.Column("total").ID))
	assert.True(t, g.nodes[2].defined.Contains(c.Column("name").ID))
	assert.False(t, g.nodes[2].defined.Contains(u.Column("id").ID))
	assert.True(t, g.nodes[4].defined.Contains(u.Column("id").ID))
}

func TestSplitCondition(t *testing.T) {
	f := newFixture(t)
	o := f.scan("orders", "o")
	c := f.scan("customers", "c")
	join := relop.NewJoin(relop.InnerJoin, o, c, and(
		eq(c.Column("id"), o.Column("cid")),             // pair, written right-to-left
		gt(o.Column("total"), &relop.Literal{Val: int64(5)}), // residual
		eq(o.Column("id"), o.Column("cid")),             // same side, residual
		eq(c.Column("name"), &relop.Literal{Val: "x"}),  // not column-to-column
	))
	g := f.graph(join, nil)

	jv := g.nodes[2].join
	require.NotNil(t, jv)
	require.Len(t, jv.leftVars, 1)
	// The pair is normalized: the left-side column first.
	assert.Same(t, o.Column("cid"), jv.leftVars[0])
	assert.Same(t, c.Column("id"), jv.rightVars[0])
	require.Len(t, jv.residual, 3)

	// The semantic table now sees the pair columns as join uses.
	assert.True(t, g.sem.DirectUses(join).Contains(o.Column("cid").ID))
	assert.True(t, g.sem.DirectUses(join).Contains(c.Column("id").ID))
}

func TestSplitConditionTypeMismatch(t *testing.T) {
	f := newFixture(t)
	a := f.scan("accounts", "a")
	u := f.scan("users", "u")
	join := relop.NewJoin(relop.InnerJoin, a, u, and(
		eq(a.Column("uid"), u.Column("id")),
		eq(a.Column("balance"), u.Column("score")), // float64 vs int64
	))
	g := f.graph(join, nil)

	// Mismatched types never form a pair, so the comparison stays a
	// residual conjunct.
	jv := g.nodes[2].join
	require.Len(t, jv.leftVars, 1)
	assert.Same(t, a.Column("uid"), jv.leftVars[0])
	require.Len(t, jv.residual, 1)
}

func TestSplitConditionFullOuter(t *testing.T) {
	f := newFixture(t)
	o := f.scan("orders", "o")
	c := f.scan("customers", "c")
	join := relop.NewJoin(relop.FullOuterJoin, o, c, eq(o.Column("cid"), c.Column("id")))
	g := f.graph(join, nil)

	// Full outer conditions are not decomposable; everything stays
	// residual and no edges come out.
	jv := g.nodes[2].join
	assert.Empty(t, jv.leftVars)
	require.Len(t, jv.residual, 1)
	assert.Empty(t, g.vertex(t, "o").edges)
	assert.Empty(t, g.vertex(t, "c").edges)
}

func TestVisibilityBounds(t *testing.T) {
	f := newFixture(t)
	o := f.scan("orders", "o")
	c := f.scan("customers", "c")
	u := f.scan("users", "u")
	loj := relop.NewJoin(relop.LeftOuterJoin, o, c, eq(o.Column("cid"), c.Column("id")))
	root := relop.NewJoin(relop.InnerJoin, loj, u, eq(o.Column("id"), u.Column("id")))
	g := f.graph(root, nil)

	// The left outer join caps its right subtree at its own id; the
	// preserved side and everything else see the root.
	assert.Equal(t, nodeID(4), g.vertex(t, "o").lastVisible)
	assert.Equal(t, nodeID(2), g.vertex(t, "c").lastVisible)
	assert.Equal(t, nodeID(4), g.vertex(t, "u").lastVisible)
}

func TestVisibilityFullOuterCapsBothSides(t *testing.T) {
	f := newFixture(t)
	o := f.scan("orders", "o")
	c := f.scan("customers", "c")
	u := f.scan("users", "u")
	foj := relop.NewJoin(relop.FullOuterJoin, o, c, eq(o.Column("cid"), c.Column("id")))
	root := relop.NewJoin(relop.InnerJoin, foj, u, eq(o.Column("id"), u.Column("id")))
	g := f.graph(root, nil)

	assert.Equal(t, nodeID(2), g.vertex(t, "o").lastVisible)
	assert.Equal(t, nodeID(2), g.vertex(t, "c").lastVisible)
	assert.Equal(t, nodeID(4), g.vertex(t, "u").lastVisible)
}

func TestOpaqueSubtree(t *testing.T) {
	f := newFixture(t)
	o := f.scan("orders", "o")
	c := f.scan("customers", "c")
	// The projection hides the customers scan from the rewrites.
	join := relop.NewJoin(relop.InnerJoin, o, project(c, c.Column("id")),
		eq(o.Column("cid"), c.Column("id")))
	g := f.graph(join, nil)

	require.Len(t, g.tables, 1)
	opaque := g.nodes[1]
	assert.Nil(t, opaque.table)
	assert.Nil(t, opaque.join)
	assert.True(t, opaque.defined.Contains(c.Column("id").ID))
	assert.Equal(t, nodeID(1), g.opaqueHome[c])

	// The condition still splits into a pair, but the pair cannot
	// become an edge: one column lives inside the opaque subtree.
	jv := g.nodes[2].join
	require.Len(t, jv.leftVars, 1)
	assert.Empty(t, g.vertex(t, "o").edges)
}

func TestBuildTreeRejects(t *testing.T) {
	f := newFixture(t)

	t.Run("non-join root", func(t *testing.T) {
		o := f.scan("orders", "o")
		sem := f.analyze(o)
		_, err := Eliminate(o, sem, f.cat)
		require.Error(t, err)
		assert.Equal(t, rqerrors.InvalidArgument, rqerrors.CodeOf(err))
		assert.ErrorContains(t, err, "join at the root")
	})

	t.Run("nest inside the region", func(t *testing.T) {
		o := f.scan("orders", "o")
		c := f.scan("customers", "c")
		nest := &relop.Nest{Source: c, GroupBy: []*relop.Column{c.Column("id")}, CollectionAs: "grp"}
		join := relop.NewJoin(relop.InnerJoin, o, nest, eq(o.Column("cid"), c.Column("id")))
		sem := f.analyze(join)
		_, err := Eliminate(join, sem, f.cat)
		require.Error(t, err)
		assert.Equal(t, rqerrors.Internal, rqerrors.CodeOf(err))
		assert.ErrorContains(t, err, "nest operator inside a join region")
	})

	t.Run("nil plan", func(t *testing.T) {
		_, err := Eliminate(nil, nil, nil)
		require.Error(t, err)
		assert.Equal(t, rqerrors.InvalidArgument, rqerrors.CodeOf(err))
	})

	t.Run("missing services", func(t *testing.T) {
		o := f.scan("orders", "o")
		_, err := Eliminate(o, nil, nil)
		require.Error(t, err)
		assert.ErrorContains(t, err, "semantic table")
	})
}

func TestLCA(t *testing.T) {
	f := newFixture(t)
	o := f.scan("orders", "o")
	c := f.scan("customers", "c")
	u := f.scan("users", "u")
	inner := relop.NewJoin(relop.InnerJoin, o, c, eq(o.Column("cid"), c.Column("id")))
	root := relop.NewJoin(relop.InnerJoin, inner, u, eq(o.Column("id"), u.Column("id")))
	g := f.graph(root, nil)

	assert.Equal(t, nodeID(2), g.lca(0, 1))
	assert.Equal(t, nodeID(4), g.lca(0, 3))
	assert.Equal(t, nodeID(4), g.lca(2, 3))
	assert.Equal(t, nodeID(2), g.lca(2, 2))
	assert.Equal(t, nodeID(1), g.lca(1, 1))
}
