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

// nodeID indexes the arena of augmented nodes. Ids are assigned post
// order, so every child id is lower than its parent's and the subtree
// of a node is a contiguous id range.
type nodeID int

const noNode nodeID = -1

// augNode overlays one operator of the join region. Exactly one of
// table and join is set for scans and joins; both stay nil for opaque
// subtrees the stage must not look into.
type augNode struct {
	id       nodeID
	op       relop.Operator
	parent   nodeID
	children []nodeID

	// subtreeStart is the lowest id inside this subtree, making the
	// subtree exactly the interval [subtreeStart, id].
	subtreeStart nodeID

	// defined holds every variable produced at or below this node,
	// including variables of scans hidden inside opaque subtrees.
	defined semantics.VarSet

	table *tableVertex
	join  *joinVertex
}

// tableVertex carries the per-scan elimination state. A vertex is
// either active (replacedBy nil) or eliminated into another vertex.
type tableVertex struct {
	node nodeID
	scan *relop.Scan
	rel  *schema.Relation

	// refs are the columns of this table referenced anywhere in the
	// analyzed tree. Eliminations fold the loser's refs, remapped,
	// into the winner so later phases keep seeing them.
	refs semantics.VarSet

	// lastVisible is the highest join node id that may still pair
	// this table with another.
	lastVisible nodeID

	// nullable collects the IS NOT NULL obligations the rebuilder
	// must emit above the surviving scan.
	nullable []*relop.Column

	edges []*joinEdge

	// replacedBy links an eliminated vertex to its replacement.
	replacedBy *tableVertex

	// newLocation is the node id where this table's survivor
	// materialises. Eliminations keep the minimum of the two sides.
	newLocation nodeID
}

func (tv *tableVertex) eliminated() bool {
	return tv.replacedBy != nil
}

// survivor follows replacement links to the terminal vertex,
// compressing the path on the way down.
func (tv *tableVertex) survivor() *tableVertex {
	if tv.replacedBy == nil {
		return tv
	}
	s := tv.replacedBy.survivor()
	tv.replacedBy = s
	return s
}

func (tv *tableVertex) alias() string {
	if tv.scan.Alias != "" {
		return tv.scan.Alias
	}
	return tv.rel.Name
}

// joinVertex carries the per-join bookkeeping: the equality pairs and
// residual conjuncts split out of the condition, and the edges the
// join contributed. The promoter mutates kind in place.
type joinVertex struct {
	node    nodeID
	kind    relop.JoinKind
	isCross bool

	// leftVars and rightVars are index aligned: leftVars[i] is joined
	// to rightVars[i], with each column defined on its own side.
	leftVars  []*relop.Column
	rightVars []*relop.Column
	residual  []relop.Expr

	edges    []*joinEdge
	promoted bool
}

func (g *joinGraph) buildTree(root relop.Operator) error {
	switch root.(type) {
	case *relop.Join, *relop.CrossJoin:
	default:
		return rqerrors.Errorf(rqerrors.InvalidArgument,
			"join elimination wants a join at the root of the region, got %T", root)
	}
	id, err := g.addNode(root)
	if err != nil {
		return err
	}
	g.root = id
	g.setVisibility(g.root, g.root)
	return nil
}

// addNode recurses post order: children first, then the node itself,
// so ids ascend bottom-up and left to right.
func (g *joinGraph) addNode(op relop.Operator) (nodeID, error) {
	switch op := op.(type) {
	case *relop.Scan:
		return g.addTableNode(op), nil

	case *relop.Join:
		left, err := g.addNode(op.Left)
		if err != nil {
			return noNode, err
		}
		right, err := g.addNode(op.Right)
		if err != nil {
			return noNode, err
		}
		n := g.newNode(op, left, right)
		n.join = &joinVertex{node: n.id, kind: op.Kind}
		g.splitCondition(n, op)
		g.processed[op] = true
		return n.id, nil

	case *relop.CrossJoin:
		children := make([]nodeID, 0, len(op.Sources))
		for _, src := range op.Sources {
			id, err := g.addNode(src)
			if err != nil {
				return noNode, err
			}
			children = append(children, id)
		}
		n := g.newNode(op, children...)
		n.join = &joinVertex{node: n.id, kind: relop.InnerJoin, isCross: true}
		g.processed[op] = true
		return n.id, nil

	case *relop.Nest:
		// Nest regions are split off before elimination runs.
		return noNode, rqerrors.Bug("nest operator inside a join region: %s", op.ShortDescription())

	default:
		return g.addOpaqueNode(op), nil
	}
}

func (g *joinGraph) newNode(op relop.Operator, children ...nodeID) *augNode {
	n := &augNode{
		id:       nodeID(len(g.nodes)),
		op:       op,
		parent:   noNode,
		children: children,
	}
	n.subtreeStart = n.id
	for _, c := range children {
		child := g.nodes[c]
		child.parent = n.id
		if child.subtreeStart < n.subtreeStart {
			n.subtreeStart = child.subtreeStart
		}
		n.defined.MergeInPlace(child.defined)
	}
	g.nodes = append(g.nodes, n)
	return n
}

func (g *joinGraph) addTableNode(scan *relop.Scan) nodeID {
	n := g.newNode(scan)
	n.defined = semantics.VarSetFromColumns(scan.Columns)
	tv := &tableVertex{
		node:        n.id,
		scan:        scan,
		rel:         scan.Relation,
		refs:        g.sem.ReferencedColumns(scan),
		lastVisible: noNode,
		newLocation: n.id,
	}
	n.table = tv
	g.vertexOf[scan] = tv
	g.tables = append(g.tables, tv)
	g.processed[scan] = true
	return n.id
}

// addOpaqueNode roots a subtree the stage treats as a black box. Its
// scans still count as defined here so join conditions reaching into
// the subtree land on the correct side.
func (g *joinGraph) addOpaqueNode(op relop.Operator) nodeID {
	n := g.newNode(op)
	for _, scan := range relop.ScansIn(op) {
		n.defined.MergeInPlace(semantics.VarSetFromColumns(scan.Columns))
		g.opaqueHome[scan] = n.id
	}
	return n.id
}

// splitCondition distributes the join condition over the equality
// pairs and the residual. A conjunct becomes a pair when it equates
// one column from each side; everything else is residual. Full outer
// joins keep their whole condition as residual since they contribute
// no edges.
func (g *joinGraph) splitCondition(n *augNode, join *relop.Join) {
	jv := n.join
	conjuncts := relop.SplitAndExpression(nil, join.Condition)
	if join.Kind == relop.FullOuterJoin {
		jv.residual = conjuncts
		return
	}
	left := g.nodes[n.children[0]]
	right := g.nodes[n.children[1]]
	for _, c := range conjuncts {
		cmp, ok := c.(*relop.Comparison)
		if !ok || cmp.Op != relop.EqualOp {
			jv.residual = append(jv.residual, c)
			continue
		}
		lcol, lok := cmp.Left.(*relop.Column)
		rcol, rok := cmp.Right.(*relop.Column)
		if !lok || !rok || lcol.Type != rcol.Type {
			// Mismatched types compare under coercion rules the edge
			// machinery does not model.
			jv.residual = append(jv.residual, c)
			continue
		}
		switch {
		case left.defined.Contains(lcol.ID) && right.defined.Contains(rcol.ID):
			jv.leftVars = append(jv.leftVars, lcol)
			jv.rightVars = append(jv.rightVars, rcol)
		case left.defined.Contains(rcol.ID) && right.defined.Contains(lcol.ID):
			jv.leftVars = append(jv.leftVars, rcol)
			jv.rightVars = append(jv.rightVars, lcol)
		default:
			jv.residual = append(jv.residual, c)
		}
	}
	if len(jv.leftVars) > 0 {
		cols := make([]*relop.Column, 0, 2*len(jv.leftVars))
		cols = append(cols, jv.leftVars...)
		cols = append(cols, jv.rightVars...)
		g.sem.RegisterJoinVars(join, cols...)
	}
}

// setVisibility walks top down establishing, per table, the highest
// join that may still pair it: inner and cross joins pass the bound
// through, a left outer join caps its right subtree at its own id and
// a full outer join caps both subtrees.
func (g *joinGraph) setVisibility(id, bound nodeID) {
	n := g.nodes[id]
	switch {
	case n.table != nil:
		n.table.lastVisible = bound

	case n.join != nil && n.join.isCross:
		for _, c := range n.children {
			g.setVisibility(c, bound)
		}

	case n.join != nil:
		switch n.join.kind {
		case relop.LeftOuterJoin:
			g.setVisibility(n.children[0], bound)
			g.setVisibility(n.children[1], n.id)
		case relop.FullOuterJoin:
			g.setVisibility(n.children[0], n.id)
			g.setVisibility(n.children[1], n.id)
		default:
			g.setVisibility(n.children[0], bound)
			g.setVisibility(n.children[1], bound)
		}
	}
}

// lca returns the least common ancestor of two nodes, walking up from
// the lower id until its interval covers the higher one.
func (g *joinGraph) lca(a, b nodeID) nodeID {
	if a > b {
		a, b = b, a
	}
	cur := a
	for !(g.nodes[cur].subtreeStart <= b && b <= cur) {
		cur = g.nodes[cur].parent
	}
	return cur
}
