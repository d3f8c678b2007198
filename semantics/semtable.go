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

// Package semantics tracks which column variables a plan defines and uses.
// Analyze walks an operator tree once; the resulting SemTable answers the
// reference questions the optimizer stages ask, and accepts registrations
// for variables a rewrite introduces.
package semantics

import (
	"github.com/relq/relq/relop"
	"github.com/relq/relq/rqerrors"
)

// SemTable holds the semantic information for one analyzed operator tree.
type SemTable struct {
	root relop.Operator

	// directUses maps an operator to the variables its own expressions
	// read. It does not include uses by the operator's inputs.
	directUses map[relop.Operator]VarSet

	// defs maps VarID to the scan that introduces it. Ids are dense, so a
	// slice indexed by id beats a map here.
	defs []*relop.Scan

	scans   []*relop.Scan
	allUses VarSet
}

// Analyze walks the tree rooted at root and builds its SemTable. The same
// operator instance appearing twice makes the tree a DAG and is rejected.
func Analyze(root relop.Operator) (*SemTable, error) {
	if root == nil {
		return nil, rqerrors.New(rqerrors.InvalidArgument, "cannot analyze a nil plan")
	}
	st := &SemTable{
		root:       root,
		directUses: map[relop.Operator]VarSet{},
	}
	if err := st.collect(root); err != nil {
		return nil, err
	}
	return st, nil
}

func (st *SemTable) collect(op relop.Operator) error {
	if _, seen := st.directUses[op]; seen {
		return rqerrors.Errorf(rqerrors.InvalidArgument, "operator appears twice in the tree: %s", op.ShortDescription())
	}
	uses := directUsesOf(op)
	st.directUses[op] = uses
	st.allUses.MergeInPlace(uses)

	if scan, ok := op.(*relop.Scan); ok {
		if err := st.define(scan); err != nil {
			return err
		}
	}
	for _, input := range op.Inputs() {
		if err := st.collect(input); err != nil {
			return err
		}
	}
	return nil
}

func (st *SemTable) define(scan *relop.Scan) error {
	st.scans = append(st.scans, scan)
	for _, col := range scan.Columns {
		id := int(col.ID)
		if id >= len(st.defs) {
			defs := make([]*relop.Scan, id+1)
			copy(defs, st.defs)
			st.defs = defs
		}
		if st.defs[id] != nil {
			return rqerrors.Errorf(rqerrors.InvalidArgument, "variable %d defined by both %s and %s", id, st.defs[id].Alias, scan.Alias)
		}
		st.defs[id] = scan
	}
	return nil
}

func directUsesOf(op relop.Operator) (vs VarSet) {
	addExpr := func(e relop.Expr) {
		for _, col := range relop.ColumnsOf(e) {
			vs.Add(col.ID)
		}
	}
	switch op := op.(type) {
	case *relop.Join:
		addExpr(op.Condition)
	case *relop.Filter:
		for _, p := range op.Predicates {
			addExpr(p)
		}
	case *relop.Project:
		for _, pe := range op.Projections {
			addExpr(pe.Expr)
		}
	case *relop.Nest:
		for _, col := range op.GroupBy {
			vs.Add(col.ID)
		}
	}
	return
}

// Root returns the operator the table was built from.
func (st *SemTable) Root() relop.Operator {
	return st.root
}

// Scans returns every scan of the analyzed tree in visit order.
func (st *SemTable) Scans() []*relop.Scan {
	return st.scans
}

// DirectUses returns the variables op's own expressions read. Operators
// outside the analyzed tree have no uses.
func (st *SemTable) DirectUses(op relop.Operator) VarSet {
	return st.directUses[op]
}

// DefiningScan returns the scan that introduces v, or nil.
func (st *SemTable) DefiningScan(v relop.VarID) *relop.Scan {
	if int(v) >= len(st.defs) {
		return nil
	}
	return st.defs[int(v)]
}

// ReferencedColumns returns the variables of scan that any operator in the
// analyzed tree reads. The result is a fresh set the caller may mutate.
func (st *SemTable) ReferencedColumns(scan *relop.Scan) VarSet {
	var own VarSet
	for _, col := range scan.Columns {
		own.Add(col.ID)
	}
	return own.And(st.allUses)
}

// HasVarReferencesOutside reports whether any variable of vars is read by
// an operator under root other than exclude itself. Children of exclude
// still count: a reference below a join is not a reference by the join.
func (st *SemTable) HasVarReferencesOutside(vars VarSet, root, exclude relop.Operator) bool {
	if root == nil {
		return false
	}
	if root != exclude && st.DirectUses(root).Overlaps(vars) {
		return true
	}
	for _, input := range root.Inputs() {
		if st.HasVarReferencesOutside(vars, input, exclude) {
			return true
		}
	}
	return false
}

// RegisterJoinVars records that join's condition now reads the given
// columns. Rewrites that move equalities between joins call this so the
// reference services stay truthful.
func (st *SemTable) RegisterJoinVars(join relop.Operator, vars ...*relop.Column) {
	uses := st.directUses[join]
	for _, col := range vars {
		uses.Add(col.ID)
		st.allUses.Add(col.ID)
	}
	st.directUses[join] = uses
}
