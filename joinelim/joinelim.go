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

// Package joinelim removes provably redundant tables from join trees.
//
// The stage overlays a join region (scans, joins and cross joins; any
// other operator is an opaque boundary) with an augmented tree, derives
// equality edges between tables from the join conditions, and then
// applies three rewrites backed by schema metadata:
//
//   - left outer joins guaranteed a match by a foreign key become inner
//     joins,
//   - repeated instances of a relation joined on its full key collapse
//     into one,
//   - parent/child joins where one side adds no information drop that
//     side.
//
// Eliminated tables leave a substitution map behind so surrounding
// stages can re-point column references at the surviving instances.
package joinelim

import (
	"fmt"

	"github.com/relq/relq/log"
	"github.com/relq/relq/relop"
	"github.com/relq/relq/rqerrors"
	"github.com/relq/relq/schema"
	"github.com/relq/relq/semantics"
)

// Result is what Eliminate hands back.
type Result struct {
	// Root is the rewritten region, or the untouched input when no
	// rewrite applied.
	Root relop.Operator

	// VarMap maps every variable of an eliminated table to the column
	// that now stands in for it. Values are terminal: they never
	// appear as keys.
	VarMap map[relop.VarID]*relop.Column

	// Processed holds every scan and join node the stage examined,
	// letting callers skip them in later passes.
	Processed map[relop.Operator]bool

	// Applied lists the rewrites in application order, for logging
	// and plan explanations.
	Applied []string
}

// joinGraph is the working state of one elimination run.
type joinGraph struct {
	sem *semantics.SemTable
	cat *schema.Catalog

	nodes []*augNode
	root  nodeID

	// tables lists the table vertices in node id order.
	tables   []*tableVertex
	vertexOf map[*relop.Scan]*tableVertex

	// opaqueHome maps scans hidden inside opaque subtrees to the leaf
	// that materialises them, for predicate placement.
	opaqueHome map[*relop.Scan]nodeID

	processed map[relop.Operator]bool

	// varMap accumulates replacement columns as tables fall away;
	// entries may chain until resolveVarMap flattens them.
	varMap   map[relop.VarID]*relop.Column
	finalMap map[relop.VarID]*relop.Column

	notes    []string
	modified bool
}

// Eliminate runs join elimination over the region rooted at root. The
// semantic table must have been built over a tree containing root, and
// the catalog supplies the keys and foreign keys the rewrites rely on.
// The input tree is never mutated; an untouched run returns the same
// root instance.
func Eliminate(root relop.Operator, sem *semantics.SemTable, cat *schema.Catalog) (*Result, error) {
	if root == nil {
		return nil, rqerrors.New(rqerrors.InvalidArgument, "cannot eliminate joins in a nil plan")
	}
	if sem == nil || cat == nil {
		return nil, rqerrors.New(rqerrors.InvalidArgument, "join elimination needs a semantic table and a catalog")
	}

	g := &joinGraph{
		sem:        sem,
		cat:        cat,
		vertexOf:   make(map[*relop.Scan]*tableVertex),
		opaqueHome: make(map[*relop.Scan]nodeID),
		processed:  make(map[relop.Operator]bool),
		varMap:     make(map[relop.VarID]*relop.Column),
	}
	if err := g.buildTree(root); err != nil {
		return nil, err
	}
	g.buildEdges()
	log.V(2).Infof("joinelim: %d tables, %d nodes in region", len(g.tables), len(g.nodes))

	g.promoteJoins()
	g.synthesizeTransitiveEdges()
	if err := g.eliminateSelfJoins(); err != nil {
		return nil, err
	}
	g.eliminateParentChild()

	result := &Result{
		Root:      root,
		VarMap:    make(map[relop.VarID]*relop.Column),
		Processed: g.processed,
		Applied:   g.notes,
	}
	if !g.modified {
		return result, nil
	}
	g.finalMap = g.resolveVarMap()
	result.VarMap = g.finalMap
	result.Root = g.rebuild()
	return result, nil
}

func (g *joinGraph) note(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	g.notes = append(g.notes, msg)
	log.V(2).Infof("joinelim: %s", msg)
}

// resolveVarMap flattens replacement chains so every entry points at
// the terminal surviving column.
func (g *joinGraph) resolveVarMap() map[relop.VarID]*relop.Column {
	resolved := make(map[relop.VarID]*relop.Column, len(g.varMap))
	for id, col := range g.varMap {
		for {
			next, ok := g.varMap[col.ID]
			if !ok {
				break
			}
			col = next
		}
		resolved[id] = col
	}
	return resolved
}
