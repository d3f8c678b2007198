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

	"github.com/stretchr/testify/require"

	"github.com/relq/relq/relop"
	"github.com/relq/relq/schema"
	"github.com/relq/relq/semantics"
)

// The schema shared by the tests in this package. users/accounts carry a
// non-nullable foreign key (promotion material), orders/customers a
// nullable one, profiles and badges hang off users with one and
// zero-or-one multiplicity, shipments references the composite key of
// lines, and events declares a nullable key.
const joinElimCatalog = `{
  "relations": [
    {
      "name": "customers",
      "columns": [
        {"name": "id", "type": "int64"},
        {"name": "name", "type": "varchar", "nullable": true}
      ],
      "key": ["id"]
    },
    {
      "name": "orders",
      "columns": [
        {"name": "id", "type": "int64"},
        {"name": "cid", "type": "int64", "nullable": true},
        {"name": "total", "type": "float64", "nullable": true}
      ],
      "key": ["id"]
    },
    {
      "name": "users",
      "columns": [
        {"name": "id", "type": "int64"},
        {"name": "email", "type": "varchar", "nullable": true},
        {"name": "score", "type": "int64", "nullable": true}
      ],
      "key": ["id"]
    },
    {
      "name": "accounts",
      "columns": [
        {"name": "id", "type": "int64"},
        {"name": "uid", "type": "int64"},
        {"name": "balance", "type": "float64", "nullable": true}
      ],
      "key": ["id"]
    },
    {
      "name": "profiles",
      "columns": [
        {"name": "uid", "type": "int64"},
        {"name": "bio", "type": "varchar", "nullable": true}
      ],
      "key": ["uid"]
    },
    {
      "name": "badges",
      "columns": [
        {"name": "uid", "type": "int64"},
        {"name": "label", "type": "varchar", "nullable": true}
      ],
      "key": ["uid"]
    },
    {
      "name": "lines",
      "columns": [
        {"name": "order_id", "type": "int64"},
        {"name": "line_no", "type": "int64"},
        {"name": "sku", "type": "varchar", "nullable": true}
      ],
      "key": ["order_id", "line_no"]
    },
    {
      "name": "shipments",
      "columns": [
        {"name": "sid", "type": "int64"},
        {"name": "oid", "type": "int64", "nullable": true},
        {"name": "lno", "type": "int64"}
      ],
      "key": ["sid"]
    },
    {
      "name": "events",
      "columns": [
        {"name": "eid", "type": "int64", "nullable": true},
        {"name": "kind", "type": "varchar", "nullable": true}
      ],
      "key": ["eid"]
    },
    {
      "name": "rows_without_key",
      "columns": [
        {"name": "a", "type": "int64"},
        {"name": "b", "type": "int64", "nullable": true}
      ]
    }
  ],
  "foreign_keys": [
    {
      "child": "orders",
      "child_columns": ["cid"],
      "parent": "customers",
      "parent_columns": ["id"]
    },
    {
      "child": "accounts",
      "child_columns": ["uid"],
      "parent": "users",
      "parent_columns": ["id"]
    },
    {
      "child": "profiles",
      "child_columns": ["uid"],
      "parent": "users",
      "parent_columns": ["id"],
      "multiplicity": "one"
    },
    {
      "child": "badges",
      "child_columns": ["uid"],
      "parent": "users",
      "parent_columns": ["id"],
      "multiplicity": "zero-or-one"
    },
    {
      "child": "shipments",
      "child_columns": ["oid", "lno"],
      "parent": "lines",
      "parent_columns": ["order_id", "line_no"]
    }
  ]
}`

// fixture hands out scans over the shared catalog with one variable
// generator, so column ids stay dense across a test's whole plan.
type fixture struct {
	t   *testing.T
	cat *schema.Catalog
	vg  *relop.VarGen
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := schema.LoadCatalog([]byte(joinElimCatalog))
	require.NoError(t, err)
	return &fixture{t: t, cat: cat, vg: relop.NewVarGen()}
}

func (f *fixture) scan(relation, alias string) *relop.Scan {
	f.t.Helper()
	rel, err := f.cat.Relation(relation)
	require.NoError(f.t, err)
	return relop.NewScan(f.vg, rel, alias)
}

// analyze builds the semantic table over the full tree, which may be
// wider than the join region handed to Eliminate.
func (f *fixture) analyze(root relop.Operator) *semantics.SemTable {
	f.t.Helper()
	sem, err := semantics.Analyze(root)
	require.NoError(f.t, err)
	return sem
}

// graph builds the augmented tree and its edges without running any
// rewrite, for tests that poke at a single phase. analyzed defaults to
// the region itself.
func (f *fixture) graph(region relop.Operator, analyzed relop.Operator) *joinGraph {
	f.t.Helper()
	if analyzed == nil {
		analyzed = region
	}
	g := &joinGraph{
		sem:        f.analyze(analyzed),
		cat:        f.cat,
		vertexOf:   make(map[*relop.Scan]*tableVertex),
		opaqueHome: make(map[*relop.Scan]nodeID),
		processed:  make(map[relop.Operator]bool),
		varMap:     make(map[relop.VarID]*relop.Column),
	}
	require.NoError(f.t, g.buildTree(region))
	g.buildEdges()
	return g
}

// eliminate runs the whole stage over region, analyzing analyzed (or the
// region when nil).
func (f *fixture) eliminate(region relop.Operator, analyzed relop.Operator) *Result {
	f.t.Helper()
	if analyzed == nil {
		analyzed = region
	}
	res, err := Eliminate(region, f.analyze(analyzed), f.cat)
	require.NoError(f.t, err)
	return res
}

func (g *joinGraph) vertex(t *testing.T, alias string) *tableVertex {
	t.Helper()
	for _, tv := range g.tables {
		if tv.alias() == alias {
			return tv
		}
	}
	t.Fatalf("no table vertex for alias %q", alias)
	return nil
}

func (g *joinGraph) edge(t *testing.T, from, to string) *joinEdge {
	t.Helper()
	fv := g.vertex(t, from)
	for _, e := range fv.edges {
		if e.Right == g.vertex(t, to) {
			return e
		}
	}
	t.Fatalf("no edge %s -> %s", from, to)
	return nil
}

func eq(l, r relop.Expr) relop.Expr {
	return &relop.Comparison{Op: relop.EqualOp, Left: l, Right: r}
}

func gt(l, r relop.Expr) relop.Expr {
	return &relop.Comparison{Op: relop.GreaterThanOp, Left: l, Right: r}
}

func and(exprs ...relop.Expr) relop.Expr {
	return relop.AndExpressions(exprs...)
}

// project wraps src so the given columns count as referenced outside the
// join region.
func project(src relop.Operator, cols ...*relop.Column) *relop.Project {
	projections := make([]relop.ProjExpr, len(cols))
	for i, col := range cols {
		projections[i] = relop.ProjExpr{Expr: col}
	}
	return &relop.Project{Source: src, Projections: projections}
}
