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

package relop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relq/relq/schema"
)

const relopTestCatalog = `{
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
    }
  ],
  "foreign_keys": [
    {
      "child": "orders",
      "child_columns": ["cid"],
      "parent": "customers",
      "parent_columns": ["id"]
    }
  ]
}`

func testCatalog(t *testing.T) *schema.Catalog {
	t.Helper()
	cat, err := schema.LoadCatalog([]byte(relopTestCatalog))
	require.NoError(t, err)
	return cat
}

// testScans returns scans of orders (as o) and customers (as c) over the
// shared test catalog.
func testScans(t *testing.T) (*Scan, *Scan) {
	t.Helper()
	cat := testCatalog(t)
	vg := NewVarGen()
	orders, err := cat.Relation("orders")
	require.NoError(t, err)
	customers, err := cat.Relation("customers")
	require.NoError(t, err)
	return NewScan(vg, orders, "o"), NewScan(vg, customers, "c")
}

func TestNewScan(t *testing.T) {
	orders, customers := testScans(t)

	require.Len(t, orders.Columns, 3)
	require.Len(t, customers.Columns, 2)

	// Ids are dense and allocated in scan order.
	assert.Equal(t, VarID(0), orders.Columns[0].ID)
	assert.Equal(t, VarID(2), orders.Columns[2].ID)
	assert.Equal(t, VarID(3), customers.Columns[0].ID)

	cid := orders.Column("cid")
	require.NotNil(t, cid)
	assert.Equal(t, "o.cid", cid.String())
	assert.True(t, cid.Nullable)
	assert.Same(t, orders, cid.Origin)
	assert.Nil(t, orders.Column("nope"))

	keys := orders.KeyColumns()
	require.Len(t, keys, 1)
	assert.Same(t, orders.Column("id"), keys[0])
}

func TestVisitTopDown(t *testing.T) {
	orders, customers := testScans(t)
	join := NewJoin(InnerJoin, orders, customers, eq(orders.Column("cid"), customers.Column("id")))
	filter := NewFilter(join, gt(orders.Column("total"), &Literal{Val: int64(100)}))

	var visited []string
	err := VisitTopDown(filter, func(op Operator) error {
		visited = append(visited, op.ShortDescription())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"filter o.total > 100",
		"join on o.cid = c.id",
		"orders as o",
		"customers as c",
	}, visited)
}

func TestCloneSharesScans(t *testing.T) {
	orders, customers := testScans(t)
	join := NewJoin(LeftOuterJoin, orders, customers, eq(orders.Column("cid"), customers.Column("id")))
	filter := NewFilter(join, NotNull(customers.Column("name")))

	clone := Clone(filter).(*Filter)
	require.NotSame(t, filter, clone)

	clonedJoin := clone.Source.(*Join)
	require.NotSame(t, join, clonedJoin)
	assert.Equal(t, LeftOuterJoin, clonedJoin.Kind)

	// Scans are identity leaves: shared, not copied.
	assert.Same(t, orders, clonedJoin.Left)
	assert.Same(t, customers, clonedJoin.Right)

	// Mutating the clone leaves the original alone.
	clone.Predicates = append(clone.Predicates, NotNull(orders.Column("cid")))
	assert.Len(t, filter.Predicates, 1)
}

func TestScansIn(t *testing.T) {
	orders, customers := testScans(t)
	cross := NewCrossJoin(orders, customers)
	scans := ScansIn(cross)
	require.Len(t, scans, 2)
	assert.Same(t, orders, scans[0])
	assert.Same(t, customers, scans[1])
}

func TestCheckSizePanics(t *testing.T) {
	orders, _ := testScans(t)
	assert.PanicsWithValue(t,
		"BUG: got the wrong number of inputs: got 1, expected 0",
		func() { orders.Clone([]Operator{orders}) })
	assert.PanicsWithValue(t,
		"BUG: got the wrong number of inputs: got 0, expected 1",
		func() { NewFilter(orders).SetInputs(nil) })
}

func TestToTree(t *testing.T) {
	orders, customers := testScans(t)
	join := NewJoin(InnerJoin, orders, customers, eq(orders.Column("cid"), customers.Column("id")))
	filter := NewFilter(join, gt(orders.Column("total"), &Literal{Val: int64(100)}))

	want := `Filter (filter o.total > 100)
└── Join (join on o.cid = c.id)
    ├── Scan (orders as o)
    └── Scan (customers as c)
`
	assert.Equal(t, want, ToTree(filter))
}

func TestShortDescriptions(t *testing.T) {
	orders, customers := testScans(t)
	vg := NewVarGen()
	plain, err := testCatalog(t).Relation("orders")
	require.NoError(t, err)

	tcases := []struct {
		op   Operator
		want string
	}{
		{NewScan(vg, plain, ""), "orders"},
		{NewJoin(InnerJoin, orders, customers, nil), "join on true"},
		{NewJoin(FullOuterJoin, orders, customers, eq(orders.Column("cid"), customers.Column("id"))), "full join on o.cid = c.id"},
		{NewCrossJoin(orders, customers), "cross join"},
		{&SingleRow{}, "single row"},
		{&Project{Source: orders, Projections: []ProjExpr{
			{Expr: orders.Column("id")},
			{Expr: orders.Column("total"), As: "t"},
		}}, "project o.id, o.total as t"},
		{&Nest{Source: orders, GroupBy: []*Column{orders.Column("cid")}, CollectionAs: "items"}, "nest by o.cid as items"},
	}
	for _, tcase := range tcases {
		assert.Equal(t, tcase.want, tcase.op.ShortDescription())
	}
}
