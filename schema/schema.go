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

// Package schema describes the relations a plan reads: their columns, keys
// and foreign key constraints. The optimizer consults it through a Catalog;
// it never mutates it.
package schema

import (
	"strings"

	"github.com/relq/relq/rqerrors"
)

// Type is the scalar type of a column or literal.
type Type int8

const (
	Unknown Type = iota
	Int64
	Float64
	VarChar
	Bool
	Timestamp
)

var typeNames = [...]string{
	Unknown:   "unknown",
	Int64:     "int64",
	Float64:   "float64",
	VarChar:   "varchar",
	Bool:      "bool",
	Timestamp: "timestamp",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// ParseType maps a type name to its Type. Unrecognized names are an error.
func ParseType(s string) (Type, error) {
	for t, name := range typeNames {
		if name == strings.ToLower(s) {
			return Type(t), nil
		}
	}
	return Unknown, rqerrors.Errorf(rqerrors.InvalidArgument, "unknown column type %q", s)
}

// ColumnDef describes one column of a relation.
type ColumnDef struct {
	Name     string
	Type     Type
	Nullable bool
}

// Relation is a named table with ordered columns and an optional key.
type Relation struct {
	Name    string
	Columns []ColumnDef

	// KeyOrdinals indexes Columns; it lists the primary key columns in
	// declaration order. Empty means the relation declares no key, which
	// blocks any elimination that needs one.
	KeyOrdinals []int
}

// Ordinal returns the position of the named column, or -1.
func (r *Relation) Ordinal(name string) int {
	for i, col := range r.Columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// HasKey reports whether the relation declares a key.
func (r *Relation) HasKey() bool {
	return len(r.KeyOrdinals) > 0
}

// IsKeyColumn reports whether the column at ordinal i is part of the key.
func (r *Relation) IsKeyColumn(i int) bool {
	for _, ord := range r.KeyOrdinals {
		if ord == i {
			return true
		}
	}
	return false
}

// KeyColumnNames returns the key column names in key order.
func (r *Relation) KeyColumnNames() []string {
	names := make([]string, 0, len(r.KeyOrdinals))
	for _, ord := range r.KeyOrdinals {
		names = append(names, r.Columns[ord].Name)
	}
	return names
}

// Multiplicity says how many child rows a single parent row may own.
type Multiplicity int8

const (
	// Many allows any number of children per parent.
	Many Multiplicity = iota
	// One requires exactly one child per parent.
	One
	// ZeroOrOne allows at most one child per parent.
	ZeroOrOne
)

func (m Multiplicity) String() string {
	switch m {
	case One:
		return "one"
	case ZeroOrOne:
		return "zero-or-one"
	default:
		return "many"
	}
}

// ParseMultiplicity maps a multiplicity name to its value.
func ParseMultiplicity(s string) (Multiplicity, error) {
	switch strings.ToLower(s) {
	case "", "many":
		return Many, nil
	case "one":
		return One, nil
	case "zero-or-one", "zeroorone":
		return ZeroOrOne, nil
	}
	return Many, rqerrors.Errorf(rqerrors.InvalidArgument, "unknown multiplicity %q", s)
}

// ForeignKey declares that every non-null child key in Child references a
// parent key in Parent. ChildColumns and ParentColumns pair up
// positionally; ParentColumns must be exactly the parent's key.
type ForeignKey struct {
	Child         *Relation
	ChildColumns  []string
	Parent        *Relation
	ParentColumns []string

	// ChildMultiplicity is the number of child rows a parent row may own.
	ChildMultiplicity Multiplicity
}

// Catalog resolves relations and foreign keys for one schema.
type Catalog struct {
	relations map[string]*Relation
	names     []string
	fks       []*ForeignKey
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{relations: make(map[string]*Relation)}
}

// AddRelation registers a relation. Redefining a name is an error.
func (c *Catalog) AddRelation(r *Relation) error {
	if _, ok := c.relations[r.Name]; ok {
		return rqerrors.Errorf(rqerrors.InvalidArgument, "relation %q already defined", r.Name)
	}
	for _, ord := range r.KeyOrdinals {
		if ord < 0 || ord >= len(r.Columns) {
			return rqerrors.Errorf(rqerrors.InvalidArgument, "relation %q: key ordinal %d out of range", r.Name, ord)
		}
	}
	c.relations[r.Name] = r
	c.names = append(c.names, r.Name)
	return nil
}

// AddForeignKey registers a constraint between two already-registered
// relations. The parent columns must be exactly the parent's key and the
// column lists must pair up.
func (c *Catalog) AddForeignKey(fk *ForeignKey) error {
	if fk.Child == nil || fk.Parent == nil {
		return rqerrors.New(rqerrors.InvalidArgument, "foreign key needs both ends")
	}
	if len(fk.ChildColumns) == 0 || len(fk.ChildColumns) != len(fk.ParentColumns) {
		return rqerrors.Errorf(rqerrors.InvalidArgument, "foreign key %s->%s: column lists must pair up", fk.Child.Name, fk.Parent.Name)
	}
	if got, want := fk.ParentColumns, fk.Parent.KeyColumnNames(); !sameNames(got, want) {
		return rqerrors.Errorf(rqerrors.InvalidArgument, "foreign key %s->%s: parent columns %v are not the parent key %v", fk.Child.Name, fk.Parent.Name, got, want)
	}
	for _, name := range fk.ChildColumns {
		if fk.Child.Ordinal(name) < 0 {
			return rqerrors.Errorf(rqerrors.InvalidArgument, "foreign key %s->%s: no child column %q", fk.Child.Name, fk.Parent.Name, name)
		}
	}
	c.fks = append(c.fks, fk)
	return nil
}

// Relation returns the named relation, or an error.
func (c *Catalog) Relation(name string) (*Relation, error) {
	r, ok := c.relations[name]
	if !ok {
		return nil, rqerrors.Errorf(rqerrors.InvalidArgument, "unknown relation %q", name)
	}
	return r, nil
}

// RelationNames returns the registered names in registration order.
func (c *Catalog) RelationNames() []string {
	return c.names
}

// ForeignKeys returns every registered constraint in declaration order.
func (c *Catalog) ForeignKeys() []*ForeignKey {
	return c.fks
}

// ParentChildConstraints returns, in declaration order, every foreign key
// whose parent is parent and whose child is child. The same relation can
// play both roles (hierarchies), so callers probe both orientations.
func (c *Catalog) ParentChildConstraints(parent, child *Relation) []*ForeignKey {
	var out []*ForeignKey
	for _, fk := range c.fks {
		if fk.Parent == parent && fk.Child == child {
			out = append(out, fk)
		}
	}
	return out
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
