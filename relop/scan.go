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
	"github.com/relq/relq/schema"
)

// Column is one column variable introduced by a Scan. Two scans of the
// same relation own distinct Column instances; identity (and ID) is what
// the optimizer tracks, Name is how humans and the catalog refer to it.
type Column struct {
	ID       VarID
	Name     string
	Type     schema.Type
	Nullable bool

	// Origin is the scan that introduced this column, nil for synthetic
	// columns owned by opaque operators.
	Origin *Scan
}

func (c *Column) String() string {
	if c.Origin != nil {
		return c.Origin.Alias + "." + c.Name
	}
	return c.Name
}

// Scan reads one relation under an alias. It is an identity leaf: stages
// never copy a Scan, they re-emit the same instance, so column identity
// survives rewrites.
type Scan struct {
	Relation *schema.Relation
	Alias    string
	Columns  []*Column
}

var _ Operator = (*Scan)(nil)

// NewScan materializes a scan of rel under alias, allocating one column
// variable per relation column.
func NewScan(vg *VarGen, rel *schema.Relation, alias string) *Scan {
	if alias == "" {
		alias = rel.Name
	}
	scan := &Scan{Relation: rel, Alias: alias}
	scan.Columns = make([]*Column, len(rel.Columns))
	for i, def := range rel.Columns {
		scan.Columns[i] = &Column{
			ID:       vg.Reserve(),
			Name:     def.Name,
			Type:     def.Type,
			Nullable: def.Nullable,
			Origin:   scan,
		}
	}
	return scan
}

// Column returns the scan's column with the given name, or nil.
func (s *Scan) Column(name string) *Column {
	for _, col := range s.Columns {
		if col.Name == name {
			return col
		}
	}
	return nil
}

// KeyColumns returns the scan's key columns in key order, or nil when the
// relation declares no key.
func (s *Scan) KeyColumns() []*Column {
	if !s.Relation.HasKey() {
		return nil
	}
	cols := make([]*Column, len(s.Relation.KeyOrdinals))
	for i, ord := range s.Relation.KeyOrdinals {
		cols[i] = s.Columns[ord]
	}
	return cols
}

// Clone implements the Operator interface. Scans are identity leaves.
func (s *Scan) Clone(inputs []Operator) Operator {
	checkSize(inputs, 0)
	return s
}

// Inputs implements the Operator interface.
func (s *Scan) Inputs() []Operator {
	return nil
}

// SetInputs implements the Operator interface.
func (s *Scan) SetInputs(inputs []Operator) {
	checkSize(inputs, 0)
}

// ShortDescription implements the Operator interface.
func (s *Scan) ShortDescription() string {
	if s.Alias == s.Relation.Name {
		return s.Relation.Name
	}
	return s.Relation.Name + " as " + s.Alias
}
