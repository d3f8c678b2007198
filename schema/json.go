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

package schema

import (
	"encoding/json"

	"github.com/relq/relq/rqerrors"
)

type catalogDoc struct {
	Relations   []relationDoc   `json:"relations"`
	ForeignKeys []foreignKeyDoc `json:"foreign_keys"`
}

type relationDoc struct {
	Name    string      `json:"name"`
	Columns []columnDoc `json:"columns"`
	Key     []string    `json:"key"`
}

type columnDoc struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

type foreignKeyDoc struct {
	Child         string   `json:"child"`
	ChildColumns  []string `json:"child_columns"`
	Parent        string   `json:"parent"`
	ParentColumns []string `json:"parent_columns"`
	Multiplicity  string   `json:"multiplicity"`
}

// LoadCatalog parses the JSON catalog format: a list of relations with
// typed columns and an optional key, plus foreign keys between them.
func LoadCatalog(data []byte) (*Catalog, error) {
	var doc catalogDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, rqerrors.Wrap(err, "malformed catalog document")
	}
	cat := NewCatalog()
	for _, rd := range doc.Relations {
		rel, err := relationFromDoc(rd)
		if err != nil {
			return nil, err
		}
		if err := cat.AddRelation(rel); err != nil {
			return nil, err
		}
	}
	for _, fd := range doc.ForeignKeys {
		fk, err := foreignKeyFromDoc(cat, fd)
		if err != nil {
			return nil, err
		}
		if err := cat.AddForeignKey(fk); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

func relationFromDoc(rd relationDoc) (*Relation, error) {
	if rd.Name == "" {
		return nil, rqerrors.New(rqerrors.InvalidArgument, "relation without a name")
	}
	rel := &Relation{Name: rd.Name}
	for _, cd := range rd.Columns {
		typ, err := ParseType(cd.Type)
		if err != nil {
			return nil, rqerrors.Wrapf(err, "relation %s column %s", rd.Name, cd.Name)
		}
		rel.Columns = append(rel.Columns, ColumnDef{Name: cd.Name, Type: typ, Nullable: cd.Nullable})
	}
	for _, name := range rd.Key {
		ord := rel.Ordinal(name)
		if ord < 0 {
			return nil, rqerrors.Errorf(rqerrors.InvalidArgument, "relation %s keys unknown column %q", rd.Name, name)
		}
		rel.KeyOrdinals = append(rel.KeyOrdinals, ord)
	}
	return rel, nil
}

func foreignKeyFromDoc(cat *Catalog, fd foreignKeyDoc) (*ForeignKey, error) {
	child, err := cat.Relation(fd.Child)
	if err != nil {
		return nil, err
	}
	parent, err := cat.Relation(fd.Parent)
	if err != nil {
		return nil, err
	}
	mult := Many
	if fd.Multiplicity != "" {
		if mult, err = ParseMultiplicity(fd.Multiplicity); err != nil {
			return nil, err
		}
	}
	return &ForeignKey{
		Child:             child,
		ChildColumns:      fd.ChildColumns,
		Parent:            parent,
		ParentColumns:     fd.ParentColumns,
		ChildMultiplicity: mult,
	}, nil
}
