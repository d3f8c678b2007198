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

import "strings"

// Nest groups the source rows by the given columns and folds the rest of
// each group into a collection-valued output column. Earlier compilation
// stages are responsible for rewriting nesting away before join rewrites
// run; finding one inside a join region is a bug.
type Nest struct {
	Source       Operator
	GroupBy      []*Column
	CollectionAs string
}

var _ Operator = (*Nest)(nil)

// Clone implements the Operator interface.
func (n *Nest) Clone(inputs []Operator) Operator {
	checkSize(inputs, 1)
	groupBy := make([]*Column, len(n.GroupBy))
	copy(groupBy, n.GroupBy)
	return &Nest{
		Source:       inputs[0],
		GroupBy:      groupBy,
		CollectionAs: n.CollectionAs,
	}
}

// Inputs implements the Operator interface.
func (n *Nest) Inputs() []Operator {
	return []Operator{n.Source}
}

// SetInputs implements the Operator interface.
func (n *Nest) SetInputs(inputs []Operator) {
	checkSize(inputs, 1)
	n.Source = inputs[0]
}

// ShortDescription implements the Operator interface.
func (n *Nest) ShortDescription() string {
	parts := make([]string, len(n.GroupBy))
	for i, col := range n.GroupBy {
		parts[i] = col.String()
	}
	return "nest by " + strings.Join(parts, ", ") + " as " + n.CollectionAs
}
