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

// ProjExpr is a single output column of a Project.
type ProjExpr struct {
	Expr Expr
	As   string
}

func (pe ProjExpr) String() string {
	if pe.As == "" {
		return pe.Expr.String()
	}
	return pe.Expr.String() + " as " + pe.As
}

// Project evaluates an expression per output column. Join rewrites treat it
// as a boundary: they run inside the largest join-shaped region underneath
// and substitute eliminated columns in the projections on the way out.
type Project struct {
	Source      Operator
	Projections []ProjExpr
}

var _ Operator = (*Project)(nil)

// Clone implements the Operator interface.
func (p *Project) Clone(inputs []Operator) Operator {
	checkSize(inputs, 1)
	projections := make([]ProjExpr, len(p.Projections))
	copy(projections, p.Projections)
	return &Project{
		Source:      inputs[0],
		Projections: projections,
	}
}

// Inputs implements the Operator interface.
func (p *Project) Inputs() []Operator {
	return []Operator{p.Source}
}

// SetInputs implements the Operator interface.
func (p *Project) SetInputs(inputs []Operator) {
	checkSize(inputs, 1)
	p.Source = inputs[0]
}

// ShortDescription implements the Operator interface.
func (p *Project) ShortDescription() string {
	parts := make([]string, len(p.Projections))
	for i, pe := range p.Projections {
		parts[i] = pe.String()
	}
	return "project " + strings.Join(parts, ", ")
}
