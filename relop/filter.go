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

// Filter keeps the input rows for which every predicate evaluates to true.
// Predicates are implicitly conjoined; keeping them split spares the
// stages repeated SplitAndExpression calls.
type Filter struct {
	Source     Operator
	Predicates []Expr
}

var _ Operator = (*Filter)(nil)

// NewFilter wraps src with the given conjuncts. A condition that is itself
// a conjunction is split first.
func NewFilter(src Operator, conditions ...Expr) *Filter {
	var predicates []Expr
	for _, cond := range conditions {
		predicates = SplitAndExpression(predicates, cond)
	}
	return &Filter{Source: src, Predicates: predicates}
}

// Condition returns the predicates as one conjunction, nil when empty.
func (f *Filter) Condition() Expr {
	return AndExpressions(f.Predicates...)
}

// Clone implements the Operator interface.
func (f *Filter) Clone(inputs []Operator) Operator {
	checkSize(inputs, 1)
	predicates := make([]Expr, len(f.Predicates))
	copy(predicates, f.Predicates)
	return &Filter{
		Source:     inputs[0],
		Predicates: predicates,
	}
}

// Inputs implements the Operator interface.
func (f *Filter) Inputs() []Operator {
	return []Operator{f.Source}
}

// SetInputs implements the Operator interface.
func (f *Filter) SetInputs(inputs []Operator) {
	checkSize(inputs, 1)
	f.Source = inputs[0]
}

// ShortDescription implements the Operator interface.
func (f *Filter) ShortDescription() string {
	parts := make([]string, len(f.Predicates))
	for i, p := range f.Predicates {
		parts[i] = p.String()
	}
	return "filter " + strings.Join(parts, " and ")
}
