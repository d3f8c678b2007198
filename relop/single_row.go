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

// SingleRow produces exactly one empty row. The rebuild step plants it
// under a Filter when elimination leaves a predicate with no tables to
// stand on.
type SingleRow struct{}

var _ Operator = (*SingleRow)(nil)

// Clone implements the Operator interface.
func (s *SingleRow) Clone(inputs []Operator) Operator {
	checkSize(inputs, 0)
	return s
}

// Inputs implements the Operator interface.
func (s *SingleRow) Inputs() []Operator {
	return nil
}

// SetInputs implements the Operator interface.
func (s *SingleRow) SetInputs(inputs []Operator) {
	checkSize(inputs, 0)
}

// ShortDescription implements the Operator interface.
func (s *SingleRow) ShortDescription() string {
	return "single row"
}
