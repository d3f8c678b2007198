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

// CrossJoin is the n-ary unconditioned join. Earlier compiler stages
// flatten nested cross joins into one, so Sources can hold any number of
// inputs; the optimizer re-minimises it when elimination empties slots.
type CrossJoin struct {
	Sources []Operator
}

var _ Operator = (*CrossJoin)(nil)

// NewCrossJoin is a convenience constructor, mostly for tests and decoding.
func NewCrossJoin(sources ...Operator) *CrossJoin {
	return &CrossJoin{Sources: sources}
}

// Clone implements the Operator interface.
func (c *CrossJoin) Clone(inputs []Operator) Operator {
	checkSize(inputs, len(c.Sources))
	sources := make([]Operator, len(inputs))
	copy(sources, inputs)
	return &CrossJoin{Sources: sources}
}

// Inputs implements the Operator interface.
func (c *CrossJoin) Inputs() []Operator {
	return c.Sources
}

// SetInputs implements the Operator interface.
func (c *CrossJoin) SetInputs(inputs []Operator) {
	c.Sources = inputs
}

// ShortDescription implements the Operator interface.
func (c *CrossJoin) ShortDescription() string {
	return "cross join"
}
