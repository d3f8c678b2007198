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

// Package relop contains the logical operators the compiler plans over.
/*
A plan is a tree of Operators. Scans sit at the leaves and introduce one
column variable per relation column; joins, filters and projections combine
and shape them. Operator trees are built once and treated as immutable by
the optimizer stages: a stage that changes anything produces new nodes and
leaves the input tree alone, so callers can keep the original for
comparison or fallback.

Column variables (VarID) are dense integers handed out by a VarGen.
Everything that tracks "which columns does this thing touch" does it with
sets over VarID, which keeps the bookkeeping cheap and the iteration order
deterministic.
*/
package relop

import (
	"fmt"
)

// VarID identifies one column variable. IDs are dense and allocated in
// plan-construction order, so they double as a stable ordering.
type VarID int32

// VarGen allocates column variables for one compilation.
type VarGen struct {
	next VarID
}

// NewVarGen returns a generator whose first variable is 0.
func NewVarGen() *VarGen {
	return &VarGen{}
}

// Reserve returns the next unused VarID and advances the generator.
func (vg *VarGen) Reserve() VarID {
	id := vg.next
	vg.next++
	return id
}

// Count returns how many variables have been allocated.
func (vg *VarGen) Count() int {
	return int(vg.next)
}

// Operator forms the tree of operators, representing the query plan.
// Stages rewrite these trees; an operator never rewrites itself.
type Operator interface {
	// Clone will return a copy of this operator, protected so changed will
	// not be reflected in the original, with the given operators as inputs.
	Clone(inputs []Operator) Operator

	// Inputs returns the inputs for this operator.
	Inputs() []Operator

	// SetInputs changes the inputs for this operator.
	SetInputs([]Operator)

	// ShortDescription is used when we serialize the plan tree for tests
	// and debug output.
	ShortDescription() string
}

// VisitTopDown walks the tree breadth first from the root. An error from
// the visitor aborts the walk.
func VisitTopDown(root Operator, visitor func(Operator) error) error {
	queue := []Operator{root}
	for len(queue) > 0 {
		this := queue[0]
		queue = append(queue[1:], this.Inputs()...)
		if err := visitor(this); err != nil {
			return err
		}
	}
	return nil
}

// Clone deep-copies an operator tree. Scans are identity leaves and are
// shared between the copy and the original.
func Clone(op Operator) Operator {
	inputs := op.Inputs()
	clones := make([]Operator, len(inputs))
	for i, input := range inputs {
		clones[i] = Clone(input)
	}
	return op.Clone(clones)
}

// ScansIn collects every Scan in the tree in visit order.
func ScansIn(op Operator) (result []*Scan) {
	_ = VisitTopDown(op, func(this Operator) error {
		if scan, ok := this.(*Scan); ok {
			result = append(result, scan)
		}
		return nil
	})
	return
}

func checkSize(inputs []Operator, shouldBe int) {
	if len(inputs) != shouldBe {
		panic(fmt.Sprintf("BUG: got the wrong number of inputs: got %d, expected %d", len(inputs), shouldBe))
	}
}
