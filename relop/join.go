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

// JoinKind is the flavour of a binary Join.
type JoinKind int8

const (
	InnerJoin JoinKind = iota
	LeftOuterJoin
	FullOuterJoin
)

func (k JoinKind) String() string {
	switch k {
	case LeftOuterJoin:
		return "left join"
	case FullOuterJoin:
		return "full join"
	default:
		return "join"
	}
}

// Join combines two inputs under a condition. A nil Condition means ON
// true. Left is the preserved side of a LeftOuterJoin.
type Join struct {
	Kind      JoinKind
	Left      Operator
	Right     Operator
	Condition Expr
}

var _ Operator = (*Join)(nil)

// NewJoin is a convenience constructor, mostly for tests and decoding.
func NewJoin(kind JoinKind, left, right Operator, condition Expr) *Join {
	return &Join{Kind: kind, Left: left, Right: right, Condition: condition}
}

// Clone implements the Operator interface.
func (j *Join) Clone(inputs []Operator) Operator {
	checkSize(inputs, 2)
	return &Join{
		Kind:      j.Kind,
		Left:      inputs[0],
		Right:     inputs[1],
		Condition: j.Condition,
	}
}

// Inputs implements the Operator interface.
func (j *Join) Inputs() []Operator {
	return []Operator{j.Left, j.Right}
}

// SetInputs implements the Operator interface.
func (j *Join) SetInputs(inputs []Operator) {
	checkSize(inputs, 2)
	j.Left, j.Right = inputs[0], inputs[1]
}

// ShortDescription implements the Operator interface.
func (j *Join) ShortDescription() string {
	if j.Condition == nil {
		return j.Kind.String() + " on true"
	}
	return j.Kind.String() + " on " + j.Condition.String()
}
