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

package semantics

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/relq/relq/relop"
)

// VarSet is a set of column variables. Variable ids are dense, so the set
// is a bitset. The zero value is the empty set and is ready to use; all
// non-mutating operations treat it as such.
type VarSet struct {
	bits *bitset.BitSet
}

// SingleVar returns the set containing only v.
func SingleVar(v relop.VarID) VarSet {
	return VarSet{bits: bitset.New(uint(v) + 1).Set(uint(v))}
}

// VarSetFromIDs returns the set of all the given variables.
func VarSetFromIDs(vars ...relop.VarID) (vs VarSet) {
	for _, v := range vars {
		vs.Add(v)
	}
	return
}

// VarSetFromColumns returns the set of the given columns' variables.
func VarSetFromColumns(cols []*relop.Column) (vs VarSet) {
	for _, col := range cols {
		vs.Add(col.ID)
	}
	return
}

// Add puts v into the set.
func (vs *VarSet) Add(v relop.VarID) {
	if vs.bits == nil {
		vs.bits = bitset.New(uint(v) + 1)
	}
	vs.bits.Set(uint(v))
}

// MergeInPlace adds every variable of other to this set.
func (vs *VarSet) MergeInPlace(other VarSet) {
	if other.bits == nil {
		return
	}
	if vs.bits == nil {
		vs.bits = other.bits.Clone()
		return
	}
	vs.bits.InPlaceUnion(other.bits)
}

// Contains reports whether v is in the set.
func (vs VarSet) Contains(v relop.VarID) bool {
	return vs.bits != nil && vs.bits.Test(uint(v))
}

// IsEmpty reports whether the set has no variables.
func (vs VarSet) IsEmpty() bool {
	return vs.bits == nil || vs.bits.None()
}

// Popcount returns the number of variables in the set.
func (vs VarSet) Popcount() int {
	if vs.bits == nil {
		return 0
	}
	return int(vs.bits.Count())
}

// Overlaps reports whether the two sets share at least one variable.
func (vs VarSet) Overlaps(other VarSet) bool {
	if vs.bits == nil || other.bits == nil {
		return false
	}
	return vs.bits.IntersectionCardinality(other.bits) > 0
}

// IsContainedBy reports whether every variable of this set is in other.
func (vs VarSet) IsContainedBy(other VarSet) bool {
	if vs.bits == nil || vs.bits.None() {
		return true
	}
	if other.bits == nil {
		return false
	}
	return other.bits.IsSuperSet(vs.bits)
}

// Or returns the union of the two sets as a new set.
func (vs VarSet) Or(other VarSet) VarSet {
	switch {
	case vs.bits == nil:
		return other.Clone()
	case other.bits == nil:
		return vs.Clone()
	default:
		return VarSet{bits: vs.bits.Union(other.bits)}
	}
}

// And returns the intersection of the two sets as a new set.
func (vs VarSet) And(other VarSet) VarSet {
	if vs.bits == nil || other.bits == nil {
		return VarSet{}
	}
	return VarSet{bits: vs.bits.Intersection(other.bits)}
}

// AndNot returns the variables of this set that are not in other.
func (vs VarSet) AndNot(other VarSet) VarSet {
	if vs.bits == nil {
		return VarSet{}
	}
	if other.bits == nil {
		return vs.Clone()
	}
	return VarSet{bits: vs.bits.Difference(other.bits)}
}

// Clone returns a copy that shares no storage with the original.
func (vs VarSet) Clone() VarSet {
	if vs.bits == nil {
		return VarSet{}
	}
	return VarSet{bits: vs.bits.Clone()}
}

// Equal reports whether the two sets hold exactly the same variables.
func (vs VarSet) Equal(other VarSet) bool {
	switch {
	case vs.bits == nil:
		return other.IsEmpty()
	case other.bits == nil:
		return vs.IsEmpty()
	default:
		return vs.bits.Equal(other.bits)
	}
}

// ForEach calls yield with every variable in the set, in ascending order.
func (vs VarSet) ForEach(yield func(relop.VarID)) {
	if vs.bits == nil {
		return
	}
	for v, ok := vs.bits.NextSet(0); ok; v, ok = vs.bits.NextSet(v + 1) {
		yield(relop.VarID(v))
	}
}

// Constituents returns the variables of the set in ascending order.
func (vs VarSet) Constituents() (result []relop.VarID) {
	vs.ForEach(func(v relop.VarID) {
		result = append(result, v)
	})
	return
}

func (vs VarSet) Format(f fmt.State, verb rune) {
	fmt.Fprintf(f, "VarSet{")
	first := true
	vs.ForEach(func(v relop.VarID) {
		if first {
			fmt.Fprintf(f, "%d", v)
			first = false
		} else {
			fmt.Fprintf(f, ",%d", v)
		}
	})
	fmt.Fprintf(f, "}")
}
