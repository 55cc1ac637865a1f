// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package types

import "strings"

// Offset addresses a leaf within a record tree: a sequence of field indices,
// one per nesting level. The empty offset denotes the whole value (§3).
type Offset []int

// Equal reports whether o and other address the same leaf.
func (o Offset) Equal(other Offset) bool {
	if len(o) != len(other) {
		return false
	}
	for i := range o {
		if o[i] != other[i] {
			return false
		}
	}
	return true
}

// String renders an offset as a dotted index path, e.g. "0.1".
func (o Offset) String() string {
	parts := make([]string, len(o))
	for i, idx := range o {
		parts[i] = itoa(idx)
	}
	return strings.Join(parts, ".")
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// At returns the type addressed by offset within t, or false if the offset
// does not resolve (out of range, or descends into a non-record). The empty
// offset always resolves to t itself (§4.1).
func (t Type) At(offset Offset) (Type, bool) {
	cur := t
	for _, idx := range offset {
		if cur.kind != KindRecord || idx < 0 || idx >= len(cur.fields) {
			return Type{}, false
		}
		cur = cur.fields[idx].Type
	}
	return cur, true
}

// At returns the value addressed by offset within d, mirroring Type.At. It
// returns false if the offset descends into a non-record Data. The empty
// offset always resolves to d itself.
func (d Data) At(offset Offset) (Data, bool) {
	cur := d
	for _, idx := range offset {
		if cur.Kind != KindRecord || idx < 0 || idx >= len(cur.Record) {
			return Data{}, false
		}
		cur = cur.Record[idx]
	}
	return cur, true
}

// Leaf pairs a leaf type with the trace of types from the root to that leaf
// (inclusive of the leaf itself) and the offset addressing it.
type Leaf struct {
	Offset Offset
	Trace  []Type
}

// Each yields every leaf of t in preorder via fn. A non-record t yields a
// single leaf at the empty offset. Traversal order is deterministic (§4.1,
// §8 invariant 2).
func (t Type) Each(fn func(Leaf)) {
	t.each(nil, nil, fn)
}

func (t Type) each(prefix Offset, trace []Type, fn func(Leaf)) {
	trace = append(trace, t)
	if t.kind != KindRecord {
		off := make(Offset, len(prefix))
		copy(off, prefix)
		tr := make([]Type, len(trace))
		copy(tr, trace)
		fn(Leaf{Offset: off, Trace: tr})
		return
	}
	for i, f := range t.fields {
		f.Type.each(append(prefix, i), trace, fn)
	}
}
