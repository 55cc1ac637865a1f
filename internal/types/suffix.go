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

// Suffix is one match produced by FindSuffix: the offset of the matching
// leaf and the dotted field-name path leading to it.
type Suffix struct {
	Offset Offset
	Path   []string
}

// FindSuffix returns every leaf of record type t whose trailing field-name
// path equals key, per spec.md §3/§4.1. t must be a record; non-record
// types never match (the single-field "type name as key" rule lives one
// level up, in the schema resolver, since it needs the type's own Name).
// Traversal, and therefore the result order, is deterministic preorder
// (§8 invariant: "suffix search is deterministic in tree-preorder").
func (t Type) FindSuffix(key []string) []Suffix {
	if !t.IsRecord() || len(key) == 0 {
		return nil
	}
	var out []Suffix
	var walk func(cur Type, offset Offset, path []string)
	walk = func(cur Type, offset Offset, path []string) {
		if len(path) > 0 && suffixMatches(path, key) {
			off := make(Offset, len(offset))
			copy(off, offset)
			p := make([]string, len(path))
			copy(p, path)
			out = append(out, Suffix{Offset: off, Path: p})
		}
		if cur.IsRecord() {
			for i, f := range cur.fields {
				walk(f.Type, append(offset, i), append(path, f.Name))
			}
		}
	}
	walk(t, nil, nil)
	return out
}

// suffixMatches reports whether the last len(key) elements of path equal
// key, element-wise.
func suffixMatches(path, key []string) bool {
	if len(key) > len(path) {
		return false
	}
	offset := len(path) - len(key)
	for i, k := range key {
		if path[offset+i] != k {
			return false
		}
	}
	return true
}
