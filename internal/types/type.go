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

// Package types implements VAST's algebraic type system: a closed sum of
// primitive, compound and record type descriptors, together with
// structural ("congruent") comparison independent of names and aliases.
package types

import "fmt"

// Kind identifies the shape of a Type, independent of any name or alias
// attached to it.
type Kind uint8

const (
	KindBool Kind = iota
	KindInt
	KindCount
	KindReal
	KindTime
	KindDuration
	KindString
	KindPattern
	KindAddress
	KindSubnet
	KindPort
	KindVector
	KindSet
	KindTable
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindCount:
		return "count"
	case KindReal:
		return "real"
	case KindTime:
		return "time"
	case KindDuration:
		return "duration"
	case KindString:
		return "string"
	case KindPattern:
		return "pattern"
	case KindAddress:
		return "addr"
	case KindSubnet:
		return "subnet"
	case KindPort:
		return "port"
	case KindVector:
		return "vector"
	case KindSet:
		return "set"
	case KindTable:
		return "table"
	case KindRecord:
		return "record"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Field is one named member of a record type. Fields are ordered; order is
// significant for Offset addressing and for preorder traversal.
type Field struct {
	Name string
	Type Type
}

// Type is VAST's algebraic type descriptor. Exactly one of the kind-specific
// fields below is meaningful for a given Kind; Type is a value type and is
// always copied, never mutated, once constructed.
type Type struct {
	kind Kind

	name    string
	aliases []string

	// elem holds the element type for KindVector/KindSet.
	elem *Type

	// key/value hold the key/value types for KindTable.
	key   *Type
	value *Type

	// fields holds the ordered member list for KindRecord.
	fields []Field
}

// Bool, Int, Count, Real, Time, Duration, String, Pattern, Address, Subnet
// and Port are the unnamed primitive types. Name one with Named to produce
// a distinct, named variant that remains congruent with its unnamed base.
var (
	Bool     = Type{kind: KindBool}
	Int      = Type{kind: KindInt}
	Count    = Type{kind: KindCount}
	Real     = Type{kind: KindReal}
	Time     = Type{kind: KindTime}
	Duration = Type{kind: KindDuration}
	String   = Type{kind: KindString}
	Pattern  = Type{kind: KindPattern}
	Address  = Type{kind: KindAddress}
	Subnet   = Type{kind: KindSubnet}
	Port     = Type{kind: KindPort}
)

// Vector constructs a vector<T> type.
func Vector(elem Type) Type {
	return Type{kind: KindVector, elem: &elem}
}

// Set constructs a set<T> type.
func Set(elem Type) Type {
	return Type{kind: KindSet, elem: &elem}
}

// Table constructs a table<K,V> type.
func Table(key, value Type) Type {
	return Type{kind: KindTable, key: &key, value: &value}
}

// Record constructs a record type from an ordered field list. The slice is
// copied; callers may reuse it.
func Record(fields ...Field) Type {
	cp := make([]Field, len(fields))
	copy(cp, fields)
	return Type{kind: KindRecord, fields: cp}
}

// Named returns a copy of t carrying the given name. Naming does not alter
// Congruent, only Equal and lookups by name (Schema.Lookup).
func (t Type) Named(name string) Type {
	t.name = name
	return t
}

// Aliased returns a copy of t with alias appended to its alias set. An
// aliased type is Congruent to the type it aliases (spec.md invariant 1).
func (t Type) Aliased(alias string) Type {
	aliases := make([]string, len(t.aliases), len(t.aliases)+1)
	copy(aliases, t.aliases)
	t.aliases = append(aliases, alias)
	return t
}

// Kind returns the structural kind of t.
func (t Type) Kind() Kind { return t.kind }

// Name returns t's name, or "" if unnamed.
func (t Type) Name() string { return t.name }

// Aliases returns t's declared aliases.
func (t Type) Aliases() []string { return t.aliases }

// Elem returns the element type of a vector or set type. It panics if t is
// not KindVector or KindSet; callers must check Kind first.
func (t Type) Elem() Type {
	if t.kind != KindVector && t.kind != KindSet {
		panic(fmt.Sprintf("types: Elem called on %s", t.kind))
	}
	return *t.elem
}

// Key returns the key type of a table type.
func (t Type) Key() Type {
	if t.kind != KindTable {
		panic(fmt.Sprintf("types: Key called on %s", t.kind))
	}
	return *t.key
}

// Value returns the value type of a table type.
func (t Type) Value() Type {
	if t.kind != KindTable {
		panic(fmt.Sprintf("types: Value called on %s", t.kind))
	}
	return *t.value
}

// Fields returns the ordered field list of a record type.
func (t Type) Fields() []Field {
	if t.kind != KindRecord {
		panic(fmt.Sprintf("types: Fields called on %s", t.kind))
	}
	return t.fields
}

// IsRecord reports whether t is a record type (§4.1 is_record).
func (t Type) IsRecord() bool { return t.kind == KindRecord }

// Equal is name-sensitive structural equality: it requires the same Kind,
// the same Name, and recursively Equal components. Use Congruent to compare
// shape while ignoring names.
func (t Type) Equal(o Type) bool {
	if t.kind != o.kind || t.name != o.name {
		return false
	}
	return t.sameShape(o, Type.Equal)
}

// Congruent reports whether a and b have the same structural shape,
// ignoring names, per spec.md §3/§4.1. An alias relationship also implies
// congruence (spec.md invariant 1).
func Congruent(a, b Type) bool {
	return a.sameShape(b, Congruent)
}

func (t Type) sameShape(o Type, rec func(Type, Type) bool) bool {
	if t.kind != o.kind {
		return false
	}
	switch t.kind {
	case KindVector, KindSet:
		return rec(*t.elem, *o.elem)
	case KindTable:
		return rec(*t.key, *o.key) && rec(*t.value, *o.value)
	case KindRecord:
		if len(t.fields) != len(o.fields) {
			return false
		}
		for i := range t.fields {
			if t.fields[i].Name != o.fields[i].Name {
				return false
			}
			if !rec(t.fields[i].Type, o.fields[i].Type) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders t as "name:kind" (or just "kind" when unnamed), suitable
// for error messages such as resolve.ErrTypeClash.
func (t Type) String() string {
	if t.name == "" {
		return t.kind.String()
	}
	return t.name + ":" + t.kind.String()
}

// hasAlias reports whether alias names a is an alias of, or is named, t.
func hasAlias(t Type, alias string) bool {
	if t.name == alias {
		return true
	}
	for _, a := range t.aliases {
		if a == alias {
			return true
		}
	}
	return false
}

// AliasCongruent reports whether a and b satisfy spec.md §3 invariant i:
// two distinct names in a schema may bind to non-congruent types only if
// neither declares the other as an alias. Congruent types always satisfy
// this; incongruent types satisfy it only absent an alias declaration
// between them.
func AliasCongruent(a, b Type) bool {
	if Congruent(a, b) {
		return true
	}
	return !hasAlias(a, b.name) && !hasAlias(b, a.name)
}
