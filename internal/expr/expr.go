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

// Package expr implements VAST's expression AST (§3, §4.3): a tagged tree
// of boolean combinators over predicates, whose leaves may still be
// unresolved schema/type extractors or already-concrete data extractors.
//
// The tree is a sum type, not a subclass hierarchy (§9 Design Notes): Expr
// is one struct carrying a Kind tag, and every visitor is an exhaustive
// switch over that tag.
package expr

import "github.com/dolthub/vast/internal/types"

// Kind tags the variant an Expr node holds.
type Kind uint8

const (
	// KindNone is the absorbing "not applicable" node (§4.4.1, §4.4.2).
	KindNone Kind = iota
	KindConjunction
	KindDisjunction
	KindNegation
	KindPredicate
)

// Op is a relational operator (§4.3).
type Op uint8

const (
	OpEqual Op = iota
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpMatch    // ~
	OpNotMatch // !~
	OpIn       // ∈
	OpNotIn    // ∉
)

func (o Op) String() string {
	switch o {
	case OpEqual:
		return "=="
	case OpNotEqual:
		return "!="
	case OpLess:
		return "<"
	case OpLessEqual:
		return "<="
	case OpGreater:
		return ">"
	case OpGreaterEqual:
		return ">="
	case OpMatch:
		return "~"
	case OpNotMatch:
		return "!~"
	case OpIn:
		return "in"
	case OpNotIn:
		return "not in"
	default:
		return "?"
	}
}

// ExtractorKind tags which kind of leaf sits on a Predicate's LHS.
type ExtractorKind uint8

const (
	// ExtractorSchema is an unresolved symbolic reference: a dotted key.
	ExtractorSchema ExtractorKind = iota
	// ExtractorType means "any field of this type within the event".
	ExtractorType
	// ExtractorData is a resolved concrete (type, offset) reference.
	ExtractorData
)

// Extractor is a Predicate's LHS leaf (§3).
type Extractor struct {
	Kind ExtractorKind

	// Key is populated for ExtractorSchema: the dotted key components.
	Key []string

	// Type is populated for ExtractorType and ExtractorData.
	Type types.Type

	// Offset is populated for ExtractorData.
	Offset types.Offset
}

// SchemaExtractor builds an unresolved symbolic key reference.
func SchemaExtractor(key ...string) Extractor {
	return Extractor{Kind: ExtractorSchema, Key: key}
}

// TypeExtractor builds a "any leaf of this type" reference.
func TypeExtractor(t types.Type) Extractor {
	return Extractor{Kind: ExtractorType, Type: t}
}

// DataExtractor builds a resolved concrete (type, offset) reference.
func DataExtractor(t types.Type, offset types.Offset) Extractor {
	return Extractor{Kind: ExtractorData, Type: t, Offset: offset}
}

// Predicate is lhs `op` rhs, where rhs is always a literal Data (§3).
type Predicate struct {
	LHS Extractor
	Op  Op
	RHS types.Data
}

// Expr is one node of the expression tree. Only the fields relevant to Kind
// are meaningful; smart constructors below are the only supported way to
// build a well-formed Expr (§4.3: "constructed by smart constructors that
// do not simplify").
type Expr struct {
	Kind      Kind
	Operands  []Expr // Conjunction, Disjunction
	Sub       *Expr  // Negation
	Predicate Predicate
}

// None is the absorbing "not applicable to this event" node.
var None = Expr{Kind: KindNone}

// IsNone reports whether e is the None node.
func (e Expr) IsNone() bool { return e.Kind == KindNone }

// And builds a conjunction node verbatim — no flattening, no simplification
// (§4.3). Flattening is the resolver's job (§4.4.1), not the constructor's.
func And(operands ...Expr) Expr {
	return Expr{Kind: KindConjunction, Operands: operands}
}

// Or builds a disjunction node verbatim.
func Or(operands ...Expr) Expr {
	return Expr{Kind: KindDisjunction, Operands: operands}
}

// Not builds a negation node verbatim.
func Not(inner Expr) Expr {
	return Expr{Kind: KindNegation, Sub: &inner}
}

// Pred builds a predicate node.
func Pred(lhs Extractor, op Op, rhs types.Data) Expr {
	return Expr{Kind: KindPredicate, Predicate: Predicate{LHS: lhs, Op: op, RHS: rhs}}
}

// Flatten applies the uniform boolean-node reduction rules shared by every
// visitor in internal/resolve (§4.4.1):
//
//   - empty   -> None,
//   - size 1  -> the lone operand,
//   - size >= 2 -> a compound node of the given kind, unchanged.
//
// kind must be KindConjunction or KindDisjunction.
func Flatten(kind Kind, operands []Expr) Expr {
	switch len(operands) {
	case 0:
		return None
	case 1:
		return operands[0]
	default:
		return Expr{Kind: kind, Operands: operands}
	}
}
