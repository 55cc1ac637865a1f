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

package expr

// Walk calls fn on every node of e, preorder, including e itself. A
// visitor-facing contract: fn must be a pure function of the node plus its
// own configured state (§4.3).
func Walk(e Expr, fn func(Expr)) {
	fn(e)
	switch e.Kind {
	case KindConjunction, KindDisjunction:
		for _, op := range e.Operands {
			Walk(op, fn)
		}
	case KindNegation:
		if e.Sub != nil {
			Walk(*e.Sub, fn)
		}
	}
}

// Equal reports whether a and b are the same tree, structurally.
func Equal(a, b Expr) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNone:
		return true
	case KindConjunction, KindDisjunction:
		if len(a.Operands) != len(b.Operands) {
			return false
		}
		for i := range a.Operands {
			if !Equal(a.Operands[i], b.Operands[i]) {
				return false
			}
		}
		return true
	case KindNegation:
		if (a.Sub == nil) != (b.Sub == nil) {
			return false
		}
		if a.Sub == nil {
			return true
		}
		return Equal(*a.Sub, *b.Sub)
	case KindPredicate:
		return predicateEqual(a.Predicate, b.Predicate)
	default:
		return false
	}
}

func predicateEqual(a, b Predicate) bool {
	if a.Op != b.Op || !a.RHS.Equal(b.RHS) {
		return false
	}
	if a.LHS.Kind != b.LHS.Kind {
		return false
	}
	switch a.LHS.Kind {
	case ExtractorSchema:
		if len(a.LHS.Key) != len(b.LHS.Key) {
			return false
		}
		for i := range a.LHS.Key {
			if a.LHS.Key[i] != b.LHS.Key[i] {
				return false
			}
		}
		return true
	case ExtractorType:
		return a.LHS.Type.Equal(b.LHS.Type)
	case ExtractorData:
		return a.LHS.Type.Equal(b.LHS.Type) && a.LHS.Offset.Equal(b.LHS.Offset)
	default:
		return false
	}
}
