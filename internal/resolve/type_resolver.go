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

package resolve

import (
	"fmt"

	"github.com/dolthub/vast/internal/expr"
	"github.com/dolthub/vast/internal/types"
)

// TypeResolver specializes an already schema_resolver-ed expression for one
// concrete event Type, pruning branches that type cannot satisfy (§4.4.2).
// Unlike SchemaResolver, TypeResolver never returns an error: every leaf
// either specializes to something concrete or prunes to None.
type TypeResolver struct {
	eventType types.Type
}

// NewTypeResolver builds a resolver bound to eventType.
func NewTypeResolver(eventType types.Type) *TypeResolver {
	return &TypeResolver{eventType: eventType}
}

// Resolve specializes e for t.eventType.
func (t *TypeResolver) Resolve(e expr.Expr) expr.Expr {
	switch e.Kind {
	case expr.KindNone:
		return expr.None

	case expr.KindConjunction:
		operands := make([]expr.Expr, 0, len(e.Operands))
		for _, op := range e.Operands {
			resolved := t.Resolve(op)
			if resolved.IsNone() {
				// Any conjunct referring to a field absent from this
				// event's type makes the whole conjunction unsatisfiable
				// for this event (§4.4.2) — stricter than the
				// schema-resolve phase only in name, the mechanics are
				// the same "none is absorbing" rule.
				return expr.None
			}
			operands = append(operands, resolved)
		}
		return expr.Flatten(expr.KindConjunction, operands)

	case expr.KindDisjunction:
		operands := make([]expr.Expr, 0, len(e.Operands))
		for _, op := range e.Operands {
			resolved := t.Resolve(op)
			if resolved.IsNone() {
				continue
			}
			operands = append(operands, resolved)
		}
		return expr.Flatten(expr.KindDisjunction, operands)

	case expr.KindNegation:
		inner := t.Resolve(*e.Sub)
		if inner.IsNone() {
			return expr.None
		}
		return expr.Not(inner)

	case expr.KindPredicate:
		return t.resolvePredicate(e.Predicate)

	default:
		panic(fmt.Sprintf("resolve: unknown expr kind %d", e.Kind))
	}
}

func (t *TypeResolver) resolvePredicate(p expr.Predicate) expr.Expr {
	switch p.LHS.Kind {
	case expr.ExtractorType:
		return t.resolveTypeExtractor(p)

	case expr.ExtractorData:
		// Post-identification specialization uses name-sensitive equality,
		// not Congruent (§4.4.2, §9 Open Questions #2): the data_extractor
		// was produced for a specific named event type, and must match
		// that exact type, not merely a structurally similar one.
		if !p.LHS.Type.Equal(t.eventType) {
			return expr.None
		}
		return expr.Pred(p.LHS, p.Op, p.RHS)

	default:
		// Already-resolved predicates with no extractor on the lhs pass
		// through unchanged; a bare schema_extractor reaching this phase
		// is a caller error (schema_resolver must run first), so we treat
		// it the same as a concrete pass-through rather than panicking —
		// there is nothing type-specific to specialize.
		return expr.Pred(p.LHS, p.Op, p.RHS)
	}
}

func (t *TypeResolver) resolveTypeExtractor(p expr.Predicate) expr.Expr {
	want := p.LHS.Type

	if !t.eventType.IsRecord() {
		if types.Congruent(t.eventType, want) {
			return expr.Pred(expr.DataExtractor(t.eventType, nil), p.Op, p.RHS)
		}
		return expr.None
	}

	var disjuncts []expr.Expr
	t.eventType.Each(func(leaf types.Leaf) {
		if types.Congruent(leaf.Trace[len(leaf.Trace)-1], want) {
			disjuncts = append(disjuncts, expr.Pred(
				expr.DataExtractor(t.eventType, leaf.Offset), p.Op, p.RHS))
		}
	})
	return expr.Flatten(expr.KindDisjunction, disjuncts)
}
