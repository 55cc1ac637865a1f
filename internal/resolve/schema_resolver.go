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

// Package resolve implements VAST's two-phase expression resolution
// (§4.4): SchemaResolver rewrites symbolic schema_extractor leaves into
// concrete data_extractor disjunctions against a Schema; TypeResolver then
// specializes a once-resolved expression for one concrete event Type,
// pruning branches that type cannot satisfy.
//
// Ported from the original visitor-per-variant implementation in
// original_source/src/vast/expr/resolver.cc: that file dispatches with a
// double-visitor (`visit(*this, op)` returning a `trial<expression>`); here
// each phase is a Go type-switch over expr.Kind returning (expr.Expr, error),
// with the same flatten/none rules (expr.Flatten).
package resolve

import (
	"fmt"

	"github.com/dolthub/vast/internal/expr"
	"github.com/dolthub/vast/internal/schema"
	"github.com/dolthub/vast/internal/types"
)

// SchemaResolver rewrites schema_extractor leaves against a fixed Schema
// snapshot (§4.4.1). It holds no other state, so a SchemaResolver is safe
// to reuse across expressions and across goroutines once built.
type SchemaResolver struct {
	schema *schema.Schema
}

// NewSchemaResolver builds a resolver bound to sch.
func NewSchemaResolver(sch *schema.Schema) *SchemaResolver {
	return &SchemaResolver{schema: sch}
}

// Resolve rewrites e, returning ErrInvalidKey or ErrTypeClash if resolution
// fails anywhere in the tree (§4.4.1).
func (r *SchemaResolver) Resolve(e expr.Expr) (expr.Expr, error) {
	switch e.Kind {
	case expr.KindNone:
		return expr.None, nil

	case expr.KindConjunction:
		operands := make([]expr.Expr, 0, len(e.Operands))
		for _, op := range e.Operands {
			resolved, err := r.Resolve(op)
			if err != nil {
				return expr.Expr{}, err
			}
			if resolved.IsNone() {
				// An operand that does not apply makes the whole
				// conjunction inapplicable (§4.4.1, §9 Open Questions:
				// preserved as-is even for an otherwise-empty conjunct).
				return expr.None, nil
			}
			operands = append(operands, resolved)
		}
		return expr.Flatten(expr.KindConjunction, operands), nil

	case expr.KindDisjunction:
		operands := make([]expr.Expr, 0, len(e.Operands))
		for _, op := range e.Operands {
			resolved, err := r.Resolve(op)
			if err != nil {
				return expr.Expr{}, err
			}
			if resolved.IsNone() {
				continue // a none disjunct is not constraining
			}
			operands = append(operands, resolved)
		}
		return expr.Flatten(expr.KindDisjunction, operands), nil

	case expr.KindNegation:
		inner, err := r.Resolve(*e.Sub)
		if err != nil {
			return expr.Expr{}, err
		}
		if inner.IsNone() {
			return expr.None, nil
		}
		return expr.Not(inner), nil

	case expr.KindPredicate:
		return r.resolvePredicate(e.Predicate)

	default:
		return expr.Expr{}, fmt.Errorf("resolve: unknown expr kind %d", e.Kind)
	}
}

func (r *SchemaResolver) resolvePredicate(p expr.Predicate) (expr.Expr, error) {
	if p.LHS.Kind != expr.ExtractorSchema {
		// Already-resolved predicates pass through unchanged (§4.4.2 notes
		// the same pass-through for type_extractor/data_extractor leaves;
		// schema_resolver only ever rewrites schema_extractor leaves).
		return expr.Pred(p.LHS, p.Op, p.RHS), nil
	}

	// §4.4.1 operates one type at a time, straight from the schema's type
	// set — it does NOT reuse schema.FindSuffix's own "whole type matches
	// its name" shortcut (that shortcut is §4.2's, for schema-level
	// lookups); the resolver has its own, narrower shortcut that applies
	// only to non-record types.
	var disjuncts []expr.Expr

	for _, t := range r.schema.Types() {
		if !t.IsRecord() {
			if len(p.LHS.Key) == 1 && t.Name() == p.LHS.Key[0] {
				disjuncts = append(disjuncts, expr.Pred(
					expr.DataExtractor(t, nil), p.Op, p.RHS))
			}
			continue
		}

		trace := t.FindSuffix(p.LHS.Key)
		if len(trace) == 0 {
			continue
		}

		first, _ := t.At(trace[0].Offset)
		for _, suf := range trace {
			at, _ := t.At(suf.Offset)
			if !types.Congruent(first, at) {
				return expr.Expr{}, ErrTypeClash.New(first, at)
			}
		}

		for _, suf := range trace {
			disjuncts = append(disjuncts, expr.Pred(
				expr.DataExtractor(t, suf.Offset), p.Op, p.RHS))
		}
	}

	if len(disjuncts) == 0 {
		return expr.Expr{}, ErrInvalidKey.New(p.LHS.Key)
	}
	return expr.Flatten(expr.KindDisjunction, disjuncts), nil
}
