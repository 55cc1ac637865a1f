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

// Package schema holds an immutable, named set of types and resolves dotted
// keys against it via suffix search (§4.2).
package schema

import (
	"sort"

	"github.com/dolthub/vast/internal/types"
)

// Schema is an immutable snapshot of named types. Mutation produces a new
// Schema that the owning actor swaps in atomically (§5 "Shared resources");
// Schema itself has no setters once built.
type Schema struct {
	byName map[string]types.Type
	names  []string // insertion order, kept for deterministic iteration
}

// New builds a Schema snapshot from named types. Later entries with a
// duplicate name overwrite earlier ones, matching the "named set" contract
// of §3 (a Schema binds each name once). Returns ErrAliasIncongruent if any
// two distinct bound names declare an alias relationship without being
// congruent (§3 invariant i).
func New(named ...types.Type) (*Schema, error) {
	s := &Schema{byName: make(map[string]types.Type, len(named))}
	for _, t := range named {
		s.bind(t.Name(), t)
	}
	if err := s.checkAliasInvariant(); err != nil {
		return nil, err
	}
	return s, nil
}

// checkAliasInvariant validates §3 invariant i across every pair of bound
// types: two distinct names never bind to non-congruent types that also
// declare each other as an alias.
func (s *Schema) checkAliasInvariant() error {
	for i, a := range s.names {
		for _, b := range s.names[i+1:] {
			ta, tb := s.byName[a], s.byName[b]
			if !types.AliasCongruent(ta, tb) {
				return ErrAliasIncongruent.New(ta.String(), tb.String())
			}
		}
	}
	return nil
}

func (s *Schema) bind(name string, t types.Type) {
	if _, exists := s.byName[name]; !exists {
		s.names = append(s.names, name)
	}
	s.byName[name] = t
}

// Lookup returns the type bound to name, if any.
func (s *Schema) Lookup(name string) (types.Type, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// Types returns every named type in the schema, sorted by name — required so FindSuffix results are
// deterministic across runs (§4.2, §8 invariant on preorder determinism).
func (s *Schema) Types() []types.Type {
	names := make([]string, len(s.names))
	copy(names, s.names)
	sort.Strings(names)
	out := make([]types.Type, 0, len(names))
	for _, n := range names {
		out = append(out, s.byName[n])
	}
	return out
}

// Match pairs a candidate event type with the suffix matches found in it.
type Match struct {
	Type    types.Type
	Suffixes []types.Suffix
}

// FindSuffix searches every type bound in the schema for key, per §4.2:
//
//   - if key has exactly one component and the schema binds a type by that
//     exact name, that type matches as a whole (empty offset), regardless
//     of whether it is a record;
//   - for every record type t in the schema, t.FindSuffix(key) contributes
//     its own matches.
//
// Non-record types never contribute structural matches (they have no
// fields to search), only the whole-type-name match above.
func (s *Schema) FindSuffix(key []string) []Match {
	var out []Match
	for _, t := range s.Types() {
		var matches []types.Suffix
		if len(key) == 1 && t.Name() == key[0] {
			matches = append(matches, types.Suffix{Offset: nil, Path: key})
		}
		if t.IsRecord() {
			matches = append(matches, t.FindSuffix(key)...)
		}
		if len(matches) > 0 {
			out = append(out, Match{Type: t, Suffixes: matches})
		}
	}
	return out
}
