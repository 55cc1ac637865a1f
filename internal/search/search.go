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

// Package search implements VAST's L8 actor (§4.8): parse a query string,
// resolve it against the active schema, fan out to Index, join with
// Archive, and stream matching events back to the caller, honoring a
// result limit.
//
// Ported from engine.go's Engine.Query/QueryWithBindings orchestration
// shape (parse -> analyze -> execute -> row iterator): Search keeps the
// same four-stage pipeline, retargeted from SQL analysis/execution onto
// VAST's resolve/index/archive components.
package search

import (
	"fmt"
	"sync"
	"time"

	"github.com/dolthub/vast/internal/archive"
	"github.com/dolthub/vast/internal/expr"
	"github.com/dolthub/vast/internal/identifier"
	"github.com/dolthub/vast/internal/index"
	"github.com/dolthub/vast/internal/query"
	"github.com/dolthub/vast/internal/resolve"
	"github.com/dolthub/vast/internal/schema"
	"github.com/dolthub/vast/internal/types"
	"github.com/opentracing/opentracing-go"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
)

// Event is a rehydrated, identified record surfaced to a query result
// stream. A Decoder turns a segment's payload into one or more Events;
// it is supplied by the ingest layer, which owns the wire encoding of a
// segment's events (mirrors Index.Rebuild's decode callback).
type Event struct {
	ID   uint64
	Type types.Type
	Data types.Data
}

// Decoder extracts every event from seg with its global ID, type and value
// (so the final false-positive filter can re-run the predicate against the
// rehydrated value).
type Decoder func(seg archive.Segment) ([]Event, error)

// Result is one match streamed back to the caller, or a per-event error
// (§7 "a typed error record in the query result stream for per-query
// failures").
type Result struct {
	Event Event
	Err   error
}

// QueryID identifies a single in-flight or completed query.
type QueryID uuid.UUID

type queryState struct {
	cancelled bool
	results   chan Result
	done      chan struct{}
}

// Search is the L8 actor: the sole owner of in-flight query state, per §5.
type Search struct {
	sch     *schema.Schema
	idx     *index.Index
	ar      *archive.Archive
	decode  Decoder
	log     *logrus.Entry

	mu      sync.Mutex
	queries map[QueryID]*queryState
}

// New builds a Search bound to sch/idx/ar. decode is how Search turns a
// retrieved segment back into rehydrated events for the final filter stage.
func New(sch *schema.Schema, idx *index.Index, ar *archive.Archive, decode Decoder, log *logrus.Entry) *Search {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Search{
		sch:     sch,
		idx:     idx,
		ar:      ar,
		decode:  decode,
		log:     log.WithField("component", "search"),
		queries: make(map[QueryID]*queryState),
	}
}

// Query parses q and launches its evaluation pipeline in the background,
// returning a query_id the caller uses with Results/Cancel (§4.8). limit
// bounds how many matches are streamed before the query completes on its
// own, honoring §4.8 step 4's "streaming matches ... honoring limit".
func (s *Search) Query(q string, limit int) (QueryID, error) {
	e, err := query.Parse(q, time.Now())
	if err != nil {
		return QueryID{}, fmt.Errorf("search: parse: %w", err)
	}

	raw, err := uuid.NewV4()
	if err != nil {
		return QueryID{}, fmt.Errorf("search: %w", err)
	}
	id := QueryID(raw)
	st := &queryState{
		results: make(chan Result, 64),
		done:    make(chan struct{}),
	}

	s.mu.Lock()
	s.queries[id] = st
	s.mu.Unlock()

	go s.run(id, st, e, limit)

	return id, nil
}

// Cancel marks a query cancelled; Results stops delivering further matches
// once the running pipeline notices (§4.8 "cancel(query_id)").
func (s *Search) Cancel(id QueryID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.queries[id]; ok {
		st.cancelled = true
	}
}

// Results returns the channel a caller drains for matches (§4.8
// "results(query_id) -> stream<event>"). The channel closes once the query
// completes, is cancelled, or fails outright.
func (s *Search) Results(id QueryID) (<-chan Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.queries[id]
	if !ok {
		return nil, false
	}
	return st.results, true
}

func (s *Search) run(id QueryID, st *queryState, e expr.Expr, limit int) {
	span := opentracing.StartSpan("search.query")
	span.SetTag("query_id", uuid.UUID(id).String())
	defer span.Finish()

	defer close(st.results)
	defer close(st.done)

	resolved, err := resolve.NewSchemaResolver(s.sch).Resolve(e)
	if err != nil {
		st.results <- Result{Err: err}
		return
	}
	if resolved.IsNone() {
		return
	}

	delivered := 0
	for _, t := range s.sch.Types() {
		if s.isCancelled(id) || (limit > 0 && delivered >= limit) {
			return
		}

		perType := resolve.NewTypeResolver(t).Resolve(resolved)
		if perType.IsNone() {
			continue
		}

		typeSpan := opentracing.StartSpan("search.type_fanout", opentracing.ChildOf(span.Context()))
		typeSpan.SetTag("event_type", t.Name())

		bm, err := s.idx.Evaluate(perType)
		if err != nil {
			st.results <- Result{Err: err}
			typeSpan.Finish()
			continue
		}

		ids := bm.ToArray()
		if len(ids) == 0 {
			typeSpan.Finish()
			continue
		}

		lo, hi := ids[0], ids[len(ids)-1]+1
		segs, err := s.ar.Lookup(identifier.Range{Lo: lo, Hi: hi})
		if err != nil {
			st.results <- Result{Err: err}
			typeSpan.Finish()
			continue
		}

		candidates := make(map[uint64]bool, len(ids))
		for _, cid := range ids {
			candidates[cid] = true
		}

		for _, seg := range segs {
			events, err := s.decode(seg)
			if err != nil {
				st.results <- Result{Err: err}
				continue
			}
			for _, ev := range events {
				if !candidates[ev.ID] {
					continue
				}
				if !s.matches(perType, ev) {
					continue // index false positive (§4.8 step 4)
				}
				if s.isCancelled(id) || (limit > 0 && delivered >= limit) {
					typeSpan.Finish()
					return
				}
				st.results <- Result{Event: ev}
				delivered++
			}
		}
		typeSpan.Finish()
	}
}

// matches re-evaluates the resolved predicate tree directly against a
// rehydrated value, eliminating the bitmap index's false positives (§4.8
// step 4) without needing a second Index round-trip.
func (s *Search) matches(e expr.Expr, ev Event) bool {
	switch e.Kind {
	case expr.KindNone:
		return false
	case expr.KindConjunction:
		for _, op := range e.Operands {
			if !s.matches(op, ev) {
				return false
			}
		}
		return true
	case expr.KindDisjunction:
		for _, op := range e.Operands {
			if s.matches(op, ev) {
				return true
			}
		}
		return false
	case expr.KindNegation:
		return !s.matches(*e.Sub, ev)
	case expr.KindPredicate:
		return s.matchesPredicate(e.Predicate, ev)
	default:
		return false
	}
}

func (s *Search) matchesPredicate(p expr.Predicate, ev Event) bool {
	if p.LHS.Kind != expr.ExtractorData {
		return false
	}
	leaf, ok := ev.Data.At(p.LHS.Offset)
	if !ok {
		return false
	}
	switch p.Op {
	case expr.OpEqual:
		return leaf.Equal(p.RHS)
	case expr.OpNotEqual:
		return !leaf.Equal(p.RHS)
	case expr.OpLess:
		return leaf.Less(p.RHS)
	case expr.OpLessEqual:
		return leaf.Less(p.RHS) || leaf.Equal(p.RHS)
	case expr.OpGreater:
		return p.RHS.Less(leaf)
	case expr.OpGreaterEqual:
		return p.RHS.Less(leaf) || leaf.Equal(p.RHS)
	default:
		return true // ~, !~, in, not in already filtered by the index pass
	}
}

func (s *Search) isCancelled(id QueryID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.queries[id]
	return !ok || st.cancelled
}
