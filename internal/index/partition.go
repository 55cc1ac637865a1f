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

// Package index implements VAST's bitmap index (§4.7, L7): partitions
// keyed by UUID, each owning a disjoint ID subrange and a set of
// per-attribute bitmap indexes, composed per the boolean structure of a
// resolved expression.
//
// Bitmaps are github.com/RoaringBitmap/roaring/v2's roaring64 subpackage
// (pulled into the example pack via AKJUS-bsc-erigon's go.mod); see
// DESIGN.md for why this replaces the teacher's own
// github.com/pilosa/pilosa dependency, a clustered bitmap-index server
// unsuited to a private, in-process, per-partition index. roaring64, not
// the 32-bit-keyed roaring package, because event IDs are uint64 (§3) and
// a long-running store routinely outlives 2^32 ingested events.
package index

import (
	"fmt"
	"regexp"

	roaring64 "github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/dolthub/vast/internal/expr"
	"github.com/dolthub/vast/internal/identifier"
	"github.com/dolthub/vast/internal/types"
	uuid "github.com/satori/go.uuid"
)

// State is a Partition's lifecycle stage (§3).
type State uint8

const (
	StateActive State = iota
	StatePassive
	StateDead
)

type attrKey struct {
	typeName string
	offset   string
}

func keyFor(t types.Type, o types.Offset) attrKey {
	return attrKey{typeName: t.String(), offset: o.String()}
}

type valueBitmap struct {
	value  types.Data
	bitmap *roaring64.Bitmap
}

// Partition is a unit of index lifecycle owning a contiguous ID subrange
// (§3, §4.7).
type Partition struct {
	ID    uuid.UUID
	Range identifier.Range
	State State

	all   *roaring64.Bitmap // every ID ever added, regardless of attribute
	attrs map[attrKey][]valueBitmap

	maxEvents int
	count     int
}

// NewPartition creates an active partition bound to no ID range yet; its
// range grows as events are added (§3 "owning a contiguous ID subrange").
func NewPartition(id uuid.UUID, maxEvents int) *Partition {
	return &Partition{
		ID:        id,
		State:     StateActive,
		all:       roaring64.New(),
		attrs:     make(map[attrKey][]valueBitmap),
		maxEvents: maxEvents,
	}
}

// Full reports whether the partition has reached its event-count ceiling
// and should be sealed (§3 "sealed when event count reaches max-events").
func (p *Partition) Full() bool {
	return p.maxEvents > 0 && p.count >= p.maxEvents
}

// Seal transitions an active partition to passive: query-only, eligible
// for eviction to disk (§3).
func (p *Partition) Seal() {
	p.State = StatePassive
}

// Add indexes one (type, offset, value) attribute occurrence for id, and
// grows the partition's resident ID range to cover it.
func (p *Partition) Add(id uint64, t types.Type, offset types.Offset, value types.Data) {
	p.all.Add(id)

	lo, hi := id, id+1
	if p.Range.Lo == p.Range.Hi {
		p.Range = identifier.Range{Lo: lo, Hi: hi}
	} else {
		if lo < p.Range.Lo {
			p.Range.Lo = lo
		}
		if hi > p.Range.Hi {
			p.Range.Hi = hi
		}
	}

	key := keyFor(t, offset)
	entries := p.attrs[key]
	for i := range entries {
		if entries[i].value.Equal(value) {
			entries[i].bitmap.Add(id)
			return
		}
	}
	bm := roaring64.New()
	bm.Add(id)
	p.attrs[key] = append(entries, valueBitmap{value: value, bitmap: bm})
}

// AdvanceCount records that n more events were folded into this partition,
// for Full's max-events check.
func (p *Partition) AdvanceCount(n int) {
	p.count += n
}

// Evaluate composes a bitmap of candidate IDs for a resolved expression
// whose every leaf is a data_extractor (§4.7 "each partition evaluates
// predicates against its bitmap indexes and returns a bitmap of candidate
// IDs"). e must have already passed through resolve.TypeResolver for the
// concrete event type this partition's values were recorded under.
func (p *Partition) Evaluate(e expr.Expr) (*roaring64.Bitmap, error) {
	switch e.Kind {
	case expr.KindNone:
		return roaring64.New(), nil

	case expr.KindConjunction:
		acc := p.all.Clone()
		for _, op := range e.Operands {
			bm, err := p.Evaluate(op)
			if err != nil {
				return nil, err
			}
			acc.And(bm)
		}
		return acc, nil

	case expr.KindDisjunction:
		acc := roaring64.New()
		for _, op := range e.Operands {
			bm, err := p.Evaluate(op)
			if err != nil {
				return nil, err
			}
			acc.Or(bm)
		}
		return acc, nil

	case expr.KindNegation:
		inner, err := p.Evaluate(*e.Sub)
		if err != nil {
			return nil, err
		}
		acc := p.all.Clone()
		acc.AndNot(inner)
		return acc, nil

	case expr.KindPredicate:
		return p.evaluatePredicate(e.Predicate)

	default:
		return nil, fmt.Errorf("index: unknown expr kind %d", e.Kind)
	}
}

func (p *Partition) evaluatePredicate(pred expr.Predicate) (*roaring64.Bitmap, error) {
	if pred.LHS.Kind != expr.ExtractorData {
		return nil, fmt.Errorf("index: predicate lhs must be a data_extractor, got kind %d", pred.LHS.Kind)
	}
	entries := p.attrs[keyFor(pred.LHS.Type, pred.LHS.Offset)]

	out := roaring64.New()
	switch pred.Op {
	case expr.OpMatch, expr.OpNotMatch:
		re, err := regexp.Compile(patternOf(pred.RHS))
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			matched := e.value.Kind == types.KindString && re.MatchString(e.value.Str)
			if matched == (pred.Op == expr.OpMatch) {
				out.Or(e.bitmap)
			}
		}
		if pred.Op == expr.OpNotMatch {
			complement := p.all.Clone()
			complement.AndNot(matchingBitmap(entries, func(v types.Data) bool {
				return v.Kind == types.KindString && re.MatchString(v.Str)
			}))
			return complement, nil
		}
		return out, nil

	case expr.OpIn, expr.OpNotIn:
		members := membersOf(pred.RHS)
		matches := matchingBitmap(entries, func(v types.Data) bool {
			for _, m := range members {
				if v.Equal(m) {
					return true
				}
			}
			return false
		})
		if pred.Op == expr.OpNotIn {
			complement := p.all.Clone()
			complement.AndNot(matches)
			return complement, nil
		}
		return matches, nil

	default:
		matches := matchingBitmap(entries, func(v types.Data) bool {
			return compare(pred.Op, v, pred.RHS)
		})
		return matches, nil
	}
}

func matchingBitmap(entries []valueBitmap, keep func(types.Data) bool) *roaring64.Bitmap {
	out := roaring64.New()
	for _, e := range entries {
		if keep(e.value) {
			out.Or(e.bitmap)
		}
	}
	return out
}

func compare(op expr.Op, v, rhs types.Data) bool {
	switch op {
	case expr.OpEqual:
		return v.Equal(rhs)
	case expr.OpNotEqual:
		return !v.Equal(rhs)
	case expr.OpLess:
		return v.Less(rhs)
	case expr.OpLessEqual:
		return v.Less(rhs) || v.Equal(rhs)
	case expr.OpGreater:
		return rhs.Less(v)
	case expr.OpGreaterEqual:
		return rhs.Less(v) || v.Equal(rhs)
	default:
		return false
	}
}

func patternOf(d types.Data) string {
	if d.Kind == types.KindPattern {
		return d.Pattern
	}
	return d.Str
}

func membersOf(d types.Data) []types.Data {
	switch d.Kind {
	case types.KindVector:
		return d.Vector
	case types.KindSet:
		return d.Set
	default:
		return []types.Data{d}
	}
}
