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

package index

import (
	"sort"
	"sync"

	roaring64 "github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/dolthub/vast/internal/archive"
	"github.com/dolthub/vast/internal/expr"
	"github.com/dolthub/vast/internal/identifier"
	"github.com/dolthub/vast/internal/types"
	"github.com/sirupsen/logrus"
	uuid "github.com/satori/go.uuid"
)

// Config bounds Index's partition lifecycle (§4.7, §6 flags --max-events,
// --max-parts, --active-parts).
type Config struct {
	MaxEvents   int
	MaxParts    int
	ActiveParts int
}

// Store persists sealed (passive) partitions to disk and reloads them on
// demand, so the resident set can stay bounded at MaxParts (§4.7 "excess
// passives are serialized to disk and dropped from memory; re-loaded on
// demand"). The on-disk layout mirrors Archive's own per-UUID file store
// (backend.go), grounded the same way.
type Store interface {
	Save(p *Partition) error
	Load(id uuid.UUID) (*Partition, error)
	Delete(id uuid.UUID) error
}

// Index is the L7 actor: one owner of the partition set, guarded by mu per
// §5's "one owner per mutable piece of state".
type Index struct {
	cfg   Config
	store Store
	log   *logrus.Entry

	mu sync.Mutex

	// active holds up to cfg.ActiveParts partitions currently receiving
	// events, keyed by event type name for round-robin assignment.
	active map[string]*Partition
	// resident holds every partition currently loaded in memory
	// (active and passive), up to cfg.MaxParts.
	resident map[uuid.UUID]*Partition
	// evicted tracks UUIDs of partitions sealed and flushed to the Store;
	// present in the manifest but not resident.
	evicted map[uuid.UUID]bool
	// order records resident partitions from least- to most-recently-used,
	// for eviction when the resident set exceeds MaxParts.
	order []uuid.UUID
}

// New builds an Index. store may be nil if the deployment never expects
// passive-partition eviction (e.g. small single-node test runs).
func New(cfg Config, store Store, log *logrus.Entry) *Index {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.ActiveParts <= 0 {
		cfg.ActiveParts = 1
	}
	if cfg.MaxParts <= 0 {
		cfg.MaxParts = cfg.ActiveParts
	}
	return &Index{
		cfg:      cfg,
		store:    store,
		log:      log.WithField("component", "index"),
		active:   make(map[string]*Partition),
		resident: make(map[uuid.UUID]*Partition),
		evicted:  make(map[uuid.UUID]bool),
	}
}

// partitionFor returns the active partition assigned to eventType, creating
// one (round-robin within cfg.ActiveParts) if none exists or the existing
// one is full (§4.7 "active set ... receiving new events (round-robin by
// event type)").
func (ix *Index) partitionFor(eventType string) (*Partition, error) {
	if p, ok := ix.active[eventType]; ok && !p.Full() {
		return p, nil
	}

	if p, ok := ix.active[eventType]; ok && p.Full() {
		p.Seal()
		delete(ix.active, eventType)
		if ix.store != nil {
			if err := ix.store.Save(p); err != nil {
				ix.log.WithError(err).WithField("partition", p.ID).Warn("failed to persist sealed partition")
			}
		}
	}

	if len(ix.active) >= ix.cfg.ActiveParts {
		// Round-robin: evict the least-recently-assigned active partition
		// for some other event type to make room for this one.
		victimType, oldest := "", len(ix.order)
		for t, ap := range ix.active {
			for i, id := range ix.order {
				if id == ap.ID && i < oldest {
					victimType, oldest = t, i
				}
			}
		}
		victim := ix.active[victimType]
		victim.Seal()
		delete(ix.active, victimType)
		if ix.store != nil {
			if err := ix.store.Save(victim); err != nil {
				ix.log.WithError(err).WithField("partition", victim.ID).Warn("failed to persist sealed partition")
			}
		}
	}

	id, err := archive.NewID()
	if err != nil {
		return nil, err
	}
	p := NewPartition(id, ix.cfg.MaxEvents)
	ix.active[eventType] = p
	ix.admit(p)
	return p, nil
}

// admit records p in the resident set, touching it as most-recently-used,
// and evicts the least-recently-used passive partition if resident exceeds
// cfg.MaxParts (§4.7 "resident set of up to max-parts partitions").
func (ix *Index) admit(p *Partition) {
	ix.resident[p.ID] = p
	delete(ix.evicted, p.ID)
	ix.touch(p.ID)
	ix.evictIfNeeded()
}

func (ix *Index) touch(id uuid.UUID) {
	for i, existing := range ix.order {
		if existing == id {
			ix.order = append(ix.order[:i], ix.order[i+1:]...)
			break
		}
	}
	ix.order = append(ix.order, id)
}

func (ix *Index) evictIfNeeded() {
	for len(ix.resident) > ix.cfg.MaxParts {
		victim, ok := ix.lruPassive()
		if !ok {
			return // nothing evictable (everything resident is active)
		}
		if ix.store != nil {
			if err := ix.store.Save(ix.resident[victim]); err != nil {
				ix.log.WithError(err).WithField("partition", victim).Warn("failed to persist evicted partition")
			}
		}
		delete(ix.resident, victim)
		ix.evicted[victim] = true
		for i, existing := range ix.order {
			if existing == victim {
				ix.order = append(ix.order[:i], ix.order[i+1:]...)
				break
			}
		}
	}
}

func (ix *Index) lruPassive() (uuid.UUID, bool) {
	for _, id := range ix.order {
		if p, ok := ix.resident[id]; ok && p.State == StatePassive {
			return id, true
		}
	}
	return uuid.UUID{}, false
}

// Index folds one event's leaves into the active partition for eventType
// (§4.7, §4.9 "ships segments to ... Index"). id is the event's global ID;
// t is its concrete event type; values pairs each leaf offset with its data.
func (ix *Index) Index(id uint64, eventType string, t types.Type, values map[string]types.Data) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	p, err := ix.partitionFor(eventType)
	if err != nil {
		return err
	}
	t.Each(func(leaf types.Leaf) {
		v, ok := values[leaf.Offset.String()]
		if !ok {
			return
		}
		p.Add(id, t, leaf.Offset, v)
	})
	p.AdvanceCount(1)
	return nil
}

// Evaluate composes candidate IDs across every resident (and, via store,
// passive-but-evicted) partition whose range could hold matches for a
// resolved per-type expression (§4.7 "composes bitmaps per the boolean
// structure, then streams ID ranges to the caller").
func (ix *Index) Evaluate(e expr.Expr) (*roaring64.Bitmap, error) {
	ix.mu.Lock()
	partitions := make([]*Partition, 0, len(ix.resident))
	for _, p := range ix.resident {
		partitions = append(partitions, p)
	}
	evictedIDs := make([]uuid.UUID, 0, len(ix.evicted))
	for id := range ix.evicted {
		evictedIDs = append(evictedIDs, id)
	}
	ix.mu.Unlock()

	acc := roaring64.New()
	for _, p := range partitions {
		bm, err := p.Evaluate(e)
		if err != nil {
			return nil, err
		}
		acc.Or(bm)
	}

	if ix.store != nil {
		for _, id := range evictedIDs {
			p, err := ix.store.Load(id)
			if err != nil {
				return nil, err
			}
			bm, err := p.Evaluate(e)
			if err != nil {
				return nil, err
			}
			acc.Or(bm)
		}
	}

	return acc, nil
}

// Ranges reports every partition's ID range currently known to the index,
// sorted by Lo, mirroring Archive.Ranges (§8 invariant 8's Index analogue).
func (ix *Index) Ranges() []identifier.Range {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	out := make([]identifier.Range, 0, len(ix.resident))
	for _, p := range ix.resident {
		out = append(out, p.Range)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Lo < out[j].Lo })
	return out
}

// Rebuild drops every partition and re-consumes segments from backend in ID
// order (§4.7 "Rebuild: if instructed, drop all partitions and re-consume
// segments from Archive in ID order"). decode extracts (eventType, concrete
// type, leaf values) from a segment's payload; it is supplied by the
// ingest layer, which owns the wire encoding of a segment's events.
func (ix *Index) Rebuild(segments []archive.Segment, decode func(archive.Segment) (eventType string, t types.Type, perEventValues []map[string]types.Data, ids []uint64, err error)) error {
	ix.mu.Lock()
	ix.active = make(map[string]*Partition)
	ix.resident = make(map[uuid.UUID]*Partition)
	ix.evicted = make(map[uuid.UUID]bool)
	ix.order = nil
	ix.mu.Unlock()

	sorted := make([]archive.Segment, len(segments))
	copy(sorted, segments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Range.Lo < sorted[j].Range.Lo })

	for _, seg := range sorted {
		eventType, t, perEvent, ids, err := decode(seg)
		if err != nil {
			return err
		}
		for i, values := range perEvent {
			if err := ix.Index(ids[i], eventType, t, values); err != nil {
				return err
			}
		}
	}
	return nil
}
