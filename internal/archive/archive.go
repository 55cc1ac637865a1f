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

package archive

import (
	"sort"
	"sync"

	"github.com/dolthub/vast/internal/identifier"
	"github.com/sirupsen/logrus"
	uuid "github.com/satori/go.uuid"
)

// Backend persists segment payloads durably, one per UUID, under the
// on-disk layout of §6 (archive/<uuid>.seg). The real implementation is a
// small file-per-segment store; tests use an in-memory Backend.
type Backend interface {
	Write(id uuid.UUID, payload []byte) error
	Read(id uuid.UUID) ([]byte, error)
	Delete(id uuid.UUID) error
}

// Config bounds the Archive's resident working set (§4.6, §6 flags).
type Config struct {
	MaxSegments   int
	MaxSegmentSize int
}

// Archive is the L6 actor: the sole owner of segment storage. Mutating
// state (the manifest, the LRU cache) is only ever touched from within
// methods holding mu, matching §5's "one owner per mutable piece of state".
type Archive struct {
	cfg     Config
	backend Backend
	log     *logrus.Entry

	mu       sync.Mutex
	manifest []Segment // sorted by Range.Lo; ranges are disjoint (§4.6 invariant)
	cache    *lru
	faulted  map[uuid.UUID]bool
}

// New builds an Archive backed by backend.
func New(cfg Config, backend Backend, log *logrus.Entry) *Archive {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Archive{
		cfg:     cfg,
		backend: backend,
		log:     log.WithField("component", "archive"),
		cache:   newLRU(cfg.MaxSegments),
		faulted: make(map[uuid.UUID]bool),
	}
}

// Store persists seg (§4.6 "store(segment)"): writes its payload through
// the backend, retrying once on I/O failure before marking it faulted and
// excluding it (§7 io error kind), then records it in the manifest and
// warms the cache.
func (a *Archive) Store(seg Segment) error {
	if err := a.writeWithRetry(seg); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.manifest = append(a.manifest, seg)
	sort.Slice(a.manifest, func(i, j int) bool {
		return a.manifest[i].Range.Lo < a.manifest[j].Range.Lo
	})
	a.cache.put(seg)
	return nil
}

func (a *Archive) writeWithRetry(seg Segment) error {
	err := a.backend.Write(seg.ID, seg.Payload)
	if err == nil {
		return nil
	}
	a.log.WithError(err).WithField("segment", seg.ID).Warn("retrying segment write")
	if err = a.backend.Write(seg.ID, seg.Payload); err == nil {
		return nil
	}
	a.mu.Lock()
	a.faulted[seg.ID] = true
	a.mu.Unlock()
	a.log.WithError(err).WithField("segment", seg.ID).Error("segment write faulted")
	return err
}

// Lookup serves every non-faulted segment whose range intersects r (§4.6
// "lookup(id_range) -> [segment]"). Segments found in the cache are served
// from memory; others are pinned and read through the backend, then
// admitted to the cache.
func (a *Archive) Lookup(r identifier.Range) ([]Segment, error) {
	a.mu.Lock()
	var candidates []Segment
	for _, seg := range a.manifest {
		if a.faulted[seg.ID] {
			continue
		}
		if seg.Overlaps(r) {
			candidates = append(candidates, seg)
		}
	}
	a.mu.Unlock()

	out := make([]Segment, 0, len(candidates))
	for _, seg := range candidates {
		hydrated, err := a.hydrate(seg)
		if err != nil {
			return nil, err
		}
		out = append(out, hydrated)
	}
	return out, nil
}

func (a *Archive) hydrate(seg Segment) (Segment, error) {
	a.mu.Lock()
	if cached, ok := a.cache.get(seg.ID); ok {
		a.mu.Unlock()
		return cached, nil
	}
	a.cache.pin(seg.ID)
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.cache.unpin(seg.ID)
		a.mu.Unlock()
	}()

	payload, err := a.backend.Read(seg.ID)
	if err != nil {
		return Segment{}, err
	}
	seg.Payload = payload

	a.mu.Lock()
	a.cache.put(seg)
	a.mu.Unlock()

	return seg, nil
}

// Ranges returns every disjoint ID range currently archived, sorted by Lo
// (§8 invariant 8: "the union of ID ranges of archived segments equals the
// set of IDs ever acknowledged by Archive; ranges are disjoint").
func (a *Archive) Ranges() []identifier.Range {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]identifier.Range, 0, len(a.manifest))
	for _, seg := range a.manifest {
		if a.faulted[seg.ID] {
			continue
		}
		out = append(out, seg.Range)
	}
	return out
}
