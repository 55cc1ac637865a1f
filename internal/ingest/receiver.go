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

package ingest

import (
	"io"

	"github.com/dolthub/vast/internal/archive"
	"github.com/dolthub/vast/internal/identifier"
	"github.com/dolthub/vast/internal/index"
	"github.com/dolthub/vast/internal/types"
)

// IngestEvent is one ID-stamped event as it travels through a Receiver
// batch, on its way into both Archive and Index.
type IngestEvent struct {
	ID        uint64
	EventType string
	Type      types.Type
	Data      types.Data
}

// Encoder packages one batch of ID-stamped events into a single segment
// payload. It is the inverse of search.Decoder / index.Rebuild's decode
// callback; the wire encoding of a segment's events is explicitly out of
// L9's scope (§1), so the caller supplies it.
type Encoder func(batch []IngestEvent) ([]byte, error)

// Receiver is the L9 ingress actor (§4.9 "batches incoming events into
// segments of up to batch-size events; requests IDs from Identifier; ships
// segments to Archive and Index").
type Receiver struct {
	id        *identifier.Identifier
	ar        *archive.Archive
	ix        *index.Index
	batchSize int
	encode    Encoder
}

// NewReceiver builds a Receiver that batches up to batchSize events per
// segment (a non-positive batchSize defaults to 1, i.e. unbatched).
func NewReceiver(id *identifier.Identifier, ar *archive.Archive, ix *index.Index, batchSize int, encode Encoder) *Receiver {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Receiver{id: id, ar: ar, ix: ix, batchSize: batchSize, encode: encode}
}

type rawEvent struct {
	eventType string
	t         types.Type
	data      types.Data
}

// Drain pulls events from imp until it is exhausted, batching up to
// batchSize at a time, and returns the total count shipped. Each batch gets
// one contiguous ID range, a single Archive segment, and an Index.Index call
// per event (§4.9, §2 "Importer -> Receiver -> Identifier stamps IDs ->
// Archive + Index in parallel").
func (r *Receiver) Drain(imp Importer) (int, error) {
	total := 0
	for {
		batch, err := r.readBatch(imp)
		if len(batch) > 0 {
			if shipErr := r.ship(batch); shipErr != nil {
				return total, shipErr
			}
			total += len(batch)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

func (r *Receiver) readBatch(imp Importer) ([]rawEvent, error) {
	batch := make([]rawEvent, 0, r.batchSize)
	for len(batch) < r.batchSize {
		eventType, t, data, err := imp.Next()
		if err != nil {
			return batch, err
		}
		batch = append(batch, rawEvent{eventType: eventType, t: t, data: data})
	}
	return batch, nil
}

func (r *Receiver) ship(raw []rawEvent) error {
	rng, err := r.id.Request(uint64(len(raw)))
	if err != nil {
		return err
	}

	events := make([]IngestEvent, len(raw))
	for i, rv := range raw {
		id := rng.Lo + uint64(i)
		events[i] = IngestEvent{ID: id, EventType: rv.eventType, Type: rv.t, Data: rv.data}

		values := map[string]types.Data{}
		rv.t.Each(func(leaf types.Leaf) {
			if v, ok := rv.data.At(leaf.Offset); ok {
				values[leaf.Offset.String()] = v
			}
		})
		if err := r.ix.Index(id, rv.eventType, rv.t, values); err != nil {
			return err
		}
	}

	payload, err := r.encode(events)
	if err != nil {
		return err
	}

	segID, err := archive.NewID()
	if err != nil {
		return err
	}
	return r.ar.Store(archive.Segment{
		ID:      segID,
		Range:   identifier.Range{Lo: rng.Lo, Hi: rng.Hi},
		Payload: payload,
	})
}
