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

package search

import (
	"net"
	"testing"

	"github.com/dolthub/vast/internal/archive"
	"github.com/dolthub/vast/internal/identifier"
	"github.com/dolthub/vast/internal/index"
	"github.com/dolthub/vast/internal/schema"
	"github.com/dolthub/vast/internal/types"
	"github.com/stretchr/testify/require"
)

// connType mirrors spec.md's S1 schema example: conn = record{id: record{
// orig_h: addr, resp_h: addr}, service: string}.
func connType() types.Type {
	return types.Record(
		types.Field{Name: "id", Type: types.Record(
			types.Field{Name: "orig_h", Type: types.Address},
			types.Field{Name: "resp_h", Type: types.Address},
		)},
		types.Field{Name: "service", Type: types.String},
	).Named("conn")
}

// fakeSegment packs one event's ID and Data in its Payload via a test-only
// encoding; decode below is this test's Decoder, standing in for the
// ingest layer's real wire codec (out of Search's own scope, per §4.8).
type fakeSegment struct {
	id   uint64
	data types.Data
}

func buildHarness(t *testing.T, events []fakeSegment) (*Search, *index.Index, *archive.Archive) {
	t.Helper()

	ct := connType()
	sch, err := schema.New(ct)
	require.NoError(t, err)
	idx := index.New(index.Config{MaxEvents: 0, MaxParts: 10, ActiveParts: 10}, index.NewMemStore(), nil)
	ar := archive.New(archive.Config{MaxSegments: 10}, archive.NewMemBackend(), nil)

	segments := make(map[uint64]fakeSegment, len(events))
	for _, ev := range events {
		segments[ev.id] = ev

		values := map[string]types.Data{}
		ct.Each(func(leaf types.Leaf) {
			if v, ok := ev.data.At(leaf.Offset); ok {
				values[leaf.Offset.String()] = v
			}
		})
		require.NoError(t, idx.Index(ev.id, "conn", ct, values))

		id, err := archive.NewID()
		require.NoError(t, err)
		require.NoError(t, ar.Store(archive.Segment{
			ID:    id,
			Range: identifier.Range{Lo: ev.id, Hi: ev.id + 1},
		}))
	}

	decode := func(seg archive.Segment) ([]Event, error) {
		var out []Event
		for id := seg.Range.Lo; id < seg.Range.Hi; id++ {
			if ev, ok := segments[id]; ok {
				out = append(out, Event{ID: ev.id, Type: ct, Data: ev.data})
			}
		}
		return out, nil
	}

	return New(sch, idx, ar, decode, nil), idx, ar
}

func addrData(s string) types.Data {
	return types.Addr(net.ParseIP(s))
}

func connEvent(id uint64, origH, respH, service string) fakeSegment {
	return fakeSegment{
		id: id,
		data: types.Data{
			Kind: types.KindRecord,
			Record: []types.Data{
				{
					Kind: types.KindRecord,
					Record: []types.Data{
						addrData(origH),
						addrData(respH),
					},
				},
				types.String_(service),
			},
		},
	}
}

func TestS1QueryBySuffixKey(t *testing.T) {
	require := require.New(t)

	events := []fakeSegment{
		connEvent(0, "10.0.0.1", "10.0.0.2", "http"),
		connEvent(1, "10.0.0.3", "10.0.0.4", "dns"),
	}
	s, _, _ := buildHarness(t, events)

	id, err := s.Query(`id.orig_h == 10.0.0.1`, 0)
	require.NoError(err)

	results, ok := s.Results(id)
	require.True(ok)

	var got []Result
	for r := range results {
		got = append(got, r)
	}
	require.Len(got, 1)
	require.NoError(got[0].Err)
	require.Equal(uint64(0), got[0].Event.ID)
}

func TestQueryHonorsLimit(t *testing.T) {
	require := require.New(t)

	events := []fakeSegment{
		connEvent(0, "10.0.0.1", "10.0.0.2", "http"),
		connEvent(1, "10.0.0.1", "10.0.0.2", "http"),
		connEvent(2, "10.0.0.1", "10.0.0.2", "http"),
	}
	s, _, _ := buildHarness(t, events)

	id, err := s.Query(`id.orig_h == 10.0.0.1`, 1)
	require.NoError(err)

	results, ok := s.Results(id)
	require.True(ok)

	var got []Result
	for r := range results {
		got = append(got, r)
	}
	require.Len(got, 1)
}

func TestCancelStopsDelivery(t *testing.T) {
	require := require.New(t)

	events := []fakeSegment{connEvent(0, "10.0.0.1", "10.0.0.2", "http")}
	s, _, _ := buildHarness(t, events)

	id, err := s.Query(`id.orig_h == "10.0.0.1"`, 0)
	require.NoError(err)
	s.Cancel(id)

	results, ok := s.Results(id)
	require.True(ok)
	for range results {
	}
}
