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
	"testing"

	"github.com/dolthub/vast/internal/expr"
	"github.com/dolthub/vast/internal/types"
	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/require"
)

func connEventType() types.Type {
	return types.Record(
		types.Field{Name: "id", Type: types.Int},
		types.Field{Name: "host", Type: types.String.Named("string")},
	)
}

func TestPartitionAddAndEvaluateEquality(t *testing.T) {
	require := require.New(t)

	eventType := connEventType()
	p := NewPartition(mustUUID(t), 0)

	p.Add(1, eventType, types.Offset{1}, types.String_("a"))
	p.Add(2, eventType, types.Offset{1}, types.String_("b"))
	p.Add(3, eventType, types.Offset{1}, types.String_("a"))

	lhs := expr.DataExtractor(eventType, types.Offset{1})
	e := expr.Pred(lhs, expr.OpEqual, types.String_("a"))

	bm, err := p.Evaluate(e)
	require.NoError(err)
	require.ElementsMatch([]uint64{1, 3}, bm.ToArray())
}

func TestPartitionEvaluateConjunctionDisjunctionNegation(t *testing.T) {
	require := require.New(t)

	eventType := connEventType()
	p := NewPartition(mustUUID(t), 0)

	p.Add(1, eventType, types.Offset{0}, types.Int_(1))
	p.Add(1, eventType, types.Offset{1}, types.String_("a"))
	p.Add(2, eventType, types.Offset{0}, types.Int_(2))
	p.Add(2, eventType, types.Offset{1}, types.String_("a"))
	p.Add(3, eventType, types.Offset{0}, types.Int_(1))
	p.Add(3, eventType, types.Offset{1}, types.String_("b"))

	idExtractor := expr.DataExtractor(eventType, types.Offset{0})
	hostExtractor := expr.DataExtractor(eventType, types.Offset{1})

	conj := expr.And(
		expr.Pred(idExtractor, expr.OpEqual, types.Int_(1)),
		expr.Pred(hostExtractor, expr.OpEqual, types.String_("a")),
	)
	bm, err := p.Evaluate(conj)
	require.NoError(err)
	require.ElementsMatch([]uint64{1}, bm.ToArray())

	disj := expr.Or(
		expr.Pred(idExtractor, expr.OpEqual, types.Int_(1)),
		expr.Pred(hostExtractor, expr.OpEqual, types.String_("a")),
	)
	bm, err = p.Evaluate(disj)
	require.NoError(err)
	require.ElementsMatch([]uint64{1, 2, 3}, bm.ToArray())

	neg := expr.Not(expr.Pred(hostExtractor, expr.OpEqual, types.String_("a")))
	bm, err = p.Evaluate(neg)
	require.NoError(err)
	require.ElementsMatch([]uint64{3}, bm.ToArray())
}

func TestIndexRoundRobinSealsFullPartitions(t *testing.T) {
	require := require.New(t)

	eventType := connEventType()
	ix := New(Config{MaxEvents: 2, MaxParts: 10, ActiveParts: 10}, NewMemStore(), nil)

	for i := uint64(0); i < 5; i++ {
		require.NoError(ix.Index(i, "conn", eventType, map[string]types.Data{
			"0": types.Int_(int64(i)),
			"1": types.String_("h"),
		}))
	}

	// 5 events at max-events=2 means at least 3 partitions were created for
	// this one event type (2 sealed, 1 still active).
	ix.mu.Lock()
	resident := len(ix.resident)
	ix.mu.Unlock()
	require.GreaterOrEqual(resident, 3)
}

func TestIndexEvaluateAcrossPartitions(t *testing.T) {
	require := require.New(t)

	eventType := connEventType()
	ix := New(Config{MaxEvents: 2, MaxParts: 10, ActiveParts: 10}, NewMemStore(), nil)

	for i := uint64(0); i < 6; i++ {
		require.NoError(ix.Index(i, "conn", eventType, map[string]types.Data{
			"0": types.Int_(int64(i)),
			"1": types.String_("h"),
		}))
	}

	e := expr.Pred(expr.DataExtractor(eventType, types.Offset{1}), expr.OpEqual, types.String_("h"))
	bm, err := ix.Evaluate(e)
	require.NoError(err)
	require.Len(bm.ToArray(), 6, "candidates must span every partition, not just the active one")
}

func TestIndexEvictsPassiveButNotActive(t *testing.T) {
	require := require.New(t)

	eventType := connEventType()
	ix := New(Config{MaxEvents: 1, MaxParts: 1, ActiveParts: 1}, NewMemStore(), nil)

	for i := uint64(0); i < 3; i++ {
		require.NoError(ix.Index(i, "conn", eventType, map[string]types.Data{
			"0": types.Int_(int64(i)),
			"1": types.String_("h"),
		}))
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	require.LessOrEqual(len(ix.resident), ix.cfg.MaxParts)
	require.NotEmpty(ix.evicted, "sealed partitions past max-parts must be evicted to the store")
}

func TestFileStoreSaveLoadRoundTrip(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(err)

	eventType := connEventType()
	p := NewPartition(mustUUID(t), 0)
	p.Add(7, eventType, types.Offset{1}, types.String_("x"))
	p.Seal()

	require.NoError(store.Save(p))

	loaded, err := store.Load(p.ID)
	require.NoError(err)
	require.Equal(StatePassive, loaded.State)

	e := expr.Pred(expr.DataExtractor(eventType, types.Offset{1}), expr.OpEqual, types.String_("x"))
	bm, err := loaded.Evaluate(e)
	require.NoError(err)
	require.ElementsMatch([]uint64{7}, bm.ToArray())
}

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV4()
	require.NoError(t, err)
	return id
}
