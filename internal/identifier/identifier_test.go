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

package identifier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestDisjointIncreasing(t *testing.T) {
	require := require.New(t)

	id, err := New(&MemStore{})
	require.NoError(err)

	r1, err := id.Request(10)
	require.NoError(err)
	require.Equal(Range{0, 10}, r1)

	r2, err := id.Request(5)
	require.NoError(err)
	require.Equal(Range{10, 15}, r2)

	require.True(r1.Hi <= r2.Lo, "ranges must be disjoint and increasing")
}

func TestRequestCoversTotal(t *testing.T) {
	require := require.New(t)

	id, err := New(&MemStore{})
	require.NoError(err)

	var total uint64
	sizes := []uint64{3, 7, 1, 20}
	for _, n := range sizes {
		r, err := id.Request(n)
		require.NoError(err)
		require.Equal(total, r.Lo)
		total += n
		require.Equal(total, r.Hi)
	}
}

// TestS6RestartDoesNotReuseIDs is spec.md scenario S6.
func TestS6RestartDoesNotReuseIDs(t *testing.T) {
	require := require.New(t)

	store := &MemStore{}

	id, err := New(store)
	require.NoError(err)

	r1, err := id.Request(100)
	require.NoError(err)
	require.Equal(Range{0, 100}, r1)

	// Simulate a crash and restart: a fresh Identifier recovers next from
	// the same (durable) store.
	id2, err := New(store)
	require.NoError(err)

	r2, err := id2.Request(50)
	require.NoError(err)
	require.Equal(uint64(100), r2.Lo, "restart must not reuse IDs")
}

func TestRequestAfterCloseFails(t *testing.T) {
	require := require.New(t)

	id, err := New(&MemStore{})
	require.NoError(err)
	id.Close()

	_, err = id.Request(1)
	require.Error(err)
	require.True(ErrClosed.Is(err))
}
