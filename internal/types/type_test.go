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

package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func connType() Type {
	return Record(
		Field{Name: "id", Type: Record(
			Field{Name: "orig_h", Type: Address},
			Field{Name: "resp_h", Type: Address},
		)},
		Field{Name: "service", Type: String},
	).Named("conn")
}

func TestCongruentReflexiveSymmetric(t *testing.T) {
	require := require.New(t)

	a := connType()
	b := connType().Named("connection") // same shape, different name

	require.True(Congruent(a, a), "congruent is reflexive")
	require.True(Congruent(a, b), "congruent ignores names")
	require.True(Congruent(b, a), "congruent is symmetric")
	require.False(a.Equal(b), "Equal is name-sensitive")
}

func TestAliasImpliesCongruent(t *testing.T) {
	require := require.New(t)

	base := Count.Named("bytes")
	alias := base.Aliased("octets")

	require.True(Congruent(base, alias))
}

func TestAtMatchesEachTrace(t *testing.T) {
	require := require.New(t)

	typ := connType()
	typ.Each(func(l Leaf) {
		got, ok := typ.At(l.Offset)
		require.True(ok)
		require.True(got.Equal(l.Trace[len(l.Trace)-1]))
	})
}

func TestEachPreorder(t *testing.T) {
	require := require.New(t)

	typ := connType()
	var paths []string
	typ.Each(func(l Leaf) {
		paths = append(paths, l.Offset.String())
	})
	require.Equal([]string{"0.0", "0.1", "1"}, paths)
}

func TestFindSuffixS1(t *testing.T) {
	require := require.New(t)

	typ := connType()
	matches := typ.FindSuffix([]string{"orig_h"})
	require.Len(matches, 1)
	require.Equal(Offset{0, 0}, matches[0].Offset)
}

func TestFindSuffixDeterministic(t *testing.T) {
	require := require.New(t)

	typ := connType()
	m1 := typ.FindSuffix([]string{"id"})
	m2 := typ.FindSuffix([]string{"id"})
	require.Equal(m1, m2)
	require.Len(m1, 1)
	require.Equal(Offset{0}, m1[0].Offset)
}

func TestNotRecord(t *testing.T) {
	require := require.New(t)

	require.False(Count.IsRecord())
	require.True(connType().IsRecord())
}
