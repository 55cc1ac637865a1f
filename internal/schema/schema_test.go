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

package schema

import (
	"testing"

	"github.com/dolthub/vast/internal/types"
	"github.com/stretchr/testify/require"
)

func connSchema(t *testing.T) *Schema {
	conn := types.Record(
		types.Field{Name: "id", Type: types.Record(
			types.Field{Name: "orig_h", Type: types.Address},
			types.Field{Name: "resp_h", Type: types.Address},
		)},
		types.Field{Name: "service", Type: types.String},
	).Named("conn")

	tt := types.Record(
		types.Field{Name: "a", Type: types.Count},
		types.Field{Name: "b", Type: types.String},
	).Named("t")

	s, err := New(conn, tt)
	require.NoError(t, err)
	return s
}

func TestFindSuffixRecordField(t *testing.T) {
	require := require.New(t)

	s := connSchema(t)
	matches := s.FindSuffix([]string{"orig_h"})
	require.Len(matches, 1)
	require.Equal("conn", matches[0].Type.Name())
	require.Equal(types.Offset{0, 0}, matches[0].Suffixes[0].Offset)
}

func TestFindSuffixWholeTypeByName(t *testing.T) {
	require := require.New(t)

	s := connSchema(t)
	matches := s.FindSuffix([]string{"conn"})

	// "conn" matches the type's own name (empty offset) AND, since conn has
	// no field literally named "conn", contributes no structural matches.
	require.Len(matches, 1)
	require.Equal(types.Offset(nil), matches[0].Suffixes[0].Offset)
}

func TestFindSuffixS2TypeClashCandidate(t *testing.T) {
	require := require.New(t)

	s := connSchema(t)
	matches := s.FindSuffix([]string{"a"})
	require.Len(matches, 1)
	require.Equal("t", matches[0].Type.Name())
}

func TestFindSuffixNoMatch(t *testing.T) {
	require := require.New(t)

	s := connSchema(t)
	require.Empty(s.FindSuffix([]string{"nonexistent"}))
}

func TestTypesDeterministicOrder(t *testing.T) {
	require := require.New(t)

	s := connSchema(t)
	names1 := typeNames(s.Types())
	names2 := typeNames(s.Types())
	require.Equal(names1, names2)
}

func typeNames(ts []types.Type) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Name()
	}
	return out
}
