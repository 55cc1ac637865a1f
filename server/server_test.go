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

package server

import (
	"testing"

	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/require"

	"github.com/dolthub/vast"
	"github.com/dolthub/vast/internal/archive"
	"github.com/dolthub/vast/internal/identifier"
	"github.com/dolthub/vast/internal/types"
	"github.com/dolthub/vast/internal/wire"
)

func msgType() types.Type {
	return types.Record(types.Field{Name: "text", Type: types.String}).Named("msg")
}

func TestDispatchQueryAndCancel(t *testing.T) {
	require := require.New(t)

	e, err := vast.NewDefault([]types.Type{msgType()}, nil)
	require.NoError(err)
	defer e.Close()

	s := &Server{engine: e}

	id, err := uuid.NewV4()
	require.NoError(err)
	env, err := wire.Encode(wire.VerbQuery, id, wire.QueryPayload{Query: `text == "http"`, Limit: 0})
	require.NoError(err)

	reply := s.dispatch(env)
	require.Equal(wire.VerbAck, reply.Verb)

	var ackP wire.AckPayload
	require.NoError(reply.Decode(&ackP))
	require.True(ackP.OK)
	require.NotEmpty(ackP.Data)

	cancelEnv, err := wire.Encode(wire.VerbCancel, id, wire.CancelPayload{QueryID: ackP.Data})
	require.NoError(err)
	cancelReply := s.dispatch(cancelEnv)
	var cancelAck wire.AckPayload
	require.NoError(cancelReply.Decode(&cancelAck))
	require.True(cancelAck.OK)
}

func TestDispatchStoreAndLookup(t *testing.T) {
	require := require.New(t)

	e, err := vast.NewDefault([]types.Type{msgType()}, nil)
	require.NoError(err)
	defer e.Close()

	s := &Server{engine: e}

	segID, err := archive.NewID()
	require.NoError(err)
	seg := archive.Segment{ID: segID, Range: identifier.Range{Lo: 0, Hi: 5}, Payload: []byte("x")}

	id, err := uuid.NewV4()
	require.NoError(err)
	storeEnv, err := wire.Encode(wire.VerbStore, id, wire.StorePayload{Segment: seg})
	require.NoError(err)

	storeReply := s.dispatch(storeEnv)
	var storeAck wire.AckPayload
	require.NoError(storeReply.Decode(&storeAck))
	require.True(storeAck.OK)

	lookupEnv, err := wire.Encode(wire.VerbLookup, id, wire.LookupPayload{Range: identifier.Range{Lo: 0, Hi: 5}})
	require.NoError(err)
	lookupReply := s.dispatch(lookupEnv)
	require.Equal(wire.VerbAck, lookupReply.Verb)

	var lookupAck wire.LookupResultPayload
	require.NoError(lookupReply.Decode(&lookupAck))
	require.True(lookupAck.OK)
	require.Len(lookupAck.Segments, 1)
	require.Equal(segID, lookupAck.Segments[0].ID)
}

func TestDispatchUnknownVerb(t *testing.T) {
	require := require.New(t)

	e, err := vast.NewDefault([]types.Type{msgType()}, nil)
	require.NoError(err)
	defer e.Close()

	s := &Server{engine: e}

	id, err := uuid.NewV4()
	require.NoError(err)
	env, err := wire.Encode(wire.Verb("bogus"), id, struct{}{})
	require.NoError(err)

	reply := s.dispatch(env)
	var ackP wire.AckPayload
	require.NoError(reply.Decode(&ackP))
	require.False(ackP.OK)
}
