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

package vast

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/vast/internal/archive"
	"github.com/dolthub/vast/internal/ingest"
	"github.com/dolthub/vast/internal/schema"
	"github.com/dolthub/vast/internal/search"
	"github.com/dolthub/vast/internal/types"
)

func msgType() types.Type {
	return types.Record(types.Field{Name: "text", Type: types.String}).Named("msg")
}

// jsonSegment is the toy wire format this test uses for archived segment
// payloads: a flat list of ID-stamped events, encoded as JSON. Exercising
// this encoding is the caller's business, not Receiver's/Search's (§1).
type jsonSegment struct {
	ID        uint64
	EventType string
	Data      types.Data
}

func jsonEncode(batch []ingest.IngestEvent) ([]byte, error) {
	out := make([]jsonSegment, len(batch))
	for i, ev := range batch {
		out[i] = jsonSegment{ID: ev.ID, EventType: ev.EventType, Data: ev.Data}
	}
	return json.Marshal(out)
}

func jsonDecoder(sch *schema.Schema) search.Decoder {
	return func(seg archive.Segment) ([]search.Event, error) {
		var raw []jsonSegment
		if err := json.Unmarshal(seg.Payload, &raw); err != nil {
			return nil, err
		}
		out := make([]search.Event, len(raw))
		for i, r := range raw {
			t, ok := sch.Lookup(r.EventType)
			if !ok {
				t = msgType()
			}
			out[i] = search.Event{ID: r.ID, Type: t, Data: r.Data}
		}
		return out, nil
	}
}

func TestEngineIngestThenQuery(t *testing.T) {
	require := require.New(t)

	sch, err := schema.New(msgType())
	require.NoError(err)
	e, err := NewDefault([]types.Type{msgType()}, jsonDecoder(sch))
	require.NoError(err)
	defer e.Close()

	const doc = `{"_path":"msg","text":"http"}
{"_path":"msg","text":"dns"}
{"_path":"msg","text":"http"}
`
	imp := ingest.NewJSONImporter(strings.NewReader(doc), "_path", map[string]types.Type{"msg": msgType()})
	count, err := e.Ingest(imp, 10, jsonEncode)
	require.NoError(err)
	require.Equal(3, count)

	id, results, err := e.Query(`text == "http"`, 0)
	require.NoError(err)

	var got []search.Event
	for r := range results {
		require.NoError(r.Err)
		got = append(got, r.Event)
	}
	require.Len(got, 2)
	for _, ev := range got {
		require.Equal("http", ev.Data.Record[0].Str)
	}

	// Cancel is a no-op once the query has already finished delivering.
	e.Cancel(id)
}

func TestEngineExportRendersMatches(t *testing.T) {
	require := require.New(t)

	sch, err := schema.New(msgType())
	require.NoError(err)
	e, err := NewDefault([]types.Type{msgType()}, jsonDecoder(sch))
	require.NoError(err)
	defer e.Close()

	imp := ingest.NewJSONImporter(strings.NewReader(`{"_path":"msg","text":"alert"}`+"\n"), "_path", map[string]types.Type{"msg": msgType()})
	_, err = e.Ingest(imp, 1, jsonEncode)
	require.NoError(err)

	id, _, err := e.Query(`text == "alert"`, 0)
	require.NoError(err)

	var buf bytes.Buffer
	exp := ingest.NewExporter(&buf, 0, func(w io.Writer, ev search.Event) error {
		_, err := w.Write([]byte(ev.Data.Record[0].Str + "\n"))
		return err
	})

	count, err := e.Export(id, exp)
	require.NoError(err)
	require.Equal(1, count)
	require.Equal("alert\n", buf.String())
}

func TestEngineCloseShutsDownActors(t *testing.T) {
	require := require.New(t)

	sch, err := schema.New(msgType())
	require.NoError(err)
	e, err := NewDefault([]types.Type{msgType()}, jsonDecoder(sch))
	require.NoError(err)

	require.NoError(e.Close())

	_, _, err = e.Query(`text == "http"`, 0)
	require.Error(err)
}
