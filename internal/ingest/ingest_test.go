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
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dolthub/vast/internal/archive"
	"github.com/dolthub/vast/internal/identifier"
	"github.com/dolthub/vast/internal/index"
	"github.com/dolthub/vast/internal/search"
	"github.com/dolthub/vast/internal/types"
	"github.com/stretchr/testify/require"
)

func connType() types.Type {
	return types.Record(
		types.Field{Name: "id", Type: types.Record(
			types.Field{Name: "orig_h", Type: types.Address},
			types.Field{Name: "resp_h", Type: types.Address},
		)},
		types.Field{Name: "service", Type: types.String},
	).Named("conn")
}

func TestJSONImporterDecodesRecordByTag(t *testing.T) {
	require := require.New(t)

	const doc = `{"_path":"conn","id":{"orig_h":"10.0.0.1","resp_h":"10.0.0.2"},"service":"http"}
{"_path":"conn","id":{"orig_h":"10.0.0.3","resp_h":"10.0.0.4"},"service":"dns"}
`
	imp := NewJSONImporter(strings.NewReader(doc), "_path", map[string]types.Type{"conn": connType()})
	defer imp.Close()

	eventType, typ, data, err := imp.Next()
	require.NoError(err)
	require.Equal("conn", eventType)
	require.Equal(connType().Kind(), typ.Kind())

	origH, ok := data.At(types.Offset{0, 0})
	require.True(ok)
	require.Equal("10.0.0.1", origH.Address.String())

	svc, ok := data.At(types.Offset{1})
	require.True(ok)
	require.Equal("http", svc.Str)

	_, _, _, err = imp.Next()
	require.NoError(err)

	_, _, _, err = imp.Next()
	require.Equal(io.EOF, err)
}

func TestReceiverDrainShipsToArchiveAndIndex(t *testing.T) {
	require := require.New(t)

	const doc = `{"_path":"conn","id":{"orig_h":"10.0.0.1","resp_h":"10.0.0.2"},"service":"http"}
{"_path":"conn","id":{"orig_h":"10.0.0.5","resp_h":"10.0.0.6"},"service":"dns"}
{"_path":"conn","id":{"orig_h":"10.0.0.7","resp_h":"10.0.0.8"},"service":"http"}
`
	imp := NewJSONImporter(strings.NewReader(doc), "_path", map[string]types.Type{"conn": connType()})

	ident, err := identifier.New(&identifier.MemStore{})
	require.NoError(err)
	ar := archive.New(archive.Config{MaxSegments: 10}, archive.NewMemBackend(), nil)
	ix := index.New(index.Config{MaxEvents: 0, MaxParts: 10, ActiveParts: 10}, index.NewMemStore(), nil)

	var encoded [][]IngestEvent
	encode := func(batch []IngestEvent) ([]byte, error) {
		encoded = append(encoded, batch)
		return []byte{byte(len(encoded))}, nil
	}

	recv := NewReceiver(ident, ar, ix, 2, encode)
	total, err := recv.Drain(imp)
	require.NoError(err)
	require.Equal(3, total)

	// batch-size 2 over 3 events: one full batch of 2, one trailing batch of 1.
	require.Len(encoded, 2)
	require.Len(encoded[0], 2)
	require.Len(encoded[1], 1)

	ranges := ar.Ranges()
	require.Len(ranges, 2)
	require.Equal(uint64(0), ranges[0].Lo)
	require.Equal(uint64(2), ranges[0].Hi)
	require.Equal(uint64(2), ranges[1].Lo)
	require.Equal(uint64(3), ranges[1].Hi)

	require.Equal([]identifier.Range{{Lo: 0, Hi: 3}}, ix.Ranges())
}

func TestExporterRenderFlushesEveryN(t *testing.T) {
	require := require.New(t)

	results := make(chan search.Result, 3)
	results <- search.Result{Event: search.Event{ID: 0, Data: types.String_("a")}}
	results <- search.Result{Event: search.Event{ID: 1, Data: types.String_("b")}}
	results <- search.Result{Event: search.Event{ID: 2, Data: types.String_("c")}}
	close(results)

	var buf bytes.Buffer
	exp := NewExporter(&buf, 2, func(w io.Writer, ev search.Event) error {
		_, err := w.Write([]byte(ev.Data.Str))
		return err
	})

	count, err := exp.Render(results)
	require.NoError(err)
	require.Equal(3, count)
	require.Equal("abc", buf.String())
}

func TestExporterRenderStopsOnError(t *testing.T) {
	require := require.New(t)

	results := make(chan search.Result, 2)
	results <- search.Result{Event: search.Event{ID: 0, Data: types.String_("a")}}
	results <- search.Result{Err: errors.New("boom")}
	close(results)

	var buf bytes.Buffer
	exp := NewExporter(&buf, 0, func(w io.Writer, ev search.Event) error {
		_, err := w.Write([]byte(ev.Data.Str))
		return err
	})

	count, err := exp.Render(results)
	require.Error(err)
	require.Equal(1, count)
}
