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

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/vast/internal/archive"
	"github.com/dolthub/vast/internal/ingest"
	"github.com/dolthub/vast/internal/search"
	"github.com/dolthub/vast/internal/types"
)

func TestValidateRequiresAnActorFlag(t *testing.T) {
	require := require.New(t)
	f := &flags{}
	require.Error(f.validate())
}

func TestValidateConsoleExcludesOtherActorFlags(t *testing.T) {
	require := require.New(t)
	f := &flags{console: true, importer: true}
	require.Error(f.validate())
}

func TestValidateImporterExporterMutuallyExclusive(t *testing.T) {
	require := require.New(t)
	f := &flags{importer: true, exporter: true, query: "text == \"x\""}
	require.Error(f.validate())
}

func TestValidateExporterRequiresQuery(t *testing.T) {
	require := require.New(t)
	f := &flags{exporter: true}
	require.Error(f.validate())

	f.query = `text == "x"`
	require.NoError(f.validate())
}

func TestValidateConsoleAlone(t *testing.T) {
	require := require.New(t)
	f := &flags{console: true}
	require.NoError(f.validate())
}

func TestJSONSegmentRoundTrips(t *testing.T) {
	require := require.New(t)

	batch := []ingest.IngestEvent{
		{ID: 0, EventType: "event", Type: defaultEventType(), Data: types.String_("http")},
	}
	payload, err := encodeJSONSegment(batch)
	require.NoError(err)

	events, err := decodeJSONSegment(archive.Segment{Payload: payload})
	require.NoError(err)
	require.Len(events, 1)
	require.Equal(uint64(0), events[0].ID)
	require.Equal("http", events[0].Data.Str)
}

func TestRenderJSONEventWritesOneLinePerRecord(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	ev := search.Event{ID: 0, Type: defaultEventType(), Data: types.String_("http")}
	require.NoError(renderJSONEvent(&buf, ev))
	require.True(strings.HasSuffix(buf.String(), "\n"))
}
