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
	"encoding/json"
	"io"

	"github.com/dolthub/vast/internal/archive"
	"github.com/dolthub/vast/internal/ingest"
	"github.com/dolthub/vast/internal/search"
	"github.com/dolthub/vast/internal/types"
)

// jsonRecord is this binary's own segment wire format: newline-delimited
// JSON, one object per ingested event. types.Type carries unexported
// fields and is never itself put on the wire (§1 "the wire encoding of a
// segment's events is out of scope"); only the already-declared event
// type's name travels with each record; defaultEventType resolves it back
// on the read side.
type jsonRecord struct {
	ID        uint64
	EventType string
	Data      types.Data
}

func encodeJSONSegment(batch []ingest.IngestEvent) ([]byte, error) {
	recs := make([]jsonRecord, len(batch))
	for i, ev := range batch {
		recs[i] = jsonRecord{ID: ev.ID, EventType: ev.EventType, Data: ev.Data}
	}
	return json.Marshal(recs)
}

func decodeJSONSegment(seg archive.Segment) ([]search.Event, error) {
	var recs []jsonRecord
	if err := json.Unmarshal(seg.Payload, &recs); err != nil {
		return nil, err
	}
	out := make([]search.Event, len(recs))
	for i, r := range recs {
		out[i] = search.Event{ID: r.ID, Type: defaultEventType(), Data: r.Data}
	}
	return out, nil
}

func renderJSONEvent(w io.Writer, ev search.Event) error {
	line, err := json.Marshal(ev.Data)
	if err != nil {
		return err
	}
	_, err = w.Write(append(line, '\n'))
	return err
}
