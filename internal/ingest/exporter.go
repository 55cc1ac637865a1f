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
	"bufio"
	"io"

	"github.com/dolthub/vast/internal/search"
)

// ResultEncoder renders one matched event to w (e.g. as a PCAP packet record
// or a line of JSON); its format is out of Exporter's scope (§1), same as
// Importer's wire format.
type ResultEncoder func(w io.Writer, ev search.Event) error

// Exporter is the L9 egress actor (§4.9 "renders a result stream to a file
// sink, flushing every pcap-flush packets for PCAP targets").
type Exporter struct {
	bw         *bufio.Writer
	encode     ResultEncoder
	flushEvery int
}

// NewExporter builds an Exporter writing through w, flushing every
// flushEvery records (0 disables periodic flushing; Render always flushes
// once at the end).
func NewExporter(w io.Writer, flushEvery int, encode ResultEncoder) *Exporter {
	return &Exporter{bw: bufio.NewWriter(w), encode: encode, flushEvery: flushEvery}
}

// Render drains results, encoding each match in order and stopping at the
// first per-event error (§7 "a typed error record in the query result
// stream"). It returns the count of events successfully rendered.
func (e *Exporter) Render(results <-chan search.Result) (int, error) {
	count := 0
	for r := range results {
		if r.Err != nil {
			return count, r.Err
		}
		if err := e.encode(e.bw, r.Event); err != nil {
			return count, err
		}
		count++
		if e.flushEvery > 0 && count%e.flushEvery == 0 {
			if err := e.bw.Flush(); err != nil {
				return count, err
			}
		}
	}
	if err := e.bw.Flush(); err != nil {
		return count, err
	}
	return count, nil
}
