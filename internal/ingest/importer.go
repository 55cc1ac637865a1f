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

// Package ingest implements VAST's L9 actors (§4.9): Importer reads events
// from a file or interface and builds them against a declared schema;
// Receiver batches those events into segments, stamps them with IDs from
// Identifier, and ships each batch to Archive and Index; Exporter renders a
// Search result stream back out to a sink.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/dolthub/vast/internal/types"
)

// Importer is the L9 ingress iterator (§4.9 "reads from a file/interface,
// builds events according to a declared schema"). Its Next contract mirrors
// the teacher's row-iterator shape (enginetest/mysqlshim/iter.go's
// mysqlIter.Next): return io.EOF, not a boolean "more" flag, once exhausted.
type Importer interface {
	// Next returns the next event's declared type name, its concrete Type,
	// and its decoded Data, or io.EOF once the source is exhausted.
	Next() (eventType string, t types.Type, data types.Data, err error)
	Close() error
}

// JSONImporter reads newline-delimited JSON records and builds events
// against a fixed set of named event types, picking each record's type by
// the value of a tag field (e.g. Zeek/Corelight's "_path": "conn"). This is
// the same "tag selects a record's type, then decode against that type's
// declared shape" dispatch the gravwell corelight processor uses per
// tagFields/prefix-keyed spec, generalized from TSV re-formatting to
// building a types.Data tree.
type JSONImporter struct {
	scanner  *bufio.Scanner
	closer   io.Closer
	tagField string
	types    map[string]types.Type
}

// NewJSONImporter builds a JSONImporter over r, selecting each record's
// event type from the field named tagField against types (event type name
// -> declared Type). r is closed by Close if it implements io.Closer.
func NewJSONImporter(r io.Reader, tagField string, types map[string]types.Type) *JSONImporter {
	closer, _ := r.(io.Closer)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &JSONImporter{scanner: scanner, closer: closer, tagField: tagField, types: types}
}

// Next implements Importer.
func (j *JSONImporter) Next() (string, types.Type, types.Data, error) {
	for j.scanner.Scan() {
		line := j.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var raw map[string]interface{}
		if err := json.Unmarshal(line, &raw); err != nil {
			return "", types.Type{}, types.Data{}, fmt.Errorf("ingest: decode json record: %w", err)
		}

		tag, _ := raw[j.tagField].(string)
		t, ok := j.types[tag]
		if !ok {
			return "", types.Type{}, types.Data{}, fmt.Errorf("ingest: no declared event type for tag %q", tag)
		}

		data, err := jsonToData(t, raw)
		if err != nil {
			return "", types.Type{}, types.Data{}, fmt.Errorf("ingest: decode %q event: %w", tag, err)
		}
		return tag, t, data, nil
	}
	if err := j.scanner.Err(); err != nil {
		return "", types.Type{}, types.Data{}, err
	}
	return "", types.Type{}, types.Data{}, io.EOF
}

// Close implements Importer.
func (j *JSONImporter) Close() error {
	if j.closer == nil {
		return nil
	}
	return j.closer.Close()
}

// jsonToData converts a generic decoded JSON value into Data shaped by t. A
// record type expects the JSON value to be an object whose field names
// match t's fields by name.
func jsonToData(t types.Type, v interface{}) (types.Data, error) {
	if t.IsRecord() {
		obj, ok := v.(map[string]interface{})
		if !ok {
			return types.Data{}, fmt.Errorf("expected an object for record type %s, got %T", t, v)
		}
		fields := t.Fields()
		out := make([]types.Data, len(fields))
		for i, f := range fields {
			fv, ok := obj[f.Name]
			if !ok {
				out[i] = types.Data{Kind: f.Type.Kind()} // missing field: leave as the zero Data for its kind
				continue
			}
			d, err := jsonToData(f.Type, fv)
			if err != nil {
				return types.Data{}, fmt.Errorf("field %q: %w", f.Name, err)
			}
			out[i] = d
		}
		return types.Data{Kind: types.KindRecord, Record: out}, nil
	}

	switch t.Kind() {
	case types.KindVector, types.KindSet:
		arr, ok := v.([]interface{})
		if !ok {
			return types.Data{}, fmt.Errorf("expected an array for %s, got %T", t, v)
		}
		elems := make([]types.Data, len(arr))
		for i, e := range arr {
			d, err := jsonToData(t.Elem(), e)
			if err != nil {
				return types.Data{}, err
			}
			elems[i] = d
		}
		if t.Kind() == types.KindSet {
			return types.Data{Kind: types.KindSet, Set: elems}, nil
		}
		return types.Data{Kind: types.KindVector, Vector: elems}, nil

	case types.KindBool:
		b, _ := v.(bool)
		return types.Bool_(b), nil

	case types.KindInt:
		return types.Int_(int64(asFloat(v))), nil

	case types.KindCount:
		return types.Count_(uint64(asFloat(v))), nil

	case types.KindReal:
		return types.Real_(asFloat(v)), nil

	case types.KindTime:
		switch tv := v.(type) {
		case float64:
			sec := int64(tv)
			nsec := int64((tv - float64(sec)) * float64(time.Second))
			return types.TimePoint(time.Unix(sec, nsec).UTC()), nil
		case string:
			sec, err := strconv.ParseFloat(tv, 64)
			if err != nil {
				return types.Data{}, fmt.Errorf("invalid time value %q", tv)
			}
			return types.TimePoint(time.Unix(0, int64(sec*float64(time.Second))).UTC()), nil
		default:
			return types.Data{}, fmt.Errorf("expected a numeric timestamp, got %T", v)
		}

	case types.KindDuration:
		return types.Dur(time.Duration(asFloat(v) * float64(time.Second))), nil

	case types.KindString, types.KindPattern:
		s, _ := v.(string)
		if t.Kind() == types.KindPattern {
			return types.Pat(s), nil
		}
		return types.String_(s), nil

	case types.KindAddress:
		s, _ := v.(string)
		ip := net.ParseIP(s)
		if ip == nil {
			return types.Data{}, fmt.Errorf("invalid address %q", s)
		}
		return types.Addr(ip), nil

	case types.KindSubnet:
		s, _ := v.(string)
		_, n, err := net.ParseCIDR(s)
		if err != nil {
			return types.Data{}, fmt.Errorf("invalid subnet %q: %w", s, err)
		}
		return types.Net(n), nil

	case types.KindPort:
		return types.PortOf(uint16(asFloat(v))), nil

	default:
		return types.Data{}, fmt.Errorf("ingest: unsupported kind %s", t.Kind())
	}
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}
