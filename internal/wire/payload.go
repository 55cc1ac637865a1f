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

package wire

import (
	"github.com/dolthub/vast/internal/archive"
	"github.com/dolthub/vast/internal/identifier"
)

// RunPayload starts or confirms an actor's readiness; it carries no fields
// of its own today but exists so VerbRun has a concrete, decodable body
// alongside the other verbs.
type RunPayload struct{}

// QueryPayload is VerbQuery's body: a query string and result limit bound
// for Search.Query (§4.8).
type QueryPayload struct {
	Query string
	Limit int
}

// CancelPayload is VerbCancel's body: the query to cancel.
type CancelPayload struct {
	QueryID string
}

// StorePayload is VerbStore's body: a segment for Archive.Store (§4.6).
type StorePayload struct {
	Segment archive.Segment
}

// LookupPayload is VerbLookup's body: an ID range for Archive.Lookup (§4.6).
type LookupPayload struct {
	Range identifier.Range
}

// AckPayload is VerbAck's body: a generic success/failure reply correlated
// by the Envelope's ID back to the request it answers (§7: per-request
// acknowledgements, not a global response order). Data carries a
// verb-specific result string when the request that's being acked expects
// one back (e.g. VerbQuery's assigned query_id).
type AckPayload struct {
	OK   bool
	Err  string
	Data string
}

// LookupResultPayload answers a VerbLookup request (still framed with
// VerbAck, since it is just a typed reply correlated by ID): the segments
// whose ID ranges intersect the requested Range (§4.6 Archive.Lookup).
type LookupResultPayload struct {
	OK       bool
	Err      string
	Segments []archive.Segment
}
