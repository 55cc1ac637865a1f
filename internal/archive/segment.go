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

// Package archive implements VAST's segment store (§4.6, L6): accepting
// batched, compressed events; caching recently-used segments in memory; and
// serving segments by ID range.
package archive

import (
	"github.com/dolthub/vast/internal/identifier"
	uuid "github.com/satori/go.uuid"
)

// Compression identifies the codec a Segment's payload was compressed with.
// The codec itself is plumbing (§1 scope); only its name travels with the
// segment so a reader can pick the matching decompressor.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionLZ4
	CompressionSnappy
	CompressionZstd
)

// Segment is an ordered, ID-contiguous batch of events sharing encoding
// parameters (§3). Segments are append-only and content-addressed by UUID.
type Segment struct {
	ID          uuid.UUID
	Range       identifier.Range
	Compression Compression
	Payload     []byte // compressed, framed event batch; format is out of scope (§1)
}

// Overlaps reports whether s's ID range intersects r.
func (s Segment) Overlaps(r identifier.Range) bool {
	return s.Range.Lo < r.Hi && r.Lo < s.Range.Hi
}

// NewID mints a fresh content-addressing UUID for a segment about to be
// stored (§3 "content-addressed by UUID").
func NewID() (uuid.UUID, error) {
	return uuid.NewV4()
}
