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

package resolve

import errors "gopkg.in/src-d/go-errors.v1"

// ErrTypeClash is raised when a schema_extractor's suffix matches fields of
// incongruent types within the same candidate event type (§4.4.1, S2).
var ErrTypeClash = errors.NewKind("type clash: %s <--> %s")

// ErrInvalidKey is raised when a schema_extractor matches no type at all in
// the schema (§4.4.1).
var ErrInvalidKey = errors.NewKind("invalid key: %v")

// These are both "resolve"-kind errors per §7: returned to the originating
// client as a per-query failure, never fatal, and the Search actor stays
// live after either one.
