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

// Package identifier implements VAST's monotone event-ID vendor (§4.5):
// Identifier hands out contiguous, disjoint ID ranges and never reuses an
// ID across the lifetime of an archive, even across restarts.
package identifier

import (
	"sync"

	errors "gopkg.in/src-d/go-errors.v1"
)

// ErrClosed is returned by Request once the Identifier has been closed.
var ErrClosed = errors.NewKind("identifier: closed")

// Store persists the monotone counter so Identifier can recover it across a
// restart (§4.5 "Counter is persisted before acknowledging"). The bolt-backed
// implementation lives in store.go.
type Store interface {
	// Load returns the last checkpointed counter value, or 0 if none was
	// ever saved.
	Load() (uint64, error)
	// Save durably persists next before Request acknowledges the range it
	// guards.
	Save(next uint64) error
}

// Identifier is the L5 actor: a single owner of the monotone counter,
// serialized by a mutex rather than a channel mailbox, since Request is a
// pure, fast, synchronous operation with no blocking I/O on the hot path
// besides the Store write (§5: "Identifier guarantees its own responses are
// serialized").
type Identifier struct {
	mu     sync.Mutex
	next   uint64
	store  Store
	closed bool
}

// New recovers next from store (§4.5 "on restart, recover next from
// persistent state") and returns a ready Identifier.
func New(store Store) (*Identifier, error) {
	next, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Identifier{next: next, store: store}, nil
}

// Range is a half-open interval [Lo, Hi) of event IDs.
type Range struct {
	Lo, Hi uint64
}

// Len reports how many IDs r contains.
func (r Range) Len() uint64 { return r.Hi - r.Lo }

// Request atomically reserves n IDs and advances the counter, persisting it
// before returning (§4.5). Successive calls return strictly increasing,
// disjoint ranges whose union over a run covers [0, total) (§8 invariant 7).
func (id *Identifier) Request(n uint64) (Range, error) {
	if n == 0 {
		return Range{}, nil
	}

	id.mu.Lock()
	defer id.mu.Unlock()

	if id.closed {
		return Range{}, ErrClosed.New()
	}

	lo := id.next
	hi := lo + n

	if err := id.store.Save(hi); err != nil {
		return Range{}, err
	}
	id.next = hi

	return Range{Lo: lo, Hi: hi}, nil
}

// Close marks the Identifier unusable. Further Request calls fail.
func (id *Identifier) Close() {
	id.mu.Lock()
	defer id.mu.Unlock()
	id.closed = true
}
