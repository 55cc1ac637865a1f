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

package archive

import (
	"container/list"

	uuid "github.com/satori/go.uuid"
)

// lru is Archive's in-memory segment cache, bounded to a fixed capacity
// with eviction on UUID, except a segment whose range overlaps an
// in-flight request is pinned and skipped for eviction (§4.6). No
// third-party LRU library appears anywhere in the example pack's
// dependency set, and container/list is the standard library's own
// documented building block for exactly this structure, so this one case
// is implemented directly rather than by importing an unrelated library.
type lru struct {
	capacity int
	items    map[uuid.UUID]*list.Element
	order    *list.List // front = most recently used
	pinned   map[uuid.UUID]int
}

type entry struct {
	id  uuid.UUID
	seg Segment
}

func newLRU(capacity int) *lru {
	if capacity <= 0 {
		capacity = 1
	}
	return &lru{
		capacity: capacity,
		items:    make(map[uuid.UUID]*list.Element),
		order:    list.New(),
		pinned:   make(map[uuid.UUID]int),
	}
}

func (c *lru) get(id uuid.UUID) (Segment, bool) {
	el, ok := c.items[id]
	if !ok {
		return Segment{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).seg, true
}

func (c *lru) put(seg Segment) {
	if el, ok := c.items[seg.ID]; ok {
		el.Value.(*entry).seg = seg
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&entry{id: seg.ID, seg: seg})
	c.items[seg.ID] = el
	c.evictIfNeeded()
}

func (c *lru) pin(id uuid.UUID)   { c.pinned[id]++ }
func (c *lru) unpin(id uuid.UUID) {
	if c.pinned[id] <= 1 {
		delete(c.pinned, id)
	} else {
		c.pinned[id]--
	}
}

func (c *lru) evictIfNeeded() {
	for c.order.Len() > c.capacity {
		victim := c.evictionCandidate()
		if victim == nil {
			return // everything resident is pinned; over-capacity is tolerated
		}
		c.order.Remove(victim)
		delete(c.items, victim.Value.(*entry).id)
	}
}

func (c *lru) evictionCandidate() *list.Element {
	for el := c.order.Back(); el != nil; el = el.Prev() {
		id := el.Value.(*entry).id
		if c.pinned[id] == 0 {
			return el
		}
	}
	return nil
}
