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

package identifier

import (
	"encoding/binary"

	"github.com/boltdb/bolt"
)

var (
	bucketName = []byte("identifier")
	stateKey   = []byte("state")
)

// BoltStore checkpoints the monotone counter to a single key in a bolt
// database at <dir>/identifier/state (§6 on-disk layout). bolt is the
// teacher's own embedded-storage dependency (go.mod: github.com/boltdb/bolt),
// and its single-writer, crash-safe B+Tree file is exactly fit for a
// one-key, frequently-fsynced checkpoint like this one.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if absent) the bolt file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Load implements Store.
func (s *BoltStore) Load() (uint64, error) {
	var next uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get(stateKey)
		if v == nil {
			return nil
		}
		next = binary.BigEndian.Uint64(v)
		return nil
	})
	return next, err
}

// Save implements Store.
func (s *BoltStore) Save(next uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], next)
		return tx.Bucket(bucketName).Put(stateKey, buf[:])
	})
}

// Close releases the underlying bolt file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// MemStore is an in-memory Store used by tests and by single-process,
// non-durable runs; it never survives a restart by design.
type MemStore struct {
	next uint64
}

// Load implements Store.
func (m *MemStore) Load() (uint64, error) { return m.next, nil }

// Save implements Store.
func (m *MemStore) Save(next uint64) error {
	m.next = next
	return nil
}
