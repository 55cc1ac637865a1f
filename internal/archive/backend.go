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
	"os"
	"path/filepath"

	uuid "github.com/satori/go.uuid"
)

// FileBackend writes one file per segment under <dir>/archive/<uuid>.seg,
// matching the on-disk layout of §6. Archive is its exclusive owner; no
// other component touches these files (§5 "On-disk segment and partition
// files are owned exclusively by Archive and Index respectively").
type FileBackend struct {
	dir string
}

// NewFileBackend returns a Backend rooted at dir (the archive/ subdirectory
// of the node's data directory).
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) path(id uuid.UUID) string {
	return filepath.Join(b.dir, id.String()+".seg")
}

// Write implements Backend.
func (b *FileBackend) Write(id uuid.UUID, payload []byte) error {
	return os.WriteFile(b.path(id), payload, 0644)
}

// Read implements Backend.
func (b *FileBackend) Read(id uuid.UUID) ([]byte, error) {
	return os.ReadFile(b.path(id))
}

// Delete implements Backend.
func (b *FileBackend) Delete(id uuid.UUID) error {
	err := os.Remove(b.path(id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// MemBackend is an in-process Backend used by tests.
type MemBackend struct {
	data map[uuid.UUID][]byte
}

// NewMemBackend returns an empty MemBackend.
func NewMemBackend() *MemBackend {
	return &MemBackend{data: make(map[uuid.UUID][]byte)}
}

// Write implements Backend.
func (b *MemBackend) Write(id uuid.UUID, payload []byte) error {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	b.data[id] = cp
	return nil
}

// Read implements Backend.
func (b *MemBackend) Read(id uuid.UUID) ([]byte, error) {
	v, ok := b.data[id]
	if !ok {
		return nil, os.ErrNotExist
	}
	return v, nil
}

// Delete implements Backend.
func (b *MemBackend) Delete(id uuid.UUID) error {
	delete(b.data, id)
	return nil
}
