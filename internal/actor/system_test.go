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

package actor

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSystemSpawnAndShutdown(t *testing.T) {
	require := require.New(t)

	sys := NewSystem()
	defer sys.Shutdown()

	var mu sync.Mutex
	var stopped []string

	record := func(name string) func(ctx context.Context, mailbox Mailbox) {
		return func(ctx context.Context, mailbox Mailbox) {
			<-ctx.Done()
			mu.Lock()
			defer mu.Unlock()
			stopped = append(stopped, name)
		}
	}

	_, err := sys.Spawn("first", 0, record("first"))
	require.NoError(err)
	_, err = sys.Spawn("second", 0, record("second"))
	require.NoError(err)

	mu.Lock()
	require.Empty(stopped)
	mu.Unlock()

	require.ErrorIs(sys.Shutdown(), context.Canceled)

	mu.Lock()
	sort.Strings(stopped)
	require.Equal([]string{"first", "second"}, stopped)
	mu.Unlock()
}

func TestSystemShutdownIdempotent(t *testing.T) {
	require := require.New(t)

	sys := NewSystem()
	_, err := sys.Spawn("only", 0, func(ctx context.Context, mailbox Mailbox) {
		<-ctx.Done()
	})
	require.NoError(err)

	require.ErrorIs(sys.Shutdown(), context.Canceled)
	require.ErrorIs(sys.Shutdown(), context.Canceled)
}

func TestSystemCannotSpawnAfterClosed(t *testing.T) {
	require := require.New(t)

	sys := NewSystem()
	require.ErrorIs(sys.Shutdown(), context.Canceled)

	_, err := sys.Spawn("late", 0, func(ctx context.Context, mailbox Mailbox) {})
	require.True(ErrClosed.Is(err))
}

func TestSendDeliversAndRejectsUnknownActor(t *testing.T) {
	require := require.New(t)

	sys := NewSystem()
	defer sys.Shutdown()

	received := make(chan interface{}, 1)
	_, err := sys.Spawn("echo", 1, func(ctx context.Context, mailbox Mailbox) {
		for {
			select {
			case m := <-mailbox:
				received <- m
			case <-ctx.Done():
				return
			}
		}
	})
	require.NoError(err)

	require.NoError(sys.Send("echo", "hello"))
	require.Equal("hello", <-received)

	err = sys.Send("nope", "x")
	require.True(ErrUnknownActor.Is(err))
}
