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

// Package actor implements VAST's message-passing actor model (§5): each
// named component runs as a goroutine with a private, bounded mailbox and no
// shared mutable state; suspension happens only at mailbox receive.
//
// Ported from sql.BackgroundThreads's Add(name, func(ctx))/Shutdown() shape
// (a named, cancellable goroutine registry): System generalizes that
// registry with a bounded Mailbox per actor, giving senders the backpressure
// §5 requires ("when a downstream actor is slow, upstream senders block at
// send").
package actor

import (
	"context"
	"sync"

	errors "gopkg.in/src-d/go-errors.v1"
)

// ErrClosed is returned by Spawn/Send once the System has been shut down.
var ErrClosed = errors.NewKind("actor: system is closed")

// ErrUnknownActor is returned by Send when no actor is registered under name.
var ErrUnknownActor = errors.NewKind("actor: unknown actor %q")

// DefaultMailboxSize bounds a Mailbox when Spawn is given size <= 0.
const DefaultMailboxSize = 64

// Mailbox is the bounded channel an actor receives messages on (§5 "private
// mailbox").
type Mailbox chan interface{}

type handle struct {
	mailbox Mailbox
	done    chan struct{}
}

// System is the process-wide actor registry and scheduler: it owns every
// actor's cancellation and the bookkeeping needed to wait for clean
// shutdown. It holds no domain state of its own (§5 "no shared mutable
// state" applies to actors; System only schedules them).
type System struct {
	mu     sync.Mutex
	actors map[string]*handle
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSystem builds a System ready to Spawn actors.
func NewSystem() *System {
	ctx, cancel := context.WithCancel(context.Background())
	return &System{
		actors: make(map[string]*handle),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Spawn registers and starts a new actor under name, running fn in its own
// goroutine with a mailbox bounded by mailboxSize (DefaultMailboxSize if
// <= 0). fn must return when ctx is cancelled; System.Shutdown cancels ctx
// and waits for every spawned fn to return. The returned Mailbox is what
// callers pass to Send.
func (s *System) Spawn(name string, mailboxSize int, fn func(ctx context.Context, mailbox Mailbox)) (Mailbox, error) {
	if mailboxSize <= 0 {
		mailboxSize = DefaultMailboxSize
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed.New()
	}
	mailbox := make(Mailbox, mailboxSize)
	h := &handle{mailbox: mailbox, done: make(chan struct{})}
	s.actors[name] = h
	s.mu.Unlock()

	go func() {
		defer close(h.done)
		fn(s.ctx, mailbox)
	}()

	return mailbox, nil
}

// Send delivers msg to the named actor's mailbox, blocking if the mailbox is
// full (§5 Backpressure: "upstream senders block at send"). It returns
// ErrUnknownActor if no actor is registered under name, or ErrClosed if the
// System has been shut down in the meantime.
func (s *System) Send(name string, msg interface{}) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed.New()
	}
	h, ok := s.actors[name]
	s.mu.Unlock()
	if !ok {
		return ErrUnknownActor.New(name)
	}

	select {
	case h.mailbox <- msg:
		return nil
	case <-s.ctx.Done():
		return ErrClosed.New()
	}
}

// Shutdown cancels every actor's context and blocks until each has returned,
// mirroring §5 Cancellation ("a cancel message terminates the addressed
// actor ... in-flight work is dropped, not rolled back"). Shutdown is
// idempotent: calling it again after the System is already closed is a
// no-op that returns context.Canceled, same as the first call.
func (s *System) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return s.ctx.Err()
	}
	s.closed = true
	handles := make([]*handle, 0, len(s.actors))
	for _, h := range s.actors {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	s.cancel()
	for _, h := range handles {
		<-h.done
	}
	return s.ctx.Err()
}
