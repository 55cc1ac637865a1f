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

// Package wire implements VAST's inter-actor wire protocol (§6): framed
// typed messages conveying control verbs (run, query, cancel, store,
// lookup, ack) between actor processes, each carrying a msgpack-encoded
// payload. A connection is multiplexed with hashicorp/yamux so one TCP
// link between two actor processes can carry many concurrent logical
// streams (e.g. several in-flight queries) without head-of-line blocking.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	uuid "github.com/satori/go.uuid"
	msgpack "gopkg.in/vmihailenco/msgpack.v2"
)

// Verb is one of the control verbs framed between actor processes (§6).
type Verb string

const (
	VerbRun    Verb = "run"
	VerbQuery  Verb = "query"
	VerbCancel Verb = "cancel"
	VerbStore  Verb = "store"
	VerbLookup Verb = "lookup"
	VerbAck    Verb = "ack"
)

// maxFrameSize bounds a single envelope's encoded payload, guarding a
// misbehaving peer from forcing an unbounded allocation on read.
const maxFrameSize = 64 << 20

// Envelope is one framed message on the wire (§6 "framed typed messages
// conveying control verbs and payloads"). ID correlates a request with its
// eventual ack; Payload is the msgpack encoding of a verb-specific body
// (RunPayload, QueryPayload, ...).
type Envelope struct {
	Verb    Verb
	ID      uuid.UUID
	Payload []byte
}

// Encode marshals v with msgpack and returns an Envelope ready to write.
func Encode(verb Verb, id uuid.UUID, v interface{}) (Envelope, error) {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("wire: encode %s payload: %w", verb, err)
	}
	return Envelope{Verb: verb, ID: id, Payload: payload}, nil
}

// Decode unmarshals e's payload into v, which must be a pointer to the
// payload type matching e.Verb.
func (e Envelope) Decode(v interface{}) error {
	if err := msgpack.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("wire: decode %s payload: %w", e.Verb, err)
	}
	return nil
}

// WriteEnvelope frames e onto w as a self-describing binary message: a
// msgpack-encoded header (verb, id, payload length) followed immediately by
// the raw payload bytes. Any wire-compatible framing is acceptable per §6;
// this one keeps the header and body separately msgpack'd so a receiver can
// read the header without knowing the payload's length in advance.
func WriteEnvelope(w io.Writer, e Envelope) error {
	header, err := msgpack.Marshal(envelopeHeader{Verb: e.Verb, ID: e.ID, Size: uint32(len(e.Payload))})
	if err != nil {
		return fmt.Errorf("wire: encode envelope header: %w", err)
	}
	if len(header) > 0xffff {
		return fmt.Errorf("wire: envelope header too large (%d bytes)", len(header))
	}

	var lenPrefix [2]byte
	binary.BigEndian.PutUint16(lenPrefix[:], uint16(len(header)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("wire: write header length: %w", err)
	}
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("wire: write header: %w", err)
	}
	if _, err := w.Write(e.Payload); err != nil {
		return fmt.Errorf("wire: write payload: %w", err)
	}
	return nil
}

// ReadEnvelope reads one framed Envelope from r, the inverse of
// WriteEnvelope.
func ReadEnvelope(r io.Reader) (Envelope, error) {
	var lenPrefix [2]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return Envelope{}, err
	}
	headerLen := binary.BigEndian.Uint16(lenPrefix[:])

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return Envelope{}, fmt.Errorf("wire: read header: %w", err)
	}
	var h envelopeHeader
	if err := msgpack.Unmarshal(header, &h); err != nil {
		return Envelope{}, fmt.Errorf("wire: decode envelope header: %w", err)
	}
	if h.Size > maxFrameSize {
		return Envelope{}, fmt.Errorf("wire: envelope payload too large (%d bytes)", h.Size)
	}

	payload := make([]byte, h.Size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Envelope{}, fmt.Errorf("wire: read payload: %w", err)
	}
	return Envelope{Verb: h.Verb, ID: h.ID, Payload: payload}, nil
}

type envelopeHeader struct {
	Verb Verb
	ID   uuid.UUID
	Size uint32
}
