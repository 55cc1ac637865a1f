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
	"net"

	"github.com/hashicorp/yamux"
)

// Dial opens a TCP connection to addr and wraps it as a yamux client
// session, so the caller can Open() as many logical streams as it needs
// (one per in-flight query, for instance) over the single underlying
// connection (§6 "framed typed messages", §5 "bounded mailboxes" — each
// logical stream gets its own framing without blocking the others).
func Dial(addr string) (*yamux.Session, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return yamux.Client(conn, nil)
}

// Listen starts a TCP listener at addr and hands back a function that
// accepts one multiplexed yamux session per incoming connection.
func Listen(addr string) (accept func() (*yamux.Session, error), closeFn func() error, err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	accept = func() (*yamux.Session, error) {
		conn, err := ln.Accept()
		if err != nil {
			return nil, err
		}
		return yamux.Server(conn, nil)
	}
	return accept, ln.Close, nil
}
