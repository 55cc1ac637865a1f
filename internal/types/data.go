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

package types

import (
	"fmt"
	"net"
	"time"
)

// Data is VAST's tagged value, mirroring Type variant-for-variant (§3).
// Cross-variant comparison is not a Data-level concern: the resolver is
// responsible for ensuring an operator's operands share a Kind before a
// comparison is ever attempted (§3 "cross-variant comparison fails the
// type check at resolver time, not at data time").
type Data struct {
	Kind Kind

	Bool     bool
	Int      int64
	Count    uint64
	Real     float64
	Time     time.Time
	Duration time.Duration
	Str      string
	Pattern  string
	Address  net.IP
	Subnet   *net.IPNet
	Port     uint16

	// Vector/Set hold ordered/unordered element lists for KindVector/KindSet.
	Vector []Data
	Set    []Data

	// Table holds key/value pairs for KindTable. Order is insertion order;
	// Table equality is therefore set-like (§3 "Equality ... defined per
	// variant"), not slice-like.
	Table []TableEntry

	// Record holds ordered field values for KindRecord, aligned with the
	// owning Type's Fields().
	Record []Data
}

// TableEntry is one key/value pair of a KindTable Data.
type TableEntry struct {
	Key   Data
	Value Data
}

// Bool_, Int_, Count_, Real_, TimePoint, Dur, String_, Pat, Addr, Net and
// PortOf are constructors for the scalar Data variants.
func Bool_(b bool) Data          { return Data{Kind: KindBool, Bool: b} }
func Int_(i int64) Data          { return Data{Kind: KindInt, Int: i} }
func Count_(c uint64) Data       { return Data{Kind: KindCount, Count: c} }
func Real_(r float64) Data       { return Data{Kind: KindReal, Real: r} }
func TimePoint(t time.Time) Data { return Data{Kind: KindTime, Time: t} }
func Dur(d time.Duration) Data   { return Data{Kind: KindDuration, Duration: d} }
func String_(s string) Data      { return Data{Kind: KindString, Str: s} }
func Pat(s string) Data          { return Data{Kind: KindPattern, Pattern: s} }
func Addr(ip net.IP) Data        { return Data{Kind: KindAddress, Address: ip} }
func Net(n *net.IPNet) Data      { return Data{Kind: KindSubnet, Subnet: n} }
func PortOf(p uint16) Data       { return Data{Kind: KindPort, Port: p} }

// Equal implements per-variant equality (§3). It never compares across
// Kinds: cross-Kind operands are the resolver's responsibility to reject
// before an Equal call is made, so Equal simply returns false for them.
func (d Data) Equal(o Data) bool {
	if d.Kind != o.Kind {
		return false
	}
	switch d.Kind {
	case KindBool:
		return d.Bool == o.Bool
	case KindInt:
		return d.Int == o.Int
	case KindCount:
		return d.Count == o.Count
	case KindReal:
		return d.Real == o.Real
	case KindTime:
		return d.Time.Equal(o.Time)
	case KindDuration:
		return d.Duration == o.Duration
	case KindString:
		return d.Str == o.Str
	case KindPattern:
		return d.Pattern == o.Pattern
	case KindAddress:
		return d.Address.Equal(o.Address)
	case KindSubnet:
		return subnetEqual(d.Subnet, o.Subnet)
	case KindPort:
		return d.Port == o.Port
	case KindVector:
		return vectorEqual(d.Vector, o.Vector)
	case KindSet:
		return setEqual(d.Set, o.Set)
	case KindTable:
		return tableEqual(d.Table, o.Table)
	case KindRecord:
		return vectorEqual(d.Record, o.Record)
	default:
		return false
	}
}

func subnetEqual(a, b *net.IPNet) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.IP.Equal(b.IP) && a.Mask.String() == b.Mask.String()
}

func vectorEqual(a, b []Data) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func setEqual(a, b []Data) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, x := range a {
		found := false
		for j, y := range b {
			if used[j] {
				continue
			}
			if x.Equal(y) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func tableEqual(a, b []TableEntry) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, x := range a {
		found := false
		for j, y := range b {
			if used[j] {
				continue
			}
			if x.Key.Equal(y.Key) && x.Value.Equal(y.Value) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Less implements the ordering used by <, <=, >, >= predicates. It is only
// meaningful for Kinds with a natural order (numeric, time, duration,
// string, address); callers must check Kind compatibility first, exactly
// as for Equal.
func (d Data) Less(o Data) bool {
	switch d.Kind {
	case KindInt:
		return d.Int < o.Int
	case KindCount:
		return d.Count < o.Count
	case KindReal:
		return d.Real < o.Real
	case KindTime:
		return d.Time.Before(o.Time)
	case KindDuration:
		return d.Duration < o.Duration
	case KindString:
		return d.Str < o.Str
	case KindPort:
		return d.Port < o.Port
	case KindAddress:
		return addrLess(d.Address, o.Address)
	default:
		panic(fmt.Sprintf("types: Less undefined for kind %s", d.Kind))
	}
}

func addrLess(a, b net.IP) bool {
	a16, b16 := a.To16(), b.To16()
	for i := range a16 {
		if a16[i] != b16[i] {
			return a16[i] < b16[i]
		}
	}
	return false
}
