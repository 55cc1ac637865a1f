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

// Package query implements the semantic contracts of VAST's query language
// (§6): duration/time-point literals and glob-to-regex translation. The
// grammar machinery that drives these from source text is explicitly out of
// scope (spec.md §1 "Boost-Spirit-style grammars ... the grammar machinery
// is not core"); this package carries only the unit tables and conversions
// the original's detail/parser headers encode, plus a small expression
// parser (expr_parser.go) pragmatic enough to make Search.Query operable
// end to end.
package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Day/Week/Month/Year are the duration unit constants of §6, where months
// are defined as exactly 30 days and years as exactly 365 days (grounded on
// original_source/src/vast/detail/parser/time_duration.h's duration
// constructors — not calendar months/years).
const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = 30 * Day
	Year  = 365 * Day
)

// unitTable maps every canonical unit and alias from §6 to its duration.
var unitTable = map[string]time.Duration{
	"ns": time.Nanosecond,
	"n":  time.Nanosecond,

	"us":    time.Microsecond,
	"mu":    time.Microsecond,
	"u":     time.Microsecond,
	"musec": time.Microsecond,

	"ms": time.Millisecond,

	"s":   time.Second,
	"sec": time.Second,

	"m":   time.Minute,
	"min": time.Minute,

	"h":    time.Hour,
	"hour": time.Hour,

	"d":   Day,
	"day": Day,

	"w":    Week,
	"W":    Week,
	"week": Week,

	"mo":    Month,
	"M":     Month,
	"month": Month,

	"y":    Year,
	"Y":    Year,
	"year": Year,
}

// sortedUnits lists every unitTable key from longest to shortest, so a
// greedy longest-match never mistakes "mo" for "m" or "musec" for "m"+"u".
var sortedUnits = func() []string {
	out := make([]string, 0, len(unitTable))
	for u := range unitTable {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}()

// ParseDuration parses a compound `<number><unit>...` literal per §6's
// duration unit table (S4), e.g. "1h30m" -> 1 hour + 30 minutes. Unlike
// time.ParseDuration, units are VAST's own aliases, not Go's: "mo"/"M" for
// months and "y"/"Y" for years have no Go equivalent, and months/years are
// fixed at 30 and 365 days (not calendar-aware).
func ParseDuration(s string) (time.Duration, error) {
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return 0, fmt.Errorf("query: empty duration")
	}

	var total time.Duration
	for len(s) > 0 {
		i := 0
		if s[i] == '-' || s[i] == '+' {
			i++
		}
		start := i
		for i < len(s) && (s[i] == '.' || (s[i] >= '0' && s[i] <= '9')) {
			i++
		}
		if i == start {
			return 0, fmt.Errorf("query: duration %q has no numeric magnitude", s)
		}
		magnitude, err := strconv.ParseFloat(s[:i], 64)
		if err != nil {
			return 0, fmt.Errorf("query: invalid duration magnitude %q: %w", s[:i], err)
		}
		s = s[i:]

		unit := ""
		for _, candidate := range sortedUnits {
			if strings.HasPrefix(s, candidate) {
				unit = candidate
				break
			}
		}
		if unit == "" {
			return 0, fmt.Errorf("query: unknown duration unit in %q", s)
		}
		total += time.Duration(magnitude * float64(unitTable[unit]))
		s = s[len(unit):]
	}
	return total, nil
}
