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

package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTime parses a time-point literal (§6, S5): `now[+/-N unit]`,
// `@<duration>` (an offset from the Unix epoch), or an ISO-like
// `YYYY[-MM[-DD[+HH[:MM[:SS]]]]]`. now is the reference instant for the
// `now` forms, injected by the caller so parsing stays deterministic and
// testable.
func ParseTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "now":
		return now, nil
	case strings.HasPrefix(s, "now"):
		d, err := ParseDuration(s[len("now"):])
		if err != nil {
			return time.Time{}, fmt.Errorf("query: invalid now-offset %q: %w", s, err)
		}
		return now.Add(d), nil
	case strings.HasPrefix(s, "@"):
		if secs, ferr := strconv.ParseFloat(s[1:], 64); ferr == nil {
			return time.Unix(0, 0).UTC().Add(time.Duration(secs * float64(time.Second))), nil
		}
		d, err := ParseDuration(s[1:])
		if err != nil {
			return time.Time{}, fmt.Errorf("query: invalid @duration time point %q: %w", s, err)
		}
		return time.Unix(0, 0).UTC().Add(d), nil
	default:
		return parseISOLike(s)
	}
}

// parseISOLike parses YYYY[-MM[-DD[+HH[:MM[:SS]]]]], defaulting every
// omitted field to its minimum (month/day = 1, time = 00:00:00), in UTC.
func parseISOLike(s string) (time.Time, error) {
	datePart, timePart, hasTime := strings.Cut(s, "+")
	dateFields := strings.Split(datePart, "-")
	if len(dateFields) == 0 || len(dateFields) > 3 {
		return time.Time{}, fmt.Errorf("query: invalid time point %q", s)
	}

	year, err := strconv.Atoi(dateFields[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("query: invalid year in time point %q: %w", s, err)
	}
	month, day := 1, 1
	if len(dateFields) > 1 {
		if month, err = strconv.Atoi(dateFields[1]); err != nil {
			return time.Time{}, fmt.Errorf("query: invalid month in time point %q: %w", s, err)
		}
	}
	if len(dateFields) > 2 {
		if day, err = strconv.Atoi(dateFields[2]); err != nil {
			return time.Time{}, fmt.Errorf("query: invalid day in time point %q: %w", s, err)
		}
	}

	hour, min, sec := 0, 0, 0
	if hasTime {
		timeFields := strings.Split(timePart, ":")
		if hour, err = strconv.Atoi(timeFields[0]); err != nil {
			return time.Time{}, fmt.Errorf("query: invalid hour in time point %q: %w", s, err)
		}
		if len(timeFields) > 1 {
			if min, err = strconv.Atoi(timeFields[1]); err != nil {
				return time.Time{}, fmt.Errorf("query: invalid minute in time point %q: %w", s, err)
			}
		}
		if len(timeFields) > 2 {
			if sec, err = strconv.Atoi(timeFields[2]); err != nil {
				return time.Time{}, fmt.Errorf("query: invalid second in time point %q: %w", s, err)
			}
		}
	}

	return time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC), nil
}
