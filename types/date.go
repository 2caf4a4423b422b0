/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"strings"
	"time"
)

// DateLayout is the day-first layout used for dates exchanged with users.
const DateLayout = "02-01-2006"

// HasDate reports whether t is set: neither nil nor the zero time.
func HasDate(t *time.Time) bool {
	return t != nil && !t.IsZero()
}

// FormatDate renders t with DateLayout, or "" when t has no date.
func FormatDate(t *time.Time) string {
	if !HasDate(t) {
		return ""
	}
	return t.Format(DateLayout)
}

// ParseDate parses a DateLayout string in UTC. An empty string yields the
// zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
