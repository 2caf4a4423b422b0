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
	"fmt"
	"strings"
)

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// EnumMember declares one value of an enumeration.
type EnumMember[E ~int] struct {
	Value   E
	Name    string
	Display string
	Desc    string
}

// EnumSet is the validated member table of an integer enumeration. It is
// built once, usually in a package level var, and panics on malformed input
// so that mistakes surface at startup instead of at first lookup.
type EnumSet[E ~int] struct {
	members []EnumMember[E]
	byValue map[E]int
	byName  map[string]int
}

// NewEnumSet validates members and returns the set. It panics when members
// is empty or when a name (case-insensitive) or value is repeated.
func NewEnumSet[E ~int](members ...EnumMember[E]) *EnumSet[E] {
	if len(members) == 0 {
		panic("enum set must declare at least one member")
	}
	s := &EnumSet[E]{
		members: make([]EnumMember[E], 0, len(members)),
		byValue: make(map[E]int, len(members)),
		byName:  make(map[string]int, len(members)),
	}
	for _, m := range members {
		if m.Name == "" {
			panic(fmt.Sprintf("enum member %d has no name", m.Value))
		}
		key := strings.ToLower(m.Name)
		if _, ok := s.byName[key]; ok {
			panic(fmt.Sprintf("duplicate enum name %q", m.Name))
		}
		if _, ok := s.byValue[m.Value]; ok {
			panic(fmt.Sprintf("duplicate enum value %d", m.Value))
		}
		if m.Display == "" {
			m.Display = m.Name
		}
		if m.Desc == "" {
			m.Desc = m.Display
		}
		s.byValue[m.Value] = len(s.members)
		s.byName[key] = len(s.members)
		s.members = append(s.members, m)
	}
	return s
}

// Parse returns the member named value, ignoring case.
func (s *EnumSet[E]) Parse(value string) (E, error) {
	return s.parse(value, true)
}

// ParseExact returns the member named value with case-sensitive matching.
func (s *EnumSet[E]) ParseExact(value string) (E, error) {
	return s.parse(value, false)
}

func (s *EnumSet[E]) parse(value string, ignoreCase bool) (E, error) {
	if i, ok := s.byName[strings.ToLower(strings.TrimSpace(value))]; ok {
		m := s.members[i]
		if ignoreCase || m.Name == strings.TrimSpace(value) {
			return m.Value, nil
		}
	}
	return E(IllegalValue), fmt.Errorf("unknown enum name %q", value)
}

// MustParse is Parse that panics on an unknown name.
func (s *EnumSet[E]) MustParse(value string) E {
	v, err := s.Parse(value)
	if err != nil {
		panic(err)
	}
	return v
}

// TryParse reports whether value names a member.
func (s *EnumSet[E]) TryParse(value string) (E, bool) {
	v, err := s.Parse(value)
	return v, err == nil
}

func (s *EnumSet[E]) IsValid(v E) bool {
	_, ok := s.byValue[v]
	return ok
}

// Name returns the declared name of v or IllegalName.
func (s *EnumSet[E]) Name(v E) string {
	if i, ok := s.byValue[v]; ok {
		return s.members[i].Name
	}
	return IllegalName
}

// DisplayName falls back to the name when no display text is declared.
func (s *EnumSet[E]) DisplayName(v E) string {
	if i, ok := s.byValue[v]; ok {
		return s.members[i].Display
	}
	return IllegalName
}

func (s *EnumSet[E]) Desc(v E) string {
	if i, ok := s.byValue[v]; ok {
		return s.members[i].Desc
	}
	return IllegalDesc
}

// Values returns member values in declaration order.
func (s *EnumSet[E]) Values() []E {
	out := make([]E, len(s.members))
	for i, m := range s.members {
		out[i] = m.Value
	}
	return out
}

func (s *EnumSet[E]) Names() []string {
	out := make([]string, len(s.members))
	for i, m := range s.members {
		out[i] = m.Name
	}
	return out
}

func (s *EnumSet[E]) DisplayNames() []string {
	out := make([]string, len(s.members))
	for i, m := range s.members {
		out[i] = m.Display
	}
	return out
}

func (s *EnumSet[E]) Descriptions() []string {
	out := make([]string, len(s.members))
	for i, m := range s.members {
		out[i] = m.Desc
	}
	return out
}
