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

package uow

import (
	"reflect"
	"sync"

	"github.com/tomoncle/unitwork/models"
)

type EntityState int

const (
	Detached EntityState = iota
	Added
	Modified
	Deleted
)

func (s EntityState) String() string {
	switch s {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "detached"
	}
}

// Entry is a pending change as seen from outside the unit of work.
type Entry struct {
	Entity models.Model
	State  EntityState
}

type rowKey struct {
	typ reflect.Type
	id  int64
}

type trackedEntry struct {
	entity models.Model
	state  EntityState
	key    rowKey
	hasKey bool
}

// flushItem remembers what a commit wrote so that only unchanged entries
// are cleared afterwards.
type flushItem struct {
	entry  *trackedEntry
	entity models.Model
	state  EntityState
	newID  bool
}

// tracker is the pending-change table. An entity is identified by its
// pointer and, once it has an id, by (type, id) so two instances of the
// same row share one entry.
type tracker struct {
	mu      sync.Mutex
	entries []*trackedEntry
	byPtr   map[models.Model]*trackedEntry
	byKey   map[rowKey]*trackedEntry
}

func newTracker() *tracker {
	return &tracker{
		byPtr: make(map[models.Model]*trackedEntry),
		byKey: make(map[rowKey]*trackedEntry),
	}
}

func keyOf(entity models.Model) (rowKey, bool) {
	id := entity.GetID()
	if id == 0 {
		return rowKey{}, false
	}
	return rowKey{typ: reflect.TypeOf(entity), id: id}, true
}

func (t *tracker) lookup(entity models.Model) *trackedEntry {
	if e, ok := t.byPtr[entity]; ok {
		return e
	}
	if key, ok := keyOf(entity); ok {
		return t.byKey[key]
	}
	return nil
}

// track records state for entity, overwriting any earlier state. Deleting
// an entity that is only pending insertion drops its entry.
func (t *tracker) track(entity models.Model, state EntityState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key, hasKey := keyOf(entity)
	e := t.lookup(entity)
	if e == nil {
		if state == Deleted && !hasKey {
			return
		}
		e = &trackedEntry{entity: entity, state: state, key: key, hasKey: hasKey}
		t.entries = append(t.entries, e)
		t.index(e)
		return
	}

	if state == Deleted && e.state == Added {
		t.remove(e)
		return
	}
	t.unindex(e)
	e.entity, e.state = entity, state
	e.key, e.hasKey = key, hasKey
	t.index(e)
}

func (t *tracker) index(e *trackedEntry) {
	t.byPtr[e.entity] = e
	if e.hasKey {
		t.byKey[e.key] = e
	}
}

func (t *tracker) unindex(e *trackedEntry) {
	delete(t.byPtr, e.entity)
	if e.hasKey && t.byKey[e.key] == e {
		delete(t.byKey, e.key)
	}
}

func (t *tracker) remove(e *trackedEntry) {
	t.unindex(e)
	for i, cur := range t.entries {
		if cur == e {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return
		}
	}
}

func (t *tracker) stateOf(entity models.Model) (EntityState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e := t.lookup(entity); e != nil {
		return e.state, true
	}
	return Detached, false
}

func (t *tracker) list() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		out[i] = Entry{Entity: e.entity, State: e.state}
	}
	return out
}

func (t *tracker) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *tracker) snapshot() []flushItem {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]flushItem, len(t.entries))
	for i, e := range t.entries {
		out[i] = flushItem{entry: e, entity: e.entity, state: e.state, newID: e.entity.GetID() == 0}
	}
	return out
}

// clear drops the flushed entries that were not re-registered while the
// commit was running.
func (t *tracker) clear(flushed []flushItem) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, f := range flushed {
		if f.entry.entity != f.entity || f.entry.state != f.state {
			continue
		}
		if t.byPtr[f.entity] != f.entry {
			continue
		}
		t.remove(f.entry)
	}
}

func (t *tracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
	t.byPtr = make(map[models.Model]*trackedEntry)
	t.byKey = make(map[rowKey]*trackedEntry)
}
