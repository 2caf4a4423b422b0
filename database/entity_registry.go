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

package database

import (
	"reflect"
	"sort"
	"sync"
)

var defaultRegistry = NewEntityRegistry()

// SQLModel is the static table configuration of one entity type. Instance
// returns a nil-able struct pointer carrying the bun tags, Priority orders
// table creation (lower first).
type SQLModel interface {
	Instance() interface{}
	Priority() int
}

// EntityRegistry records entity tables once at startup and lists them in a
// deterministic order.
type EntityRegistry interface {
	Register(model SQLModel) bool
	Models() []SQLModel
	Instances() []interface{}
}

type entityRegistry struct {
	models []SQLModel
	seen   map[reflect.Type]struct{}
	mutex  sync.RWMutex
}

// NewEntityRegistry returns an empty registry.
func NewEntityRegistry() EntityRegistry {
	return &entityRegistry{
		models: make([]SQLModel, 0),
		seen:   make(map[reflect.Type]struct{}),
	}
}

// Register adds model and reports whether it was new. A second
// registration of the same Go type is ignored.
func (r *entityRegistry) Register(model SQLModel) bool {
	typ := reflect.TypeOf(model.Instance())
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.seen[typ]; ok {
		return false
	}
	r.seen[typ] = struct{}{}
	r.models = append(r.models, model)
	return true
}

// Models returns registered models sorted by ascending priority; equal
// priorities keep registration order.
func (r *entityRegistry) Models() []SQLModel {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]SQLModel, len(r.models))
	copy(result, r.models)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Priority() < result[j].Priority()
	})
	return result
}

func (r *entityRegistry) Instances() []interface{} {
	models := r.Models()
	out := make([]interface{}, len(models))
	for i, model := range models {
		out[i] = model.Instance()
	}
	return out
}

type ModelAdapter struct {
	instance interface{}
	priority int
}

// NewModelAdapter wraps a struct instance and priority into an SQLModel.
func NewModelAdapter(instance interface{}, priority int) SQLModel {
	return &ModelAdapter{
		instance: instance,
		priority: priority,
	}
}

func (a *ModelAdapter) Instance() interface{} {
	return a.instance
}

func (a *ModelAdapter) Priority() int {
	return a.priority
}

// RegisteredModel adds a model to the default registry.
func RegisteredModel(model SQLModel) bool {
	return defaultRegistry.Register(model)
}

// GetRegisteredModels returns the default registry's models by priority.
func GetRegisteredModels() []SQLModel {
	return defaultRegistry.Models()
}

func RegisteredModelInstances() []interface{} {
	return defaultRegistry.Instances()
}
