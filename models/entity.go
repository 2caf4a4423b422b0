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

// Package models holds the entity base type and the bundled entities.
package models

// Model is implemented by every entity handled by the manager and the
// unit of work. A zero id means the entity was never stored.
type Model interface {
	GetID() int64
	SetID(id int64)
}

// Entity is embedded by entity structs to provide the integer primary key.
type Entity struct {
	ID int64 `bun:"id,pk,autoincrement" json:"id"`
}

func (e *Entity) GetID() int64 {
	return e.ID
}

func (e *Entity) SetID(id int64) {
	e.ID = id
}

// IsNew reports whether the entity has not been stored yet.
func (e *Entity) IsNew() bool {
	return e.ID == 0
}
