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
	"context"
	"database/sql"
	"errors"
	"reflect"

	"github.com/tomoncle/unitwork/models"
	"github.com/uptrace/bun"
)

// EntitySet is the typed view of one table within a unit of work.
type EntitySet[T any, PT interface {
	*T
	models.Model
}] struct {
	u *UnitOfWork
}

// Set returns the entity set for T, creating it on first use. Repeated
// calls return the same instance.
func Set[T any, PT interface {
	*T
	models.Model
}](u *UnitOfWork) *EntitySet[T, PT] {
	typ := reflect.TypeOf((*T)(nil)).Elem()

	u.mu.Lock()
	defer u.mu.Unlock()
	if set, ok := u.sets[typ].(*EntitySet[T, PT]); ok {
		return set
	}
	set := &EntitySet[T, PT]{u: u}
	if u.sets != nil {
		u.sets[typ] = set
	}
	return set
}

func (s *EntitySet[T, PT]) UnitOfWork() *UnitOfWork {
	return s.u
}

// Query starts a SELECT over the table. Nothing runs until the query is
// scanned or counted, and running it does not hold the connection; prefer
// Select when the unit of work is shared between goroutines.
func (s *EntitySet[T, PT]) Query() (*bun.SelectQuery, error) {
	db, err := s.u.idb()
	if err != nil {
		return nil, err
	}
	return db.NewSelect().Model((*T)(nil)), nil
}

// Select passes a SELECT over the table to run, which scans or counts it
// while the unit of work's connection is held.
func (s *EntitySet[T, PT]) Select(ctx context.Context, run func(ctx context.Context, q *bun.SelectQuery) error) error {
	return s.u.Do(ctx, func(ctx context.Context, db bun.IDB) error {
		return run(ctx, db.NewSelect().Model((*T)(nil)))
	})
}

// Find loads the row with the given id, or nil when there is none.
func (s *EntitySet[T, PT]) Find(ctx context.Context, id int64) (*T, error) {
	entity := PT(new(T))
	entity.SetID(id)
	err := s.u.Do(ctx, func(ctx context.Context, db bun.IDB) error {
		return db.NewSelect().Model(entity).WherePK().Scan(ctx)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return entity, nil
}

func (s *EntitySet[T, PT]) Add(entity PT) error {
	return s.u.MarkAdded(entity)
}

func (s *EntitySet[T, PT]) Update(entity PT) error {
	return s.u.SetModified(entity)
}

func (s *EntitySet[T, PT]) Remove(entity PT) error {
	return s.u.MarkDeleted(entity)
}
