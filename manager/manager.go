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

package manager

import (
	"context"

	"github.com/tomoncle/unitwork/models"
	"github.com/tomoncle/unitwork/types"
	"github.com/tomoncle/unitwork/uow"
	"github.com/uptrace/bun"
)

const defaultOrderColumn = "id"

type baseManagerImpl[T any, PT interface {
	*T
	models.Model
}] struct{}

// New returns the manager for entity type T. The manager holds no state;
// the unit of work is resolved from the context of every call.
func New[T any, PT interface {
	*T
	models.Model
}]() Manager[T] {
	return &baseManagerImpl[T, PT]{}
}

func (m *baseManagerImpl[T, PT]) set(ctx context.Context) (*uow.EntitySet[T, PT], error) {
	u, err := uow.Current(ctx)
	if err != nil {
		return nil, err
	}
	return uow.Set[T, PT](u), nil
}

func (m *baseManagerImpl[T, PT]) QueryableEntities(ctx context.Context) (*bun.SelectQuery, error) {
	set, err := m.set(ctx)
	if err != nil {
		return nil, err
	}
	return set.Query()
}

func (m *baseManagerImpl[T, PT]) Save(ctx context.Context, entity *T) error {
	if entity == nil {
		return nil
	}
	set, err := m.set(ctx)
	if err != nil {
		return err
	}
	if PT(entity).GetID() == 0 {
		return set.Add(PT(entity))
	}
	return set.Update(PT(entity))
}

func (m *baseManagerImpl[T, PT]) Delete(ctx context.Context, entity *T) error {
	if entity == nil {
		return nil
	}
	set, err := m.set(ctx)
	if err != nil {
		return err
	}
	return set.Remove(PT(entity))
}

func (m *baseManagerImpl[T, PT]) Where(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	set, err := m.set(ctx)
	if err != nil {
		return nil, err
	}
	entities := make([]*T, 0)
	err = set.Select(ctx, func(ctx context.Context, q *bun.SelectQuery) error {
		return filter.Apply(q).Scan(ctx, &entities)
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

func (m *baseManagerImpl[T, PT]) GetPage(ctx context.Context, req *types.PageRequest) ([]*T, error) {
	if req == nil || req.GetPageSize() <= 0 {
		return make([]*T, 0), nil
	}
	set, err := m.set(ctx)
	if err != nil {
		return nil, err
	}

	column := req.GetOrderBy()
	if column == "" {
		column = defaultOrderColumn
	}
	order := "? ASC"
	if !req.IsAscending() {
		order = "? DESC"
	}

	entities := make([]*T, 0)
	err = set.Select(ctx, func(ctx context.Context, q *bun.SelectQuery) error {
		return req.GetFilter().Apply(q).
			OrderExpr(order, bun.Ident(column)).
			Offset(req.GetOffset()).
			Limit(req.GetPageSize()).
			Scan(ctx, &entities)
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

func (m *baseManagerImpl[T, PT]) Page(ctx context.Context, req *types.PageRequest) (*types.Pagination[T], error) {
	if req == nil {
		req = types.NewPageRequest(1, 0)
	}
	pagination := types.NewDefaultPagination[T](req.GetPage(), req.GetPageSize())
	if req.GetPageSize() <= 0 {
		return pagination, nil
	}

	total, err := m.Count(ctx, req.GetFilter())
	if err != nil || total == 0 {
		return pagination, err
	}
	items, err := m.GetPage(ctx, req)
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = items
	return pagination, nil
}

func (m *baseManagerImpl[T, PT]) FirstOrDefault(ctx context.Context, filter *types.QueryFilter) (*T, error) {
	set, err := m.set(ctx)
	if err != nil {
		return nil, err
	}
	entities := make([]*T, 0, 1)
	err = set.Select(ctx, func(ctx context.Context, q *bun.SelectQuery) error {
		return filter.Apply(q).
			OrderExpr("? ASC", bun.Ident(defaultOrderColumn)).
			Limit(1).
			Scan(ctx, &entities)
	})
	if err != nil || len(entities) == 0 {
		return nil, err
	}
	return entities[0], nil
}

func (m *baseManagerImpl[T, PT]) GetByID(ctx context.Context, id int64) (*T, error) {
	set, err := m.set(ctx)
	if err != nil {
		return nil, err
	}
	return set.Find(ctx, id)
}

func (m *baseManagerImpl[T, PT]) Count(ctx context.Context, filter *types.QueryFilter) (int, error) {
	set, err := m.set(ctx)
	if err != nil {
		return 0, err
	}
	var count int
	err = set.Select(ctx, func(ctx context.Context, q *bun.SelectQuery) error {
		n, err := filter.Apply(q).Count(ctx)
		count = n
		return err
	})
	return count, err
}

func (m *baseManagerImpl[T, PT]) DeleteByID(ctx context.Context, id int64) error {
	entity, err := m.GetByID(ctx, id)
	if err != nil || entity == nil {
		return err
	}
	return m.Delete(ctx, entity)
}

func (m *baseManagerImpl[T, PT]) commit(ctx context.Context) (int64, error) {
	u, err := uow.Current(ctx)
	if err != nil {
		return 0, err
	}
	return u.Commit(ctx)
}

func (m *baseManagerImpl[T, PT]) SaveAndCommit(ctx context.Context, entity *T) (int64, error) {
	if err := m.Save(ctx, entity); err != nil {
		return 0, err
	}
	return m.commit(ctx)
}

func (m *baseManagerImpl[T, PT]) DeleteAndCommit(ctx context.Context, entity *T) (int64, error) {
	if err := m.Delete(ctx, entity); err != nil {
		return 0, err
	}
	return m.commit(ctx)
}

func (m *baseManagerImpl[T, PT]) DeleteByIDAndCommit(ctx context.Context, id int64) (int64, error) {
	if err := m.DeleteByID(ctx, id); err != nil {
		return 0, err
	}
	return m.commit(ctx)
}
