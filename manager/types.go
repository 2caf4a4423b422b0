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

	"github.com/tomoncle/unitwork/types"
	"github.com/uptrace/bun"
)

// CommonManager registers changes with the current unit of work. None of
// its methods touch the store.
type CommonManager[T any] interface {
	// QueryableEntities returns a lazy SELECT over the entity table.
	QueryableEntities(ctx context.Context) (*bun.SelectQuery, error)

	// Save schedules an insert when entity has no id and a full update
	// otherwise.
	Save(ctx context.Context, entity *T) error

	// Delete schedules removal of entity. A nil entity is ignored.
	Delete(ctx context.Context, entity *T) error
}

// SynchronousManager blocks until the store answers.
type SynchronousManager[T any] interface {
	Where(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	// GetPage filters, orders, then returns the requested one-indexed page.
	// Page 0 is treated as page 1 and a non-positive size yields no rows.
	GetPage(ctx context.Context, req *types.PageRequest) ([]*T, error)

	Page(ctx context.Context, req *types.PageRequest) (*types.Pagination[T], error)

	FirstOrDefault(ctx context.Context, filter *types.QueryFilter) (*T, error)

	GetByID(ctx context.Context, id int64) (*T, error)

	Count(ctx context.Context, filter *types.QueryFilter) (int, error)

	// DeleteByID looks the entity up and schedules its removal. A missing
	// id is not an error.
	DeleteByID(ctx context.Context, id int64) error

	SaveAndCommit(ctx context.Context, entity *T) (int64, error)

	DeleteAndCommit(ctx context.Context, entity *T) (int64, error)

	DeleteByIDAndCommit(ctx context.Context, id int64) (int64, error)
}

// AsynchronousManager returns futures. Registration done by the
// *AndCommitAsync methods happens before they return; only store I/O runs
// in the background.
type AsynchronousManager[T any] interface {
	WhereAsync(ctx context.Context, filter *types.QueryFilter) *types.Future[[]*T]
	GetPageAsync(ctx context.Context, req *types.PageRequest) *types.Future[[]*T]
	PageAsync(ctx context.Context, req *types.PageRequest) *types.Future[*types.Pagination[T]]
	FirstOrDefaultAsync(ctx context.Context, filter *types.QueryFilter) *types.Future[*T]
	GetByIDAsync(ctx context.Context, id int64) *types.Future[*T]
	CountAsync(ctx context.Context, filter *types.QueryFilter) *types.Future[int]
	DeleteByIDAsync(ctx context.Context, id int64) *types.Future[struct{}]
	SaveAndCommitAsync(ctx context.Context, entity *T) *types.Future[int64]
	DeleteAndCommitAsync(ctx context.Context, entity *T) *types.Future[int64]
	DeleteByIDAndCommitAsync(ctx context.Context, id int64) *types.Future[int64]
}

// Manager is the full entity manager.
type Manager[T any] interface {
	CommonManager[T]
	SynchronousManager[T]
	AsynchronousManager[T]
}
