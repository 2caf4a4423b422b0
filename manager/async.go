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
)

func (m *baseManagerImpl[T, PT]) WhereAsync(ctx context.Context, filter *types.QueryFilter) *types.Future[[]*T] {
	return types.Go(ctx, func(ctx context.Context) ([]*T, error) {
		return m.Where(ctx, filter)
	})
}

func (m *baseManagerImpl[T, PT]) GetPageAsync(ctx context.Context, req *types.PageRequest) *types.Future[[]*T] {
	return types.Go(ctx, func(ctx context.Context) ([]*T, error) {
		return m.GetPage(ctx, req)
	})
}

func (m *baseManagerImpl[T, PT]) PageAsync(ctx context.Context, req *types.PageRequest) *types.Future[*types.Pagination[T]] {
	return types.Go(ctx, func(ctx context.Context) (*types.Pagination[T], error) {
		return m.Page(ctx, req)
	})
}

func (m *baseManagerImpl[T, PT]) FirstOrDefaultAsync(ctx context.Context, filter *types.QueryFilter) *types.Future[*T] {
	return types.Go(ctx, func(ctx context.Context) (*T, error) {
		return m.FirstOrDefault(ctx, filter)
	})
}

func (m *baseManagerImpl[T, PT]) GetByIDAsync(ctx context.Context, id int64) *types.Future[*T] {
	return types.Go(ctx, func(ctx context.Context) (*T, error) {
		return m.GetByID(ctx, id)
	})
}

func (m *baseManagerImpl[T, PT]) CountAsync(ctx context.Context, filter *types.QueryFilter) *types.Future[int] {
	return types.Go(ctx, func(ctx context.Context) (int, error) {
		return m.Count(ctx, filter)
	})
}

func (m *baseManagerImpl[T, PT]) DeleteByIDAsync(ctx context.Context, id int64) *types.Future[struct{}] {
	return types.Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.DeleteByID(ctx, id)
	})
}

// SaveAndCommitAsync registers entity before returning, so a later Save on
// the caller's goroutine is ordered after it.
func (m *baseManagerImpl[T, PT]) SaveAndCommitAsync(ctx context.Context, entity *T) *types.Future[int64] {
	if err := m.Save(ctx, entity); err != nil {
		return types.Completed[int64](0, err)
	}
	return types.Go(ctx, m.commit)
}

func (m *baseManagerImpl[T, PT]) DeleteAndCommitAsync(ctx context.Context, entity *T) *types.Future[int64] {
	if err := m.Delete(ctx, entity); err != nil {
		return types.Completed[int64](0, err)
	}
	return types.Go(ctx, m.commit)
}

func (m *baseManagerImpl[T, PT]) DeleteByIDAndCommitAsync(ctx context.Context, id int64) *types.Future[int64] {
	return types.Go(ctx, func(ctx context.Context) (int64, error) {
		return m.DeleteByIDAndCommit(ctx, id)
	})
}
