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

	"github.com/tomoncle/unitwork/types"
	"github.com/uptrace/bun"
)

// ExecuteQuery runs a raw query and scans the rows into T, which is usually
// an entity struct or a scalar. Arguments bind to "?" placeholders.
func ExecuteQuery[T any](ctx context.Context, u *UnitOfWork, query string, args ...interface{}) ([]T, error) {
	out := make([]T, 0)
	err := u.Do(ctx, func(ctx context.Context, db bun.IDB) error {
		return db.NewRaw(query, args...).Scan(ctx, &out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func ExecuteQueryAsync[T any](ctx context.Context, u *UnitOfWork, query string, args ...interface{}) *types.Future[[]T] {
	return types.Go(ctx, func(ctx context.Context) ([]T, error) {
		return ExecuteQuery[T](ctx, u, query, args...)
	})
}

// ExecuteCommand runs a raw statement and returns the affected row count.
func (u *UnitOfWork) ExecuteCommand(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var affected int64
	err := u.Do(ctx, func(ctx context.Context, db bun.IDB) error {
		res, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

func (u *UnitOfWork) ExecuteCommandAsync(ctx context.Context, query string, args ...interface{}) *types.Future[int64] {
	return types.Go(ctx, func(ctx context.Context) (int64, error) {
		return u.ExecuteCommand(ctx, query, args...)
	})
}
