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

package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// User is the identity record stored in the "user" table. Credentials and
// sessions are handled outside this module.
type User struct {
	bun.BaseModel `bun:"table:user,alias:u"`
	Entity

	UserName  string    `bun:"user_name,notnull,unique" json:"user_name"`
	Email     string    `bun:"email" json:"email"`
	Locked    bool      `bun:"locked,notnull" json:"locked"`
	CreatedAt time.Time `bun:"created_at,nullzero" json:"created_at"`
}

var _ bun.BeforeAppendModelHook = (*User)(nil)

func (u *User) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	return nil
}
