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

// Package unitwork wires the data layer together: it opens the database,
// registers the bundled entities and builds the unit of work registry used
// by the manager and the HTTP middleware.
package unitwork

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tomoncle/unitwork/database"
	"github.com/tomoncle/unitwork/models"
	"github.com/tomoncle/unitwork/uow"
	"github.com/uptrace/bun"
)

// Version is reported by the CLI.
const Version = "0.1.0"

// Runtime holds the open database and the unit of work registry.
type Runtime struct {
	Database database.AbstractDatabaseManager
	Registry *uow.Registry
}

// Init opens the database described by cfg, running migrations when the
// config enables them, and returns the runtime. Close releases it.
func Init(ctx context.Context, cfg *database.Config) (*Runtime, error) {
	if cfg == nil {
		cfg = database.DefaultConfig()
	}
	models.Register()

	dm, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Runtime{
		Database: dm,
		Registry: uow.NewRegistry(dm.GetDB()),
	}, nil
}

func (r *Runtime) DB() *bun.DB {
	return r.Database.GetDB()
}

// Run executes fn with a context bound to a fresh scope, the same way the
// HTTP middleware does for a request, and releases the scope afterwards.
func (r *Runtime) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	scope := r.Registry.Scope(uuid.NewString())
	defer func() { _ = scope.Close() }()
	return fn(uow.WithScope(ctx, scope))
}

// Close releases every outstanding unit of work, then the database.
func (r *Runtime) Close() error {
	var errs []error
	if err := r.Registry.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close units of work: %w", err))
	}
	if err := r.Database.Disconnect(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}
	return errors.Join(errs...)
}
