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
	"context"
	"fmt"
)

// Open builds a manager from cfg, connects it and runs migrations when
// cfg.DataMigrateConfig.EnableMigrateOnStartup is set. The caller owns the
// returned manager and must Disconnect it.
func Open(ctx context.Context, cfg *Config) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	return OpenWithOptions(ctx, &cfg.ConnectionConfig, cfg.DataMigrateConfig.EnableMigrateOnStartup)
}

// OpenWithOptions is Open with an explicit migration switch.
func OpenWithOptions(ctx context.Context, cfg *ConnectionConfig, runMigrations bool) (AbstractDatabaseManager, error) {
	factory := NewDatabaseFactory()
	manager, err := factory.CreateFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := factory.InitializeDatabase(ctx, runMigrations); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return manager, nil
}

// RunMigrations migrates the database behind manager.
func RunMigrations(ctx context.Context, manager AbstractDatabaseManager) error {
	if manager == nil {
		return fmt.Errorf("database manager not initialized")
	}
	return manager.RunMigrations(ctx)
}
