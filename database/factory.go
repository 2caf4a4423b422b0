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
	"slices"
	"time"

	"github.com/tomoncle/unitwork/utils"
	"github.com/uptrace/bun"
)

// SupportedTypes are the accepted ConnectionConfig.Type values.
var SupportedTypes = []string{"mysql", "postgres", "postgresql", "sqlite", "sqlite3"}

// ApplyEnv overrides cfg with the DB_* environment. Unset or malformed
// variables keep the configured value. Durations accept "30s" or seconds.
func ApplyEnv(cfg *ConnectionConfig) {
	cfg.Type = utils.EnvDefaultString("DB_TYPE", cfg.Type)
	cfg.Host = utils.EnvDefaultString("DB_HOST", cfg.Host)
	cfg.Port = utils.EnvDefaultInt("DB_PORT", cfg.Port)
	cfg.Username = utils.EnvDefaultString("DB_USERNAME", cfg.Username)
	cfg.Password = utils.EnvDefaultString("DB_PASSWORD", cfg.Password)
	cfg.DBName = utils.EnvDefaultString("DB_NAME", cfg.DBName)
	cfg.SSLMode = utils.EnvDefaultString("DB_SSLMODE", cfg.SSLMode)
	cfg.MaxIdleConns = utils.EnvDefaultInt("DB_MAX_IDLE_CONNS", cfg.MaxIdleConns)
	cfg.MaxOpenConns = utils.EnvDefaultInt("DB_MAX_OPEN_CONNS", cfg.MaxOpenConns)
	cfg.ConnMaxLifetime = utils.EnvDefaultDuration("DB_CONN_MAX_LIFETIME", cfg.ConnMaxLifetime)
	cfg.HealthCheckInterval = utils.EnvDefaultDuration("DB_HEALTH_CHECK_INTERVAL", cfg.HealthCheckInterval)
	cfg.SlowQueryTime = utils.EnvDefaultDuration("DB_SLOW_QUERY_TIME", cfg.SlowQueryTime)
	cfg.EnableQueryLog = utils.EnvDefaultBool("DB_ENABLE_QUERY_LOG", cfg.EnableQueryLog)
}

func validateConnectionConfig(cfg *ConnectionConfig) error {
	if !slices.Contains(SupportedTypes, cfg.Type) {
		return fmt.Errorf("unsupported database type: %s, supported types: %v", cfg.Type, SupportedTypes)
	}
	if cfg.MaxOpenConns < 0 || cfg.MaxIdleConns < 0 {
		return fmt.Errorf("connection pool sizes cannot be negative")
	}
	return nil
}

// DatabaseFactory builds the manager for one connection config and brings
// it up: connect, register entity tables, migrate.
type DatabaseFactory struct {
	config  *ConnectionConfig
	manager AbstractDatabaseManager
	logger  Logger
}

func NewDatabaseFactory() *DatabaseFactory {
	return &DatabaseFactory{logger: GetLogger()}
}

// CreateFromConfig applies ApplyEnv to cfg, validates it and builds the
// manager. Nothing is connected yet.
func (f *DatabaseFactory) CreateFromConfig(cfg *ConnectionConfig) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	ApplyEnv(cfg)
	if err := validateConnectionConfig(cfg); err != nil {
		return nil, err
	}

	f.config = cfg
	f.manager = NewDatabaseManager(cfg)
	f.manager.SetLogger(f.logger)
	return f.manager, nil
}

// InitializeDatabase connects, registers the entity tables of the default
// registry with bun and migrates when runMigrations is set. A failed
// migration disconnects again.
func (f *DatabaseFactory) InitializeDatabase(ctx context.Context, runMigrations bool) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	f.manager.GetDB().RegisterModel(RegisteredModelInstances()...)

	if runMigrations {
		if err := f.manager.RunMigrations(ctx); err != nil {
			_ = f.manager.Disconnect()
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
	}
	f.logger.Info("Database ready", "type", f.config.Type, "migrated", runMigrations)
	return nil
}

func (f *DatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

func (f *DatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{LastError: "database manager not created", LastCheckTime: time.Now()}
	}
	return f.manager.HealthCheck(ctx)
}

func (f *DatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}
