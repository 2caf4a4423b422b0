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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tomoncle/unitwork"
	"github.com/tomoncle/unitwork/database"
	"github.com/tomoncle/unitwork/utils"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	log = database.NewNamedLogger("UNITWORK")
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "unitwork",
		Short:         "Generic manager and unit of work over a relational store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			utils.ConfigureConsoleLogFormat(logFormat)
			utils.ConfigureLogLevel(logLevel)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", utils.EnvDefaultString("UNITWORK_CONFIG", ""), "YAML config file (defaults to a local sqlite database)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", utils.EnvDefaultString("LOG_LEVEL", "info"), "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", utils.EnvDefaultString("CONSOLE_LOG_FORMAT", "text"), "Console log format (text, json)")

	rootCmd.AddCommand(newMigrateCmd(), newSeedCmd(), newServeCmd(), &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "unitwork %s\n", unitwork.Version)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error("Command failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func loadConfig() (*database.Config, error) {
	if configPath == "" {
		return database.DefaultConfig(), nil
	}
	return database.LoadConfig(configPath)
}

// openRuntime loads the config and opens the database; migrate forces
// migrations regardless of the config switch.
func openRuntime(ctx context.Context, migrate bool) (*unitwork.Runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if migrate {
		cfg.DataMigrateConfig.EnableMigrateOnStartup = true
	}
	return unitwork.Init(ctx, cfg)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the entity tables and apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			applied, err := database.NewMigrationManager(rt.DB(), log).GetAppliedMigrations(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list migrations: %w", err)
			}
			for _, m := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", m.Version, m.Name, m.AppliedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}
