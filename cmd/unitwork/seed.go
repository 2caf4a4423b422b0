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

	"github.com/spf13/cobra"
	"github.com/tomoncle/unitwork"
	"github.com/tomoncle/unitwork/database"
	"github.com/tomoncle/unitwork/uow"
)

func newSeedCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Run the SQL scripts of a directory in one transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			rows, err := seed(cmd.Context(), rt, dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d rows\n", rows)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "configs/sql", "Directory of NNN_name.sql scripts")
	return cmd
}

// seed executes every script under dir, in file order, inside a single
// explicit transaction. Nothing is kept when one statement fails.
func seed(ctx context.Context, rt *unitwork.Runtime, dir string) (int64, error) {
	scripts, err := database.ListSQLScripts(dir)
	if err != nil {
		return 0, err
	}
	if len(scripts) == 0 {
		log.Info("No SQL files found to execute", "dir", dir)
		return 0, nil
	}

	var total int64
	err = rt.Run(ctx, func(ctx context.Context) error {
		u, err := uow.Current(ctx)
		if err != nil {
			return err
		}
		tx, err := u.BeginTransaction(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Close() }()

		for _, script := range scripts {
			statements, err := script.Statements()
			if err != nil {
				return fmt.Errorf("SQL file execution failed %s: %w", script.Path, err)
			}
			var rows int64
			for _, stmt := range statements {
				n, err := u.ExecuteCommand(ctx, stmt)
				if err != nil {
					return fmt.Errorf("SQL file execution failed %s: %w", script.Path, err)
				}
				rows += n
			}
			total += rows
			log.Info("SQL file executed successfully", "file", script.Name, "statements", len(statements), "rows_affected", rows)
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
