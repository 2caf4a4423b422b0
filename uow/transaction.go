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
	"database/sql"
	"sync"

	"github.com/uptrace/bun"
)

// Transaction is an explicit transaction opened by BeginTransaction. Use
// defer tx.Close() right after opening it; Close rolls back unless Commit or
// Rollback already completed it.
type Transaction struct {
	u  *UnitOfWork
	tx bun.Tx

	mu   sync.Mutex
	done bool
}

// Commit makes the transaction durable. It returns sql.ErrTxDone when the
// transaction already completed.
func (t *Transaction) Commit() error {
	return t.complete(true, false)
}

// Rollback aborts the transaction. Changes flushed into it by
// UnitOfWork.Commit are lost.
func (t *Transaction) Rollback() error {
	return t.complete(false, false)
}

// Close rolls back an open transaction and is a no-op otherwise.
func (t *Transaction) Close() error {
	return t.complete(false, true)
}

func (t *Transaction) complete(commit, quiet bool) error {
	t.u.connMu.Lock()
	defer t.u.connMu.Unlock()
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		if quiet {
			return nil
		}
		return sql.ErrTxDone
	}
	t.done = true
	defer t.u.endTransaction(t)

	if commit {
		return t.tx.Commit()
	}
	return t.tx.Rollback()
}

// release is used by UnitOfWork.Close, which holds connMu and has already
// detached the transaction.
func (t *Transaction) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil {
		t.u.logger.Warn("Failed to rollback transaction", "key", t.u.key, "error", err)
	}
}

func (t *Transaction) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}
