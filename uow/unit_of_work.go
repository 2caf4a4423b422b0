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
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/tomoncle/unitwork/database"
	"github.com/tomoncle/unitwork/models"
	"github.com/tomoncle/unitwork/types"
	"github.com/uptrace/bun"
)

// UnitOfWork collects pending changes for one request and writes them in a
// single transaction on Commit. It owns one dedicated connection until Close;
// statements on it run one at a time, so futures of the same request may
// share a unit of work.
type UnitOfWork struct {
	key     string
	db      *bun.DB
	conn    *bun.Conn
	logger  database.Logger
	tracker *tracker

	mu     sync.Mutex
	sets   map[reflect.Type]interface{}
	tx     *Transaction
	closed bool

	// connMu serializes every statement on conn. Lock order is connMu, then
	// Transaction.mu, then mu.
	connMu    sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

type Option func(*UnitOfWork)

// WithKey sets the correlation key. A random one is used otherwise.
func WithKey(key string) Option {
	return func(u *UnitOfWork) {
		u.key = key
	}
}

func WithLogger(logger database.Logger) Option {
	return func(u *UnitOfWork) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// New reserves a connection from db and returns an empty unit of work.
func New(ctx context.Context, db *bun.DB, opts ...Option) (*UnitOfWork, error) {
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	u := &UnitOfWork{
		db:      db,
		logger:  database.GetLogger(),
		tracker: newTracker(),
		sets:    make(map[reflect.Type]interface{}),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.key == "" {
		u.key = uuid.NewString()
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve connection: %w", err)
	}
	u.conn = &conn
	u.logger.Debug("Unit of work created", "key", u.key)
	return u, nil
}

func (u *UnitOfWork) Key() string {
	return u.key
}

// idb returns the handle statements run on: the explicit transaction when
// one is open, the dedicated connection otherwise.
func (u *UnitOfWork) idb() (bun.IDB, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil, ErrClosed
	}
	if u.tx != nil {
		return &u.tx.tx, nil
	}
	return u.conn, nil
}

// DB returns the current statement handle without holding the connection.
// Use Do when other goroutines may share the unit of work.
func (u *UnitOfWork) DB() (bun.IDB, error) {
	return u.idb()
}

// Do runs fn with exclusive use of the unit of work's connection, inside the
// explicit transaction when one is open. fn must not call back into the unit
// of work's store operations.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, db bun.IDB) error) error {
	u.connMu.Lock()
	defer u.connMu.Unlock()
	db, err := u.idb()
	if err != nil {
		return err
	}
	return fn(ctx, db)
}

func (u *UnitOfWork) checkOpen() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return ErrClosed
	}
	return nil
}

func (u *UnitOfWork) register(entity models.Model, state EntityState) error {
	if entity == nil || reflect.ValueOf(entity).IsNil() {
		return nil
	}
	if err := u.checkOpen(); err != nil {
		return err
	}
	u.tracker.track(entity, state)
	return nil
}

// MarkAdded schedules entity for insertion.
func (u *UnitOfWork) MarkAdded(entity models.Model) error {
	return u.register(entity, Added)
}

// SetModified schedules entity for a full-row update, attaching it when it
// is not tracked yet and replacing any earlier state. Nothing is read from
// the store.
func (u *UnitOfWork) SetModified(entity models.Model) error {
	return u.register(entity, Modified)
}

// MarkDeleted schedules entity for deletion. An entity pending insertion is
// simply forgotten.
func (u *UnitOfWork) MarkDeleted(entity models.Model) error {
	return u.register(entity, Deleted)
}

func (u *UnitOfWork) StateOf(entity models.Model) (EntityState, bool) {
	if entity == nil || reflect.ValueOf(entity).IsNil() {
		return Detached, false
	}
	return u.tracker.stateOf(entity)
}

// Entries lists pending changes in registration order.
func (u *UnitOfWork) Entries() []Entry {
	return u.tracker.list()
}

func (u *UnitOfWork) Pending() int {
	return u.tracker.len()
}

// Discard forgets every pending change.
func (u *UnitOfWork) Discard() {
	u.tracker.reset()
}

// ApplyCurrentValues copies every field of current into original while
// keeping original's id. original keeps its pending state.
func ApplyCurrentValues[T any, PT interface {
	*T
	models.Model
}](original PT, current PT) {
	if original == nil || current == nil || original == current {
		return
	}
	id := original.GetID()
	*original = *current
	original.SetID(id)
}

// Commit writes all pending changes in one transaction and returns the
// number of affected rows. Inside an explicit transaction the changes are
// written to it and become durable with Transaction.Commit.
//
// An update or delete that matches no row fails the commit with
// ErrConcurrencyConflict. Store errors are returned as they are. On failure
// nothing is written, not even into an open explicit transaction, the
// pending changes are kept and ids generated for added entities are reset
// to zero.
func (u *UnitOfWork) Commit(ctx context.Context) (int64, error) {
	u.connMu.Lock()
	defer u.connMu.Unlock()

	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return 0, ErrClosed
	}
	explicit := u.tx
	u.mu.Unlock()

	flushed := u.tracker.snapshot()
	if len(flushed) == 0 {
		return 0, nil
	}

	var affected int64
	apply := func(ctx context.Context, db bun.IDB) error {
		affected = 0
		for _, item := range flushed {
			n, err := u.apply(ctx, db, item)
			if err != nil {
				return err
			}
			affected += n
		}
		return nil
	}

	// RunInTx on an open transaction wraps the flush in a savepoint.
	var err error
	if explicit != nil {
		err = explicit.tx.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return apply(ctx, &tx)
		})
	} else {
		err = u.conn.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return apply(ctx, &tx)
		})
	}
	if err != nil {
		for _, item := range flushed {
			if item.state == Added && item.newID {
				item.entity.SetID(0)
			}
		}
		u.logger.Error("Unit of work commit failed", "key", u.key, "pending", len(flushed), "kind", errorKind(err), "error", err)
		return 0, err
	}

	u.tracker.clear(flushed)
	u.logger.Debug("Unit of work committed", "key", u.key, "entries", len(flushed), "rows", affected)
	return affected, nil
}

func (u *UnitOfWork) apply(ctx context.Context, db bun.IDB, item flushItem) (int64, error) {
	var (
		res sql.Result
		err error
	)
	switch item.state {
	case Added:
		res, err = db.NewInsert().Model(item.entity).Exec(ctx)
	case Modified:
		res, err = db.NewUpdate().Model(item.entity).WherePK().Exec(ctx)
	case Deleted:
		res, err = db.NewDelete().Model(item.entity).WherePK().Exec(ctx)
	default:
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 && item.state != Added {
		return 0, fmt.Errorf("%w: %s %T id=%d", ErrConcurrencyConflict, item.state, item.entity, item.entity.GetID())
	}
	return n, nil
}

func errorKind(err error) string {
	if errors.Is(err, ErrConcurrencyConflict) {
		return "concurrency_conflict"
	}
	_, kind := database.IsSqlError(err)
	return kind.String()
}

// CommitAsync runs Commit in the background.
func (u *UnitOfWork) CommitAsync(ctx context.Context) *types.Future[int64] {
	return types.Go(ctx, u.Commit)
}

// BeginTransaction opens an explicit transaction on the unit of work's
// connection. Until it completes, Commit and the raw SQL helpers run inside
// it. Only one explicit transaction may be open at a time.
func (u *UnitOfWork) BeginTransaction(ctx context.Context, opts *sql.TxOptions) (*Transaction, error) {
	u.connMu.Lock()
	defer u.connMu.Unlock()

	u.mu.Lock()
	switch {
	case u.closed:
		u.mu.Unlock()
		return nil, ErrClosed
	case u.tx != nil:
		u.mu.Unlock()
		return nil, ErrTransactionInProgress
	}
	u.mu.Unlock()

	tx, err := u.conn.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	t := &Transaction{u: u, tx: tx}
	u.mu.Lock()
	u.tx = t
	u.mu.Unlock()
	return t, nil
}

func (u *UnitOfWork) endTransaction(t *Transaction) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.tx == t {
		u.tx = nil
	}
}

// InTransaction reports whether an explicit transaction is open.
func (u *UnitOfWork) InTransaction() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tx != nil
}

// Close rolls back an open transaction, drops pending changes and returns
// the connection to the pool. Only the first call does any work.
func (u *UnitOfWork) Close() error {
	u.closeOnce.Do(func() {
		u.connMu.Lock()
		defer u.connMu.Unlock()

		u.mu.Lock()
		u.closed = true
		tx := u.tx
		u.tx = nil
		u.sets = nil
		u.mu.Unlock()

		if tx != nil {
			tx.release()
		}
		u.tracker.reset()
		u.closeErr = u.conn.Close()
		u.logger.Debug("Unit of work closed", "key", u.key)
	})
	return u.closeErr
}

func (u *UnitOfWork) Closed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.closed
}
