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
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/unitwork/database"
	"github.com/tomoncle/unitwork/models"
	"github.com/uptrace/bun"
)

func openDB(t *testing.T) *bun.DB {
	t.Helper()
	models.Register()
	cfg := database.DefaultConnectionConfig()
	cfg.DBName = filepath.Join(t.TempDir(), "uow.db")
	cfg.HealthCheckInterval = 0
	cfg.SlowQueryTime = 0

	manager, err := database.OpenWithOptions(context.Background(), cfg, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Disconnect() })
	return manager.GetDB()
}

func newUnit(t *testing.T, db *bun.DB) *UnitOfWork {
	t.Helper()
	u, err := New(context.Background(), db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = u.Close() })
	return u
}

func countStudents(t *testing.T, db *bun.DB) int {
	t.Helper()
	n, err := db.NewSelect().Model((*models.Student)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestSetIsCachedPerType(t *testing.T) {
	u := newUnit(t, openDB(t))

	students := Set[models.Student](u)
	assert.Same(t, students, Set[models.Student](u))
	assert.Same(t, u, students.UnitOfWork())

	users := Set[models.User](u)
	assert.Same(t, users, Set[models.User](u))
}

func TestCommitFlushesAllStates(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	u := newUnit(t, db)

	ann := &models.Student{Name: "Ann", Age: 20, Status: models.StudentEnrolled}
	bob := &models.Student{Name: "Bob", Age: 21, Status: models.StudentEnrolled}
	require.NoError(t, u.MarkAdded(ann))
	require.NoError(t, u.MarkAdded(bob))
	require.NoError(t, u.MarkAdded(&models.User{UserName: "admin"}))

	n, err := u.Commit(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NotZero(t, ann.ID)
	assert.NotZero(t, bob.ID)
	assert.Zero(t, u.Pending())

	changed := &models.Student{Name: "Ann Lee", Age: 22, Status: models.StudentGraduated}
	changed.ID = ann.ID
	require.NoError(t, u.SetModified(changed))
	require.NoError(t, u.MarkDeleted(bob))

	n, err = u.Commit(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	students := Set[models.Student](u)
	got, err := students.Find(ctx, ann.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ann Lee", got.Name)
	assert.Equal(t, models.StudentGraduated, got.Status)

	gone, err := students.Find(ctx, bob.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.Equal(t, 1, countStudents(t, db))
}

func TestCommitWithoutChanges(t *testing.T) {
	u := newUnit(t, openDB(t))
	n, err := u.Commit(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSetModifiedOverwritesState(t *testing.T) {
	u := newUnit(t, openDB(t))

	s := &models.Student{Name: "Ann"}
	require.NoError(t, u.MarkAdded(s))
	require.NoError(t, u.SetModified(s))
	state, ok := u.StateOf(s)
	require.True(t, ok)
	assert.Equal(t, Modified, state)
	assert.Equal(t, 1, u.Pending())

	first := &models.Student{Name: "first"}
	first.ID = 7
	second := &models.Student{Name: "second"}
	second.ID = 7
	require.NoError(t, u.SetModified(first))
	require.NoError(t, u.MarkDeleted(second))

	entries := u.Entries()
	require.Len(t, entries, 2)
	assert.Same(t, s, entries[0].Entity)
	assert.Same(t, second, entries[1].Entity)
	assert.Equal(t, Deleted, entries[1].State)

	state, ok = u.StateOf(first)
	require.True(t, ok, "same row is tracked once")
	assert.Equal(t, Deleted, state)
}

func TestDeletePendingAddDropsEntry(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	u := newUnit(t, db)

	s := &models.Student{Name: "Ann"}
	require.NoError(t, u.MarkAdded(s))
	require.NoError(t, u.MarkDeleted(s))
	assert.Zero(t, u.Pending())

	require.NoError(t, u.MarkDeleted(&models.Student{Name: "never stored"}))
	require.NoError(t, u.MarkDeleted(nil))
	assert.Zero(t, u.Pending())

	n, err := u.Commit(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, countStudents(t, db))
}

func TestCommitConflictKeepsEntries(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	u := newUnit(t, db)

	added := &models.Student{Name: "Ann"}
	missing := &models.Student{Name: "Ghost"}
	missing.ID = 999
	require.NoError(t, u.MarkAdded(added))
	require.NoError(t, u.SetModified(missing))

	_, err := u.Commit(ctx)
	require.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.Equal(t, 2, u.Pending())
	assert.Zero(t, added.ID, "generated id is reset")
	assert.Zero(t, countStudents(t, db), "insert rolled back")

	require.NoError(t, u.MarkDeleted(missing))
	_, err = u.Commit(ctx)
	require.ErrorIs(t, err, ErrConcurrencyConflict)

	u.Discard()
	assert.Zero(t, u.Pending())
}

func TestCommitReturnsStoreError(t *testing.T) {
	ctx := context.Background()
	u := newUnit(t, openDB(t))

	require.NoError(t, u.MarkAdded(&models.User{UserName: "dup"}))
	require.NoError(t, u.MarkAdded(&models.User{UserName: "dup"}))

	_, err := u.Commit(ctx)
	require.Error(t, err)
	is, kind := database.IsSqlError(err)
	assert.True(t, is)
	assert.Equal(t, database.DuplicateKeyErr, kind)
	assert.Equal(t, 2, u.Pending())
}

func TestCommitAsync(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	u := newUnit(t, db)

	require.NoError(t, u.MarkAdded(&models.Student{Name: "Ann"}))
	n, err := u.CommitAsync(ctx).Await(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, 1, countStudents(t, db))
}

func TestExplicitTransaction(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	u := newUnit(t, db)

	tx, err := u.BeginTransaction(ctx, nil)
	require.NoError(t, err)
	defer func() { _ = tx.Close() }()

	_, err = u.BeginTransaction(ctx, nil)
	assert.ErrorIs(t, err, ErrTransactionInProgress)
	assert.True(t, u.InTransaction())

	require.NoError(t, u.MarkAdded(&models.Student{Name: "rolled back"}))
	n, err := u.Commit(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	query, err := Set[models.Student](u).Query()
	require.NoError(t, err)
	inside, err := query.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, inside)

	require.NoError(t, tx.Rollback())
	assert.False(t, u.InTransaction())
	assert.Zero(t, countStudents(t, db))
	assert.ErrorIs(t, tx.Commit(), sql.ErrTxDone)
	assert.NoError(t, tx.Close())

	tx, err = u.BeginTransaction(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, u.MarkAdded(&models.Student{Name: "kept"}))
	_, err = u.Commit(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, tx.Close())
	assert.Equal(t, 1, countStudents(t, db))
}

func TestRawSQL(t *testing.T) {
	ctx := context.Background()
	u := newUnit(t, openDB(t))

	n, err := u.ExecuteCommand(ctx, "INSERT INTO student (name, age, status) VALUES (?, ?, ?)", "Ann", 20, models.StudentEnrolled)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = u.ExecuteCommandAsync(ctx, "INSERT INTO student (name, age, status) VALUES (?, ?, ?)", "O'Brien", 30, models.StudentSuspended).Wait()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	students, err := ExecuteQuery[models.Student](ctx, u, "SELECT * FROM student WHERE name = ?", "O'Brien")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, 30, students[0].Age)
	assert.Equal(t, models.StudentSuspended, students[0].Status)

	counts, err := ExecuteQueryAsync[int](ctx, u, "SELECT count(*) FROM student").Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, counts)

	none, err := ExecuteQuery[models.Student](ctx, u, "SELECT * FROM student WHERE age > ?", 100)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = u.ExecuteCommand(ctx, "UPDATE missing_table SET x = 1")
	assert.Error(t, err)
}

func TestCloseReleasesOnce(t *testing.T) {
	ctx := context.Background()
	u, err := New(ctx, openDB(t))
	require.NoError(t, err)
	students := Set[models.Student](u)

	tx, err := u.BeginTransaction(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, u.MarkAdded(&models.Student{Name: "Ann"}))

	require.NoError(t, u.Close())
	require.NoError(t, u.Close())
	assert.True(t, u.Closed())
	assert.True(t, tx.Done())
	assert.Zero(t, u.Pending())

	_, err = u.Commit(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, u.MarkAdded(&models.Student{}), ErrClosed)
	_, err = u.BeginTransaction(ctx, nil)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = students.Query()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = students.Find(ctx, 1)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = u.ExecuteCommand(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestApplyCurrentValues(t *testing.T) {
	u := newUnit(t, openDB(t))

	original := &models.Student{Name: "Ann", Age: 20}
	original.ID = 3
	require.NoError(t, u.SetModified(original))

	current := &models.Student{Name: "Ann Lee", Age: 21, Email: "ann@example.com"}
	current.ID = 42
	ApplyCurrentValues(original, current)

	assert.EqualValues(t, 3, original.ID)
	assert.Equal(t, "Ann Lee", original.Name)
	assert.Equal(t, 21, original.Age)
	assert.Equal(t, "ann@example.com", original.Email)
	state, ok := u.StateOf(original)
	require.True(t, ok)
	assert.Equal(t, Modified, state)
}

func TestRegistryScopes(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	reg := NewRegistry(db)
	t.Cleanup(func() { _ = reg.Close() })

	a := reg.Scope("request-a")
	b := reg.Scope("request-b")
	assert.Zero(t, reg.Len(), "scopes are lazy")

	ua, err := a.UnitOfWork(ctx)
	require.NoError(t, err)
	again, err := reg.Scope("request-a").UnitOfWork(ctx)
	require.NoError(t, err)
	assert.Same(t, ua, again)
	assert.Equal(t, "request-a", ua.Key())

	ub, err := b.UnitOfWork(ctx)
	require.NoError(t, err)
	assert.NotSame(t, ua, ub)
	assert.Equal(t, 2, reg.Len())

	require.NoError(t, ua.MarkAdded(&models.Student{Name: "only in a"}))
	assert.Zero(t, ub.Pending())

	require.NoError(t, a.Close())
	assert.True(t, ua.Closed())
	assert.Equal(t, 1, reg.Len())
	require.NoError(t, a.Close())
	require.NoError(t, reg.Scope("never-used").Close())

	_, err = a.UnitOfWork(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.True(t, a.Closed())

	fresh, err := reg.Scope("request-a").UnitOfWork(ctx)
	require.NoError(t, err)
	assert.NotSame(t, ua, fresh)
	assert.Zero(t, fresh.Pending())

	require.NoError(t, reg.Close())
	assert.Zero(t, reg.Len())
	assert.True(t, ub.Closed())
	assert.True(t, fresh.Closed())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(openDB(t))
	t.Cleanup(func() { _ = reg.Close() })

	const workers = 8
	units := make([]*UnitOfWork, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := reg.Scope("shared").UnitOfWork(ctx)
			assert.NoError(t, err)
			units[i] = u
		}(i)
	}
	wg.Wait()

	for _, u := range units {
		assert.Same(t, units[0], u)
	}
	assert.Equal(t, 1, reg.Len())
}

func TestCurrent(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	_, err := Current(ctx)
	assert.ErrorIs(t, err, ErrNoUnitOfWork)

	u := newUnit(t, db)
	got, err := Current(WithUnitOfWork(ctx, u))
	require.NoError(t, err)
	assert.Same(t, u, got)

	reg := NewRegistry(db)
	t.Cleanup(func() { _ = reg.Close() })
	scope := reg.Scope("req")
	scoped := WithScope(ctx, scope)
	s, ok := ScopeFrom(scoped)
	require.True(t, ok)
	assert.Same(t, scope, s)

	first, err := Current(scoped)
	require.NoError(t, err)
	second, err := Current(scoped)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, reg.Len())
}

func TestFailedCommitInsideTransactionWritesNothing(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	u := newUnit(t, db)

	tx, err := u.BeginTransaction(ctx, nil)
	require.NoError(t, err)
	defer func() { _ = tx.Close() }()

	ann := &models.Student{Name: "Ann", Status: models.StudentEnrolled}
	ghost := &models.Student{Name: "ghost", Status: models.StudentEnrolled}
	ghost.ID = 9999
	require.NoError(t, u.MarkAdded(ann))
	require.NoError(t, u.SetModified(ghost))
	_, err = u.Commit(ctx)
	require.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.Zero(t, ann.ID)

	students, err := ExecuteQuery[models.Student](ctx, u, "SELECT * FROM student")
	require.NoError(t, err)
	assert.Empty(t, students, "the failed flush left no rows in the transaction")

	u.Discard()
	require.NoError(t, u.MarkAdded(ann))
	require.NoError(t, u.MarkAdded(&models.Student{Name: "Bob", Status: models.StudentEnrolled}))
	n, err := u.Commit(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	require.NoError(t, tx.Commit())

	assert.Equal(t, 2, countStudents(t, db))
}

func TestClosedScopeStaysClosed(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(openDB(t))
	t.Cleanup(func() { _ = reg.Close() })

	scope := reg.Scope("request")
	scoped := WithScope(ctx, scope)
	u, err := Current(scoped)
	require.NoError(t, err)
	_, err = Set[models.Student](u).Find(scoped, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())

	require.NoError(t, scope.Close())
	assert.Zero(t, reg.Len())
	assert.True(t, u.Closed())

	_, err = Current(scoped)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Zero(t, reg.Len(), "nothing is recreated after teardown")
	require.NoError(t, scope.Close())
}

func TestRegistryReservesOneConnectionPerKey(t *testing.T) {
	db := openDB(t)
	db.SetMaxOpenConns(1)
	reg := NewRegistry(db)
	t.Cleanup(func() { _ = reg.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const workers = 8
	units := make([]*UnitOfWork, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := reg.Scope("request").UnitOfWork(ctx)
			assert.NoError(t, err)
			units[i] = u
		}(i)
	}
	wg.Wait()

	require.NotNil(t, units[0])
	for _, u := range units {
		assert.Same(t, units[0], u)
	}
	require.NoError(t, reg.Close())
	assert.Equal(t, 0, db.Stats().InUse)
}

func TestConcurrentCallsShareOneConnection(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	db.SetMaxOpenConns(1)
	u, err := New(ctx, db)
	require.NoError(t, err)

	const writers = 5
	for i := 0; i < writers; i++ {
		require.NoError(t, u.MarkAdded(&models.Student{Name: fmt.Sprintf("s%d", i), Status: models.StudentEnrolled}))
	}
	commit := u.CommitAsync(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := ExecuteQueryAsync[models.Student](ctx, u, "SELECT * FROM student").Await(ctx)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			var n int
			err := Set[models.Student](u).Select(ctx, func(ctx context.Context, q *bun.SelectQuery) error {
				var err error
				n, err = q.Count(ctx)
				return err
			})
			assert.NoError(t, err)
			assert.True(t, n == 0 || n == writers, "reads see the commit entirely or not at all, saw %d", n)
		}()
	}
	wg.Wait()

	rows, err := commit.Await(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, writers, rows)
	require.NoError(t, u.Close())
	assert.Equal(t, writers, countStudents(t, db))
}

func TestTransactionCloseRacingCommit(t *testing.T) {
	ctx := context.Background()
	u := newUnit(t, openDB(t))

	for i := 0; i < 20; i++ {
		tx, err := u.BeginTransaction(ctx, nil)
		require.NoError(t, err)

		var wg sync.WaitGroup
		var commitErr, closeErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			commitErr = tx.Commit()
		}()
		go func() {
			defer wg.Done()
			closeErr = tx.Close()
		}()
		wg.Wait()

		assert.NoError(t, closeErr)
		if commitErr != nil {
			assert.ErrorIs(t, commitErr, sql.ErrTxDone)
		}
		assert.True(t, tx.Done())
		assert.False(t, u.InTransaction())
	}
}

func TestErrorKind(t *testing.T) {
	conflict := fmt.Errorf("%w: Modified *models.Student id=9", ErrConcurrencyConflict)
	assert.Equal(t, "concurrency_conflict", errorKind(conflict))
	assert.Equal(t, "duplicate_key", errorKind(errors.New("UNIQUE constraint failed: user.user_name")))
	assert.Equal(t, "unknown", errorKind(errors.New("boom")))
}
