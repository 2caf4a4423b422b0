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

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/unitwork/database"
	"github.com/tomoncle/unitwork/models"
	"github.com/tomoncle/unitwork/uow"
)

func newRegistry(t *testing.T) *uow.Registry {
	t.Helper()
	models.Register()
	cfg := database.DefaultConnectionConfig()
	cfg.DBName = filepath.Join(t.TempDir(), "middleware.db")
	cfg.HealthCheckInterval = 0

	dm, err := database.OpenWithOptions(context.Background(), cfg, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Disconnect() })

	reg := uow.NewRegistry(dm.GetDB())
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

func TestUnitOfWorkPerRequest(t *testing.T) {
	reg := newRegistry(t)

	var seen []*uow.UnitOfWork
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(UnitOfWork(reg))
	r.Use(Logger)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		first, err := uow.Current(r.Context())
		require.NoError(t, err)
		second, err := uow.Current(r.Context())
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.Equal(t, chimiddleware.GetReqID(r.Context()), first.Key())
		assert.Equal(t, 1, reg.Len())
		seen = append(seen, first)
		w.WriteHeader(http.StatusNoContent)
	})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	require.Len(t, seen, 2)
	assert.NotSame(t, seen[0], seen[1])
	assert.True(t, seen[0].Closed())
	assert.True(t, seen[1].Closed())
	assert.Zero(t, reg.Len())
}

func TestUnitOfWorkWithoutRequestID(t *testing.T) {
	reg := newRegistry(t)

	var key string
	handler := UnitOfWork(reg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := uow.Current(r.Context())
		require.NoError(t, err)
		key = u.Key()
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, key, 36)
	assert.Zero(t, reg.Len())
}

func TestUnitOfWorkReleasedOnPanic(t *testing.T) {
	reg := newRegistry(t)

	var unit *uow.UnitOfWork
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(UnitOfWork(reg))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		u, err := uow.Current(r.Context())
		require.NoError(t, err)
		unit = u
		panic("handler failed")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, unit)
	assert.True(t, unit.Closed())
	assert.Zero(t, reg.Len())
}

func TestUnitOfWorkNotCreatedWhenUnused(t *testing.T) {
	reg := newRegistry(t)
	handler := UnitOfWork(reg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := uow.ScopeFrom(r.Context())
		assert.True(t, ok)
		assert.Zero(t, reg.Len())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Zero(t, reg.Len())
}
