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
	"errors"
	"sync"

	"github.com/tomoncle/unitwork/database"
	"github.com/uptrace/bun"
)

// Registry maps correlation keys to their unit of work. There is at most one
// unit of work per key, created on first use and released by Scope.Close.
type Registry struct {
	db     *bun.DB
	logger database.Logger
	opts   []Option

	mu    sync.Mutex
	units map[string]*slot
}

// slot holds the unit of work of one key. ready is closed once creation
// finished, unit and err are set before that.
type slot struct {
	ready chan struct{}
	unit  *UnitOfWork
	err   error
}

func (s *slot) wait() {
	<-s.ready
}

// NewRegistry returns a registry creating units of work on db with opts.
func NewRegistry(db *bun.DB, opts ...Option) *Registry {
	return &Registry{
		db:     db,
		logger: database.GetLogger(),
		opts:   opts,
		units:  make(map[string]*slot),
	}
}

// Scope returns the handle for key. It does not create anything.
func (r *Registry) Scope(key string) *Scope {
	return &Scope{registry: r, key: key}
}

// get returns the unit of work of key. Only the first caller for a key
// reserves a connection; concurrent callers wait for its result.
func (r *Registry) get(ctx context.Context, key string) (*UnitOfWork, error) {
	r.mu.Lock()
	s, ok := r.units[key]
	if !ok {
		s = &slot{ready: make(chan struct{})}
		r.units[key] = s
	}
	r.mu.Unlock()

	if ok {
		select {
		case <-s.ready:
			return s.unit, s.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	opts := append(append([]Option(nil), r.opts...), WithKey(key))
	s.unit, s.err = New(ctx, r.db, opts...)
	close(s.ready)
	if s.err != nil {
		r.mu.Lock()
		if r.units[key] == s {
			delete(r.units, key)
		}
		r.mu.Unlock()
	}
	return s.unit, s.err
}

func (r *Registry) release(key string) error {
	r.mu.Lock()
	s, ok := r.units[key]
	delete(r.units, key)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	s.wait()
	if s.unit == nil {
		return nil
	}
	return s.unit.Close()
}

// Len is the number of live units of work.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.units)
}

// Close releases every outstanding unit of work.
func (r *Registry) Close() error {
	r.mu.Lock()
	units := r.units
	r.units = make(map[string]*slot)
	r.mu.Unlock()

	var errs []error
	for key, s := range units {
		s.wait()
		if s.unit == nil {
			continue
		}
		if err := s.unit.Close(); err != nil {
			errs = append(errs, err)
			r.logger.Warn("Failed to close unit of work", "key", key, "error", err)
		}
	}
	return errors.Join(errs...)
}

// Scope is the unit of work slot of one request. Once closed it hands out
// ErrClosed, so work that outlives the request cannot reopen its key.
type Scope struct {
	registry *Registry
	key      string

	mu     sync.RWMutex
	closed bool
}

func (s *Scope) Key() string {
	return s.key
}

// UnitOfWork returns the scope's unit of work, creating it on first call.
func (s *Scope) UnitOfWork(ctx context.Context) (*UnitOfWork, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.registry.get(ctx, s.key)
}

// Close releases the scope's unit of work, waiting for one being created.
// It is a no-op when none was created or the scope is already closed.
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.registry.release(s.key)
}

// Closed reports whether Close was called.
func (s *Scope) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

type scopeContextKey struct{}

type unitContextKey struct{}

// WithScope returns a context carrying scope.
func WithScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// WithUnitOfWork returns a context carrying u directly, for work outside a
// request such as CLI commands and tests.
func WithUnitOfWork(ctx context.Context, u *UnitOfWork) context.Context {
	return context.WithValue(ctx, unitContextKey{}, u)
}

func ScopeFrom(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeContextKey{}).(*Scope)
	return s, ok && s != nil
}

// Current resolves the unit of work for ctx: one set with WithUnitOfWork,
// otherwise the one of the scope set with WithScope.
func Current(ctx context.Context) (*UnitOfWork, error) {
	if u, ok := ctx.Value(unitContextKey{}).(*UnitOfWork); ok && u != nil {
		return u, nil
	}
	if s, ok := ScopeFrom(ctx); ok {
		return s.UnitOfWork(ctx)
	}
	return nil, ErrNoUnitOfWork
}
