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

import "errors"

var (
	ErrNoUnitOfWork          = errors.New("no unit of work in context")
	ErrClosed                = errors.New("unit of work is closed")
	ErrTransactionInProgress = errors.New("transaction already in progress")
	// ErrConcurrencyConflict is returned by Commit when an update or delete
	// matched no row. It is wrapped with the entity type and id.
	ErrConcurrencyConflict = errors.New("concurrency conflict: no row affected")
)
