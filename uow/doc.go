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

// Package uow implements the unit of work: a per-request pending-change
// table flushed to the store in one transaction, typed entity sets over the
// tables, an explicit transaction handle, raw SQL access and the registry
// that binds one unit of work to one correlation key.
//
// A unit of work is not shared between requests. Within one request the
// pending-change table may be used from the caller's goroutine and from
// futures returned by the asynchronous operations.
package uow
