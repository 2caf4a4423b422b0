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

package types

import "github.com/uptrace/bun"

// QueryFilter is the opaque predicate accepted by manager reads: a WHERE
// clause with "?" placeholders and the values bound to them.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// Apply adds the filter to q. A nil filter leaves q untouched.
func (f *QueryFilter) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	if f == nil || f.Schema == "" {
		return q
	}
	return q.Where(f.Schema, f.Args...)
}

// PageRequest describes a one-indexed page, an optional filter and an
// optional single order column.
type PageRequest struct {
	page      int
	pageSize  int
	filter    *QueryFilter
	orderBy   string
	ascending bool
}

// NewPageRequest constructs a PageRequest for page and pageSize, ascending.
func NewPageRequest(page int, pageSize int) *PageRequest {
	return &PageRequest{page: page, pageSize: pageSize, ascending: true}
}

// WithFilter sets the predicate applied before ordering and paging.
func (p *PageRequest) WithFilter(filter *QueryFilter) *PageRequest {
	p.filter = filter
	return p
}

// OrderBy sets the order column and its direction.
func (p *PageRequest) OrderBy(column string, ascending bool) *PageRequest {
	p.orderBy = column
	p.ascending = ascending
	return p
}

func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		return 1
	}
	return p.page
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 0 {
		return 0
	}
	return p.pageSize
}

// GetOffset returns pageSize * max(page-1, 0); pages 0 and 1 both start at 0.
func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

func (p *PageRequest) GetFilter() *QueryFilter {
	return p.filter
}

func (p *PageRequest) GetOrderBy() string {
	return p.orderBy
}

func (p *PageRequest) IsAscending() bool {
	return p.ascending
}

// Pagination holds paged result items along with pagination metadata.
type Pagination[T any] struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Total    int  `json:"total"`
	Items    []*T `json:"items"`
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{page, pageSize, 0, make([]*T, 0)}
}

// Pages returns the number of pages needed to hold Total items.
func (p *Pagination[T]) Pages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}
