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

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRequestOffset(t *testing.T) {
	cases := []struct {
		page, size, offset int
	}{
		{0, 10, 0},
		{1, 10, 0},
		{-3, 10, 0},
		{2, 10, 10},
		{3, 25, 50},
		{2, -1, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.offset, NewPageRequest(c.page, c.size).GetOffset(), "page=%d size=%d", c.page, c.size)
	}
}

func TestPageRequestDefaults(t *testing.T) {
	req := NewPageRequest(1, 5)
	assert.True(t, req.IsAscending())
	assert.Empty(t, req.GetOrderBy())
	assert.Nil(t, req.GetFilter())

	req.OrderBy("name", false).WithFilter(NewQueryFilter("age > ?", 3))
	assert.False(t, req.IsAscending())
	assert.Equal(t, "name", req.GetOrderBy())
	assert.Equal(t, []interface{}{3}, req.GetFilter().Args)
}

func TestPaginationPages(t *testing.T) {
	p := NewDefaultPagination[struct{}](1, 10)
	assert.Equal(t, 0, p.Pages())
	p.Total = 21
	assert.Equal(t, 3, p.Pages())
	p.PageSize = 0
	assert.Equal(t, 0, p.Pages())
}

type color int

const (
	red color = iota
	green
	blue
)

var colors = NewEnumSet(
	EnumMember[color]{Value: red, Name: "Red", Desc: "the color red"},
	EnumMember[color]{Value: green, Name: "Green", Display: "Verde"},
	EnumMember[color]{Value: blue, Name: "Blue"},
)

func TestEnumSetParse(t *testing.T) {
	v, err := colors.Parse("green")
	require.NoError(t, err)
	assert.Equal(t, green, v)

	_, err = colors.ParseExact("green")
	assert.Error(t, err)
	v, err = colors.ParseExact("Green")
	require.NoError(t, err)
	assert.Equal(t, green, v)

	v, ok := colors.TryParse("purple")
	assert.False(t, ok)
	assert.Equal(t, color(IllegalValue), v)

	assert.Panics(t, func() { colors.MustParse("purple") })
}

func TestEnumSetLookups(t *testing.T) {
	assert.Equal(t, []color{red, green, blue}, colors.Values())
	assert.Equal(t, []string{"Red", "Green", "Blue"}, colors.Names())
	assert.Equal(t, []string{"Red", "Verde", "Blue"}, colors.DisplayNames())
	assert.Equal(t, "the color red", colors.Desc(red))
	assert.Equal(t, "Verde", colors.Desc(green))
	assert.True(t, colors.IsValid(blue))
	assert.False(t, colors.IsValid(color(9)))
	assert.Equal(t, IllegalName, colors.Name(color(9)))
	assert.Equal(t, IllegalDesc, colors.Desc(color(9)))
}

func TestEnumSetRejectsMalformedDeclarations(t *testing.T) {
	assert.Panics(t, func() { NewEnumSet[color]() })
	assert.Panics(t, func() {
		NewEnumSet(EnumMember[color]{Value: red, Name: "Red"}, EnumMember[color]{Value: green, Name: "red"})
	})
	assert.Panics(t, func() {
		NewEnumSet(EnumMember[color]{Value: red, Name: "Red"}, EnumMember[color]{Value: red, Name: "Crimson"})
	})
	assert.Panics(t, func() { NewEnumSet(EnumMember[color]{Value: red}) })
}

func TestFutureResolves(t *testing.T) {
	f := Go(context.Background(), func(ctx context.Context) (int, error) { return 42, nil })
	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	// a resolved future can be read again
	v, err = f.Wait()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestFutureError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Completed(0, boom).Await(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestFutureAwaitCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	f := Go(context.Background(), func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFuturePassesContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := Go(ctx, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	cancel()
	_, err := f.Wait()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJSONColumn(t *testing.T) {
	type tags struct {
		Items []string `json:"items"`
	}
	j := NewJSON(tags{Items: []string{"a", "b"}})
	v, err := j.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"items":["a","b"]}`, v)

	var out JSON[tags]
	require.NoError(t, out.Scan([]byte(`{"items":["x"]}`)))
	assert.Equal(t, []string{"x"}, out.V.Items)
	require.NoError(t, out.Scan(`{"items":["y"]}`))
	assert.Equal(t, []string{"y"}, out.V.Items)
	require.NoError(t, out.Scan(nil))
	assert.Nil(t, out.V.Items)
	assert.Error(t, out.Scan(12))
}

func TestDates(t *testing.T) {
	assert.False(t, HasDate(nil))
	assert.False(t, HasDate(&time.Time{}))
	assert.Equal(t, "", FormatDate(&time.Time{}))

	d := time.Date(2024, time.September, 1, 15, 4, 0, 0, time.UTC)
	assert.True(t, HasDate(&d))
	assert.Equal(t, "01-09-2024", FormatDate(&d))

	parsed, err := ParseDate(" 01-09-2024 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC), parsed)

	zero, err := ParseDate("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = ParseDate("2024-09-01")
	assert.Error(t, err)
}
