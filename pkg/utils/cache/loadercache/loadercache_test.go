package loadercache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kartrace/kartrace-go/pkg/utils/cache"
)

func TestGetLoadsOnce(t *testing.T) {
	calls := 0
	c := New(WithLoader(func(_ context.Context, key string) (*int, error) {
		calls++
		v := len(key)
		return &v, nil
	}))
	ctx := context.Background()
	v, err := c.Get(ctx, "abc")
	assert.NoError(t, err)
	assert.Equal(t, 3, *v)
	_, _ = c.Get(ctx, "abc")
	assert.Equal(t, 1, calls)

	c.Invalidate(ctx, "abc")
	_, _ = c.Get(ctx, "abc")
	assert.Equal(t, 2, calls)
}

func TestExpiration(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	c := New(
		WithExpiration[string, int](time.Minute),
		withClock[string, int](func() time.Time { return now }),
		WithLoader(func(_ context.Context, _ string) (*int, error) {
			calls++
			return &calls, nil
		}),
	)
	ctx := context.Background()
	_, _ = c.Get(ctx, "k")
	now = now.Add(30 * time.Second)
	_, _ = c.Get(ctx, "k")
	assert.Equal(t, 1, calls)
	now = now.Add(time.Minute)
	_, _ = c.Get(ctx, "k")
	assert.Equal(t, 2, calls)
}

func TestMissWithoutLoader(t *testing.T) {
	c := New[string, int]()
	_, err := c.Get(context.Background(), "x")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	v := 7
	c.Set(context.Background(), "x", &v)
	got, err := c.Get(context.Background(), "x")
	assert.NoError(t, err)
	assert.Equal(t, 7, *got)
	assert.Equal(t, 1, c.Len())
}

func TestLoaderError(t *testing.T) {
	errBoom := errors.New("boom")
	c := New(WithLoader(func(_ context.Context, _ string) (*int, error) {
		return nil, errBoom
	}))
	_, err := c.Get(context.Background(), "x")
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 0, c.Len())
}
