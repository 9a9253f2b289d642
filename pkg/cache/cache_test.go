package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X int     `json:"x"`
	Y float64 `json:"y"`
}

func TestMemoryCacheSetGet(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "p", point{X: 1, Y: 2.5}, time.Minute))
	require.NoError(t, mc.Set(ctx, "s", "raw", time.Minute))

	var p point
	require.NoError(t, mc.Get(ctx, "p", &p))
	assert.Equal(t, point{X: 1, Y: 2.5}, p)

	var s string
	require.NoError(t, mc.Get(ctx, "s", &s))
	assert.Equal(t, "raw", s)

	assert.ErrorIs(t, mc.Get(ctx, "missing", &s), ErrCacheMiss)

	require.NoError(t, mc.Delete(ctx, "p", "missing"))
	assert.ErrorIs(t, mc.Get(ctx, "p", &p), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", 1, time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	var v int
	assert.ErrorIs(t, mc.Get(ctx, "k", &v), ErrCacheMiss)
	assert.Equal(t, 0, mc.Len())
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, mc.Set(ctx, "b", 2, time.Minute))

	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	require.NoError(t, mc.Set(ctx, "c", 3, time.Minute))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &v))
	assert.Equal(t, 1, v)
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	keys := []string{
		GenerateKey("series", "AAA", "2020-01-01", "2020-12-31"),
		GenerateKey("series", "AAA", "2021-01-01", "2021-12-31"),
		GenerateKey("series", "AAAB", "2020-01-01", "2020-12-31"),
	}
	for _, k := range keys {
		require.NoError(t, mc.Set(ctx, k, 1, time.Minute))
	}

	require.NoError(t, mc.DeleteByPattern(ctx, BuildPattern(GenerateKey("series", "AAA")+":")))

	assert.Equal(t, 1, mc.Len())
	var v int
	assert.NoError(t, mc.Get(ctx, keys[2], &v))
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "series:AAA:5", GenerateKey("series", "AAA", 5))
	assert.Equal(t, "runs", GenerateKey("runs"))
	assert.Equal(t, "runs*", BuildPattern("runs"))
}

func TestLayeredCache(t *testing.T) {
	ctx := context.Background()
	l2 := NewMemoryCache()
	lc := NewLayeredCache(l2, WithLayeredMemorySize(10))
	defer lc.Close()

	require.NoError(t, lc.Set(ctx, "k", point{X: 7}, time.Hour))
	require.NoError(t, lc.l1.Delete(ctx, "k"))

	var p point
	require.NoError(t, lc.Get(ctx, "k", &p))
	assert.Equal(t, 7, p.X)
	assert.Equal(t, 1, lc.l1.Len())

	require.NoError(t, lc.DeleteByPattern(ctx, "k*"))
	assert.ErrorIs(t, lc.Get(ctx, "k", &p), ErrCacheMiss)
	assert.NoError(t, lc.Ping(ctx))
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	calls := 0
	load := func(context.Context) ([]point, error) {
		calls++
		return []point{{X: 1}, {X: 2}}, nil
	}

	first, err := Fetch(ctx, mc, "pts", time.Minute, load, nil)
	require.NoError(t, err)
	second, err := Fetch(ctx, mc, "pts", time.Minute, load, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	boom := errors.New("boom")
	_, err = Fetch(ctx, mc, "other", time.Minute, func(context.Context) (int, error) { return 0, boom }, nil)
	assert.ErrorIs(t, err, boom)
}

type brokenCache struct{ *MemoryCache }

func (brokenCache) Get(context.Context, string, interface{}) error { return errors.New("down") }

func TestFetchReportsCacheErrors(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	var ops []string
	v, err := Fetch(context.Background(), brokenCache{mc}, "k", time.Minute,
		func(context.Context) (string, error) { return "loaded", nil },
		func(op string, _ error) { ops = append(ops, op) })
	require.NoError(t, err)
	assert.Equal(t, "loaded", v)
	assert.Equal(t, []string{"get"}, ops)
}
