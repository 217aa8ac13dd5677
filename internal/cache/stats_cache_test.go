package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

func newTestCache(t *testing.T) (StatsCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewStatsCache(client, "test", time.Minute), mr
}

func TestStatsCacheRoundTripAndExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	_, generation, ok, err := cache.Get(ctx, 4)
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, generation)

	tally := models.SubmissionTally{OnTime: 2, Late: 1, Graded: 3, LateTotal: 2, MarkedCount: 3, MarksSum: 240}
	require.NoError(t, cache.Set(ctx, 4, generation, tally))
	require.True(t, mr.Exists("test:assignment:4:tally:0"))

	cached, _, ok, err := cache.Get(ctx, 4)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, tally, cached)

	mr.FastForward(2 * time.Minute)
	_, _, ok, err = cache.Get(ctx, 4)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInvalidateOrphansTallyComputedBeforeMutation(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	_, before, _, err := cache.Get(ctx, 9)
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(ctx, 9))
	require.NoError(t, cache.Set(ctx, 9, before, models.SubmissionTally{OnTime: 1}))

	_, current, ok, err := cache.Get(ctx, 9)
	require.NoError(t, err)
	require.False(t, ok, "a tally stored under an old generation must not be served")
	require.Equal(t, before+1, current)
}

func TestNilClientFallsBackToNoop(t *testing.T) {
	cache := NewStatsCache(nil, "", time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 1, 0, models.SubmissionTally{OnTime: 1}))
	_, _, ok, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, cache.Invalidate(ctx, 1))
}

func TestInvalidateReseedsCorruptedGeneration(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 5, 0, models.SubmissionTally{OnTime: 3}))
	require.NoError(t, mr.Set("test:assignment:5:gen", "not-a-number"))

	require.NoError(t, cache.Invalidate(ctx, 5))

	_, generation, ok, err := cache.Get(ctx, 5)
	require.NoError(t, err)
	require.False(t, ok)
	require.Greater(t, generation, int64(0))

	require.NoError(t, cache.Invalidate(ctx, 5))
	_, next, _, err := cache.Get(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, generation+1, next)
}

func TestInvalidateFailsWhenRedisIsDown(t *testing.T) {
	cache, mr := newTestCache(t)
	mr.Close()

	require.Error(t, cache.Invalidate(context.Background(), 5))
}
