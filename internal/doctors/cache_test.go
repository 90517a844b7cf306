package doctors

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCacheRoundTrip(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	d := &Doctor{ID: uuid.New(), FirstName: "Asha", LastName: "Rao", FeeOnline: decimal.RequireFromString("500"), AverageRating: decimal.RequireFromString("4.5"), TotalReviews: 2}

	miss, err := cache.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, miss)

	stored, err := cache.Set(ctx, d, 0)
	require.NoError(t, err)
	assert.True(t, stored)
	assert.True(t, mr.Exists("doctor:"+d.ID.String()))
	assert.Equal(t, time.Minute, mr.TTL("doctor:"+d.ID.String()))

	hit, err := cache.Get(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.True(t, hit.AverageRating.Equal(d.AverageRating))
	assert.Equal(t, 2, hit.TotalReviews)

	require.NoError(t, cache.Invalidate(ctx, d.ID))
	gone, err := cache.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestNilCacheIsNoop(t *testing.T) {
	cache := NewCache(nil, time.Minute)
	assert.Nil(t, cache)
	ctx := context.Background()
	d, err := cache.Get(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, d)
	stored, err := cache.Set(ctx, &Doctor{ID: uuid.New()}, 0)
	assert.NoError(t, err)
	assert.False(t, stored)
	gen, err := cache.Generation(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Zero(t, gen)
	assert.NoError(t, cache.Invalidate(ctx, uuid.New()))
}

func TestCacheInvalidateBumpsGeneration(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	id := uuid.New()

	for want := int64(0); want < 3; want++ {
		gen, err := cache.Generation(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, gen)
		require.NoError(t, cache.Invalidate(ctx, id))
	}
	assert.Equal(t, generationTTL, mr.TTL("doctor:gen:"+id.String()))
}

func TestCacheSetDropsProfileReadBeforeInvalidate(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	stale := &Doctor{ID: uuid.New(), AverageRating: decimal.RequireFromString("3.0"), TotalReviews: 1}

	gen, err := cache.Generation(ctx, stale.ID)
	require.NoError(t, err)
	// a review commits and invalidates while the reader is still loading
	require.NoError(t, cache.Invalidate(ctx, stale.ID))

	stored, err := cache.Set(ctx, stale, gen)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists("doctor:"+stale.ID.String()))

	fresh := *stale
	fresh.AverageRating = decimal.RequireFromString("4.0")
	fresh.TotalReviews = 2
	gen, err = cache.Generation(ctx, stale.ID)
	require.NoError(t, err)
	stored, err = cache.Set(ctx, &fresh, gen)
	require.NoError(t, err)
	assert.True(t, stored)

	hit, err := cache.Get(ctx, stale.ID)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, 2, hit.TotalReviews)
}
