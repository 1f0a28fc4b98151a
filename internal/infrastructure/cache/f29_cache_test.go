package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/infrastructure/cache"
)

func newCache(t *testing.T, ttl time.Duration) (*cache.F29Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewF29Cache(client, ttl), mr
}

func TestF29Cache_GuardaYRecupera(t *testing.T) {
	c, _ := newCache(t, 0)
	ctx := context.Background()

	tp := &entity.TaxPeriod{
		CompanyID:     "empresa-1",
		Period:        "2024-03",
		VentasAfectas: decimal.NewFromInt(100000),
		IvaVentas:     decimal.NewFromInt(19000),
		IvaCompras:    decimal.NewFromInt(4000),
		IvaResultante: decimal.NewFromInt(15000),
		DocumentCount: 2,
		ComputedAt:    time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, c.Set(ctx, tp))

	got, err := c.Get(ctx, "empresa-1", "2024-03")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IvaResultante.Equal(decimal.NewFromInt(15000)))
	assert.Equal(t, 2, got.DocumentCount)
	assert.True(t, got.ComputedAt.Equal(tp.ComputedAt))
}

func TestF29Cache_SinInstantanea(t *testing.T) {
	c, _ := newCache(t, 0)
	got, err := c.Get(context.Background(), "empresa-1", "2024-03")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestF29Cache_Expira(t *testing.T) {
	c, mr := newCache(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, &entity.TaxPeriod{CompanyID: "e", Period: "2024-01"}))

	mr.FastForward(2 * time.Minute)
	got, err := c.Get(ctx, "e", "2024-01")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestF29Cache_RedisCaido(t *testing.T) {
	c, mr := newCache(t, 0)
	mr.Close()
	_, err := c.Get(context.Background(), "e", "2024-01")
	assert.Error(t, err)
	assert.Error(t, c.Ping(context.Background()))
}
