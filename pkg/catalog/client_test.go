package catalog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoff-tech/go-shop-saga/pkg/config"
)

func TestProducts_SeedWithoutRedis(t *testing.T) {
	c, err := NewClient(config.CatalogSettings{})
	require.NoError(t, err)

	products, err := c.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Phone", products[0].Name)
	assert.True(t, products[0].Price.Equal(decimal.NewFromInt(500)))
}

func TestProducts_CacheMissPopulatesRedis(t *testing.T) {
	srv := miniredis.RunT(t)
	c, err := NewClient(config.CatalogSettings{RedisURL: "redis://" + srv.Addr(), CacheTTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	products, err := c.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	cached, err := srv.Get(cacheKey)
	require.NoError(t, err)
	var fromCache []Product
	require.NoError(t, json.Unmarshal([]byte(cached), &fromCache))
	assert.Equal(t, "Laptop", fromCache[1].Name)
}

func TestProducts_ServesCachedCopy(t *testing.T) {
	srv := miniredis.RunT(t)
	custom, err := json.Marshal([]Product{{Name: "Tablet", Price: decimal.NewFromInt(900)}})
	require.NoError(t, err)
	require.NoError(t, srv.Set(cacheKey, string(custom)))

	c, err := NewClient(config.CatalogSettings{RedisURL: "redis://" + srv.Addr()})
	require.NoError(t, err)
	defer c.Close()

	products, err := c.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Tablet", products[0].Name)
}

func TestProducts_CacheExpiryFallsBackToSeed(t *testing.T) {
	srv := miniredis.RunT(t)
	c, err := NewClient(config.CatalogSettings{RedisURL: "redis://" + srv.Addr(), CacheTTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Products(context.Background())
	require.NoError(t, err)

	srv.FastForward(2 * time.Minute)
	products, err := c.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Phone", products[0].Name)
}

func TestProducts_RedisDownServesSeed(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	c, err := NewClient(config.CatalogSettings{RedisURL: "redis://" + addr})
	require.NoError(t, err)
	srv.Close()

	products, err := c.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
}

func TestPrice(t *testing.T) {
	c, err := NewClient(config.CatalogSettings{})
	require.NoError(t, err)

	price, ok, err := c.Price(context.Background(), "Laptop")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, price.Equal(decimal.NewFromInt(1500)))

	_, ok, err = c.Price(context.Background(), "Toaster")
	require.NoError(t, err)
	assert.False(t, ok)
}
