package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/zoff-tech/go-shop-saga/pkg/config"
)

const (
	cacheKey        = "catalog:products"
	defaultCacheTTL = 5 * time.Minute
)

// Product is one entry of the shop's price list.
type Product struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// SeedProducts is the static price list used when no cached copy exists.
func SeedProducts() []Product {
	return []Product{
		{Name: "Phone", Price: decimal.NewFromInt(500)},
		{Name: "Laptop", Price: decimal.NewFromInt(1500)},
	}
}

// Client serves the price list from a redis cache with a TTL, falling back
// to the seed list when the cache misses or redis is unavailable.
type Client struct {
	redis    *redis.Client
	cacheTTL time.Duration
}

func NewClient(settings config.CatalogSettings) (*Client, error) {
	ttl := settings.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	c := &Client{cacheTTL: ttl}
	if settings.RedisURL != "" {
		opts, err := redis.ParseURL(settings.RedisURL)
		if err != nil {
			return nil, err
		}
		c.redis = redis.NewClient(opts)
	}
	return c, nil
}

// Products returns the current price list. A cache miss repopulates the
// cache from the seed list.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	if c.redis == nil {
		return SeedProducts(), nil
	}

	cached, err := c.redis.Get(ctx, cacheKey).Bytes()
	if err == nil {
		var products []Product
		if err := json.Unmarshal(cached, &products); err == nil {
			return products, nil
		}
		log.Printf("Discarding unreadable catalog cache entry")
	} else if !errors.Is(err, redis.Nil) {
		log.Printf("Catalog cache unavailable, serving seed list: %v", err)
		return SeedProducts(), nil
	}

	products := SeedProducts()
	body, err := json.Marshal(products)
	if err != nil {
		return nil, err
	}
	if err := c.redis.Set(ctx, cacheKey, body, c.cacheTTL).Err(); err != nil {
		log.Printf("Failed to cache catalog: %v", err)
	}
	return products, nil
}

// Price looks a product up by name.
func (c *Client) Price(ctx context.Context, name string) (decimal.Decimal, bool, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return decimal.Zero, false, err
	}
	for _, p := range products {
		if p.Name == name {
			return p.Price, true, nil
		}
	}
	return decimal.Zero, false, nil
}

func (c *Client) Close() error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Close()
}
