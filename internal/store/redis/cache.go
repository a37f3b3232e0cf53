package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"statarb-systemv1/internal/model"
)

// CacheConfig configures the Redis cache.
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL for cached pair reports. Zero means no expiry.
	ReportTTL time.Duration
}

// Cache stores pair correlation reports and rate snapshots so repeated
// report runs do not refetch history for pairs already scored.
type Cache struct {
	client    *goredis.Client
	reportTTL time.Duration
}

// NewCache connects to Redis and pings the server.
func NewCache(cfg CacheConfig) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Cache{client: client, reportTTL: cfg.ReportTTL}, nil
}

// Client exposes the raw client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

func reportKey(pair string) string {
	return "pairs:report:" + pair
}

// SetReport caches a serialized pair report.
func (c *Cache) SetReport(ctx context.Context, pair string, report interface{}) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report %s: %w", pair, err)
	}
	if err := c.client.Set(ctx, reportKey(pair), data, c.reportTTL).Err(); err != nil {
		return fmt.Errorf("redis set report %s: %w", pair, err)
	}
	return nil
}

// GetReport loads a cached pair report into out. A cache miss returns
// (false, nil).
func (c *Cache) GetReport(ctx context.Context, pair string, out interface{}) (bool, error) {
	data, err := c.client.Get(ctx, reportKey(pair)).Bytes()
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get report %s: %w", pair, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("unmarshal report %s: %w", pair, err)
	}
	return true, nil
}

// SetAssetPrices caches the latest rate snapshot as a hash.
func (c *Cache) SetAssetPrices(ctx context.Context, prices map[string]float64) error {
	fields := make(map[string]interface{}, len(prices))
	for symbol, price := range prices {
		fields[symbol] = price
	}
	if err := c.client.HSet(ctx, "pairs:asset_prices", fields).Err(); err != nil {
		return fmt.Errorf("redis hset asset prices: %w", err)
	}
	return nil
}

// AssetPrices returns the cached rate snapshot. Satisfies
// model.RateSource; at is ignored, the cache only holds the present.
func (c *Cache) AssetPrices(ctx context.Context, at int64) (map[string]float64, error) {
	raw, err := c.client.HGetAll(ctx, "pairs:asset_prices").Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall asset prices: %w", err)
	}
	prices := make(map[string]float64, len(raw))
	for symbol, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("parse cached price %s=%q: %w", symbol, s, err)
		}
		prices[symbol] = v
	}
	return prices, nil
}

// PublishSignal pushes an executed signal onto a capped list for
// dashboards and ad-hoc inspection.
func (c *Cache) PublishSignal(ctx context.Context, pair string, sig *model.Signal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	pipe := c.client.Pipeline()
	pipe.LPush(ctx, "pairs:signals:"+pair, data)
	pipe.LTrim(ctx, "pairs:signals:"+pair, 0, 99)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish signal %s: %w", pair, err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}
