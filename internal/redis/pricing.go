package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"dispatch/internal/domain"
)

// Pricing configuration changes rarely but is read on every estimate,
// so it gets a short-TTL cache in front of Postgres.
const (
	fareConfigKey   = "dispatch:cache:fare_config"
	peakHourKey     = "dispatch:cache:peak_hour"
	pricingCacheTTL = time.Minute
)

// PricingCache caches the fare table and peak-hour configuration.
type PricingCache struct {
	client *redis.Client
}

// NewPricingCache creates a new PricingCache.
func NewPricingCache(client *redis.Client) *PricingCache {
	return &PricingCache{client: client}
}

// GetFareConfig retrieves the cached fare table, or nil on a miss.
func (c *PricingCache) GetFareConfig(ctx context.Context) (*domain.FareConfig, error) {
	data, err := c.client.Get(ctx, fareConfigKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var cfg domain.FareConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetFareConfig caches the fare table.
func (c *PricingCache) SetFareConfig(ctx context.Context, cfg *domain.FareConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, fareConfigKey, data, pricingCacheTTL).Err()
}

// GetPeakHour retrieves the cached peak-hour config, or nil on a miss.
func (c *PricingCache) GetPeakHour(ctx context.Context) (*domain.PeakHour, error) {
	data, err := c.client.Get(ctx, peakHourKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var peak domain.PeakHour
	if err := json.Unmarshal(data, &peak); err != nil {
		return nil, err
	}
	return &peak, nil
}

// SetPeakHour caches the peak-hour config.
func (c *PricingCache) SetPeakHour(ctx context.Context, peak *domain.PeakHour) error {
	data, err := json.Marshal(peak)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, peakHourKey, data, pricingCacheTTL).Err()
}
