// Package cache keeps generated AI replies in memory so repeated requests
// for the same dish or location skip the provider.
package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"

	"breeze/internal/infrastructure/logging"
)

// Config sizes the cache
type Config struct {
	MaxSizeMB   int `mapstructure:"max_size_mb"`
	CounterSize int `mapstructure:"counter_size"` // keys tracked for admission
	TTLSeconds  int `mapstructure:"ttl_seconds"`
}

func DefaultConfig() Config {
	return Config{MaxSizeMB: 16, CounterSize: 10_000, TTLSeconds: 3600}
}

// Cache wraps ristretto with a fixed TTL
type Cache struct {
	client *ristretto.Cache
	ttl    time.Duration
}

// New builds a cache. A zero MaxSizeMB disables caching; every Get misses.
func New(cfg Config, logger logging.Logger) (*Cache, error) {
	if cfg.MaxSizeMB <= 0 {
		return &Cache{}, nil
	}
	if cfg.CounterSize <= 0 {
		cfg.CounterSize = DefaultConfig().CounterSize
	}

	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(cfg.CounterSize),
		MaxCost:     int64(cfg.MaxSizeMB) * 1024 * 1024,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Debug("Cache initialized",
			"max_size_mb", cfg.MaxSizeMB,
			"ttl_seconds", cfg.TTLSeconds,
			"counter_size", cfg.CounterSize)
	}
	return &Cache{client: client, ttl: time.Duration(cfg.TTLSeconds) * time.Second}, nil
}

func (c *Cache) Get(key string) (interface{}, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	return c.client.Get(key)
}

// Set stores value with cost in bytes. Admission is asynchronous; call Wait
// when a following Get must see it.
func (c *Cache) Set(key string, value interface{}, cost int64) bool {
	if c == nil || c.client == nil {
		return false
	}
	if c.ttl <= 0 {
		return c.client.Set(key, value, cost)
	}
	return c.client.SetWithTTL(key, value, cost, c.ttl)
}

func (c *Cache) Wait() {
	if c != nil && c.client != nil {
		c.client.Wait()
	}
}

func (c *Cache) Delete(key string) {
	if c != nil && c.client != nil {
		c.client.Del(key)
	}
}

func (c *Cache) Close() {
	if c != nil && c.client != nil {
		c.client.Close()
	}
}

// Stats is a point-in-time view of cache effectiveness
type Stats struct {
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	Added    uint64  `json:"keysAdded"`
	Evicted  uint64  `json:"keysEvicted"`
	HitRatio float64 `json:"hitRatio"`
}

func (c *Cache) Stats() Stats {
	if c == nil || c.client == nil || c.client.Metrics == nil {
		return Stats{}
	}
	m := c.client.Metrics
	return Stats{
		Hits:     m.Hits(),
		Misses:   m.Misses(),
		Added:    m.KeysAdded(),
		Evicted:  m.KeysEvicted(),
		HitRatio: m.Ratio(),
	}
}
