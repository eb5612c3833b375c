package leaderboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/cointap/mining-api/internal/db"
	"github.com/cointap/mining-api/internal/errors"
	"github.com/cointap/mining-api/pkg/logger"
)

// Cache is a short-TTL Redis cache in front of the aggregation queries.
// Every failure degrades to an uncached read; the leaderboard must keep
// working with Redis down.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(addr, password string, dbNum int, ttl time.Duration) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbNum,
	})
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached entries for a key, or false on miss or error.
func (c *Cache) Get(key string) ([]db.LeaderboardEntry, bool) {
	data, err := c.client.Get(context.Background(), key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.LogError(&errors.CacheError{Operation: "get " + key, Err: err})
		}
		return nil, false
	}

	var entries []db.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.LogError(&errors.CacheError{Operation: "decode " + key, Err: err})
		return nil, false
	}
	return entries, true
}

// Set stores entries under a key with the configured TTL.
func (c *Cache) Set(key string, entries []db.LeaderboardEntry) {
	data, err := json.Marshal(entries)
	if err != nil {
		logger.LogError(&errors.CacheError{Operation: "encode " + key, Err: err})
		return
	}
	if err := c.client.Set(context.Background(), key, data, c.ttl).Err(); err != nil {
		logger.LogError(&errors.CacheError{Operation: "set " + key, Err: err})
	}
}

func (c *Cache) Close() error {
	return c.client.Close()
}
