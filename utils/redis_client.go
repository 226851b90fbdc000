package utils

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/gallery/config"
)

var redisClient *redis.Client

// InitRedis creates the cache client when caching is enabled. Without it every cache call is a no-op.
func InitRedis(cfg config.AppConfig) *redis.Client {
	if !cfg.CacheEnabled {
		return nil
	}
	redisClient = redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// keep the client; the cache degrades to misses until redis is reachable
		Sugar.Warnf("redis ping failed: %v", err)
	}
	return redisClient
}

// GetRedis returns the cache client, or nil when caching is disabled.
func GetRedis() *redis.Client {
	return redisClient
}
