package utils

import (
	"context"
	"log"
	"time"

	"homeserve/config"

	"github.com/go-redis/redis/v8"
)

var (
	// CacheClient holds carts and the commission-rate cache.
	CacheClient *redis.Client
	// LockClient holds the sweep locks.
	LockClient *redis.Client
)

func newRedisClient(db int, name string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (%s): %v", name, err)
	}
	return client
}

// InitCache connects the cache database.
func InitCache() {
	CacheClient = newRedisClient(config.AppConfig.RedisCacheDB, "Cache")
}

// GetCacheClient returns the cache client, connecting on first use.
func GetCacheClient() *redis.Client {
	if CacheClient == nil {
		InitCache()
	}
	return CacheClient
}

// InitLockCache connects the database used for distributed locks.
func InitLockCache() {
	LockClient = newRedisClient(config.AppConfig.RedisLockDB, "Lock")
}

func GetLockClient() *redis.Client {
	if LockClient == nil {
		InitLockCache()
	}
	return LockClient
}

// CloseCaches closes whichever clients were opened.
func CloseCaches() {
	for _, c := range []*redis.Client{CacheClient, LockClient} {
		if c != nil {
			_ = c.Close()
		}
	}
}
