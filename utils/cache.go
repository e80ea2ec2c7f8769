package utils

import (
	"context"
	"log"
	"time"

	"tripdesk/config"

	"github.com/go-redis/redis/v8"
)

// PendingCacheClient holds pending-confirmation workflow state between the
// preview call and the confirming call.
var PendingCacheClient *redis.Client

// InitPendingCache initializes the Redis client backing the confirmation gate.
func InitPendingCache() {
	PendingCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisPendingDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := PendingCacheClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (Pending Cache): %v", err)
	}
}

// GetPendingCacheClient returns the pending-confirmation cache client.
func GetPendingCacheClient() *redis.Client {
	if PendingCacheClient == nil {
		InitPendingCache()
	}
	return PendingCacheClient
}
