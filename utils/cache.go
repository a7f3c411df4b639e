package utils

import (
	"context"
	"log"
	"time"

	"slotbook/config"

	"github.com/go-redis/redis/v8"
)

var (
	// ReservationClient backs the TTL-bounded slot holds.
	ReservationClient *redis.Client
	// TokenClient backs single-use verification tokens.
	TokenClient *redis.Client
)

// InitReservationCache initializes the Redis client used for slot holds.
func InitReservationCache() {
	ReservationClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReservationDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := ReservationClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Reservations): %v", err)
	}
}

// GetReservationClient returns the reservation hold client.
func GetReservationClient() *redis.Client {
	if ReservationClient == nil {
		InitReservationCache()
	}
	return ReservationClient
}

// InitTokenCache initializes the Redis client for verification tokens.
func InitTokenCache() {
	TokenClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTokenDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := TokenClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Tokens): %v", err)
	}
}

// GetTokenClient returns the verification token client.
func GetTokenClient() *redis.Client {
	if TokenClient == nil {
		InitTokenCache()
	}
	return TokenClient
}
