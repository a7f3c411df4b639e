package verificationRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrTokenInvalid covers unknown, expired and already-consumed tokens.
var ErrTokenInvalid = errors.New("verification token invalid or expired")

// TokenStore issues and consumes single-use, time-boxed booking
// verification tokens.
type TokenStore interface {
	Issue(ctx context.Context, token, bookingID string, ttl time.Duration) error
	// Consume resolves the token to its booking id and invalidates it in
	// the same step, so a token can verify at most one booking once.
	Consume(ctx context.Context, token string) (string, error)
}

// RedisTokenStore implements TokenStore on Redis.
type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func tokenKey(token string) string {
	return fmt.Sprintf("verify:%s", token)
}

func (s *RedisTokenStore) Issue(ctx context.Context, token, bookingID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, tokenKey(token), bookingID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store verification token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Consume(ctx context.Context, token string) (string, error) {
	bookingID, err := s.client.GetDel(ctx, tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenInvalid
	}
	if err != nil {
		return "", fmt.Errorf("failed to consume verification token: %w", err)
	}
	return bookingID, nil
}
