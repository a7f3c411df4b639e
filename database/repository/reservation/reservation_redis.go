package reservationRepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"slotbook/models"

	"github.com/go-redis/redis/v8"
)

// indexTTL bounds the per-vendor index set; individual members are pruned
// lazily when their payload key has expired.
const indexTTL = 24 * time.Hour

// RedisReservationRepo implements ReservationRepository on Redis, using
// key TTLs as the expiry mechanism.
type RedisReservationRepo struct {
	client *redis.Client
}

func NewRedisReservationRepo(client *redis.Client) *RedisReservationRepo {
	return &RedisReservationRepo{client: client}
}

func holdKey(vendorID, date string, start time.Time) string {
	return fmt.Sprintf("resv:hold:%s:%s:%d", vendorID, date, start.UTC().Unix())
}

func dataKey(id string) string {
	return fmt.Sprintf("resv:data:%s", id)
}

func indexKey(vendorID, date string) string {
	return fmt.Sprintf("resv:idx:%s:%s", vendorID, date)
}

// Create takes the slot hold with SETNX, then stores the payload under the
// same TTL and records the id in the vendor/date index.
func (repo *RedisReservationRepo) Create(ctx context.Context, res *models.Reservation, ttl time.Duration) error {
	ok, err := repo.client.SetNX(ctx, holdKey(res.VendorID, res.Date, res.Start), res.ID, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire slot hold: %w", err)
	}
	if !ok {
		return ErrSlotHeld
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode reservation: %w", err)
	}
	if err := repo.client.Set(ctx, dataKey(res.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store reservation: %w", err)
	}
	idx := indexKey(res.VendorID, res.Date)
	if err := repo.client.SAdd(ctx, idx, res.ID).Err(); err != nil {
		return fmt.Errorf("failed to index reservation: %w", err)
	}
	if err := repo.client.Expire(ctx, idx, indexTTL).Err(); err != nil {
		return fmt.Errorf("failed to expire reservation index: %w", err)
	}
	return nil
}

func (repo *RedisReservationRepo) GetByID(ctx context.Context, id string) (*models.Reservation, error) {
	raw, err := repo.client.Get(ctx, dataKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reservation %s: %w", id, err)
	}
	var res models.Reservation
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, fmt.Errorf("failed to decode reservation %s: %w", id, err)
	}
	return &res, nil
}

// Delete releases the hold, the payload and the index entry.
func (repo *RedisReservationRepo) Delete(ctx context.Context, res *models.Reservation) error {
	if err := repo.client.Del(ctx,
		holdKey(res.VendorID, res.Date, res.Start),
		dataKey(res.ID),
	).Err(); err != nil {
		return fmt.Errorf("failed to delete reservation %s: %w", res.ID, err)
	}
	if err := repo.client.SRem(ctx, indexKey(res.VendorID, res.Date), res.ID).Err(); err != nil {
		return fmt.Errorf("failed to unindex reservation %s: %w", res.ID, err)
	}
	return nil
}

// ListActive resolves the index set against live payload keys, pruning
// entries whose TTL has already expired.
func (repo *RedisReservationRepo) ListActive(ctx context.Context, vendorID, date string) ([]models.Reservation, error) {
	idx := indexKey(vendorID, date)
	ids, err := repo.client.SMembers(ctx, idx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}

	var out []models.Reservation
	for _, id := range ids {
		res, err := repo.GetByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Hold expired; drop the stale index entry.
			_ = repo.client.SRem(ctx, idx, id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, nil
}
