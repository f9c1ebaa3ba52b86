package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/converta/converta-server/internal/currency"
	"github.com/converta/converta-server/internal/model"
	"github.com/redis/go-redis/v9"
)

const snapshotKeyPrefix = "snapshot:"

// RedisRepository implements SnapshotRepository using Redis.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a new Redis-backed repository.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{
		client: client,
	}
}

// snapshotKey generates the Redis key for a snapshot. Latest snapshots use
// the literal "latest" in place of a date.
func snapshotKey(base currency.Code, asOf time.Time, subset string) string {
	date := "latest"
	if !asOf.IsZero() {
		date = asOf.Format("2006-01-02")
	}
	if subset == "" {
		subset = "all"
	}
	return fmt.Sprintf("%s%s:%s:%s", snapshotKeyPrefix, base, date, subset)
}

// SaveSnapshot stores a snapshot with TTL.
func (r *RedisRepository) SaveSnapshot(ctx context.Context, snap *model.RateSnapshot, subset string, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	key := snapshotKey(snap.Base, snap.AsOf, subset)
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// GetSnapshot retrieves a cached snapshot.
func (r *RedisRepository) GetSnapshot(ctx context.Context, base currency.Code, asOf time.Time, subset string) (*model.RateSnapshot, error) {
	key := snapshotKey(base, asOf, subset)
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snap model.RateSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

// Health checks if Redis is healthy.
func (r *RedisRepository) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
