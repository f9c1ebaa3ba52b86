package repository

import (
	"context"
	"time"

	"github.com/converta/converta-server/internal/currency"
	"github.com/converta/converta-server/internal/model"
)

// SnapshotRepository defines the cache for fetched rate snapshots. A cache
// failure must never fail a conversion; callers degrade to a fresh provider
// fetch instead.
type SnapshotRepository interface {
	// SaveSnapshot stores a snapshot with TTL. subset distinguishes
	// restricted snapshots (e.g. the crypto subset) from full ones.
	SaveSnapshot(ctx context.Context, snap *model.RateSnapshot, subset string, ttl time.Duration) error

	// GetSnapshot retrieves a cached snapshot. A zero asOf means "latest".
	// Returns nil, nil on cache miss.
	GetSnapshot(ctx context.Context, base currency.Code, asOf time.Time, subset string) (*model.RateSnapshot, error)

	// Health checks if the repository is healthy.
	Health(ctx context.Context) error
}

// ErrNotFound is returned when a requested item is not in the repository.
type ErrNotFound struct {
	Key string
}

func (e ErrNotFound) Error() string {
	return "not found: " + e.Key
}
