package jobs

import (
	"context"
	"time"

	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/google/uuid"
)

type RedisRepository interface {
	// SetStatus caches view unless a newer one (by UpdatedAt) is already cached.
	SetStatus(ctx context.Context, view *models.StatusView, ttl time.Duration) error
	// GetStatus returns nil, nil on a cache miss.
	GetStatus(ctx context.Context, externalID uuid.UUID) (*models.StatusView, error)
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
